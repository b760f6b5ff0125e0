package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/PaulBabatuyi/socialnet/internal/normalize"
	"github.com/PaulBabatuyi/socialnet/internal/response"
)

const idleTTL = 10 * time.Minute

// LimiterStore maintains per-key rate limiters and performs periodic cleanup.
type LimiterStore struct {
	mu              sync.Mutex
	limit           rate.Limit
	burst           int
	clients         map[string]*clientEntry
	cleanupInterval time.Duration
	stopCh          chan struct{}
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiterStore creates a store of per-key limiters allowing
// limitPerMinute events with the given burst. Keys idle for ten minutes are
// dropped every cleanupInterval.
func NewLimiterStore(limitPerMinute int, burst int, cleanupInterval time.Duration) *LimiterStore {
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	s := &LimiterStore{
		limit:           rate.Every(time.Minute / time.Duration(limitPerMinute)),
		burst:           burst,
		clients:         map[string]*clientEntry{},
		cleanupInterval: cleanupInterval,
		stopCh:          make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *LimiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			s.sweep(now)
		case <-s.stopCh:
			return
		}
	}
}

// sweep drops limiters not used within idleTTL of now.
func (s *LimiterStore) sweep(now time.Time) {
	cutoff := now.Add(-idleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.clients {
		if v.lastSeen.Before(cutoff) {
			delete(s.clients, k)
		}
	}
}

// Stop ends the cleanup loop.
func (s *LimiterStore) Stop() {
	close(s.stopCh)
}

func (s *LimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.clients[key]; ok {
		e.lastSeen = time.Now()
		return e.limiter
	}
	limiter := rate.NewLimiter(s.limit, s.burst)
	s.clients[key] = &clientEntry{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

// Allow checks whether an event for the given key is permitted.
func (s *LimiterStore) Allow(key string) bool {
	l := s.getLimiter(key)
	return l.Allow()
}

// maxPeek bounds how much of a request body is read to find the email.
const maxPeek = 1 << 20

// RateLimit returns a gin middleware that throttles the route it guards.
// Login and register requests are keyed by the email in the JSON body so a
// single account cannot be brute forced from many addresses; requests
// without one fall back to the client IP.
func RateLimit(store *LimiterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if email := peekEmail(c); email != "" {
			key = fmt.Sprintf("email:%s", email)
		}

		if !store.Allow(key) {
			response.Fail(c, http.StatusTooManyRequests, "Too many requests, please try again later!")
			return
		}
		c.Next()
	}
}

// peekEmail reads the email field of a JSON body and restores the body for
// the handler.
func peekEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	orig := c.Request.Body
	body, err := io.ReadAll(io.LimitReader(orig, maxPeek))
	// the handler sees the peeked prefix followed by whatever was not read
	c.Request.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(body), orig), orig}
	if err != nil {
		return ""
	}
	var probe struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return ""
	}
	return normalize.Email(probe.Email)
}
