package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/PaulBabatuyi/socialnet/internal/middleware"
	"github.com/PaulBabatuyi/socialnet/internal/monitoring"
	"github.com/PaulBabatuyi/socialnet/internal/response"
	"github.com/PaulBabatuyi/socialnet/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// origins are enforced by the CORS layer and the token check
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) listMessages(c *gin.Context) {
	userID := middleware.UserID(c)
	sender := c.DefaultQuery("sender", userID)
	msgs, err := s.messaging.Messages(c.Request.Context(), userID, sender, c.Query("receiver"))
	respond(c, "messages", msgs, err)
}

func (s *Server) listConversations(c *gin.Context) {
	convs, err := s.messaging.Conversations(c.Request.Context(), middleware.UserID(c))
	respond(c, "conversations", convs, err)
}

func (s *Server) sendMessage(c *gin.Context) {
	var req struct {
		service.SendInput
		Sender string `json:"sender"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := s.messaging.Send(c.Request.Context(), middleware.UserID(c), req.Sender, c.Param("receiverId"), req.SendInput)
	if err != nil {
		response.Error(c, err)
		return
	}
	monitoring.MessagesSent.Inc()
	response.OK(c, gin.H{"message": res.Message, "messages": res.Messages})
}

// liveMessages upgrades to a websocket on which the caller receives the
// messages sent to them while connected. Sending goes through POST; the
// socket is read only to notice the client going away.
func (s *Server) liveMessages(c *gin.Context) {
	userID := middleware.UserID(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already answered the client
		s.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	sender := &wsSender{conn: conn}
	connID := s.hub.Register(userID, sender)
	s.log.Debug("websocket connected", zap.String("user_id", userID), zap.Int64("conn_id", connID))
	defer func() {
		s.hub.Unregister(userID, connID)
		_ = conn.Close()
	}()

	done := make(chan struct{})
	defer close(done)
	go keepAlive(conn, done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// keepAlive pings conn until done is closed or a ping fails.
func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// wsSender serializes writes to one websocket connection.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsSender) Send(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(v)
}
