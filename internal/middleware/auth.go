package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PaulBabatuyi/socialnet/internal/auth"
	"github.com/PaulBabatuyi/socialnet/internal/response"
)

// UserIDKey is the gin context key holding the authenticated user's hex id.
const UserIDKey = "user_id"

// TokenHeader is the header clients send the session token in. A standard
// "Authorization: Bearer" header is accepted as well.
const TokenHeader = "auth-token"

const msgUnauthenticated = "Please authenticate with valid token"

// TokenVerifier validates session tokens. Implemented by auth.JWTManager.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// Auth rejects requests without a valid session token with a 401 envelope
// and stores the caller's id under UserIDKey.
func Auth(v TokenVerifier) gin.HandlerFunc {
	return authenticate(v, headerToken)
}

// AuthQuery is Auth that also accepts the token in the "token" query
// parameter. Browsers cannot set headers on a websocket handshake.
func AuthQuery(v TokenVerifier) gin.HandlerFunc {
	return authenticate(v, func(r *http.Request) string {
		if t := headerToken(r); t != "" {
			return t
		}
		return r.URL.Query().Get("token")
	})
}

func authenticate(v TokenVerifier, extract func(*http.Request) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extract(c.Request)
		if token == "" {
			response.Fail(c, http.StatusUnauthorized, msgUnauthenticated)
			return
		}
		claims, err := v.VerifyToken(token)
		if err != nil {
			_ = c.Error(err)
			response.Fail(c, http.StatusUnauthorized, msgUnauthenticated)
			return
		}
		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

func headerToken(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(TokenHeader)); t != "" {
		return t
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// UserID returns the authenticated caller set by Auth.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
