package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PaulBabatuyi/socialnet/internal/response"
)

// Recovery turns a panic in a handler into a 500 envelope.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					zap.Any("error", r),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", c.GetString(RequestIDKey)),
					zap.String("stack", string(debug.Stack())))
				response.Fail(c, http.StatusInternalServerError, fmt.Sprint(r))
			}
		}()
		c.Next()
	}
}
