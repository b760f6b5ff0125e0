// Package response writes the JSON envelope every endpoint answers with:
// {success, ...payload, status}. The HTTP status line always equals the
// status field.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PaulBabatuyi/socialnet/internal/apperr"
)

// OK writes a 200 success envelope carrying payload's keys.
func OK(c *gin.Context, payload gin.H) {
	body := make(gin.H, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	body["status"] = http.StatusOK
	c.JSON(http.StatusOK, body)
}

// Error writes the failure envelope for err and aborts the handler chain.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	Fail(c, apperr.Status(err), apperr.Message(err))
}

// Fail writes a failure envelope with an explicit status and aborts the
// handler chain.
func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg, "status": status})
}
