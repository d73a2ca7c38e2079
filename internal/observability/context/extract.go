package context

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// RequestIDFromGin prefers the request context and falls back to the gin key set by the logger middleware.
func RequestIDFromGin(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if c.Request != nil {
		if value := RequestIDFromContext(c.Request.Context()); value != "" {
			return value
		}
	}
	return strings.TrimSpace(c.GetString("request_id"))
}
