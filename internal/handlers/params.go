package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

// requestContext returns the request context, or Background when the handler is
// invoked without a request.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// pathParam returns the trimmed route parameter; services treat "" as not found.
func pathParam(c *gin.Context, name string) string {
	return strings.TrimSpace(c.Param(name))
}
