package middleware

import (
	stdErrors "errors"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/philsca/registrar/pkg/errors"
	"github.com/philsca/registrar/pkg/logger"
	"github.com/philsca/registrar/pkg/metrics"
	"github.com/philsca/registrar/pkg/response"
)

// Recovery turns a handler panic into a generic 500 reply. Panics caused by a client
// that hung up are logged without a reply since nothing can be written.
func Recovery() gin.HandlerFunc {
	log := logger.WithModule("http")

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			metrics.PanicsRecovered.WithLabelValues(route).Inc()

			fields := []zap.Field{
				zap.String("method", c.Request.Method),
				zap.String("route", route),
				zap.Any("panic", rec),
			}
			if adminID := AdminID(c); adminID != "" {
				fields = append(fields, zap.String("admin_id", adminID))
			}

			if brokenPipe(rec) {
				log.Warn("client went away mid-response", fields...)
				c.Abort()
				return
			}

			log.Error("handler panicked", append(fields, zap.Stack("stack"))...)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, errors.ErrInternalServer)
			c.Abort()
		}()
		c.Next()
	}
}

func brokenPipe(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	if stdErrors.Is(err, syscall.EPIPE) || stdErrors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if !stdErrors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if stdErrors.As(opErr.Err, &sysErr) {
		msg := strings.ToLower(sysErr.Error())
		return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
	}
	return false
}

// NotFoundHandler replies with the JSON error envelope for unknown routes.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, errors.ErrNotFound.WithMessage("route "+c.Request.URL.Path+" not found"))
}
