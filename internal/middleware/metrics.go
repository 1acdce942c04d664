package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/philsca/registrar/pkg/metrics"
)

// Metrics observes latency, size and concurrency for every request. Routes are
// labelled by their template so path parameters do not create new series.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.APIInFlight.Inc()
		defer metrics.APIInFlight.Dec()

		began := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.APILatency.
			WithLabelValues(c.Request.Method, route, statusClass(c.Writer.Status())).
			Observe(time.Since(began).Seconds())
		if size := c.Writer.Size(); size > 0 {
			metrics.APIResponseBytes.WithLabelValues(route).Observe(float64(size))
		}
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
