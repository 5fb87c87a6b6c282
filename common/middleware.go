package common

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"privateblog/metrics"
)

// Base is the outermost middleware of the server. The request logger wraps
// recovery so panicking requests are still logged and measured.
func Base(logger *zap.SugaredLogger, m *metrics.Metrics) gin.HandlersChain {
	return gin.HandlersChain{RequestLogger(logger, m), Recovery(logger)}
}

// RequestLogger logs every request and records HTTP metrics.
func RequestLogger(logger *zap.SugaredLogger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		logger.Infow("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"size", c.Writer.Size(),
			"duration", duration,
			"remote_addr", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)

		m.RecordHTTPRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), duration)
	}
}

// RateLimit throttles state-changing requests. Reads are never limited.
// rpm <= 0 disables the limiter.
func RateLimit(rpm int) gin.HandlerFunc {
	if rpm <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	burst := rpm / 6
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
