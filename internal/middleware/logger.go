package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/fog-backend-go/internal/logger"
	"go.uber.org/zap"
)

// Logger middleware logs HTTP requests
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Start timer
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		// Build query string
		if raw != "" {
			path = path + "?" + raw
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if user := c.GetString("user"); user != "" {
			fields = append(fields, zap.String("user", user))
		}

		switch {
		case len(c.Errors) > 0:
			logger.L().Error(c.Errors.String(), fields...)
		case c.Writer.Status() >= 500:
			logger.L().Error("[HTTP] request failed", fields...)
		default:
			logger.L().Info("[HTTP] request", fields...)
		}
	}
}
