package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aurorasociety/clubhouse/pkg/logger"
)

// Logger writes a structured access log for each request. When the request was
// authenticated the acting member's id is included, so approvals and code
// operations can be tied back to a sponsor.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		// Auth middleware runs after us, so the identity is only visible here,
		// once the rest of the chain has completed.
		if memberID := c.GetString(CtxUserIDKey); memberID != "" {
			fields = append(fields, zap.String("member_id", memberID))
		}

		logger.WithModule("http").Info("request", fields...)
	}
}
