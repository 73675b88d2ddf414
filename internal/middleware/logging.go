package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxRequestID = "request_id"
	headerReqID  = "X-Request-ID"
)

// RequestLogger tags every request with an id and logs its outcome.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(headerReqID)
		if reqID == "" || len(reqID) > 64 {
			reqID = uuid.NewString()
		}
		c.Set(ctxRequestID, reqID)
		c.Header(headerReqID, reqID)

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", reqID,
			"client_ip", c.ClientIP(),
		}
		if p := PrincipalFrom(c); p != nil {
			attrs = append(attrs, "user_id", p.UserID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request", attrs...)
		case status >= 400:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}

func RequestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}
