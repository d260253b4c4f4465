package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library-lending/internal/logging"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestIDMiddleware reuses the caller's X-Request-ID or assigns a new one
// and echoes it on the response.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLogMiddleware writes one structured line per request.
func AccessLogMiddleware(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
			"request_id", requestID(c),
		}
		if c.Writer.Status() >= 500 {
			log.Warn(c.Request.Context(), "request", args...)
			return
		}
		log.Info(c.Request.Context(), "request", args...)
	}
}
