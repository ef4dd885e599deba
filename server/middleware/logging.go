package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/pmidfetch/logger"
)

// probePaths are polled by supervisors and logged only on failure.
var probePaths = map[string]bool{
	"/healthz":  true,
	"/livez":    true,
	"/readyz":   true,
	"/progress": true,
}

// RequestLogger logs every request with method, path, status and latency.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if probePaths[c.Request.URL.Path] && status < 500 {
			return
		}

		fields := logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start).String(),
		)
		if id, ok := c.Get("request_id"); ok {
			fields["request_id"] = id
		}
		logByStatus(log, fields, status)
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("request completed", fields)
	case status >= 400:
		log.Warn("request completed", fields)
	default:
		log.Debug("request completed", fields)
	}
}
