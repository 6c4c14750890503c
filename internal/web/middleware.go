package web

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"easyapply/internal/logging"
)

func requestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request", kv...)
		case strings.HasPrefix(c.Request.URL.Path, "/api/status"):
			// polled every few seconds by the UI
			log.Debug("request", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}

// isLocalOrigin admits the UI served from this machine on any port.
func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
