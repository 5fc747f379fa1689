package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// probePrefix marks the health and metrics routes, which are not logged.
const probePrefix = "/-/"

// Logging writes a "request started" and a "request completed" record for
// every API request through the request's context logger, falling back to
// logger. Completion logs at WARN for 4xx and ERROR for 5xx.
func Logging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, probePrefix) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		log := logging.FromContextOr(ctx, logger)
		start := time.Now()

		target := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}

		log.InfoContext(ctx, "request started",
			slog.String("method", c.Request.Method),
			slog.String("path", target),
			slog.String("client_ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
		)

		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)

		log.Log(ctx, levelFor(status), "request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", target),
			slog.Int("status", status),
			slog.Duration("latency", elapsed),
			slog.Int64("latency_ms", elapsed.Milliseconds()),
			slog.Int("bytes", c.Writer.Size()),
		)
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
