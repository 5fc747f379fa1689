package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

const defaultSubjectHeader = "X-User-ID"

// RequireAuth answers 403 to requests without a subject header. The logger
// of an admitted request carries the subject.
func RequireAuth(cfg *config.AuthConfig) gin.HandlerFunc {
	header := defaultSubjectHeader
	if cfg != nil && cfg.SubjectHeader != "" {
		header = cfg.SubjectHeader
	}

	return func(c *gin.Context) {
		subject := strings.TrimSpace(c.GetHeader(header))
		if subject == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
				dto.ErrorCodeForbidden,
				"authentication required",
			).WithTraceID(dto.GetTraceID(c)))

			return
		}

		ctx := c.Request.Context()
		logger := logging.FromContext(ctx).With(slog.String("subject", subject))
		c.Request = c.Request.WithContext(logging.WithContext(ctx, logger))

		c.Next()
	}
}
