package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

const (
	// HeaderRequestID is the header name for request ID.
	HeaderRequestID = "X-Request-ID"

	// ContextKeyRequestID is the context key for storing the request ID.
	ContextKeyRequestID = "request_id"
)

// RequestID returns middleware that extracts or generates a request ID.
// The request ID is:
//   - Extracted from the X-Request-ID header if present and at most 128 bytes
//   - Generated as a new UUID v4 otherwise
//   - Stored in the gin.Context for later retrieval
//   - Added to the response headers
//   - Added to the request context for downstream clients and the context logger
func RequestID() gin.HandlerFunc {
	return idHeader{
		name:   HeaderRequestID,
		ginKey: ContextKeyRequestID,
		attach: withRequestID,
	}.propagate()
}

// withRequestID stores the ID for downstream propagation and in the context logger.
func withRequestID(ctx context.Context, id string) context.Context {
	return logging.WithRequestID(ContextWithRequestID(ctx, id), id)
}

// GetRequestID extracts the request ID from the gin.Context.
// Returns empty string if not set.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}
