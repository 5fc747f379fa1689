package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxInboundIDLength caps an ID accepted from a caller. Longer values are
// replaced.
const maxInboundIDLength = 128

// idHeader describes one ID carried in a request header.
type idHeader struct {
	name   string
	ginKey string
	attach func(ctx context.Context, id string) context.Context
}

// propagate keeps the caller's ID, or a fresh UUID when the header is
// missing, blank or oversized. The ID is echoed in the response, set on the
// gin context and attached to the request context.
func (h idHeader) propagate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(h.name))
		if id == "" || len(id) > maxInboundIDLength {
			id = uuid.NewString()
		}

		c.Set(h.ginKey, id)
		c.Header(h.name, id)
		c.Request = c.Request.WithContext(h.attach(c.Request.Context(), id))

		c.Next()
	}
}
