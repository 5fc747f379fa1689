package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/app"
)

// SyncHandler triggers reconciliation and surfaces transient messages.
type SyncHandler struct {
	syncer   app.Syncer
	messages *app.MessageBox
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncer app.Syncer, messages *app.MessageBox) *SyncHandler {
	return &SyncHandler{
		syncer:   syncer,
		messages: messages,
	}
}

// MessageResponse is the current user-visible message.
type MessageResponse struct {
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Sync handles POST /api/v1/sync
// Runs one reconciliation cycle and reports its outcome.
//
// @Summary Sync with the remote mirror
// @Tags sync
// @Produce json
// @Success 200 {object} app.SyncResult
// @Failure 409 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/sync [post]
func (h *SyncHandler) Sync(c *gin.Context) {
	result, err := h.syncer.Sync(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMessage handles GET /api/v1/messages
// Returns 204 when nothing is showing.
func (h *SyncHandler) GetMessage(c *gin.Context) {
	msg, ok := h.messages.Current()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Kind:      string(msg.Kind),
		Text:      msg.Text,
		ExpiresAt: msg.ExpiresAt,
	})
}

// RegisterMessageRoutes registers the message route on the given router group.
func (h *SyncHandler) RegisterMessageRoutes(rg *gin.RouterGroup) {
	rg.GET("/messages", h.GetMessage)
}

// RegisterSyncRoute registers POST /sync with optional extra middleware.
func (h *SyncHandler) RegisterSyncRoute(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	rg.POST("/sync", append(mw, h.Sync)...)
}
