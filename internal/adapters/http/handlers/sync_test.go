package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

type stubSyncer struct {
	result *app.SyncResult
	err    error
	calls  int
}

func (s *stubSyncer) Sync(_ context.Context) (*app.SyncResult, error) {
	s.calls++
	return s.result, s.err
}

func serveSync(h *SyncHandler, req *http.Request, mw ...gin.HandlerFunc) *httptest.ResponseRecorder {
	router := gin.New()
	api := router.Group("/api/v1")
	h.RegisterSyncRoute(api, mw...)
	h.RegisterMessageRoutes(api)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestSyncHandler_Sync(t *testing.T) {
	tests := []struct {
		name           string
		syncer         *stubSyncer
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "success",
			syncer: &stubSyncer{result: &app.SyncResult{
				CycleID: "cycle-1",
				Pushed:  []domain.Quote{{Text: "L1", Category: "X"}},
				Remote:  1,
				Merged:  2,
				Changed: true,
			}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "mirror unreachable",
			syncer:         &stubSyncer{err: app.NewPerformError("fetching remote quotes", domain.NewUnavailableError("quote-mirror", "refused"))},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   dto.ErrorCodeUnavailable,
		},
		{
			name:           "cycle already running",
			syncer:         &stubSyncer{err: domain.NewConflictError("sync", "a cycle is already running")},
			expectedStatus: http.StatusConflict,
			expectedCode:   dto.ErrorCodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSyncHandler(tt.syncer, app.NewMessageBox(time.Minute, discardLogger()))

			w := serveSync(h, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, 1, tt.syncer.calls)

			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Error.Code)
				return
			}

			var resp app.SyncResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, *tt.syncer.result, resp)
		})
	}
}

func TestSyncHandler_SyncMiddlewareRunsFirst(t *testing.T) {
	syncer := &stubSyncer{result: &app.SyncResult{}}
	h := NewSyncHandler(syncer, app.NewMessageBox(time.Minute, discardLogger()))

	deny := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusForbidden)
	}

	w := serveSync(h, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil), deny)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, syncer.calls)
}

func TestSyncHandler_GetMessage(t *testing.T) {
	box := app.NewMessageBox(time.Minute, discardLogger())
	h := NewSyncHandler(&stubSyncer{}, box)

	w := serveSync(h, httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	box.Notify(context.Background(), ports.MessageSuccess, "Quotes synced with server!")

	w = serveSync(h, httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Kind)
	assert.Equal(t, "Quotes synced with server!", resp.Text)
	assert.False(t, resp.ExpiresAt.IsZero())
}
