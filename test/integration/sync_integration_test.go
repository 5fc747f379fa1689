//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

func decodeSyncResult(t *testing.T, body []byte) app.SyncResult {
	t.Helper()

	var result app.SyncResult
	require.NoError(t, json.Unmarshal(body, &result), string(body))

	return result
}

func currentMessage(t *testing.T, s *stack) handlers.MessageResponse {
	t.Helper()

	status, body := s.do(http.MethodGet, "/api/v1/messages", "")
	require.Equal(t, http.StatusOK, status)

	var msg handlers.MessageResponse
	require.NoError(t, json.Unmarshal(body, &msg))

	return msg
}

func listCategory(t *testing.T, s *stack, category string) []handlers.QuoteResponse {
	t.Helper()

	status, body := s.do(http.MethodGet, "/api/v1/quotes?limit=100&category="+category, "")
	require.Equal(t, http.StatusOK, status)

	var page dto.Page[handlers.QuoteResponse]
	require.NoError(t, json.Unmarshal(body, &page))

	return page.Items
}

func TestSync_OverHTTPPushesAndMerges(t *testing.T) {
	mirror := newFakeMirror(t, "R1")
	s := newStack(t, testConfig(t, mirror.url()))

	status, body := s.do(http.MethodPost, "/api/v1/quotes", `{"text":"L1","category":"Mine"}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = s.do(http.MethodPost, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, status, string(body))

	result := decodeSyncResult(t, body)
	assert.True(t, result.Changed)
	assert.Equal(t, []domain.Quote{{Text: "L1", Category: "Mine"}}, result.Pushed)
	assert.Equal(t, 1, result.Remote)
	assert.Equal(t, 2, result.Merged)
	assert.Equal(t, []string{"L1"}, mirror.pushedTitles())

	msg := currentMessage(t, s)
	assert.Equal(t, "success", msg.Kind)
	assert.Equal(t, "Quotes synced with server!", msg.Text)

	assert.Equal(t, []handlers.QuoteResponse{{Text: "R1", Category: "API"}}, listCategory(t, s, "API"))
	assert.Equal(t, []handlers.QuoteResponse{{Text: "L1", Category: "Mine"}}, listCategory(t, s, "Mine"))
}

// TestSync_RepushesWhenMirrorDoesNotKeep verifies that pushes are not
// remembered: a mirror that discards creates gets the same quote every cycle.
func TestSync_RepushesWhenMirrorDoesNotKeep(t *testing.T) {
	mirror := newFakeMirror(t, "R1")
	s := newStack(t, testConfig(t, mirror.url()))

	_, err := s.components.Book.Add(context.Background(), "L1", "Mine")
	require.NoError(t, err)

	first, err := s.components.Reconciler.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Changed)

	second, err := s.components.Reconciler.Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, []domain.Quote{{Text: "L1", Category: "Mine"}}, second.Pushed)

	assert.Equal(t, []string{"L1", "L1"}, mirror.pushedTitles())
	assert.Equal(t, "Local quotes are already up to date.", currentMessage(t, s).Text)
}

// TestSync_KeptPushComesBackUnderMirrorCategory verifies that a mirror that
// stores creates returns them tagged with the configured category, so the
// original local quote stays local-only.
func TestSync_KeptPushComesBackUnderMirrorCategory(t *testing.T) {
	mirror := newFakeMirror(t)
	mirror.keep = true
	s := newStack(t, testConfig(t, mirror.url()))

	_, err := s.components.Book.Add(context.Background(), "L1", "Mine")
	require.NoError(t, err)

	result, err := s.components.Reconciler.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Remote)
	assert.Equal(t, []domain.Quote{
		{Text: "L1", Category: "API"},
		{Text: "L1", Category: "Mine"},
	}, s.components.Book.Quotes())
}

func TestSync_MirrorDownLeavesStoreUntouched(t *testing.T) {
	mirror := newFakeMirror(t)
	mirror.down.Store(true)
	s := newStack(t, testConfig(t, mirror.url()))

	_, err := s.components.Book.Add(context.Background(), "L1", "Mine")
	require.NoError(t, err)

	_, before := s.do(http.MethodGet, "/api/v1/quotes/export", "")

	status, body := s.do(http.MethodPost, "/api/v1/sync", "")
	require.Equal(t, http.StatusServiceUnavailable, status)

	var errResp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, dto.ErrorCodeUnavailable, errResp.Error.Code)

	_, after := s.do(http.MethodGet, "/api/v1/quotes/export", "")
	assert.Equal(t, string(before), string(after))

	msg := currentMessage(t, s)
	assert.Equal(t, "error", msg.Kind)
	assert.Equal(t, "Failed to sync with server. Local quotes were left unchanged.", msg.Text)
}

func TestSync_OverlappingRequestsConflict(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	var once sync.Once

	mirror := newFakeMirror(t, "R1")
	mirror.hold = func(*http.Request) {
		once.Do(func() {
			close(entered)
			<-release
		})
	}
	s := newStack(t, testConfig(t, mirror.url()))

	first := make(chan int, 1)
	go func() {
		status, _ := s.do(http.MethodPost, "/api/v1/sync", "")
		first <- status
	}()

	<-entered

	status, body := s.do(http.MethodPost, "/api/v1/sync", "")
	assert.Equal(t, http.StatusConflict, status, string(body))

	close(release)
	assert.Equal(t, http.StatusOK, <-first)
}

// TestSync_KeepsQuoteAddedDuringCycle verifies that an add served while a
// cycle waits on the mirror survives the store replacement.
func TestSync_KeepsQuoteAddedDuringCycle(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	var once sync.Once

	mirror := newFakeMirror(t, "R1")
	mirror.hold = func(r *http.Request) {
		if r.Method != http.MethodGet {
			return
		}
		once.Do(func() {
			close(entered)
			<-release
		})
	}
	s := newStack(t, testConfig(t, mirror.url()))

	done := make(chan error, 1)
	go func() {
		_, err := s.components.Reconciler.Sync(context.Background())
		done <- err
	}()

	<-entered

	status, body := s.do(http.MethodPost, "/api/v1/quotes", `{"text":"Late","category":"Mine"}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	close(release)
	require.NoError(t, <-done)

	assert.Contains(t, s.components.Book.Quotes(), domain.Quote{Text: "Late", Category: "Mine"})
	assert.Contains(t, s.components.Book.Quotes(), domain.Quote{Text: "R1", Category: "API"})
}

func TestSync_SchedulerRunsUntilCancelled(t *testing.T) {
	mirror := newFakeMirror(t, "R1")

	cfg := testConfig(t, mirror.url())
	cfg.Sync.Enabled = true
	cfg.Sync.Interval = time.Second
	cfg.Sync.RunOnStart = true
	s := newStack(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.components.Scheduler().Run(gctx)
	})

	assert.Eventually(t, func() bool {
		return len(s.components.Book.Quotes()) == 1
	}, 2*time.Second, 10*time.Millisecond, "the run-on-start cycle merges the remote list")

	cancel()
	require.NoError(t, g.Wait())

	assert.Equal(t, []domain.Quote{{Text: "R1", Category: "API"}}, s.components.Book.Quotes())
}
