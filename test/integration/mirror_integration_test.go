//go:build integration

package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

// TestMirror_ListRetriesTransientFailures verifies that the mirror adapter
// rides out 503s within the retry budget.
func TestMirror_ListRetriesTransientFailures(t *testing.T) {
	mirror := newFakeMirror(t, "R1", "R2")
	mirror.fail.Store(2)

	cfg := testConfig(t, mirror.url())
	cfg.Client.Retry.MaxAttempts = 3
	s := newStack(t, cfg)

	quotes, err := s.components.Mirror.List(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.Quote{
		{Text: "R1", Category: "API"},
		{Text: "R2", Category: "API"},
	}, quotes)
	assert.Equal(t, int32(3), mirror.requests.Load(), "expected 2 failures + 1 success")
}

// TestMirror_PushReplaysBodyOnRetry verifies that a retried create request
// carries the same payload as the first attempt.
func TestMirror_PushReplaysBodyOnRetry(t *testing.T) {
	mirror := newFakeMirror(t)
	mirror.fail.Store(1)

	cfg := testConfig(t, mirror.url())
	cfg.Client.Retry.MaxAttempts = 2
	s := newStack(t, cfg)

	err := s.components.Mirror.Push(context.Background(), domain.Quote{Text: "Retry me", Category: "Ops"})

	require.NoError(t, err)

	mirror.mu.Lock()
	defer mirror.mu.Unlock()

	require.Len(t, mirror.posts, 2)
	assert.Equal(t, mirror.posts[0], mirror.posts[1])
	assert.Equal(t, mirrorPost{Title: "Retry me", Body: "Category: Ops", UserID: 1}, mirror.posts[1])
}

// TestMirror_TranslatesFirstItemsOnly verifies max_items truncation and blank
// title skipping against a real HTTP round trip.
func TestMirror_TranslatesFirstItemsOnly(t *testing.T) {
	mirror := newFakeMirror(t, "one", "", "three", "four")

	cfg := testConfig(t, mirror.url())
	cfg.Services.Mirror.MaxItems = 3
	cfg.Services.Mirror.Category = "Remote"
	s := newStack(t, cfg)

	quotes, err := s.components.Mirror.List(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.Quote{
		{Text: "one", Category: "Remote"},
		{Text: "three", Category: "Remote"},
	}, quotes)
}

// TestMirror_CircuitOpensAfterRepeatedSyncFailures verifies that once the
// breaker opens, sync fails fast as unavailable without calling the mirror.
func TestMirror_CircuitOpensAfterRepeatedSyncFailures(t *testing.T) {
	mirror := newFakeMirror(t)
	mirror.down.Store(true)

	cfg := testConfig(t, mirror.url())
	cfg.Client.CircuitBreaker.MaxFailures = 2
	s := newStack(t, cfg)

	_, err := s.components.Book.Add(context.Background(), "Local", "Mine")
	require.NoError(t, err)
	before := s.components.Book.Quotes()

	for range 2 {
		_, err := s.components.Reconciler.Sync(context.Background())
		require.Error(t, err)
		assert.True(t, domain.IsUnavailable(err))
	}

	calls := mirror.requests.Load()

	_, err = s.components.Reconciler.Sync(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, calls, mirror.requests.Load(), "no mirror call while the circuit is open")
	assert.Equal(t, before, s.components.Book.Quotes())
}

// TestMirror_PropagatesRequestID verifies that the inbound request ID is sent
// on every mirror call made by the sync endpoint.
func TestMirror_PropagatesRequestID(t *testing.T) {
	mirror := newFakeMirror(t, "R1")
	s := newStack(t, testConfig(t, mirror.url()))

	_, err := s.components.Book.Add(context.Background(), "L1", "Mine")
	require.NoError(t, err)

	status, body := s.do(http.MethodPost, "/api/v1/sync", "", middleware.HeaderRequestID, "req-sync-123")
	require.Equal(t, http.StatusOK, status, string(body))

	ids := mirror.seenRequestIDs()
	require.Len(t, ids, 3, "list, push, refetch")
	for _, id := range ids {
		assert.Equal(t, "req-sync-123", id)
	}
}

// TestMirror_ConcurrentListsShareClient verifies that concurrent callers can
// share the adapter without interfering.
func TestMirror_ConcurrentListsShareClient(t *testing.T) {
	mirror := newFakeMirror(t, "R1", "R2", "R3")
	s := newStack(t, testConfig(t, mirror.url()))

	const workers = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			quotes, err := s.components.Mirror.List(context.Background())
			if err == nil && len(quotes) != 3 {
				err = assert.AnError
			}
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(workers), mirror.requests.Load())
}
