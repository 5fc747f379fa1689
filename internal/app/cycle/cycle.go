package cycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Well-known memoization keys for the remote list.
const (
	// PhaseInitial is the fetch that determines which local quotes to push.
	PhaseInitial = "remote:initial"

	// PhaseAfterPush is the refetch that feeds the merge.
	PhaseAfterPush = "remote:after-push"
)

// Cycle holds the memoized fetches and staged actions of one reconciliation.
type Cycle struct {
	id        string
	cache     sync.Map
	mu        sync.Mutex
	actions   []Action
	executed  int
	committed bool
}

// New creates a cycle with a fresh random ID.
func New() *Cycle {
	return &Cycle{id: uuid.NewString()}
}

// ID returns the cycle identifier used in logs, spans and results.
func (c *Cycle) ID() string {
	return c.id
}

// GetOrFetch returns the cached value for key, or runs fetchFn with ctx and
// caches its result. Errors are not cached.
func (c *Cycle) GetOrFetch(ctx context.Context, key string, fetchFn func(ctx context.Context) (any, error)) (any, error) {
	if cached, ok := c.cache.Load(key); ok {
		return cached, nil
	}

	value, err := fetchFn(ctx)
	if err != nil {
		return nil, err
	}

	actual, _ := c.cache.LoadOrStore(key, value)

	return actual, nil
}

// Fetch is the typed form of GetOrFetch.
func Fetch[T any](ctx context.Context, c *Cycle, key string, fetchFn func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetchFn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}

	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cycle: cached %q has type %T", key, v)
	}

	return t, nil
}
