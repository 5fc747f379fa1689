package clients

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives a breaker's notion of time.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures, halfOpenLimit int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   maxFailures,
		Timeout:       10 * time.Second,
		HalfOpenLimit: halfOpenLimit,
	})
	cb.now = clock.now

	return cb, clock
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, 1)

	require.True(t, cb.Allow())

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State(), "a success resets the failure streak")

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_Recovery(t *testing.T) {
	tests := []struct {
		name      string
		outcomes  []bool
		wantState State
	}{
		{name: "probes succeed", outcomes: []bool{true, true}, wantState: StateClosed},
		{name: "one success is not enough", outcomes: []bool{true}, wantState: StateHalfOpen},
		{name: "probe fails", outcomes: []bool{true, false}, wantState: StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clock := newTestBreaker(1, 2)

			cb.RecordFailure()
			require.Equal(t, StateOpen, cb.State())

			clock.advance(9 * time.Second)
			require.False(t, cb.Allow(), "still cooling down")

			clock.advance(time.Second)
			require.True(t, cb.Allow())
			require.Equal(t, StateHalfOpen, cb.State())

			for i, ok := range tt.outcomes {
				if i > 0 {
					require.True(t, cb.Allow())
				}
				if ok {
					cb.RecordSuccess()
				} else {
					cb.RecordFailure()
				}
			}

			assert.Equal(t, tt.wantState, cb.State())
		})
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cb, clock := newTestBreaker(1, 2)

	cb.RecordFailure()
	clock.advance(10 * time.Second)

	assert.True(t, cb.Allow())
	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow(), "two probes already in flight")

	cb.RecordSuccess()
	assert.True(t, cb.Allow(), "a finished probe frees a slot")
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	cb, clock := newTestBreaker(1, 1)

	var transitions []string
	cb.OnStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
		_ = cb.State() // listener runs without the lock held
	})

	cb.RecordFailure()
	clock.advance(10 * time.Second)
	cb.Allow()
	cb.RecordSuccess()

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_Concurrent(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   100,
		Timeout:       time.Second,
		HalfOpenLimit: 5,
	})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cb.Allow() {
				if i%2 == 0 {
					cb.RecordSuccess()
				} else {
					cb.RecordFailure()
				}
			}
			_ = cb.State()
		}()
	}
	wg.Wait()

	assert.Equal(t, StateClosed, cb.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
