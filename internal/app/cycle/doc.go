// Package cycle provides the per-reconciliation working state.
//
// # Memoized fetches
//
// Each phase of a cycle fetches the remote list at most once:
//
//	c := cycle.New()
//	remote, err := cycle.Fetch(ctx, c, cycle.PhaseInitial, mirror.List)
//
// A second Fetch with the same phase returns the cached value. The fetch
// runs with the ctx passed to Fetch, so spans and loggers attached to it
// reach the mirror call.
//
// # Staged pushes
//
// Writes to the mirror are staged as actions and committed in order:
//
//	_ = c.AddAction(pushAction)
//	if err := c.Commit(ctx); err != nil {
//	    // the first failing action stopped the commit
//	}
//
// Commit runs actions sequentially, never in parallel, and stops at the first
// failure. Actions that already ran are not undone; the quotes they pushed
// are present remotely and are not pushed again by the next cycle.
package cycle
