// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter for cancellation and deadlines
//   - Return domain types, never wire DTOs or driver types
//   - Error returns use domain error types (ErrNotFound, ErrUnavailable, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// Slot names used by the quotebook in its key-value stores.
const (
	// SlotQuotes holds the JSON-encoded quote list in the persistent store.
	SlotQuotes = "dynamicQuotes"

	// SlotFilter holds the raw category filter string in the persistent store.
	SlotFilter = "lastCategoryFilter"

	// SlotLastViewed holds the JSON-encoded last shown quote in the session store.
	SlotLastViewed = "lastViewedQuote"
)

// KeyValueStore is a string-keyed slot store holding raw values.
// The quotebook uses one persistent and one session-scoped instance.
//
// Example usage in application layer:
//
//	raw, err := store.Get(ctx, ports.SlotQuotes)
//	if domain.IsNotFound(err) {
//	    // nothing persisted yet
//	}
type KeyValueStore interface {
	// Get retrieves the value stored under key.
	// Returns domain.ErrNotFound if the slot has never been written.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete clears the slot.
	// Does not return an error if the key does not exist.
	Delete(ctx context.Context, key string) error
}

// QuoteMirror is the remote endpoint the quotebook reconciles with.
//
// Key considerations:
//   - Handle timeouts via context deadline
//   - Map transport failures to domain.ErrUnavailable
//   - Transform wire records into domain quotes
type QuoteMirror interface {
	// List fetches the remote quote list.
	List(ctx context.Context) ([]domain.Quote, error)

	// Push publishes a single local quote to the mirror.
	// Success means only that the mirror acknowledged the request.
	Push(ctx context.Context, q domain.Quote) error
}

// MessageKind classifies a user-visible message.
type MessageKind string

const (
	// MessageSuccess reports a completed operation.
	MessageSuccess MessageKind = "success"

	// MessageError reports a failed operation.
	MessageError MessageKind = "error"

	// MessageInfo reports a neutral outcome.
	MessageInfo MessageKind = "info"
)

// Notifier surfaces short user-visible messages.
type Notifier interface {
	// Notify publishes text under the given kind. Implementations must not block.
	Notify(ctx context.Context, kind MessageKind, text string)
}
