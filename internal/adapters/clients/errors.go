// Package clients is the HTTP transport to the quote mirror: pooled
// connections, retries of idempotent requests with jittered backoff, a
// circuit breaker, tracing and request metrics. The acl package turns its
// errors and statuses into domain errors.
package clients

import "errors"

var (
	// ErrCircuitOpen is returned without sending anything while the breaker
	// is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last failure of an idempotent request
	// whose attempts all failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
