// Package storage groups the key-value slot stores behind ports.KeyValueStore.
//
// Two implementations exist:
//   - sqlite: durable slots in a single-table SQLite file, used for the
//     persistent quote list and category filter
//   - memory: process-lifetime slots, used for the session-scoped last viewed
//     quote and for tests
//
// Both return domain.ErrNotFound for a slot that was never written and wrap
// driver failures in domain.StorageError.
package storage
