// Package store persists the set of listing ids that have already been
// seen, so each run only reports listings it has never reported before.
package store

import "context"

// SeenStore records which listing ids have been observed across runs.
type SeenStore interface {
	// Init ensures the backing schema exists. Idempotent; called every run.
	Init(ctx context.Context) error

	// SeenIDs returns every recorded id. No ordering guarantee.
	SeenIDs(ctx context.Context) (map[string]struct{}, error)

	// AddSeenIDs inserts the ids that are not already present, stamping each
	// new row with the current UTC time, and returns how many rows were
	// actually inserted. Already-present ids are silently ignored. An empty
	// input returns 0 without touching the store.
	AddSeenIDs(ctx context.Context, ids []string) (int, error)

	// ClearAll removes every record. Maintenance and tests only.
	ClearAll(ctx context.Context) error

	Close() error
}
