package idempotency

import (
	"context"
)

// Store persists idempotency records. Get treats an expired record as
// absent.
type Store interface {
	// Get returns the record for key, or an error wrapping
	// persistence.ErrEntityNotFound when absent or expired.
	Get(ctx context.Context, key string) (*Record, error)

	// Put stores the record, replacing any previous record for the key.
	Put(ctx context.Context, record *Record) error

	// Delete removes the record for key. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// DeleteExpired removes all expired records and returns the number
	// deleted.
	DeleteExpired(ctx context.Context) (int64, error)
}
