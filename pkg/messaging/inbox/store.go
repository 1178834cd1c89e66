package inbox

import (
	"context"
	"time"
)

// Store persists inbox records keyed by message id so redeliveries are
// detected on insert.
type Store interface {
	// Add persists a new pending record. Returns an error wrapping
	// persistence.ErrDuplicateEntity when the message was seen before.
	Add(ctx context.Context, record *Record) error

	// ClaimPending atomically flips up to batchSize records to processing
	// under a lease of lockTimeout, in group and sequence order.
	ClaimPending(ctx context.Context, batchSize int, lockTimeout time.Duration) ([]Record, error)

	// MarkProcessed completes a claimed record.
	MarkProcessed(ctx context.Context, id string) error

	// MarkFailed records a handling failure. The retry count is consumed
	// by RetryFailed, not here.
	MarkFailed(ctx context.Context, id string, reason string) error

	// Release returns a claimed record to pending without counting a
	// retry, used when the record must wait for an earlier message of
	// its group.
	Release(ctx context.Context, id string) error

	// RetryFailed requeues failed records that still have retry budget
	// and abandons the rest.
	RetryFailed(ctx context.Context, maxRetryCount int) (requeued int64, abandoned int64, err error)

	// Requeue moves an abandoned record back to pending with a fresh
	// retry budget.
	Requeue(ctx context.Context, id string) error

	// CleanupProcessed deletes processed records older than the retention
	// window. Deleted records can no longer deduplicate redeliveries, so
	// retention must exceed the broker's redelivery horizon.
	CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error)

	// Abandoned lists abandoned records for inspection, newest first.
	Abandoned(ctx context.Context, limit int) ([]Record, error)
}
