package outbox

import (
	"context"
	"time"
)

// Store persists outbox records. Add is expected to run inside the same
// transaction as the business change, via a transactional context from
// persistence.TxManager.
type Store interface {
	// Add persists a new pending record.
	Add(ctx context.Context, record *Record) error

	// ClaimPending atomically flips up to batchSize records to processing
	// under a lease of lockTimeout. Records whose lease expired are
	// reclaimable. Returns the claimed records in creation order.
	ClaimPending(ctx context.Context, batchSize int, lockTimeout time.Duration) ([]Record, error)

	// MarkProcessed completes a claimed record. Only records in
	// processing state are affected.
	MarkProcessed(ctx context.Context, id string) error

	// MarkFailed records a delivery failure. The retry count is consumed
	// by RetryFailed, not here. Only records in processing state are
	// affected.
	MarkFailed(ctx context.Context, id string, reason string) error

	// RetryFailed requeues failed records that still have retry budget
	// and abandons the rest. Returns how many were requeued and abandoned.
	RetryFailed(ctx context.Context, maxRetryCount int) (requeued int64, abandoned int64, err error)

	// Requeue moves an abandoned record back to pending with a fresh
	// retry budget.
	Requeue(ctx context.Context, id string) error

	// CleanupProcessed deletes processed records older than the retention
	// window and returns the number deleted.
	CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error)

	// Abandoned lists abandoned records for inspection, newest first.
	Abandoned(ctx context.Context, limit int) ([]Record, error)
}
