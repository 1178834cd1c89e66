package saga

import (
	"context"
	"time"
)

// Store persists saga instances.
type Store interface {
	// Insert persists a new instance. Returns an error wrapping
	// persistence.ErrDuplicateEntity when the id is taken.
	Insert(ctx context.Context, instance *Saga) error

	// Update persists a mutated instance guarded by its version, which
	// is incremented on success. Returns an error wrapping
	// persistence.ErrEntityNotFound when the stored version moved on.
	Update(ctx context.Context, instance *Saga) error

	// ByID returns the instance with the given id.
	ByID(ctx context.Context, id string) (*Saga, error)

	// ByCorrelationID returns all instances sharing the correlation id,
	// oldest first.
	ByCorrelationID(ctx context.Context, correlationID string) ([]Saga, error)

	// ByNameAndCorrelationID returns the instances of one saga type for
	// a correlation id, oldest first. Normally at most one is active.
	ByNameAndCorrelationID(ctx context.Context, name, correlationID string) ([]Saga, error)

	// Active returns all non-terminal instances, oldest first.
	Active(ctx context.Context) ([]Saga, error)

	// Failed returns failed instances for inspection, newest first.
	Failed(ctx context.Context, limit int) ([]Saga, error)

	// CleanupCompleted deletes terminal instances whose last update is
	// older than the retention window and returns the number deleted.
	CleanupCompleted(ctx context.Context, olderThan time.Duration) (int64, error)
}
