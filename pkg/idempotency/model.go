package idempotency

import (
	"errors"
	"time"
)

var (
	// ErrLockTimeout is returned when the per-key lock could not be
	// acquired within the configured timeout.
	ErrLockTimeout = errors.New("timed out acquiring idempotency lock")

	// ErrParametersMismatch is returned when a key is reused with
	// different operation parameters.
	ErrParametersMismatch = errors.New("idempotency key reused with different parameters")
)

// Record is the cached outcome of a completed operation.
type Record struct {
	Key            string            `bson:"_id"`
	Result         []byte            `bson:"result,omitempty"`
	ResultType     string            `bson:"resultType,omitempty"`
	ParametersHash string            `bson:"parametersHash,omitempty"`
	Metadata       map[string]string `bson:"metadata,omitempty"`
	ExecutedAt     time.Time         `bson:"executedAt"`
	ExpiresAt      *time.Time        `bson:"expiresAt,omitempty"`
}

// Expired reports whether the record's expiry has passed.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}
