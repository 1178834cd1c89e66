package persistence

import "errors"

var (
	// ErrEntityNotFound is returned when an entity is not found in the store.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrDuplicateEntity is returned when an insert collides with an
	// existing entity with the same identity.
	ErrDuplicateEntity = errors.New("duplicate entity")
)
