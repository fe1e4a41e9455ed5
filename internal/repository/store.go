package repository

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Find methods when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("record already exists")
)

// Store groups the repositories behind one transaction boundary.
type Store interface {
	Users() UserRepository
	Tasks() TaskRepository
	// WithinTx runs fn against a Store bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	// Nested calls reuse the outer transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
