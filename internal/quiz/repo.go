package quiz

import (
	"context"
	"errors"
)

var (
	// ErrConstraint wraps a storage-level constraint violation on insert.
	ErrConstraint = errors.New("constraint violation")
)

// Store persists questions. Questions are never updated or deleted.
type Store interface {
	// FetchAll returns every question ordered by id. An empty table is not an error.
	FetchAll(ctx context.Context) ([]Question, error)
	// Insert validates q, writes it and returns it with the assigned id.
	// A failed insert leaves the store unchanged.
	Insert(ctx context.Context, q Question) (Question, error)
	Count(ctx context.Context) (int, error)
}
