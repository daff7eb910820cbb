package session

import (
	"context"

	"github.com/jlenhardt/gatehouse/internal/domain"
)

// Repository defines the interface for durable session persistence.
//
// Payloads are opaque: implementations store and return them byte-for-byte
// and never depend on their internal structure.
type Repository interface {
	// Migrate creates the backing schema if it does not exist. It is
	// idempotent and safe to call concurrently from multiple process instances.
	Migrate(ctx context.Context) error

	// Save upserts the record keyed by its id: insert when absent, otherwise
	// overwrite payload and expiry wholesale. Last writer wins.
	Save(ctx context.Context, record domain.SessionRecord) error

	// Load retrieves the record by id, filtered by expiry: a record whose
	// expiry has passed is reported as absent regardless of physical deletion
	// state. Returns the record and true if live, or nil and false if absent.
	Load(ctx context.Context, id string) (*domain.SessionRecord, bool, error)

	// Delete removes the record by id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes all records whose expiry has passed at call time.
	// It returns normally even if zero records matched.
	DeleteExpired(ctx context.Context) error

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
