package account

import (
	"context"

	"github.com/google/uuid"

	"github.com/jlenhardt/gatehouse/internal/domain"
)

// Repository defines the interface for account data persistence.
type Repository interface {
	// Create adds a new account with the given username and encoded password
	// hash, returning the stored account. Two concurrent Create calls with the
	// same username yield exactly one success; the loser observes
	// domain.ErrUsernameTaken, enforced by a uniqueness constraint at the
	// storage layer rather than a check-then-insert in application code.
	Create(ctx context.Context, username, passwordHash string) (*domain.Account, error)

	// GetByUsername retrieves an account by its username.
	// Returns the account and true if found, or nil and false if not found.
	// Returns an error if the operation fails.
	GetByUsername(ctx context.Context, username string) (*domain.Account, bool, error)

	// GetByID retrieves an account by its public identifier.
	// Returns the account and true if found, or nil and false if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, bool, error)

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
