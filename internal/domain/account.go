package domain

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrUsernameTaken is returned when trying to create an account with an existing username.
	ErrUsernameTaken = errors.New("username taken")
	// ErrAccountNotFound is returned when looking up a non-existent account.
	ErrAccountNotFound = errors.New("account not found")
)

// Account represents a stored identity in the system.
type Account struct {
	ID           int64     // Internal row identifier, never exposed outside the store
	PublicID     uuid.UUID // Stable public identifier
	Username     string    // Login username, unique and case-sensitive
	PasswordHash string    // Encoded password hash, never raw text
	CreatedAt    int64     // Unix timestamp of account creation
}
