package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jlenhardt/gatehouse/internal/domain"
)

// MemoryAccountRepository implements Repository with an in-process map.
// It is the dev/test backend; accounts do not survive a restart.
type MemoryAccountRepository struct {
	mu     sync.Mutex
	byName map[string]*domain.Account
	lastID int64
}

var _ Repository = (*MemoryAccountRepository)(nil)

// MemoryAccountRepositoryFactory creates a factory function that returns a new
// MemoryAccountRepository. The factory function implements the RepositoryFactory type.
func MemoryAccountRepositoryFactory() RepositoryFactory {
	return func() (Repository, error) {
		return NewMemoryAccountRepository(), nil
	}
}

// NewMemoryAccountRepository creates an empty in-memory account repository.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byName: make(map[string]*domain.Account),
	}
}

// Create implements Repository.Create. Username uniqueness is enforced under
// the repository mutex.
func (r *MemoryAccountRepository) Create(
	ctx context.Context,
	username, passwordHash string,
) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[username]; exists {
		return nil, domain.ErrUsernameTaken
	}

	r.lastID++
	acct := &domain.Account{
		ID:           r.lastID,
		PublicID:     uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
	r.byName[username] = acct

	return acct, nil
}

// GetByUsername implements Repository.GetByUsername.
func (r *MemoryAccountRepository) GetByUsername(
	ctx context.Context,
	username string,
) (*domain.Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.byName[username]
	if !ok {
		return nil, false, domain.ErrAccountNotFound
	}

	copied := *acct

	return &copied, true, nil
}

// GetByID implements Repository.GetByID.
func (r *MemoryAccountRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, acct := range r.byName {
		if acct.PublicID == id {
			copied := *acct

			return &copied, true, nil
		}
	}

	return nil, false, domain.ErrAccountNotFound
}

// Close implements Repository.Close.
func (r *MemoryAccountRepository) Close() error {
	return nil
}
