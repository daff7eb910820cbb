package session

import (
	"context"
	"sync"
	"time"

	"github.com/jlenhardt/gatehouse/internal/domain"
)

// MemorySessionRepository implements Repository with an in-process map.
// It is the dev/test backend; sessions do not survive a restart.
type MemorySessionRepository struct {
	mu      sync.Mutex
	records map[string]domain.SessionRecord
}

var _ Repository = (*MemorySessionRepository)(nil)

// MemorySessionRepositoryFactory creates a factory function that returns a new
// MemorySessionRepository. The factory function implements the RepositoryFactory type.
func MemorySessionRepositoryFactory() RepositoryFactory {
	return func() (Repository, error) {
		return NewMemorySessionRepository(), nil
	}
}

// NewMemorySessionRepository creates an empty in-memory session repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		records: make(map[string]domain.SessionRecord),
	}
}

// Migrate implements Repository.Migrate as a no-op.
func (r *MemorySessionRepository) Migrate(ctx context.Context) error {
	return nil
}

// Save implements Repository.Save. The payload is copied so later caller
// mutations cannot reach the stored record.
func (r *MemorySessionRepository) Save(ctx context.Context, record domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.Payload = append([]byte(nil), record.Payload...)
	r.records[record.ID] = record

	return nil
}

// Load implements Repository.Load with the same expiry filtering as the
// durable backends.
func (r *MemorySessionRepository) Load(ctx context.Context, id string) (*domain.SessionRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok || record.Expired(time.Now()) {
		return nil, false, nil
	}

	record.Payload = append([]byte(nil), record.Payload...)

	return &record, true, nil
}

// Delete implements Repository.Delete. Deleting an absent id is a no-op.
func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, id)

	return nil
}

// DeleteExpired implements Repository.DeleteExpired.
func (r *MemorySessionRepository) DeleteExpired(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	for id, record := range r.records {
		if record.Expired(now) {
			delete(r.records, id)
		}
	}

	return nil
}

// Close implements Repository.Close.
func (r *MemorySessionRepository) Close() error {
	return nil
}

// Len reports the number of physically stored records, expired or not.
// Intended for tests and diagnostics.
func (r *MemorySessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.records)
}
