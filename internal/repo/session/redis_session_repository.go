package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jlenhardt/gatehouse/internal/domain"
	"github.com/jlenhardt/gatehouse/internal/infra/logging"
)

// RedisSessionRepositoryConfig holds configuration for the Redis session repository.
type RedisSessionRepositoryConfig struct {
	// Addr is the host:port of the Redis server
	Addr string `env:"REDIS_ADDR" default:"localhost:6379"`
	// KeyPrefix namespaces session keys to avoid collisions with other data
	KeyPrefix string `env:"REDIS_KEY_PREFIX" default:"session:"`
}

// RedisSessionRepository implements Repository on Redis. Records are stored
// under a key TTL derived from their expiry, so Redis reaps expired entries
// natively and DeleteExpired has nothing left to do.
type RedisSessionRepository struct {
	client *redis.Client
	prefix string
	log    logging.Logger
}

var _ Repository = (*RedisSessionRepository)(nil)

// RedisSessionRepositoryFactory creates a factory function that returns a new
// RedisSessionRepository. The factory function implements the RepositoryFactory type.
func RedisSessionRepositoryFactory(cfg RedisSessionRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewRedisSessionRepository(cfg)
	}
}

// NewRedisSessionRepository creates a new RedisSessionRepository with the given
// configuration.
func NewRedisSessionRepository(cfg RedisSessionRepositoryConfig) (*RedisSessionRepository, error) {
	log := logging.GetLogger("repo.session.redis_session_repository").With(
		logging.Group("redis", "addr", cfg.Addr),
	)

	//nolint:exhaustruct
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})

	return &RedisSessionRepository{
		client: client,
		prefix: cfg.KeyPrefix,
		log:    log,
	}, nil
}

func (r *RedisSessionRepository) key(id string) string {
	return r.prefix + id
}

// Migrate implements Repository.Migrate. Redis needs no schema; a ping
// verifies the connection instead.
func (r *RedisSessionRepository) Migrate(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	return nil
}

// Save implements Repository.Save. A record that is already expired at save
// time is deleted instead of written, since Redis rejects non-positive TTLs.
func (r *RedisSessionRepository) Save(ctx context.Context, record domain.SessionRecord) error {
	ttl := time.Until(record.Expiry)
	if ttl <= 0 {
		return r.Delete(ctx, record.ID)
	}

	value := append(encodeExpiry(record.Expiry), record.Payload...)

	if err := r.client.Set(ctx, r.key(record.ID), value, ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}

	return nil
}

// Load implements Repository.Load. The expiry is re-checked against the
// stored timestamp so a key Redis has not yet evicted is still invisible once
// past its expiry.
func (r *RedisSessionRepository) Load(ctx context.Context, id string) (*domain.SessionRecord, bool, error) {
	value, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("get session: %w", err)
	}

	expiry, payload, err := decodeExpiry(value)
	if err != nil {
		return nil, false, errors.Join(domain.ErrSessionDecode, err)
	}

	record := domain.SessionRecord{
		ID:      id,
		Payload: payload,
		Expiry:  expiry,
	}
	if record.Expired(time.Now()) {
		return nil, false, nil
	}

	return &record, true, nil
}

// Delete implements Repository.Delete. Deleting an absent id is a no-op.
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("del session: %w", err)
	}

	return nil
}

// DeleteExpired implements Repository.DeleteExpired. Redis expires keys by
// TTL on its own, so there is nothing to sweep.
func (r *RedisSessionRepository) DeleteExpired(ctx context.Context) error {
	return nil
}

// Close implements Repository.Close by closing the Redis client.
func (r *RedisSessionRepository) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}

	return nil
}
