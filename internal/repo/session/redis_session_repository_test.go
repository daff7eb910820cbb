//go:build integration || all

package session_test

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/jlenhardt/gatehouse/internal/domain"
	"github.com/jlenhardt/gatehouse/internal/infra/logging"

	. "github.com/jlenhardt/gatehouse/internal/repo/session"
)

func setupRedisSessionTestRepo(t *testing.T) (*RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()

	logging.Configure(context.TODO(), logging.LoggerConfig{
		OutputHandle: os.Stderr,
		Level:        "debug",
	}, "test")

	server := miniredis.RunT(t)

	cfg := RedisSessionRepositoryConfig{
		Addr:      server.Addr(),
		KeyPrefix: "session:",
	}

	repo, err := NewRedisSessionRepository(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close repository: %v", err)
		}
	})

	return repo, server
}

func TestRedisSessionRepository_SaveLoad(t *testing.T) {
	t.Parallel()

	repo, _ := setupRedisSessionTestRepo(t)
	ctx := context.Background()

	record := domain.SessionRecord{
		ID:      "sess-1",
		Payload: []byte(`{"accountId":"a"}`),
		Expiry:  time.Now().Add(time.Hour).Truncate(time.Millisecond).UTC(),
	}

	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, ok, err := repo.Load(ctx, "sess-1")
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}

	if !bytes.Equal(loaded.Payload, record.Payload) {
		t.Errorf("Load() payload = %q, want %q", loaded.Payload, record.Payload)
	}
	if !loaded.Expiry.Equal(record.Expiry) {
		t.Errorf("Load() expiry = %v, want %v", loaded.Expiry, record.Expiry)
	}
}

func TestRedisSessionRepository_LoadAbsent(t *testing.T) {
	t.Parallel()

	repo, _ := setupRedisSessionTestRepo(t)

	if _, ok, err := repo.Load(context.Background(), "never-saved"); ok || err != nil {
		t.Errorf("Load() absent = %v, %v; want false, nil", ok, err)
	}
}

func TestRedisSessionRepository_TTLExpiry(t *testing.T) {
	t.Parallel()

	repo, server := setupRedisSessionTestRepo(t)
	ctx := context.Background()

	record := domain.SessionRecord{
		ID:      "sess-ttl",
		Payload: []byte("data"),
		Expiry:  time.Now().Add(time.Minute),
	}

	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	server.FastForward(2 * time.Minute)

	if _, ok, err := repo.Load(ctx, "sess-ttl"); ok || err != nil {
		t.Errorf("Load() after ttl = %v, %v; want false, nil", ok, err)
	}
}

func TestRedisSessionRepository_SaveAlreadyExpired(t *testing.T) {
	t.Parallel()

	repo, server := setupRedisSessionTestRepo(t)
	ctx := context.Background()

	record := domain.SessionRecord{
		ID:      "sess-stale",
		Payload: []byte("data"),
		Expiry:  time.Now().Add(-time.Minute),
	}

	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if server.Exists("session:sess-stale") {
		t.Error("Save() wrote a key for an already expired record")
	}
}

func TestRedisSessionRepository_Delete(t *testing.T) {
	t.Parallel()

	repo, _ := setupRedisSessionTestRepo(t)
	ctx := context.Background()

	record := domain.SessionRecord{
		ID:      "sess-1",
		Payload: []byte("data"),
		Expiry:  time.Now().Add(time.Hour),
	}

	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := repo.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := repo.Load(ctx, "sess-1"); ok {
		t.Error("Load() found session after delete")
	}

	if err := repo.Delete(ctx, "sess-1"); err != nil {
		t.Errorf("Delete() repeated error = %v", err)
	}
}

func TestRedisSessionRepository_TruncatedValue(t *testing.T) {
	t.Parallel()

	repo, server := setupRedisSessionTestRepo(t)

	if err := server.Set("session:sess-bad", "1234"); err != nil {
		t.Fatalf("failed to seed key: %v", err)
	}

	if _, _, err := repo.Load(context.Background(), "sess-bad"); err == nil {
		t.Error("Load() accepted a truncated value")
	}
}
