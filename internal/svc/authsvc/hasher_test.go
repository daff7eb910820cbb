package authsvc_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jlenhardt/gatehouse/internal/domain"
	"github.com/jlenhardt/gatehouse/internal/svc/authsvc"
)

func testHasherConfig() authsvc.HasherConfig {
	// Small parameters to keep the test suite fast; production values come
	// from config defaults.
	return authsvc.HasherConfig{
		MemoryKB:    1024,
		TimeCost:    1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
		Workers:     2,
	}
}

func testRules() authsvc.ValidationRules {
	return authsvc.ValidationRules{
		NameMin: 3,
		NameMax: 32,
		PassMin: 8,
		PassMax: 64,
	}
}

func newTestHasher(t *testing.T) *authsvc.Argon2Hasher {
	t.Helper()

	hasher, err := authsvc.NewArgon2Hasher(testHasherConfig(), testRules())
	if err != nil {
		t.Fatalf("NewArgon2Hasher() error = %v", err)
	}

	return hasher
}

func TestArgon2Hasher_RoundTrip(t *testing.T) {
	t.Parallel()

	hasher := newTestHasher(t)
	ctx := context.Background()

	encoded, err := hasher.Hash(ctx, "correct-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if strings.Contains(encoded, "correct-password") {
		t.Error("Hash() output contains the raw password")
	}

	match, err := hasher.Verify(ctx, "correct-password", encoded)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !match {
		t.Error("Verify() = false for the hashed password")
	}

	match, err = hasher.Verify(ctx, "other-password", encoded)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if match {
		t.Error("Verify() = true for a different password")
	}
}

func TestArgon2Hasher_SaltedOutputDiffers(t *testing.T) {
	t.Parallel()

	hasher := newTestHasher(t)
	ctx := context.Background()

	first, err := hasher.Hash(ctx, "correct-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	second, err := hasher.Hash(ctx, "correct-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if first == second {
		t.Error("Hash() produced identical output for two calls; salt not fresh")
	}
}

func TestArgon2Hasher_Bounds(t *testing.T) {
	t.Parallel()

	hasher := newTestHasher(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "too short",
			password: "short",
			wantErr:  domain.ErrPasswordTooShort,
		},
		{
			name:     "too long",
			password: strings.Repeat("p", 65),
			wantErr:  domain.ErrPasswordTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := hasher.Hash(ctx, tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("Hash() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestArgon2Hasher_VerifyCorruptHash(t *testing.T) {
	t.Parallel()

	hasher := newTestHasher(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		encodedHash string
	}{
		{name: "empty", encodedHash: ""},
		{name: "garbage", encodedHash: "not-a-hash"},
		{name: "foreign algorithm", encodedHash: "$2a$10$N9qo8uLOickgx2ZMRZoMye"},
		{name: "wrong version", encodedHash: "$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA"},
		{name: "bad salt encoding", encodedHash: "$argon2id$v=19$m=1024,t=1,p=1$!!$aGFzaA"},
		{name: "missing sections", encodedHash: "$argon2id$v=19$m=1024,t=1,p=1"},
		{name: "zero time cost", encodedHash: "$argon2id$v=19$m=1024,t=0,p=1$c2FsdA$aGFzaA"},
		{name: "zero parallelism", encodedHash: "$argon2id$v=19$m=1024,t=1,p=0$c2FsdA$aGFzaA"},
		{name: "absurd memory cost", encodedHash: "$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			match, err := hasher.Verify(ctx, "whatever-password", tt.encodedHash)
			if !errors.Is(err, domain.ErrCorruptHash) {
				t.Errorf("Verify() error = %v, want %v", err, domain.ErrCorruptHash)
			}
			if match {
				t.Error("Verify() = true for a corrupt hash")
			}
		})
	}
}

func TestNewArgon2Hasher_RejectsBadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(cfg *authsvc.HasherConfig)
	}{
		{name: "zero time cost", mutate: func(cfg *authsvc.HasherConfig) { cfg.TimeCost = 0 }},
		{name: "zero parallelism", mutate: func(cfg *authsvc.HasherConfig) { cfg.Parallelism = 0 }},
		{name: "parallelism past uint8", mutate: func(cfg *authsvc.HasherConfig) { cfg.Parallelism = 256 }},
		{name: "memory below minimum", mutate: func(cfg *authsvc.HasherConfig) { cfg.MemoryKB = 4 }},
		{name: "memory past ceiling", mutate: func(cfg *authsvc.HasherConfig) { cfg.MemoryKB = 5 << 20 }},
		{name: "short salt", mutate: func(cfg *authsvc.HasherConfig) { cfg.SaltLength = 4 }},
		{name: "short key", mutate: func(cfg *authsvc.HasherConfig) { cfg.KeyLength = 8 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testHasherConfig()
			tt.mutate(&cfg)

			if _, err := authsvc.NewArgon2Hasher(cfg, testRules()); !errors.Is(err, authsvc.ErrHasherConfig) {
				t.Errorf("NewArgon2Hasher() error = %v, want %v", err, authsvc.ErrHasherConfig)
			}
		})
	}
}

func TestArgon2Hasher_DummyHash(t *testing.T) {
	t.Parallel()

	hasher := newTestHasher(t)
	ctx := context.Background()

	match, err := hasher.Verify(ctx, "any-password", hasher.DummyHash())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if match {
		t.Error("Verify() = true against the dummy hash")
	}
}

func TestArgon2Hasher_CancelledContext(t *testing.T) {
	t.Parallel()

	// Single worker slot and deliberately heavy parameters, so the slot is
	// still held when the cancelled caller arrives.
	cfg := testHasherConfig()
	cfg.Workers = 1
	cfg.MemoryKB = 64 * 1024
	cfg.TimeCost = 4

	hasher, err := authsvc.NewArgon2Hasher(cfg, testRules())
	if err != nil {
		t.Fatalf("NewArgon2Hasher() error = %v", err)
	}

	started := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		close(started)

		_, _ = hasher.Hash(context.Background(), "hold-the-gate")
	}()

	<-started
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := hasher.Hash(ctx, "correct-password"); !errors.Is(err, context.Canceled) {
		t.Errorf("Hash() with cancelled context error = %v, want %v", err, context.Canceled)
	}

	<-done
}
