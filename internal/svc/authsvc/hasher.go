package authsvc

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/jlenhardt/gatehouse/internal/domain"
)

const algorithmID = "argon2id"

// maxMemoryKB caps the argon2id memory cost at 4 GiB. Parameters above it in
// a stored hash are treated as corrupt rather than handed to the key
// derivation, which would attempt an allocation of that size.
const maxMemoryKB = 4 << 20

// ErrHasherConfig is returned when HasherConfig parameters are out of range.
var ErrHasherConfig = errors.New("invalid hasher configuration")

// PasswordHasher produces and verifies one-way salted password hashes.
type PasswordHasher interface {
	// Hash derives a fresh salted hash of the password. The output differs on
	// every call. Out-of-bound password lengths are reported as
	// domain.ErrPasswordTooShort / domain.ErrPasswordTooLong.
	Hash(ctx context.Context, password string) (string, error)

	// Verify checks the password against an encoded hash in constant time.
	// A malformed or foreign-format hash yields an error wrapping
	// domain.ErrCorruptHash; Verify never panics.
	Verify(ctx context.Context, password, encodedHash string) (bool, error)

	// DummyHash returns a well-formed hash of no real password, for burning
	// a verification on lookups that found no account.
	DummyHash() string
}

// HasherConfig contains argon2id parameters and the size of the worker gate.
type HasherConfig struct {
	// MemoryKB is the argon2id memory cost in KiB
	MemoryKB int `env:"MEMORY_KB" default:"65536"`
	// TimeCost is the argon2id iteration count
	TimeCost int `env:"TIME_COST" default:"2"`
	// Parallelism is the argon2id lane count
	Parallelism int `env:"PARALLELISM" default:"2"`
	// SaltLength is the salt size in bytes
	SaltLength int `env:"SALT_LENGTH" default:"16"`
	// KeyLength is the derived key size in bytes
	KeyLength int `env:"KEY_LENGTH" default:"32"`

	// Workers caps concurrent hash computations; 0 means GOMAXPROCS
	Workers int `env:"WORKERS" default:"0"`
}

// Argon2Hasher implements PasswordHasher with argon2id and a PHC-style
// encoded output.
//
// Hashing is CPU-bound and deliberately slow, so computations pass through a
// bounded worker gate: at most Workers hashes run at once and waiting callers
// park in a cancellable select instead of piling onto the scheduler alongside
// I/O-bound request work.
type Argon2Hasher struct {
	cfg       HasherConfig
	rules     ValidationRules
	gate      chan struct{}
	dummyHash string
}

var _ PasswordHasher = (*Argon2Hasher)(nil)

// NewArgon2Hasher creates a new Argon2Hasher. Password length bounds come
// from the same ValidationRules the credential service validates with, so the
// hasher rejects out-of-bound input even when a caller skipped validation.
func NewArgon2Hasher(cfg HasherConfig, rules ValidationRules) (*Argon2Hasher, error) {
	// argon2 panics on a zero time cost or lane count, and the lane count is
	// narrowed to uint8 below; reject such configs up front.
	switch {
	case cfg.TimeCost < 1:
		return nil, fmt.Errorf("%w: time cost %d below 1", ErrHasherConfig, cfg.TimeCost)
	case cfg.Parallelism < 1 || cfg.Parallelism > 255:
		return nil, fmt.Errorf("%w: parallelism %d outside 1..255", ErrHasherConfig, cfg.Parallelism)
	case cfg.MemoryKB < 8*cfg.Parallelism || cfg.MemoryKB > maxMemoryKB:
		return nil, fmt.Errorf("%w: memory %d KiB outside %d..%d", ErrHasherConfig, cfg.MemoryKB, 8*cfg.Parallelism, maxMemoryKB)
	case cfg.SaltLength < 8:
		return nil, fmt.Errorf("%w: salt length %d below 8", ErrHasherConfig, cfg.SaltLength)
	case cfg.KeyLength < 16:
		return nil, fmt.Errorf("%w: key length %d below 16", ErrHasherConfig, cfg.KeyLength)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	h := &Argon2Hasher{
		cfg:       cfg,
		rules:     rules,
		gate:      make(chan struct{}, workers),
		dummyHash: "",
	}

	// The dummy hash must be indistinguishable in cost from a real one.
	dummy := make([]byte, rules.PassMax)
	if _, err := io.ReadFull(rand.Reader, dummy); err != nil {
		return nil, fmt.Errorf("generate dummy password: %w", err)
	}

	dummyHash, err := h.Hash(context.Background(), base64.RawStdEncoding.EncodeToString(dummy)[:rules.PassMax])
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	h.dummyHash = dummyHash

	return h, nil
}

// Hash implements PasswordHasher.Hash.
func (h *Argon2Hasher) Hash(ctx context.Context, password string) (string, error) {
	if len(password) < h.rules.PassMin {
		return "", domain.ErrPasswordTooShort
	}

	if len(password) > h.rules.PassMax {
		return "", domain.ErrPasswordTooLong
	}

	salt := make([]byte, h.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	var hash []byte

	if err := h.dispatch(ctx, func() {
		hash = argon2.IDKey(
			[]byte(password),
			salt,
			uint32(h.cfg.TimeCost),
			uint32(h.cfg.MemoryKB),
			uint8(h.cfg.Parallelism),
			uint32(h.cfg.KeyLength),
		)
	}); err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.cfg.MemoryKB,
		h.cfg.TimeCost,
		h.cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify implements PasswordHasher.Verify. Parameters come from the encoded
// hash, not the current config, so hashes survive parameter upgrades.
func (h *Argon2Hasher) Verify(ctx context.Context, password, encodedHash string) (bool, error) {
	parsed, err := parseEncodedHash(encodedHash)
	if err != nil {
		return false, errors.Join(domain.ErrCorruptHash, err)
	}

	var computed []byte

	if err := h.dispatch(ctx, func() {
		computed = argon2.IDKey(
			[]byte(password),
			parsed.salt,
			parsed.time,
			parsed.memory,
			parsed.parallelism,
			uint32(len(parsed.hash)),
		)
	}); err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// DummyHash implements PasswordHasher.DummyHash.
func (h *Argon2Hasher) DummyHash() string {
	return h.dummyHash
}

// dispatch runs fn under the worker gate. Waiting for a slot is cancellable;
// a started computation always runs to completion.
func (h *Argon2Hasher) dispatch(ctx context.Context, fn func()) error {
	select {
	case h.gate <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire hash worker: %w", ctx.Err())
	}

	defer func() { <-h.gate }()

	fn()

	return nil
}

type parsedHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

var (
	errHashFormat    = errors.New("invalid encoded hash format")
	errHashAlgorithm = errors.New("unsupported hash algorithm")
	errHashVersion   = errors.New("unsupported argon2 version")
	errHashParams    = errors.New("hash parameters out of range")
)

func parseEncodedHash(encodedHash string) (*parsedHash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errHashFormat
	}

	if parts[1] != algorithmID {
		return nil, errHashAlgorithm
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, errHashFormat
	}

	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return nil, errHashVersion
	}

	var parsed parsedHash

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&parsed.memory, &parsed.time, &parsed.parallelism,
	); err != nil {
		return nil, errHashFormat
	}

	// The parameters feed the key derivation directly: a zero round or lane
	// count panics inside argon2, and the memory cost sizes an allocation.
	if parsed.time < 1 || parsed.parallelism < 1 || parsed.memory < 8 || parsed.memory > maxMemoryKB {
		return nil, errHashParams
	}

	var err error

	if parsed.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}

	if parsed.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("decode digest: %w", err)
	}

	if len(parsed.salt) == 0 || len(parsed.hash) == 0 {
		return nil, errHashFormat
	}

	return &parsed, nil
}
