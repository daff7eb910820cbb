package sessionsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jlenhardt/gatehouse/internal/domain"
	"github.com/jlenhardt/gatehouse/internal/infra/logging"
	"github.com/jlenhardt/gatehouse/internal/repo/session"
)

// SessionConfig contains configuration parameters for the session service.
type SessionConfig struct {
	// TTL is the session lifetime in seconds
	TTL int64 `env:"TTL" default:"86400"` // 24h

	// ReapPeriod is the interval in seconds between expired-session sweeps
	ReapPeriod int64 `env:"REAP_PERIOD" default:"60"`
}

// State is the application-level session value. It is serialized into the
// opaque payload of a domain.SessionRecord; stores never see this structure.
type State struct {
	AccountID uuid.UUID `json:"accountId"` // Public id of the authenticated account
	IssuedAt  int64     `json:"issuedAt"`  // Unix timestamp when the session was issued
}

// SessionService mints opaque session ids and persists session state through
// a session.Repository. It owns the payload encoding; the repositories treat
// payloads as raw bytes.
type SessionService struct {
	Config      SessionConfig
	SessionRepo session.Repository
	Log         logging.Logger
}

// NewSessionService creates a new SessionService with the given session
// repository factory and configuration, and migrates the backing schema.
func NewSessionService(repoFactory session.RepositoryFactory, cfg SessionConfig) (*SessionService, error) {
	log := logging.GetLogger("svc.sessionsvc.session_service")

	sessionRepo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new session repo: %w", err)
	}

	if err := sessionRepo.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate session repo: %w", err)
	}

	return &SessionService{
		Config:      cfg,
		SessionRepo: sessionRepo,
		Log:         log,
	}, nil
}

// Issue mints a new opaque session id for the given state and persists the
// record with the configured TTL. Returns the session id.
func (s *SessionService) Issue(ctx context.Context, state State) (_ string, err error) {
	log := s.Log.With(logging.Group("session", "account", state.AccountID.String()))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "issue session failed", "error", err)
		} else {
			log.DebugContext(ctx, "session issued")
		}
	}()

	payload, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}

	record := domain.SessionRecord{
		ID:      uuid.NewString(),
		Payload: payload,
		Expiry:  time.Now().Add(time.Duration(s.Config.TTL * int64(time.Second))).UTC(),
	}

	if err := s.SessionRepo.Save(ctx, record); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	return record.ID, nil
}

// Resolve loads the state for the given session id. Returns the state and
// true when the session exists and has not expired. A payload that exists but
// cannot be decoded yields an error wrapping domain.ErrSessionDecode.
func (s *SessionService) Resolve(ctx context.Context, id string) (_ State, _ bool, err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "resolve session failed", "error", err)
		}
	}()

	record, ok, err := s.SessionRepo.Load(ctx, id)
	if err != nil {
		return State{}, false, fmt.Errorf("load session: %w", err)
	}

	if !ok {
		return State{}, false, nil
	}

	var state State
	if err := json.Unmarshal(record.Payload, &state); err != nil {
		return State{}, false, errors.Join(domain.ErrSessionDecode, err)
	}

	return state, true, nil
}

// ResolveAccount resolves the session to its account id string. It adapts
// Resolve for the HTTP session middleware.
func (s *SessionService) ResolveAccount(ctx context.Context, id string) (string, bool, error) {
	state, ok, err := s.Resolve(ctx, id)
	if err != nil || !ok {
		return "", false, err
	}

	return state.AccountID.String(), true, nil
}

// Revoke deletes the session. Revoking an unknown id is a no-op.
func (s *SessionService) Revoke(ctx context.Context, id string) (err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "revoke session failed", "error", err)
		} else {
			log.DebugContext(ctx, "session revoked")
		}
	}()

	if err := s.SessionRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// Close releases resources held by the service.
func (s *SessionService) Close() error {
	if err := s.SessionRepo.Close(); err != nil {
		return fmt.Errorf("close session repo: %w", err)
	}

	return nil
}
