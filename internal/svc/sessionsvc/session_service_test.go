package sessionsvc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jlenhardt/gatehouse/internal/domain"
	"github.com/jlenhardt/gatehouse/internal/infra/logging"
	"github.com/jlenhardt/gatehouse/internal/repo/session"
	"github.com/jlenhardt/gatehouse/internal/svc/sessionsvc"
)

func setupTestSessionService(t *testing.T, cfg sessionsvc.SessionConfig) (*sessionsvc.SessionService, *session.MemorySessionRepository) {
	t.Helper()

	repo := session.NewMemorySessionRepository()

	svc := &sessionsvc.SessionService{
		Config:      cfg,
		SessionRepo: repo,
		Log:         logging.GetLogger("test.sessionsvc"),
	}

	return svc, repo
}

func TestSessionService_IssueResolve(t *testing.T) {
	t.Parallel()

	svc, _ := setupTestSessionService(t, sessionsvc.SessionConfig{TTL: 3600, ReapPeriod: 60})
	ctx := context.Background()

	state := sessionsvc.State{
		AccountID: uuid.New(),
		IssuedAt:  time.Now().Unix(),
	}

	id, err := svc.Issue(ctx, state)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if id == "" {
		t.Fatal("Issue() returned empty session id")
	}

	resolved, ok, err := svc.Resolve(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Resolve() = %v, %v", ok, err)
	}
	if resolved != state {
		t.Errorf("Resolve() = %+v, want %+v", resolved, state)
	}
}

func TestSessionService_IssueUniqueIDs(t *testing.T) {
	t.Parallel()

	svc, _ := setupTestSessionService(t, sessionsvc.SessionConfig{TTL: 3600, ReapPeriod: 60})
	ctx := context.Background()

	seen := make(map[string]bool)

	for range 16 {
		id, err := svc.Issue(ctx, sessionsvc.State{AccountID: uuid.New()})
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if seen[id] {
			t.Fatalf("Issue() repeated session id %q", id)
		}

		seen[id] = true
	}
}

func TestSessionService_ResolveUnknown(t *testing.T) {
	t.Parallel()

	svc, _ := setupTestSessionService(t, sessionsvc.SessionConfig{TTL: 3600, ReapPeriod: 60})

	if _, ok, err := svc.Resolve(context.Background(), "never-issued"); ok || err != nil {
		t.Errorf("Resolve() unknown = %v, %v; want false, nil", ok, err)
	}
}

func TestSessionService_ResolveExpired(t *testing.T) {
	t.Parallel()

	// Zero TTL: the record is expired the moment it is written.
	svc, _ := setupTestSessionService(t, sessionsvc.SessionConfig{TTL: 0, ReapPeriod: 60})
	ctx := context.Background()

	id, err := svc.Issue(ctx, sessionsvc.State{AccountID: uuid.New()})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, ok, err := svc.Resolve(ctx, id); ok || err != nil {
		t.Errorf("Resolve() expired = %v, %v; want false, nil", ok, err)
	}
}

func TestSessionService_ResolveCorruptPayload(t *testing.T) {
	t.Parallel()

	svc, repo := setupTestSessionService(t, sessionsvc.SessionConfig{TTL: 3600, ReapPeriod: 60})
	ctx := context.Background()

	record := domain.SessionRecord{
		ID:      "sess-bad",
		Payload: []byte("{not json"),
		Expiry:  time.Now().Add(time.Hour),
	}
	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, _, err := svc.Resolve(ctx, "sess-bad"); !errors.Is(err, domain.ErrSessionDecode) {
		t.Errorf("Resolve() error = %v, want %v", err, domain.ErrSessionDecode)
	}
}

func TestSessionService_ResolveAccount(t *testing.T) {
	t.Parallel()

	svc, _ := setupTestSessionService(t, sessionsvc.SessionConfig{TTL: 3600, ReapPeriod: 60})
	ctx := context.Background()

	accountID := uuid.New()

	id, err := svc.Issue(ctx, sessionsvc.State{AccountID: accountID})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	resolved, ok, err := svc.ResolveAccount(ctx, id)
	if err != nil || !ok {
		t.Fatalf("ResolveAccount() = %v, %v", ok, err)
	}
	if resolved != accountID.String() {
		t.Errorf("ResolveAccount() = %q, want %q", resolved, accountID.String())
	}
}

func TestSessionService_Revoke(t *testing.T) {
	t.Parallel()

	svc, _ := setupTestSessionService(t, sessionsvc.SessionConfig{TTL: 3600, ReapPeriod: 60})
	ctx := context.Background()

	id, err := svc.Issue(ctx, sessionsvc.State{AccountID: uuid.New()})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if err := svc.Revoke(ctx, id); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, ok, _ := svc.Resolve(ctx, id); ok {
		t.Error("Resolve() found session after revoke")
	}

	// Revoking again is a no-op.
	if err := svc.Revoke(ctx, id); err != nil {
		t.Errorf("Revoke() repeated error = %v", err)
	}
}
