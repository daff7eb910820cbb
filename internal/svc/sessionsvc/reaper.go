package sessionsvc

import (
	"context"
	"time"

	"github.com/jlenhardt/gatehouse/internal/infra/logging"
	"github.com/jlenhardt/gatehouse/internal/repo/session"
)

// Reaper periodically deletes expired session records. A sweep failure is
// logged and swallowed; the loop ends only when its context is cancelled.
type Reaper struct {
	repo   session.Repository
	period time.Duration
	log    logging.Logger
}

// NewReaper creates a Reaper sweeping the given repository every period.
func NewReaper(repo session.Repository, period time.Duration) *Reaper {
	return &Reaper{
		repo:   repo,
		period: period,
		log:    logging.GetLogger("svc.sessionsvc.reaper"),
	}
}

// Run loops until ctx is cancelled. An in-flight sweep is detached from ctx
// so shutdown never aborts a delete statement mid-flight; deletes are
// idempotent, so an interrupted process loses nothing either way.
func (r *Reaper) Run(ctx context.Context) {
	r.log.DebugContext(ctx, "reaper started", "period", r.period.String())

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.DebugContext(ctx, "reaper stopped")

			return
		case <-ticker.C:
			r.sweep(context.WithoutCancel(ctx))
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	if err := r.repo.DeleteExpired(ctx); err != nil {
		r.log.ErrorContext(ctx, "sweep failed", "error", err)
	}
}
