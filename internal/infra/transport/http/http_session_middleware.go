package http

import (
	"context"
	"net/http"

	context_ "github.com/jlenhardt/gatehouse/internal/infra/context"
	"github.com/jlenhardt/gatehouse/internal/infra/logging"
	"github.com/jlenhardt/gatehouse/internal/svc/sessionsvc"
)

// SessionAuthorizer resolves an opaque session id to the account it belongs to.
type SessionAuthorizer interface {
	// ResolveAccount returns the account id for the session and true if the
	// session exists and has not expired. Returns an error only on backend faults.
	ResolveAccount(ctx context.Context, sessionID string) (string, bool, error)
}

// SessionMiddleware creates middleware that authenticates requests via the
// session cookie. Requests without a live session are rejected.
// On success the account id is added to the request context.
func SessionMiddleware(
	next http.Handler,
	cookie *sessionsvc.SessionCookie,
	authorizer SessionAuthorizer,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := cookie.Read(r)
		if err != nil {
			log.WarnContext(r.Context(), "no session cookie", "error", err)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		}

		accountID, ok, err := authorizer.ResolveAccount(r.Context(), sessionID)
		if err != nil {
			log.ErrorContext(r.Context(), "resolve session failed", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

			return
		} else if !ok {
			log.WarnContext(r.Context(), "invalid session")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithAccountID(r.Context(), accountID)))
	})
}
