package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	context_ "github.com/jlenhardt/gatehouse/internal/infra/context"
	"github.com/jlenhardt/gatehouse/internal/infra/logging"
	http_ "github.com/jlenhardt/gatehouse/internal/infra/transport/http"
	"github.com/jlenhardt/gatehouse/internal/svc/sessionsvc"
)

type stubAuthorizer struct {
	accountID string
	ok        bool
	err       error
}

func (a stubAuthorizer) ResolveAccount(context.Context, string) (string, bool, error) {
	return a.accountID, a.ok, a.err
}

func newTestCookie(t *testing.T) *sessionsvc.SessionCookie {
	t.Helper()

	cookie, err := sessionsvc.NewSessionCookie(sessionsvc.CookieConfig{
		Name:   "gatehouse_session",
		Secure: false,
	})
	if err != nil {
		t.Fatalf("failed to create cookie: %v", err)
	}

	return cookie
}

func signedRequest(t *testing.T, cookie *sessionsvc.SessionCookie, sessionID string) *http.Request {
	t.Helper()

	w := httptest.NewRecorder()
	if err := cookie.Write(w, sessionID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("failed to write cookie: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}

	return req
}

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	cookie := newTestCookie(t)

	tests := []struct {
		name       string
		authorizer stubAuthorizer
		request    func(t *testing.T) *http.Request
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "live session passes with account in context",
			authorizer: stubAuthorizer{accountID: "acct-1", ok: true},
			request: func(t *testing.T) *http.Request {
				t.Helper()

				return signedRequest(t, cookie, "sess-1")
			},
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "missing cookie rejected",
			authorizer: stubAuthorizer{accountID: "acct-1", ok: true},
			request: func(t *testing.T) *http.Request {
				t.Helper()

				return httptest.NewRequest(http.MethodGet, "/", nil)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "dead session rejected",
			authorizer: stubAuthorizer{ok: false},
			request: func(t *testing.T) *http.Request {
				t.Helper()

				return signedRequest(t, cookie, "sess-gone")
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "backend fault answers 500",
			authorizer: stubAuthorizer{err: errors.New("store down")},
			request: func(t *testing.T) *http.Request {
				t.Helper()

				return signedRequest(t, cookie, "sess-1")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				nextCalled bool
				gotAccount string
			)

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				gotAccount, _ = context_.AccountIDFromContext(r.Context())
			})

			handler := http_.SessionMiddleware(next, cookie, tt.authorizer, logging.GetLogger("test"))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, tt.request(t))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if nextCalled != tt.wantNext {
				t.Errorf("next called = %v, want %v", nextCalled, tt.wantNext)
			}
			if tt.wantNext && gotAccount != tt.authorizer.accountID {
				t.Errorf("account in context = %q, want %q", gotAccount, tt.authorizer.accountID)
			}
		})
	}
}
