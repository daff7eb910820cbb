package authsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	context_ "github.com/jlenhardt/gatehouse/internal/infra/context"
	"github.com/jlenhardt/gatehouse/internal/infra/logging"
	http_ "github.com/jlenhardt/gatehouse/internal/infra/transport/http"
	"github.com/jlenhardt/gatehouse/internal/svc/sessionsvc"
)

var (
	// ErrNoUsername is returned when the username is missing from the request.
	ErrNoUsername = errors.New("no username")
	// ErrNoPassword is returned when the password is missing from the request.
	ErrNoPassword = errors.New("no password")
	// errRejected marks a request that was answered with an expected-outcome
	// status; it exists only to drive the deferred request logging.
	errRejected = errors.New("rejected")
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// AccountResponse is the JSON body returned for successful sign-up, login and
// session lookups.
type AccountResponse struct {
	AccountID string `json:"accountId"`
}

// HTTPTransport handles HTTP requests for the authentication service.
// It provides endpoints for sign-up, login, logout and session inspection,
// mapping service outcomes to transport status codes. Backend error text
// never reaches the client.
type HTTPTransport struct {
	authSvc    *AuthService
	sessionSvc *sessionsvc.SessionService
	cookie     *sessionsvc.SessionCookie
	log        logging.Logger
	cfg        HTTPTransportConfig
}

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
func NewHTTPTransport(
	authSvc *AuthService,
	sessionSvc *sessionsvc.SessionService,
	cookie *sessionsvc.SessionCookie,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	return &HTTPTransport{
		authSvc:    authSvc,
		sessionSvc: sessionSvc,
		cookie:     cookie,
		log:        logging.GetLogger("svc.authsvc.http_transport"),
		cfg:        cfg,
	}
}

// ServeHTTP implements http.Handler and sets up routes for the auth endpoints:
// - POST /auth/register: Create a new account
// - POST /auth/login: Authenticate and start a session
// - POST /auth/logout: Revoke the current session
// - GET /auth/session: Report the account of the current session.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", ht.HandleRegister)
	mux.HandleFunc("POST /auth/login", ht.HandleLogin)
	mux.HandleFunc("POST /auth/logout", ht.HandleLogout)
	mux.Handle("GET /auth/session", http_.SessionMiddleware(
		http.HandlerFunc(ht.HandleSession), ht.cookie, ht.sessionSvc, ht.log,
	))
	mux.ServeHTTP(w, r)
}

var (
	_ http_.HTTPTransport     = (*HTTPTransport)(nil)
	_ http_.SessionAuthorizer = (*sessionsvc.SessionService)(nil)
)

// HandleRegister processes sign-up requests.
// Expects form parameters: username, password.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "register not completed", "error", err)
		} else {
			log.DebugContext(ctx, "account registered")
		}
	}(r.Context())

	username, password, err := credentialsFromForm(w, r)
	if err != nil {
		return err
	}

	log = log.With(logging.Group("user", "username", username))

	result, err := ht.authSvc.SignUp(r.Context(), username, password)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return fmt.Errorf("sign up: %w", err)
	}

	switch result.Outcome {
	case SignUpAdded:
	case SignUpUsernameTaken:
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)

		return fmt.Errorf("%w: username taken", errRejected)
	case SignUpInvalidName, SignUpInvalidPassword:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return fmt.Errorf("%w: invalid credentials shape", errRejected)
	}

	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(AccountResponse{
		AccountID: result.Account.PublicID.String(),
	}); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

// HandleLogin processes login requests.
// Expects form parameters: username, password.
// On success it starts a session and sets the signed session cookie.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "login not completed", "error", err)
		} else {
			log.DebugContext(ctx, "login completed")
		}
	}(r.Context())

	username, password, err := credentialsFromForm(w, r)
	if err != nil {
		return err
	}

	log = log.With(logging.Group("user", "username", username))

	result, err := ht.authSvc.Login(r.Context(), username, password)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return fmt.Errorf("login: %w", err)
	}

	// Unknown username and wrong password answer identically.
	if result.Outcome != LoginSucceeded {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

		return fmt.Errorf("%w: credentials did not match", errRejected)
	}

	sessionID, err := ht.sessionSvc.Issue(r.Context(), sessionsvc.State{
		AccountID: result.AccountID,
		IssuedAt:  time.Now().Unix(),
	})
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return fmt.Errorf("issue session: %w", err)
	}

	expiry := time.Now().Add(time.Duration(ht.sessionSvc.Config.TTL * int64(time.Second)))
	if err := ht.cookie.Write(w, sessionID, expiry); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return fmt.Errorf("write cookie: %w", err)
	}

	if err := json.NewEncoder(w).Encode(AccountResponse{
		AccountID: result.AccountID.String(),
	}); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

// HandleLogout revokes the current session and clears the cookie.
// Logging out without a live session still succeeds.
func (ht *HTTPTransport) HandleLogout(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogout(w, r)
}

func (ht *HTTPTransport) handleLogout(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "logout not completed", "error", err)
		} else {
			log.DebugContext(ctx, "logout completed")
		}
	}(r.Context())

	if sessionID, err := ht.cookie.Read(r); err == nil {
		if err := ht.sessionSvc.Revoke(r.Context(), sessionID); err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

			return fmt.Errorf("revoke session: %w", err)
		}
	}

	ht.cookie.Clear(w)
	w.WriteHeader(http.StatusNoContent)

	return nil
}

// HandleSession reports the account id of the current session. It runs behind
// the session middleware, which rejects requests without a live session and
// puts the account id on the request context.
func (ht *HTTPTransport) HandleSession(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleSession(w, r)
}

func (ht *HTTPTransport) handleSession(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "session lookup not completed", "error", err)
		} else {
			log.DebugContext(ctx, "session lookup completed")
		}
	}(r.Context())

	accountID, ok := context_.AccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return errors.New("no account id on request context")
	}

	if err := json.NewEncoder(w).Encode(AccountResponse{
		AccountID: accountID,
	}); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

func credentialsFromForm(w http.ResponseWriter, r *http.Request) (username, password string, err error) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return "", "", fmt.Errorf("parse form: %w", err)
	}

	if username = r.FormValue("username"); username == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return "", "", ErrNoUsername
	}

	if password = r.FormValue("password"); password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return "", "", ErrNoPassword
	}

	return username, password, nil
}
