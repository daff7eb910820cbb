package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	context_ "github.com/jlenhardt/gatehouse/internal/infra/context"
	"github.com/jlenhardt/gatehouse/internal/infra/logging"
)

const TraceIDHeader = "X-Request-ID"

// HTTPClientConfig holds configuration for the HTTP auth client.
type HTTPClientConfig struct {
	// BaseURL is the auth service endpoint, without the /auth prefix
	BaseURL string `env:"BASE_URL" default:"http://localhost:8080"`
}

// HTTPClient implements AuthClient against the auth service HTTP API.
// The session cookie lives in the client's cookie jar, so one HTTPClient
// holds at most one session.
type HTTPClient struct {
	httpClient *http.Client
	log        logging.Logger
	cfg        HTTPClientConfig
}

var _ AuthClient = (*HTTPClient)(nil)

type accountResponse struct {
	AccountID string `json:"accountId"`
}

// NewHTTPClient creates a new HTTPClient with the given configuration.
// If httpClient is nil a client with a fresh cookie jar is used; a caller
// supplied client must bring its own jar or sessions will not stick.
func NewHTTPClient(
	cfg HTTPClientConfig,
	httpClient *http.Client,
) (*HTTPClient, error) {
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("new cookie jar: %w", err)
		}

		httpClient = &http.Client{Jar: jar}
	}

	return &HTTPClient{
		httpClient: httpClient,
		log:        logging.GetLogger("svc.authsvc.http_client"),
		cfg:        cfg,
	}, nil
}

// Register implements AuthClient.Register.
func (hc *HTTPClient) Register(ctx context.Context, username, password string) (string, bool, error) {
	resp, err := hc.postForm(ctx, "/auth/register", credentialsForm(username, password))
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict, http.StatusBadRequest:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("register: unexpected status %d", resp.StatusCode)
	}

	var account accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}

	return account.AccountID, true, nil
}

// Login implements AuthClient.Login. On success the session cookie set by the
// server lands in the cookie jar.
func (hc *HTTPClient) Login(ctx context.Context, username, password string) (string, bool, error) {
	resp, err := hc.postForm(ctx, "/auth/login", credentialsForm(username, password))
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusBadRequest:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	var account accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}

	return account.AccountID, true, nil
}

// Logout implements AuthClient.Logout.
func (hc *HTTPClient) Logout(ctx context.Context) error {
	resp, err := hc.postForm(ctx, "/auth/logout", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("logout: unexpected status %d", resp.StatusCode)
	}

	return nil
}

// Session implements AuthClient.Session.
func (hc *HTTPClient) Session(ctx context.Context) (string, bool, error) {
	req, err := hc.newRequest(ctx, http.MethodGet, "/auth/session", nil)
	if err != nil {
		return "", false, err
	}

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("session: unexpected status %d", resp.StatusCode)
	}

	var account accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}

	return account.AccountID, true, nil
}

func (hc *HTTPClient) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := hc.newRequest(ctx, http.MethodPost, path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}

	return resp, nil
}

func (hc *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, hc.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		req.Header.Set(TraceIDHeader, traceID)
	}

	return req, nil
}

func credentialsForm(username, password string) url.Values {
	return url.Values{
		"username": {username},
		"password": {password},
	}
}
