package sessionsvc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/jlenhardt/gatehouse/internal/domain"
)

// CookieConfig contains configuration for the session cookie.
type CookieConfig struct {
	// Name is the cookie name
	Name string `env:"COOKIE_NAME" default:"gatehouse_session"`

	// HashKey is the hex-encoded HMAC key used to sign cookie values.
	// Must be 32 or 64 bytes once decoded.
	HashKey string `env:"COOKIE_HASH_KEY" default:""`

	// Secure marks the cookie as HTTPS-only
	Secure bool `env:"COOKIE_SECURE" default:"true"`
}

// SessionCookie signs session ids into an HTTP cookie and reads them back.
// The session id stays opaque; signing only prevents client-side tampering.
type SessionCookie struct {
	name   string
	secure bool
	codec  *securecookie.SecureCookie
}

// NewSessionCookie creates a SessionCookie from the given configuration.
// An empty hash key generates an ephemeral one, invalidating all cookies on
// restart; production deployments should configure a stable key.
func NewSessionCookie(cfg CookieConfig) (*SessionCookie, error) {
	var (
		hashKey []byte
		err     error
	)

	if cfg.HashKey == "" {
		hashKey = securecookie.GenerateRandomKey(32)
	} else if hashKey, err = hex.DecodeString(cfg.HashKey); err != nil {
		return nil, fmt.Errorf("decode cookie hash key: %w", err)
	}

	return &SessionCookie{
		name:   cfg.Name,
		secure: cfg.Secure,
		codec:  securecookie.New(hashKey, nil),
	}, nil
}

// Read extracts and verifies the session id from the request cookie.
// Returns domain.ErrNoSession when the cookie is absent and
// domain.ErrInvalidSession when it fails signature verification.
func (c *SessionCookie) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return "", errors.Join(domain.ErrNoSession, err)
	}

	var sessionID string
	if err := c.codec.Decode(c.name, cookie.Value, &sessionID); err != nil {
		return "", errors.Join(domain.ErrInvalidSession, err)
	}

	return sessionID, nil
}

// Write signs the session id and sets it as a cookie expiring with the session.
func (c *SessionCookie) Write(w http.ResponseWriter, sessionID string, expiry time.Time) error {
	value, err := c.codec.Encode(c.name, sessionID)
	if err != nil {
		return fmt.Errorf("encode cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Clear expires the cookie on the client.
func (c *SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
