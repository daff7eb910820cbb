// Package authclient provides a Go client for the authentication HTTP API.
// It is used by sibling services that need to register accounts or hold a
// session against the auth service.
package authclient

import "context"

// AuthClient defines the client-side view of the authentication service.
type AuthClient interface {
	// Register creates an account and returns its public id.
	// ok is false when the server rejected the credentials (taken username
	// or invalid shape) without a backend fault.
	Register(ctx context.Context, username, password string) (accountID string, ok bool, err error)

	// Login authenticates and starts a session. The session cookie is
	// retained by the client for subsequent calls. ok is false when the
	// credentials did not match.
	Login(ctx context.Context, username, password string) (accountID string, ok bool, err error)

	// Logout revokes the current session, if any.
	Logout(ctx context.Context) error

	// Session reports the account id of the current session.
	// ok is false when no live session exists.
	Session(ctx context.Context) (accountID string, ok bool, err error)
}
