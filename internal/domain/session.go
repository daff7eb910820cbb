package domain

import (
	"errors"
	"time"
)

var (
	// ErrSessionDecode is returned when a stored session payload cannot be decoded.
	// It indicates data corruption or a version mismatch, not a transient fault.
	ErrSessionDecode = errors.New("session payload decode failed")
	// ErrNoSession is returned when a request carries no session identifier.
	ErrNoSession = errors.New("no session")
	// ErrInvalidSession is returned when a session is unknown or expired.
	ErrInvalidSession = errors.New("invalid session")
)

// SessionRecord is a durable, expiring session row. The payload is an opaque
// byte blob produced by the session service; stores persist it byte-for-byte
// and never interpret its structure.
type SessionRecord struct {
	ID      string    // Opaque session identifier, generated by the caller
	Payload []byte    // Opaque serialized session state
	Expiry  time.Time // Absolute time after which the record is invisible
}

// Expired reports whether the record is past its expiry relative to now.
func (r SessionRecord) Expired(now time.Time) bool {
	return !r.Expiry.After(now)
}
