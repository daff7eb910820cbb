package domain

import "errors"

var (
	// ErrPasswordTooShort is returned by the hasher when the password is below
	// the configured minimum length.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordTooLong is returned by the hasher when the password exceeds
	// the configured maximum length.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrCorruptHash is returned when a stored password hash cannot be parsed.
	// It signals a server-side data integrity failure, never a user input problem.
	ErrCorruptHash = errors.New("corrupt password hash")
)
