package authsvc

// ValidationRules holds the inclusive length bounds for usernames and
// passwords. Lengths are measured in bytes, not code points, matching the
// unit the hasher enforces. Immutable configuration, not persisted.
type ValidationRules struct {
	// NameMin is the minimum username length in bytes
	NameMin int `env:"NAME_MIN" default:"3"`
	// NameMax is the maximum username length in bytes
	NameMax int `env:"NAME_MAX" default:"32"`
	// PassMin is the minimum password length in bytes
	PassMin int `env:"PASS_MIN" default:"8"`
	// PassMax is the maximum password length in bytes
	PassMax int `env:"PASS_MAX" default:"128"`
}

// Validation is the result of checking credentials against ValidationRules.
type Validation int

const (
	// ValidationOK means both fields are within bounds.
	ValidationOK Validation = iota
	// ValidationInvalidName means the username is out of bounds. Reported
	// even when the password is also invalid; the name is checked first.
	ValidationInvalidName
	// ValidationInvalidPass means the username is in bounds but the password is not.
	ValidationInvalidPass
)

// Validate checks the given username and password against the rules.
// Pure and total: no I/O, no error cases.
func (r ValidationRules) Validate(name, pass string) Validation {
	if len(name) < r.NameMin || len(name) > r.NameMax {
		return ValidationInvalidName
	}

	if len(pass) < r.PassMin || len(pass) > r.PassMax {
		return ValidationInvalidPass
	}

	return ValidationOK
}

// IsValid reports whether both fields are within bounds.
func (r ValidationRules) IsValid(name, pass string) bool {
	return r.Validate(name, pass) == ValidationOK
}
