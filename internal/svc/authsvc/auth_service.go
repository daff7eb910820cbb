package authsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jlenhardt/gatehouse/internal/domain"
	"github.com/jlenhardt/gatehouse/internal/infra/logging"
	"github.com/jlenhardt/gatehouse/internal/repo/account"
)

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	// Rules are the username/password length bounds
	Rules ValidationRules `envPrefix:"RULES_"`

	// Hasher holds the argon2id parameters
	Hasher HasherConfig `envPrefix:"HASHER_"`
}

// SignUpOutcome is the closed set of sign-up results.
type SignUpOutcome int

const (
	// SignUpAdded means the account was created.
	SignUpAdded SignUpOutcome = iota
	// SignUpUsernameTaken means an account with that username already exists.
	SignUpUsernameTaken
	// SignUpInvalidName means the username is out of bounds.
	SignUpInvalidName
	// SignUpInvalidPassword means the password is out of bounds.
	SignUpInvalidPassword
)

// SignUpResult carries the sign-up outcome and, when added, the new account.
type SignUpResult struct {
	Outcome SignUpOutcome
	Account *domain.Account // set only for SignUpAdded
}

// LoginOutcome is the closed set of login results.
type LoginOutcome int

const (
	// LoginSucceeded means the credentials matched.
	LoginSucceeded LoginOutcome = iota
	// LoginUnknownUsername means no account has that username.
	LoginUnknownUsername
	// LoginIncorrectPassword means the account exists but the password did not match.
	LoginIncorrectPassword
)

// LoginResult carries the login outcome and, on success, the account's public id.
type LoginResult struct {
	Outcome   LoginOutcome
	AccountID uuid.UUID // set only for LoginSucceeded
}

// AuthService composes validation rules, the password hasher and the account
// repository into sign-up and login operations.
//
// Expected failures (taken username, invalid shape, unknown username, wrong
// password) travel as result outcomes; the error return carries backend
// faults only. Nothing is retried internally.
type AuthService struct {
	Config      AuthConfig
	AccountRepo account.Repository
	Hasher      PasswordHasher
	Log         logging.Logger
}

// NewAuthService creates a new AuthService with the given account repository
// factory and configuration. Returns an error if the hasher or the account
// repository cannot be created.
func NewAuthService(repoFactory account.RepositoryFactory, cfg AuthConfig) (*AuthService, error) {
	log := logging.GetLogger("svc.authsvc.auth_service")

	hasher, err := NewArgon2Hasher(cfg.Hasher, cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("new hasher: %w", err)
	}

	accountRepo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new account repo: %w", err)
	}

	return &AuthService{
		Config:      cfg,
		AccountRepo: accountRepo,
		Hasher:      hasher,
		Log:         log,
	}, nil
}

// SignUp creates a new account with the given username and password.
// The password is hashed before storage; the raw text never reaches the
// repository.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (_ SignUpResult, err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "sign up failed", "error", err)
		} else {
			log.DebugContext(ctx, "sign up handled")
		}
	}()

	switch s.Config.Rules.Validate(username, password) {
	case ValidationInvalidName:
		return SignUpResult{Outcome: SignUpInvalidName}, nil
	case ValidationInvalidPass:
		return SignUpResult{Outcome: SignUpInvalidPassword}, nil
	case ValidationOK:
	}

	passwordHash, err := s.Hasher.Hash(ctx, password)
	if err != nil {
		// The hasher re-checks bounds in its own unit; a caller that bypassed
		// Validate still cannot store an out-of-bound password.
		if errors.Is(err, domain.ErrPasswordTooShort) || errors.Is(err, domain.ErrPasswordTooLong) {
			return SignUpResult{Outcome: SignUpInvalidPassword}, nil
		}

		return SignUpResult{}, fmt.Errorf("hash password: %w", err)
	}

	acct, err := s.AccountRepo.Create(ctx, username, passwordHash)
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return SignUpResult{Outcome: SignUpUsernameTaken}, nil
		}

		return SignUpResult{}, fmt.Errorf("create account: %w", err)
	}

	return SignUpResult{Outcome: SignUpAdded, Account: acct}, nil
}

// Login authenticates the given credentials.
//
// When the username is unknown a verification still runs against a dummy
// hash, so the response time does not reveal whether the account exists.
func (s *AuthService) Login(ctx context.Context, username, password string) (_ LoginResult, err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login handled")
		}
	}()

	switch s.Config.Rules.Validate(username, password) {
	case ValidationInvalidName:
		return LoginResult{Outcome: LoginUnknownUsername}, nil
	case ValidationInvalidPass:
		return LoginResult{Outcome: LoginIncorrectPassword}, nil
	case ValidationOK:
	}

	acct, ok, err := s.AccountRepo.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return LoginResult{}, fmt.Errorf("get account: %w", err)
	}

	if err != nil || !ok {
		if _, verifyErr := s.Hasher.Verify(ctx, password, s.Hasher.DummyHash()); verifyErr != nil {
			return LoginResult{}, fmt.Errorf("verify dummy: %w", verifyErr)
		}

		return LoginResult{Outcome: LoginUnknownUsername}, nil
	}

	match, err := s.Hasher.Verify(ctx, password, acct.PasswordHash)
	if err != nil {
		if errors.Is(err, domain.ErrCorruptHash) {
			// Data integrity failure on our side, not a user input problem.
			log.ErrorContext(ctx, "stored password hash is corrupt",
				logging.Group("account", "id", acct.PublicID.String()))
		}

		return LoginResult{}, fmt.Errorf("verify password: %w", err)
	}

	if !match {
		return LoginResult{Outcome: LoginIncorrectPassword}, nil
	}

	return LoginResult{Outcome: LoginSucceeded, AccountID: acct.PublicID}, nil
}

// Account looks up an account by its public id, for session revalidation.
func (s *AuthService) Account(ctx context.Context, id uuid.UUID) (*domain.Account, bool, error) {
	acct, ok, err := s.AccountRepo.GetByID(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, false, fmt.Errorf("get account: %w", err)
	}

	if err != nil || !ok {
		return nil, false, nil
	}

	return acct, true, nil
}

// Close releases resources held by the service, such as database connections.
func (s *AuthService) Close() error {
	if err := s.AccountRepo.Close(); err != nil {
		return fmt.Errorf("close account repo: %w", err)
	}

	return nil
}
