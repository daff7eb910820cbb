package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jlenhardt/gatehouse/internal/infra/config"
	"github.com/jlenhardt/gatehouse/internal/infra/logging"
	"github.com/jlenhardt/gatehouse/internal/infra/transport/http"
	"github.com/jlenhardt/gatehouse/internal/repo/account"
	"github.com/jlenhardt/gatehouse/internal/repo/session"
	"github.com/jlenhardt/gatehouse/internal/svc/authsvc"
	"github.com/jlenhardt/gatehouse/internal/svc/sessionsvc"
)

const (
	appName = "gatehouse"
	svcName = "authsvc"
)

type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig                  `envPrefix:"LOG_"`
	Auth    authsvc.AuthConfig                    `envPrefix:"AUTH_"`
	HTTP    authsvc.HTTPTransportConfig           `envPrefix:"HTTP_"`
	Account account.SQLiteAccountRepositoryConfig `envPrefix:"ACCOUNT_"`
	Session sessionsvc.SessionConfig              `envPrefix:"SESSION_"`
	Cookie  sessionsvc.CookieConfig               `envPrefix:"SESSION_"`
	Store   SessionStoreConfig                    `envPrefix:"SESSION_STORE_"`
	SQLite  session.SQLiteSessionRepositoryConfig `envPrefix:"SESSION_STORE_"`
	Redis   session.RedisSessionRepositoryConfig  `envPrefix:"SESSION_STORE_"`
}

// SessionStoreConfig selects the session persistence backend.
type SessionStoreConfig struct {
	// Backend is one of "sqlite", "redis" or "memory"
	Backend string `env:"BACKEND" default:"sqlite"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func sessionRepoFactory(cfg Config) (session.RepositoryFactory, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return session.SQLiteSessionRepositoryFactory(cfg.SQLite), nil
	case "redis":
		return session.RedisSessionRepositoryFactory(cfg.Redis), nil
	case "memory":
		return session.MemorySessionRepositoryFactory(), nil
	default:
		return nil, fmt.Errorf("unknown session store backend %q", cfg.Store.Backend)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	defer func() {
		log := logging.GetLogger("cmd.authsvc")

		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
			panic(err)
		}

		log.InfoContext(ctx, "shutdown")
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authSvc, err := authsvc.NewAuthService(
		account.SQLiteAccountRepositoryFactory(cfg.Account),
		cfg.Auth,
	)
	if err != nil {
		return fmt.Errorf("new auth service: %w", err)
	}
	defer authSvc.Close()

	repoFactory, err := sessionRepoFactory(cfg)
	if err != nil {
		return fmt.Errorf("session repo factory: %w", err)
	}

	sessionSvc, err := sessionsvc.NewSessionService(repoFactory, cfg.Session)
	if err != nil {
		return fmt.Errorf("new session service: %w", err)
	}
	defer sessionSvc.Close()

	cookie, err := sessionsvc.NewSessionCookie(cfg.Cookie)
	if err != nil {
		return fmt.Errorf("new session cookie: %w", err)
	}

	reaper := sessionsvc.NewReaper(
		sessionSvc.SessionRepo,
		time.Duration(cfg.Session.ReapPeriod*int64(time.Second)),
	)
	go reaper.Run(ctx)

	httpTransport := authsvc.NewHTTPTransport(authSvc, sessionSvc, cookie, cfg.HTTP)

	if err := http.ListenAndServe(ctx, httpTransport, cfg.HTTP.HTTPTransportConfig); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
