package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jlenhardt/gatehouse/internal/domain"
	"github.com/jlenhardt/gatehouse/internal/infra/logging"
)

// SQLiteAccountRepositoryConfig holds configuration for the SQLite account repository.
type SQLiteAccountRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/gatehouse.db"`
}

// SQLiteAccountRepository implements Repository using SQLite as the storage backend.
type SQLiteAccountRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteAccountRepository)(nil)

// SQLiteAccountRepositoryFactory creates a factory function that returns a new
// SQLiteAccountRepository. The factory function implements the RepositoryFactory type.
func SQLiteAccountRepositoryFactory(cfg SQLiteAccountRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteAccountRepository(cfg)
	}
}

// NewSQLiteAccountRepository creates a new SQLiteAccountRepository with the given
// configuration. It initializes the database connection and creates the schema if
// needed. Returns an error if database connection or initialization fails.
func NewSQLiteAccountRepository(cfg SQLiteAccountRepositoryConfig) (*SQLiteAccountRepository, error) {
	log := logging.GetLogger("repo.account.sqlite_account_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := initializeDB(db); err != nil {
		return nil, fmt.Errorf("initialize db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteAccountRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(db *sql.DB) (err error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid          TEXT    UNIQUE NOT NULL,
			username      TEXT    UNIQUE NOT NULL,
			password_hash TEXT    NOT NULL,
			created_at    INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Create implements Repository.Create using SQLite.
func (r *SQLiteAccountRepository) Create(
	ctx context.Context,
	username, passwordHash string,
) (*domain.Account, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	acct := &domain.Account{
		PublicID:     uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (uuid, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
		acct.PublicID.String(),
		acct.Username,
		acct.PasswordHash,
		acct.CreatedAt,
	)
	if err != nil {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) {
			switch liteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
				fallthrough
			case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
				err = errors.Join(domain.ErrUsernameTaken, err)
			default:
				break
			}
		}

		return nil, fmt.Errorf("insert account: %w", err)
	}

	if acct.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return acct, nil
}

// GetByUsername implements Repository.GetByUsername using SQLite.
func (r *SQLiteAccountRepository) GetByUsername(
	ctx context.Context,
	username string,
) (*domain.Account, bool, error) {
	return r.get(ctx,
		"SELECT id, uuid, username, password_hash, created_at FROM accounts WHERE username = ?",
		username,
	)
}

// GetByID implements Repository.GetByID using SQLite.
func (r *SQLiteAccountRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Account, bool, error) {
	return r.get(ctx,
		"SELECT id, uuid, username, password_hash, created_at FROM accounts WHERE uuid = ?",
		id.String(),
	)
}

func (r *SQLiteAccountRepository) get(
	ctx context.Context,
	query string,
	arg any,
) (*domain.Account, bool, error) {
	var (
		acct     domain.Account
		publicID string
	)

	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&acct.ID, &publicID, &acct.Username, &acct.PasswordHash, &acct.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrAccountNotFound, err)
		}

		return nil, false, fmt.Errorf("query account: %w", err)
	}

	if acct.PublicID, err = uuid.Parse(publicID); err != nil {
		return nil, false, fmt.Errorf("parse account uuid: %w", err)
	}

	return &acct, true, nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteAccountRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
