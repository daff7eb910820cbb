package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // database/sql driver

	"github.com/jlenhardt/gatehouse/internal/domain"
	"github.com/jlenhardt/gatehouse/internal/infra/logging"
)

// SQLiteSessionRepositoryConfig holds configuration for the SQLite session repository.
type SQLiteSessionRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/sessions.db"`
}

// SQLiteSessionRepository implements Repository using SQLite as the storage
// backend. Expiry timestamps are persisted as Unix milliseconds UTC so that
// the expiry filter runs inside the query.
type SQLiteSessionRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteSessionRepository)(nil)

// SQLiteSessionRepositoryFactory creates a factory function that returns a new
// SQLiteSessionRepository. The factory function implements the RepositoryFactory type.
func SQLiteSessionRepositoryFactory(cfg SQLiteSessionRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteSessionRepository(cfg)
	}
}

// NewSQLiteSessionRepository creates a new SQLiteSessionRepository with the
// given configuration. The schema is created by Migrate, not here, so multiple
// process instances can race the first startup safely.
func NewSQLiteSessionRepository(cfg SQLiteSessionRepositoryConfig) (*SQLiteSessionRepository, error) {
	log := logging.GetLogger("repo.session.sqlite_session_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteSessionRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

// Migrate implements Repository.Migrate with create-if-not-exists semantics.
func (r *SQLiteSessionRepository) Migrate(ctx context.Context) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id      TEXT    PRIMARY KEY NOT NULL,
			payload BLOB    NOT NULL,
			expiry  INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Save implements Repository.Save using an upsert keyed by id.
func (r *SQLiteSessionRepository) Save(ctx context.Context, record domain.SessionRecord) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, payload, expiry) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			payload = excluded.payload,
			expiry  = excluded.expiry
	`, record.ID, record.Payload, record.Expiry.UnixMilli()); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	return nil
}

// Load implements Repository.Load. The expiry filter is part of the query, so
// a row past its expiry is invisible even before any sweep has removed it.
func (r *SQLiteSessionRepository) Load(ctx context.Context, id string) (*domain.SessionRecord, bool, error) {
	var (
		record = domain.SessionRecord{ID: id}
		expiry int64
	)

	err := r.db.QueryRowContext(ctx,
		"SELECT payload, expiry FROM sessions WHERE id = ? AND expiry > ?",
		id, time.Now().UnixMilli(),
	).Scan(&record.Payload, &expiry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("query session: %w", err)
	}

	record.Expiry = time.UnixMilli(expiry).UTC()

	return &record, true, nil
}

// Delete implements Repository.Delete. Deleting an absent id is a no-op.
func (r *SQLiteSessionRepository) Delete(ctx context.Context, id string) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// DeleteExpired implements Repository.DeleteExpired in a single statement.
func (r *SQLiteSessionRepository) DeleteExpired(ctx context.Context) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expiry <= ?", time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}

	if deleted, err := res.RowsAffected(); err == nil && deleted > 0 {
		r.log.DebugContext(ctx, "expired sessions deleted", "count", deleted)
	}

	return nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteSessionRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
