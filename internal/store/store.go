package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a queue entry or record does not exist
var ErrNotFound = errors.New("store: not found")

// Store holds all persisted requestline state in a single SQLite database:
// the properties singleton, users (cooldowns), the request queue, the
// history log and dead letters.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const schema = `
	CREATE TABLE IF NOT EXISTS properties (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		access_token TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		token_type TEXT NOT NULL DEFAULT '',
		token_expiry INTEGER NOT NULL DEFAULT 0,
		default_playlist_active BOOLEAN NOT NULL DEFAULT 1,
		now_playing_history_id INTEGER NOT NULL DEFAULT 0
	);

	INSERT OR IGNORE INTO properties (id) VALUES (1);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id TEXT NOT NULL UNIQUE,
		cooldown_expires_at INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE TABLE IF NOT EXISTS song_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		track_id TEXT NOT NULL,
		track_uri TEXT NOT NULL,
		track_name TEXT NOT NULL,
		artist TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		enqueued_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS song_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		queue_entry_id INTEGER NOT NULL,
		track_id TEXT NOT NULL,
		track_name TEXT NOT NULL,
		artist TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		requested_at INTEGER NOT NULL,
		played_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_history_queue_entry ON song_history(queue_entry_id);
	CREATE INDEX IF NOT EXISTS idx_history_requested_at ON song_history(requested_at);

	CREATE TABLE IF NOT EXISTS dead_letters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		queue_entry_id INTEGER NOT NULL,
		client_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		track_name TEXT NOT NULL,
		artist TEXT NOT NULL,
		reason TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		failed_at INTEGER NOT NULL
	);
`

// Open creates or opens the SQLite database at dbPath and applies the schema.
// Use ":memory:" for an ephemeral database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps in-memory databases consistent and
	// serializes writers inside the daemon.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// dsn builds the driver connection string. File databases take write locks
// at BEGIN so a transition never interleaves with another process.
func dsn(dbPath string) string {
	if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file:") {
		return dbPath
	}
	return "file:" + dbPath + "?_txlock=immediate"
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetClock overrides the time source used for timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// withTx runs fn inside a transaction, committing only if fn succeeds
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
