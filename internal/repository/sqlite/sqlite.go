// Package sqlite implements the repository interfaces on an embedded
// SQLite database.
//
// We use modernc.org/sqlite (a pure-Go translation of SQLite) rather than
// the CGo driver so the binary cross-compiles without a C toolchain. The
// driver registers itself with database/sql under the name "sqlite" via
// the blank import below.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface. One struct for all of them keeps the wiring flat — the
// service layer still only sees the interface it asked for.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath (":memory:" for tests), applies the
// pragmas the server depends on, and runs migrations.
//
// WAL mode lets concurrent reads proceed while a write is in flight,
// which matters once several requests hit the same file. Foreign keys are
// off by default in SQLite and must be switched on per connection — the
// cascade from users to their owned rows depends on it.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Surface a bad path or permissions problem now instead of on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. The server defers this on shutdown so
// the WAL is flushed and the file lock released.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates all tables. Every statement is idempotent, so this is
// safe to run on every startup against an existing database.
//
// The three side-tables and sessions all declare ON DELETE CASCADE:
// removing a user must never leave orphaned profile rows.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL UNIQUE,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'user',
			is_verified   INTEGER NOT NULL DEFAULT 0,
			github_id     INTEGER,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(github_id) WHERE github_id IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS social_info (
			user_id   TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			github    TEXT NOT NULL DEFAULT '',
			linkedin  TEXT NOT NULL DEFAULT '',
			twitter   TEXT NOT NULL DEFAULT '',
			instagram TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("creating social_info table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS user_preferences (
			user_id             TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			theme               TEXT NOT NULL DEFAULT 'dark',
			email_notifications INTEGER NOT NULL DEFAULT 1,
			push_notifications  INTEGER NOT NULL DEFAULT 1,
			profile_visibility  TEXT NOT NULL DEFAULT 'public'
		);
	`)
	if err != nil {
		return fmt.Errorf("creating user_preferences table: %w", err)
	}

	// primary_goals and areas_of_interest are JSON array text — SQLite has
	// no native array type.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS user_extra_info (
			user_id          TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			bio              TEXT NOT NULL DEFAULT '',
			location         TEXT NOT NULL DEFAULT '',
			primary_goals    TEXT NOT NULL DEFAULT '[]',
			experience_level TEXT NOT NULL DEFAULT '',
			areas_of_interest TEXT NOT NULL DEFAULT '[]',
			dedication_hours INTEGER NOT NULL DEFAULT 0,
			current_role     TEXT NOT NULL DEFAULT '',
			primary_language TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("creating user_extra_info table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	return nil
}
