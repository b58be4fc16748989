package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loykin/apismoke/internal/constants"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect implements SQL dialect for SQLite
type Dialect struct{}

// NewDialect creates a new SQLite dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// GetPlaceholder returns SQLite-style placeholders (?); index is ignored
func (s *Dialect) GetPlaceholder(int) string {
	return "?"
}

// ConvertBoolToStorage converts bool to SQLite storage format (integer 0/1)
func (s *Dialect) ConvertBoolToStorage(b bool) interface{} {
	if b {
		return 1
	}
	return 0
}

// timeLayout keeps nine fractional digits so stored values sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ConvertTimeToStorage converts time to SQLite storage format (fixed-width RFC3339 string, UTC)
func (s *Dialect) ConvertTimeToStorage(t time.Time) interface{} {
	return t.UTC().Format(timeLayout)
}

// ConvertBoolFromStorage converts SQLite integer storage to bool
func (s *Dialect) ConvertBoolFromStorage(val interface{}) bool {
	switch v := val.(type) {
	case int64:
		return v != 0
	case int:
		return v != 0
	case bool:
		return v
	}
	return false
}

// ConvertTimeFromStorage parses SQLite RFC3339Nano storage; unparsable values yield the zero time
func (s *Dialect) ConvertTimeFromStorage(val interface{}) time.Time {
	switch v := val.(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	case time.Time:
		return v.UTC()
	}
	return time.Time{}
}

// Connect establishes a connection to SQLite with connection pooling
func (s *Dialect) Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	db.SetMaxOpenConns(constants.DefaultSQLiteMaxConnections)
	db.SetMaxIdleConns(constants.DefaultSQLiteMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultSQLiteLifetime)
	db.SetConnMaxIdleTime(constants.DefaultSQLiteIdleTime)

	return db, nil
}

// GetEnsureStatements returns SQLite-specific table creation statements
func (s *Dialect) GetEnsureStatements(runs, steps string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (run_id TEXT PRIMARY KEY, base_url TEXT NOT NULL, final_state TEXT NOT NULL, passed INTEGER NOT NULL DEFAULT 0, started_at TEXT NOT NULL, finished_at TEXT NOT NULL)", runs),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (run_id TEXT NOT NULL, seq INTEGER NOT NULL, name TEXT NOT NULL, passed INTEGER NOT NULL DEFAULT 0, failure TEXT NOT NULL, expected TEXT NOT NULL, got TEXT NOT NULL, status_code INTEGER NOT NULL, duration_ms INTEGER NOT NULL, detail TEXT NOT NULL, response_body TEXT NULL, PRIMARY KEY(run_id, seq))", steps),
	}
}

// GetDriverName returns the driver name for logging
func (s *Dialect) GetDriverName() string {
	return "sqlite"
}

// IsTransient reports SQLITE_BUSY and SQLITE_LOCKED, including their extended codes.
func (s *Dialect) IsTransient(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
