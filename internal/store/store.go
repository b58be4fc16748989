// Package store persists scenario outcomes so runs can be compared over time.
// SQLite (modernc.org/sqlite) and PostgreSQL (pgx stdlib) share one
// implementation that differs only by Dialect.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loykin/apismoke/internal/common"
	"github.com/loykin/apismoke/internal/constants"
	"github.com/loykin/apismoke/internal/retry"
	"github.com/loykin/apismoke/internal/scenario"
	"github.com/loykin/apismoke/internal/store/postgresql"
	"github.com/loykin/apismoke/internal/store/sqlite"
	"github.com/loykin/apismoke/internal/util"
)

// ErrRunNotFound is returned by RunSteps for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Dialect hides the SQL differences between drivers.
type Dialect interface {
	GetPlaceholder(index int) string
	ConvertBoolToStorage(b bool) interface{}
	ConvertTimeToStorage(t time.Time) interface{}
	ConvertBoolFromStorage(val interface{}) bool
	ConvertTimeFromStorage(val interface{}) time.Time
	Connect(ctx context.Context, dsn string) (*sql.DB, error)
	GetEnsureStatements(runs, steps string) []string
	GetDriverName() string
	// IsTransient reports driver errors worth retrying.
	IsTransient(err error) bool
}

// TableNames holds the resolved history table names.
type TableNames struct {
	Runs  string
	Steps string
}

// NewTableNames prefixes the default table names.
func NewTableNames(prefix string) TableNames {
	p := strings.TrimSpace(prefix)
	return TableNames{
		Runs:  p + constants.DefaultRunsTable,
		Steps: p + constants.DefaultStepsTable,
	}
}

// Run is one row of the runs table.
type Run struct {
	RunID      string
	BaseURL    string
	FinalState string
	Passed     bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Step is one row of the steps table. ResponseBody is nil when not saved.
type Step struct {
	RunID        string
	Seq          int
	Name         string
	Passed       bool
	Failure      string
	Expected     string
	Got          string
	StatusCode   int
	DurationMS   int64
	Detail       string
	ResponseBody *string
}

type Store struct {
	db       *sql.DB
	dialect  Dialect
	tables   TableNames
	saveBody bool
	retry    *retry.Config
	logger   *common.Logger
	// masker scrubs credentials from stored bodies regardless of log settings.
	masker *common.Masker
}

// Open connects to the configured database and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var (
		dialect Dialect
		dsn     string
	)
	switch util.TrimAndLower(cfg.Driver) {
	case "", DriverSqlite:
		dialect = sqlite.NewDialect()
		dsn = cfg.SQLite.DSN()
	case DriverPostgres, "postgresql":
		dialect = postgresql.NewDialect()
		dsn = cfg.Postgres.BuildDSN()
		if dsn == "" {
			return nil, errors.New("postgres store requires dsn or host")
		}
	default:
		return nil, fmt.Errorf("unsupported store type %q", cfg.Driver)
	}

	logger := common.GetLogger().WithStore(dialect.GetDriverName())
	db, err := dialect.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:       db,
		dialect:  dialect,
		tables:   NewTableNames(cfg.TablePrefix),
		saveBody: cfg.SaveResponseBody,
		retry:    retry.DefaultRetryConfig().WithClassifier(dialect.IsTransient),
		logger:   logger,
		masker:   common.NewMasker(),
	}
	if err := s.ensure(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("history store ready", "runs_table", s.tables.Runs, "steps_table", s.tables.Steps)
	return s, nil
}

// Tables returns the table names in use.
func (s *Store) Tables() TableNames {
	return s.tables
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensure(ctx context.Context) error {
	for i, q := range s.dialect.GetEnsureStatements(s.tables.Runs, s.tables.Steps) {
		s.logger.Debug("executing schema creation statement", "table_index", i+1, "sql", q)
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create table %d in schema setup: %w", i+1, err)
		}
	}
	return nil
}

// placeholders returns "p1, p2, ... pn" in the dialect's style.
func (s *Store) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.dialect.GetPlaceholder(i + 1)
	}
	return strings.Join(ph, ", ")
}

// RecordOutcome writes the run and its steps in one transaction. Transient
// database errors are retried.
func (s *Store) RecordOutcome(ctx context.Context, out *scenario.Outcome) error {
	if out == nil {
		return errors.New("nil outcome")
	}
	err := retry.WithRetry(ctx, s.retry, func() error {
		return s.recordOutcome(ctx, out)
	})
	if err != nil {
		return fmt.Errorf("record run %s: %w", out.RunID, err)
	}
	s.logger.Debug("run recorded", "run_id", out.RunID, "steps", len(out.Results))
	return nil
}

func (s *Store) recordOutcome(ctx context.Context, out *scenario.Outcome) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	runQ := fmt.Sprintf("INSERT INTO %s(run_id, base_url, final_state, passed, started_at, finished_at) VALUES(%s)",
		s.tables.Runs, s.placeholders(6))
	if _, err = tx.ExecContext(ctx, runQ,
		out.RunID,
		out.BaseURL,
		out.Final.String(),
		s.dialect.ConvertBoolToStorage(out.Passed()),
		s.dialect.ConvertTimeToStorage(out.StartedAt),
		s.dialect.ConvertTimeToStorage(out.FinishedAt),
	); err != nil {
		return err
	}

	stepQ := fmt.Sprintf("INSERT INTO %s(run_id, seq, name, passed, failure, expected, got, status_code, duration_ms, detail, response_body) VALUES(%s)",
		s.tables.Steps, s.placeholders(11))
	for i, r := range out.Results {
		var body *string
		if s.saveBody {
			b := s.masker.MaskString(r.ResponseBody)
			body = &b
		}
		failure := ""
		if !r.Passed {
			failure = r.Failure.String()
		}
		if _, err = tx.ExecContext(ctx, stepQ,
			out.RunID,
			i+1,
			r.Name,
			s.dialect.ConvertBoolToStorage(r.Passed),
			failure,
			r.Expected,
			r.Got,
			r.StatusCode,
			r.Duration.Milliseconds(),
			s.masker.MaskString(r.Detail),
			body,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := fmt.Sprintf("SELECT run_id, base_url, final_state, passed, started_at, finished_at FROM %s ORDER BY started_at DESC, run_id DESC", s.tables.Runs)
	var args []interface{}
	if limit > 0 {
		q += " LIMIT " + s.dialect.GetPlaceholder(1)
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			passed            interface{}
			started, finished interface{}
		)
		if err := rows.Scan(&r.RunID, &r.BaseURL, &r.FinalState, &passed, &started, &finished); err != nil {
			return nil, err
		}
		r.Passed = s.dialect.ConvertBoolFromStorage(passed)
		r.StartedAt = s.dialect.ConvertTimeFromStorage(started)
		r.FinishedAt = s.dialect.ConvertTimeFromStorage(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunSteps returns the steps of runID in execution order.
func (s *Store) RunSteps(ctx context.Context, runID string) ([]Step, error) {
	var exists int
	existsQ := fmt.Sprintf("SELECT 1 FROM %s WHERE run_id = %s", s.tables.Runs, s.dialect.GetPlaceholder(1))
	if err := s.db.QueryRowContext(ctx, existsQ, runID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	q := fmt.Sprintf("SELECT run_id, seq, name, passed, failure, expected, got, status_code, duration_ms, detail, response_body FROM %s WHERE run_id = %s ORDER BY seq ASC",
		s.tables.Steps, s.dialect.GetPlaceholder(1))
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Step
	for rows.Next() {
		var (
			st     Step
			passed interface{}
			body   sql.NullString
		)
		if err := rows.Scan(&st.RunID, &st.Seq, &st.Name, &passed, &st.Failure, &st.Expected, &st.Got, &st.StatusCode, &st.DurationMS, &st.Detail, &body); err != nil {
			return nil, err
		}
		st.Passed = s.dialect.ConvertBoolFromStorage(passed)
		if body.Valid {
			b := body.String
			st.ResponseBody = &b
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
