// Package history keeps a local SQLite record of past runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/flow"
)

// Store implements run history using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history dir: %w", err)
	}

	// Foreign keys are per connection, so enable them in the DSN for the whole pool.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			profile TEXT NOT NULL,
			target TEXT NOT NULL,
			status TEXT NOT NULL,
			halted_at INTEGER NOT NULL DEFAULT -1,
			planned INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			session_released INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_profile ON runs(profile, started_at)`,
		`CREATE TABLE IF NOT EXISTS action_results (
			run_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			name TEXT NOT NULL,
			op TEXT NOT NULL,
			status TEXT NOT NULL,
			required INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			text TEXT,
			count INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			PRIMARY KEY (run_id, idx),
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records a finished run and its action results.
func (s *Store) Save(ctx context.Context, r *core.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, profile, target, status, halted_at, planned, succeeded, failed,
			session_released, started_at, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Profile, r.Target, string(r.Status), r.HaltedAt, r.Planned,
		r.Summary.Succeeded, r.Summary.Failed(), r.SessionReleased,
		r.StartTime.UTC(), r.Duration.Milliseconds(), nullString(r.Error))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, res := range r.Results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO action_results (run_id, idx, name, op, status, required, duration_ms, text, count, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, res.Index, res.Name, string(res.Op), res.Status.String(), res.Required,
			res.Duration.Milliseconds(), nullString(res.Text), res.Count, nullString(res.Error))
		if err != nil {
			return fmt.Errorf("insert result %d: %w", res.Index, err)
		}
	}

	return tx.Commit()
}

// Run is one row of the runs table.
type Run struct {
	ID              string
	Profile         string
	Target          string
	Status          core.RunStatus
	HaltedAt        int
	Planned         int
	Succeeded       int
	Failed          int
	SessionReleased bool
	StartedAt       time.Time
	Duration        time.Duration
	Error           string
}

// Filter narrows List.
type Filter struct {
	Profile string // Empty matches every profile
	Limit   int    // 0 means 20
}

// List returns recent runs, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Run, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT run_id, profile, target, status, halted_at, planned, succeeded, failed,
		session_released, started_at, duration_ms, error FROM runs`
	var args []interface{}
	if f.Profile != "" {
		query += ` WHERE profile = ?`
		args = append(args, f.Profile)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Get returns a stored run with its results, or nil when id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*Run, []core.ActionResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, profile, target, status, halted_at, planned, succeeded, failed,
			session_released, started_at, duration_ms, error FROM runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, name, op, status, required, duration_ms, text, count, error
		FROM action_results WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var results []core.ActionResult
	for rows.Next() {
		var res core.ActionResult
		var op, status string
		var durationMs int64
		var text, errMsg sql.NullString
		if err := rows.Scan(&res.Index, &res.Name, &op, &status, &res.Required,
			&durationMs, &text, &res.Count, &errMsg); err != nil {
			return nil, nil, err
		}
		res.Op = flow.Op(op)
		if res.Status, err = core.ParseActionStatus(status); err != nil {
			return nil, nil, err
		}
		res.Category = core.CategoryFor(res.Status)
		res.Duration = time.Duration(durationMs) * time.Millisecond
		res.Text = text.String
		res.Error = errMsg.String
		results = append(results, res)
	}
	return run, results, rows.Err()
}

// Prune deletes runs started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var status string
	var durationMs int64
	var errMsg sql.NullString
	if err := sc.Scan(&run.ID, &run.Profile, &run.Target, &status, &run.HaltedAt, &run.Planned,
		&run.Succeeded, &run.Failed, &run.SessionReleased, &run.StartedAt, &durationMs, &errMsg); err != nil {
		return nil, err
	}
	run.Status = core.RunStatus(status)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	run.Error = errMsg.String
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
