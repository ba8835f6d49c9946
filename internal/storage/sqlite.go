package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"slnlint/internal/coordinator"
	"slnlint/internal/diag"
)

var ErrRunNotFound = errors.New("run not found")

type SQLiteStore struct {
	db *sql.DB
}

var _ History = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			solution TEXT,
			state TEXT,
			started INTEGER,
			duration INTEGER,
			exit_code INTEGER,
			errors INTEGER,
			warnings INTEGER,
			infos INTEGER,
			load_errors INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER,
			rule TEXT,
			severity TEXT,
			message TEXT,
			file TEXT,
			line INTEGER,
			col INTEGER,
			symbol TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS load_errors (
			run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER,
			project TEXT,
			message TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);`,
		`CREATE INDEX IF NOT EXISTS idx_diagnostics_symbol ON diagnostics(symbol);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *coordinator.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	name := ""
	if run.Descriptor != nil {
		name = run.Descriptor.Name
	}
	counts := diag.Counts(run.Diagnostics)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, solution, state, started, duration, exit_code, errors, warnings, infos, load_errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			solution=excluded.solution,
			state=excluded.state,
			started=excluded.started,
			duration=excluded.duration,
			exit_code=excluded.exit_code,
			errors=excluded.errors,
			warnings=excluded.warnings,
			infos=excluded.infos,
			load_errors=excluded.load_errors
	`, run.ID, name, run.State.String(), run.Started.UnixNano(), int64(run.Timings.Total), run.ExitCode(),
		counts[diag.SevError], counts[diag.SevWarning], counts[diag.SevInfo], len(run.LoadErrors))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	// Children are replaced so a re-saved run matches its latest state.
	for _, table := range []string{"diagnostics", "load_errors"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", run.ID); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO diagnostics (run_id, seq, rule, severity, message, file, line, col, symbol)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range run.Diagnostics {
		if _, err := stmt.ExecContext(ctx, run.ID, i, d.RuleID, d.Severity.String(), d.Message,
			d.Location.File, d.Location.Line, d.Location.Column, d.Symbol); err != nil {
			return fmt.Errorf("failed to save diagnostic: %w", err)
		}
	}

	errStmt, err := tx.PrepareContext(ctx, `INSERT INTO load_errors (run_id, seq, project, message) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer errStmt.Close()

	for i, le := range run.LoadErrors {
		if _, err := errStmt.ExecContext(ctx, run.ID, i, le.ProjectID, fmt.Sprint(le.Cause)); err != nil {
			return fmt.Errorf("failed to save load error: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, solution, state, started, duration, exit_code, errors, warnings, infos, load_errors
		FROM runs ORDER BY started DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, duration int64
		if err := rows.Scan(&r.ID, &r.Solution, &r.State, &started, &duration, &r.ExitCode,
			&r.Errors, &r.Warnings, &r.Infos, &r.LoadErrors); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Started = time.Unix(0, started)
		r.Duration = time.Duration(duration)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RunDiagnostics(ctx context.Context, runID string) ([]diag.Diagnostic, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE id = ?", runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rule, severity, message, file, line, col, symbol
		FROM diagnostics WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()

	var out []diag.Diagnostic
	for rows.Next() {
		var d diag.Diagnostic
		var sev string
		if err := rows.Scan(&d.RuleID, &sev, &d.Message, &d.Location.File, &d.Location.Line, &d.Location.Column, &d.Symbol); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		if d.Severity, err = diag.ParseSeverity(sev); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
