// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest keeps a SQLite history of conversion runs and the
// artifacts each run wrote.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/odis2vcp/pkg/types"
)

const (
	dbFile = "odis2vcp.db"

	defaultLimit = 20

	// timeFormat is fixed-width so stored timestamps sort as text.
	timeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID          string           `json:"id" yaml:"id"`
	InputPath   string           `json:"input_path" yaml:"input_path"`
	Mode        types.OutputMode `json:"mode" yaml:"mode"`
	Description string           `json:"description" yaml:"description"`
	OutputDir   string           `json:"output_dir" yaml:"output_dir"`
	StartedAt   time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Total       int              `json:"total" yaml:"total"`
	Converted   int              `json:"converted" yaml:"converted"`
	Status      string           `json:"status" yaml:"status"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
	Artifacts   []types.Artifact `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// Store manages the manifest database.
type Store struct {
	db  *sql.DB
	dir string
	now func() time.Time
}

// Open opens or creates dir/odis2vcp.db and its schema.
func Open(cfg types.ManifestConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating manifest directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening manifest database: %w", err)
	}
	// Concurrent conversions share one connection so inserts serialize
	// instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dir: dir, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input_path TEXT NOT NULL,
			mode TEXT NOT NULL,
			description TEXT,
			output_dir TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			total INTEGER NOT NULL DEFAULT 0,
			converted INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			path TEXT NOT NULL,
			record_index INTEGER NOT NULL,
			diagnostic_address TEXT,
			start_address TEXT,
			zdc_name TEXT,
			zdc_version TEXT,
			size INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_run_id ON artifacts(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun inserts a running run and returns its ID.
func (s *Store) BeginRun(ctx context.Context, info types.RunInfo) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_path, mode, description, output_dir, started_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, info.InputPath, string(info.Mode), info.Description, info.OutputDir,
		s.now().UTC().Format(timeFormat), StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// RecordArtifact stores one written artifact of run runID.
func (s *Store) RecordArtifact(ctx context.Context, runID string, a types.Artifact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (run_id, path, record_index, diagnostic_address, start_address, zdc_name, zdc_version, size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, a.Path, a.RecordIndex, a.DiagnosticAddress, a.StartAddress, a.ZDCName, a.ZDCVersion, a.Size,
	)
	if err != nil {
		return fmt.Errorf("inserting artifact: %w", err)
	}
	return nil
}

// FinishRun stores the counters and outcome of run runID.
func (s *Store) FinishRun(ctx context.Context, runID string, summary types.RunSummary, runErr error) error {
	status, msg := StatusCompleted, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	// The run may have been cancelled; the outcome is still worth keeping.
	ctx = context.WithoutCancel(ctx)
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, converted = ?, status = ?, error = ? WHERE id = ?`,
		s.now().UTC().Format(timeFormat), summary.Total, summary.Converted, status, msg, runID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// Runs returns the most recent runs, newest first. limit <= 0 uses 20.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input_path, mode, description, output_dir, started_at, finished_at, total, converted, status, error
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns one run with its artifacts.
func (s *Store) Run(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input_path, mode, description, output_dir, started_at, finished_at, total, converted, status, error
		 FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return RunRecord{}, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return RunRecord{}, err
	}
	r.Artifacts, err = s.Artifacts(ctx, id)
	return r, err
}

// Artifacts returns the artifacts of run runID in record order.
func (s *Store) Artifacts(ctx context.Context, runID string) ([]types.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, record_index, diagnostic_address, start_address, zdc_name, zdc_version, size
		 FROM artifacts WHERE run_id = ? ORDER BY record_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()

	var out []types.Artifact
	for rows.Next() {
		var a types.Artifact
		if err := rows.Scan(&a.Path, &a.RecordIndex, &a.DiagnosticAddress, &a.StartAddress,
			&a.ZDCName, &a.ZDCVersion, &a.Size); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunRecord, error) {
	var (
		r                    RunRecord
		mode, started        string
		desc, outDir, errMsg sql.NullString
		finished             sql.NullString
	)
	err := sc.Scan(&r.ID, &r.InputPath, &mode, &desc, &outDir, &started, &finished,
		&r.Total, &r.Converted, &r.Status, &errMsg)
	if err == sql.ErrNoRows {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("scanning run: %w", err)
	}

	r.Mode = types.OutputMode(mode)
	r.Description = desc.String
	r.OutputDir = outDir.String
	r.Error = errMsg.String
	if r.StartedAt, err = time.Parse(timeFormat, started); err != nil {
		return r, fmt.Errorf("parsing started_at of run %s: %w", r.ID, err)
	}
	if finished.Valid {
		t, err := time.Parse(timeFormat, finished.String)
		if err != nil {
			return r, fmt.Errorf("parsing finished_at of run %s: %w", r.ID, err)
		}
		r.FinishedAt = &t
	}
	return r, nil
}
