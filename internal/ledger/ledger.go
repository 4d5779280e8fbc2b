// Package ledger keeps a durable record of every trainer invocation in a
// SQLite database. Experiments run for hours; the ledger is what survives a
// crashed terminal and answers "which repetitions already finished" before
// anything is re-launched.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Status is the lifecycle state of one recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	experiment  TEXT NOT NULL,
	phase       TEXT NOT NULL,
	rep         INTEGER NOT NULL,
	fold        INTEGER NOT NULL,
	config_path TEXT NOT NULL,
	output_dir  TEXT NOT NULL,
	devices     TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER,
	exit_code   INTEGER,
	status      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_experiment ON runs(experiment, started_at);
`

// Run is one recorded invocation.
type Run struct {
	ID         string
	Experiment string
	Phase      string
	Rep        int
	Fold       int
	ConfigPath string
	OutputDir  string
	Devices    string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is still live
	ExitCode   int
	Status     Status
}

// Ledger wraps the SQLite database. SQLite allows a single writer, so the
// connection pool is pinned to one connection.
type Ledger struct {
	db *sql.DB
}

// Open creates or opens the ledger database at path, creating parent
// directories as needed.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Begin records the start of a run and returns its generated id.
func (l *Ledger) Begin(ctx context.Context, run Run) (string, error) {
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, experiment, phase, rep, fold, config_path, output_dir, devices, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, run.Experiment, run.Phase, run.Rep, run.Fold,
		run.ConfigPath, run.OutputDir, run.Devices,
		time.Now().Unix(), StatusRunning)
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	return id, nil
}

// Finish closes out a run started with Begin.
func (l *Ledger) Finish(ctx context.Context, id string, exitCode int, status Status) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, exit_code = ?, status = ? WHERE id = ?`,
		time.Now().Unix(), exitCode, status, id)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("unknown run id %q", id)
	}
	return nil
}

// RecordSkip records an invocation that never launched, e.g. because a
// dependency failed.
func (l *Ledger) RecordSkip(ctx context.Context, run Run) error {
	now := time.Now().Unix()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, experiment, phase, rep, fold, config_path, output_dir, devices, started_at, finished_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), run.Experiment, run.Phase, run.Rep, run.Fold,
		run.ConfigPath, run.OutputDir, run.Devices, now, now, StatusSkipped)
	if err != nil {
		return fmt.Errorf("recording skipped run: %w", err)
	}
	return nil
}

// Runs returns every recorded run for an experiment in insertion order.
func (l *Ledger) Runs(ctx context.Context, experiment string) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, experiment, phase, rep, fold, config_path, output_dir, devices,
		       started_at, finished_at, exit_code, status
		FROM runs WHERE experiment = ? ORDER BY rowid`, experiment)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LastRun returns the most recently started run for an experiment, or false
// when the experiment has never run.
func (l *Ledger) LastRun(ctx context.Context, experiment string) (Run, bool, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, experiment, phase, rep, fold, config_path, output_dir, devices,
		       started_at, finished_at, exit_code, status
		FROM runs WHERE experiment = ? ORDER BY rowid DESC LIMIT 1`, experiment)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var started int64
	var finished, exitCode sql.NullInt64
	err := s.Scan(&run.ID, &run.Experiment, &run.Phase, &run.Rep, &run.Fold,
		&run.ConfigPath, &run.OutputDir, &run.Devices,
		&started, &finished, &exitCode, &run.Status)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt = time.Unix(started, 0)
	if finished.Valid {
		run.FinishedAt = time.Unix(finished.Int64, 0)
	}
	if exitCode.Valid {
		run.ExitCode = int(exitCode.Int64)
	}
	return run, nil
}
