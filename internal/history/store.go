// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps an SQLite ledger of conversion runs. The ledger is
// an audit trail: reconciliation always works from the filesystem and never
// reads it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/webpify/pkg/types"
)

const (
	appDir = "webpify"
	dbFile = "history.db"

	defaultLimit = 20
)

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns $XDG_DATA_HOME/webpify/history.db, falling back to
// ~/.local/share/webpify/history.db.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appDir, dbFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appDir, dbFile), nil
}

// NewStore opens or creates the database named by cfg.Path (or the default
// path) and creates the schema if it does not exist.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	dbPath := cfg.Path
	if dbPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		dbPath = p
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
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

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			dir TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			state TEXT NOT NULL,
			action TEXT,
			dry_run INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			converted INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			moved INTEGER NOT NULL,
			conflicts INTEGER NOT NULL,
			move_failed INTEGER NOT NULL,
			bytes_in INTEGER NOT NULL,
			bytes_out INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_dir ON runs(dir, started_at)`,
		`CREATE TABLE IF NOT EXISTS images (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			stem TEXT NOT NULL,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			bytes_in INTEGER NOT NULL,
			bytes_out INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_images_run_id ON images(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a run and its per-image outcomes in one transaction.
func (s *Store) Record(ctx context.Context, r types.RunReport) error {
	if r.ID == "" {
		return fmt.Errorf("recording run: missing run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, dir, output_dir, state, action, dry_run, started_at, elapsed_ms,
			converted, skipped, failed, moved, conflicts, move_failed, bytes_in, bytes_out)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Dir, r.OutputDir, string(r.State), string(r.Action), r.DryRun,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.Elapsed.Milliseconds(),
		r.Converted, r.Skipped, r.Failed, r.Moved, r.Conflicts, r.MoveFailed,
		r.BytesIn, r.BytesOut,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", r.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO images (run_id, stem, source, status, bytes_in, bytes_out, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing image insert: %w", err)
	}
	defer stmt.Close()

	for _, img := range r.Images {
		if _, err := stmt.ExecContext(ctx, r.ID, img.Stem, img.Source, string(img.Status),
			img.BytesIn, img.BytesOut, img.Duration.Milliseconds(), img.Error); err != nil {
			return fmt.Errorf("inserting image %s: %w", img.Stem, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit runs, newest first. An empty dir returns runs
// for every directory. Image outcomes are not loaded; use Images.
func (s *Store) Recent(ctx context.Context, dir string, limit int) ([]types.RunReport, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	query := `SELECT id, dir, output_dir, state, action, dry_run, started_at, elapsed_ms,
			converted, skipped, failed, moved, conflicts, move_failed, bytes_in, bytes_out
		FROM runs`
	var args []any
	if dir != "" {
		query += ` WHERE dir = ?`
		args = append(args, dir)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunReport
	for rows.Next() {
		var (
			r         types.RunReport
			state     string
			action    sql.NullString
			startedAt string
			elapsedMS int64
		)
		if err := rows.Scan(&r.ID, &r.Dir, &r.OutputDir, &state, &action, &r.DryRun, &startedAt, &elapsedMS,
			&r.Converted, &r.Skipped, &r.Failed, &r.Moved, &r.Conflicts, &r.MoveFailed,
			&r.BytesIn, &r.BytesOut); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.State = types.State(state)
		r.Action = types.Action(action.String)
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			r.StartedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Images returns the per-image outcomes recorded for a run.
func (s *Store) Images(ctx context.Context, runID string) ([]types.ImageOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stem, source, status, bytes_in, bytes_out, duration_ms, error
		FROM images WHERE run_id = ? ORDER BY stem`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying images for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []types.ImageOutcome
	for rows.Next() {
		var (
			img    types.ImageOutcome
			status string
			durMS  int64
			errStr sql.NullString
		)
		if err := rows.Scan(&img.Stem, &img.Source, &status, &img.BytesIn, &img.BytesOut, &durMS, &errStr); err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		img.Status = types.ConversionStatus(status)
		img.Duration = time.Duration(durMS) * time.Millisecond
		img.Error = errStr.String
		out = append(out, img)
	}
	return out, rows.Err()
}
