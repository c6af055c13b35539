// Package store persists audit runs and findings in a local SQLite
// database. A single-binary audit tool must not require a database
// server, so everything lives in one file under the data directory.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/navlens/navlens-cli/internal/findings"
)

// ErrRunNotFound is returned when a requested run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Store wraps the SQLite database. Use ":memory:" as the path for tests.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (creating if necessary) the database at path and ensures
// the schema exists.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, log: logger.Named("store")}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun inserts the run row and all its findings in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *findings.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.log.Error("failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, targets) VALUES (?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), strings.Join(run.Targets, "\n"))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := s.insertFindings(ctx, tx, run.Findings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("run persisted", zap.String("run_id", run.ID), zap.Int("findings", len(run.Findings)))
	return nil
}

func (s *Store) insertFindings(ctx context.Context, tx *sql.Tx, items []findings.Finding) error {
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO findings (id, run_id, observed_at, page, "check", region, severity, message, selector, details)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare findings insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range items {
		if !f.Severity.Valid() {
			return fmt.Errorf("finding %s has unknown severity %q", f.ID, f.Severity)
		}
		details := f.Details
		if len(details) == 0 {
			details = json.RawMessage("{}")
		}
		_, err := stmt.ExecContext(ctx,
			f.ID, f.RunID, f.ObservedAt.UTC(), f.Page, f.Check, f.Region,
			string(f.Severity), f.Message, f.Selector, string(details))
		if err != nil {
			return fmt.Errorf("failed to insert finding %s: %w", f.ID, err)
		}
	}
	return nil
}

// GetRun loads one run with its findings, ordered by observation time.
func (s *Store) GetRun(ctx context.Context, runID string) (*findings.Run, error) {
	run := &findings.Run{ID: runID}
	var targets string
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, finished_at, targets FROM runs WHERE id = ?`, runID).
		Scan(&run.StartedAt, &run.FinishedAt, &targets)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if targets != "" {
		run.Targets = strings.Split(targets, "\n")
	}

	run.Findings, err = s.FindingsByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRunID returns the id of the most recently started run.
func (s *Store) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRunNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest run: %w", err)
	}
	return id, nil
}

// FindingsByRun returns a run's findings ordered by observation time.
func (s *Store) FindingsByRun(ctx context.Context, runID string) ([]findings.Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, observed_at, page, "check", region, severity, message, selector, details
        FROM findings WHERE run_id = ? ORDER BY observed_at ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var out []findings.Finding
	for rows.Next() {
		var f findings.Finding
		var severity, details string
		var selector sql.NullString
		if err := rows.Scan(&f.ID, &f.ObservedAt, &f.Page, &f.Check, &f.Region,
			&severity, &f.Message, &selector, &details); err != nil {
			return nil, fmt.Errorf("failed to scan finding row: %w", err)
		}
		f.RunID = runID
		f.Severity = findings.Severity(severity)
		f.Selector = selector.String
		if details != "" && details != "{}" {
			f.Details = json.RawMessage(details)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}
