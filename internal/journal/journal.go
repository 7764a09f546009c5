// Package journal keeps a local SQLite record of dispatched actions and
// their outcomes.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/logging"
	_ "modernc.org/sqlite"
)

// FileName is the journal database inside the state directory.
const FileName = "journal.db"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT NOT NULL,
	section TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL DEFAULT '',
	target TEXT NOT NULL DEFAULT '',
	method TEXT NOT NULL DEFAULT '',
	endpoint TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_outcomes_recorded_at ON outcomes(recorded_at);
`

// ErrInvalidLimit is returned for a non-positive Recent limit.
var ErrInvalidLimit = errors.New("journal: limit must be positive")

// Entry is a stored outcome.
type Entry struct {
	ID int64
	domain.OutcomeRecord
}

// Journal is safe for concurrent use.
type Journal struct {
	db     *sql.DB
	logger logging.Logger
}

// Open creates or opens the journal at dbPath.
func Open(dbPath string, logger logging.Logger) (*Journal, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("journal: db path cannot be empty")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set busy timeout: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	return &Journal{db: db, logger: logger}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record stores rec.
func (j *Journal) Record(ctx context.Context, rec domain.OutcomeRecord) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO outcomes (recorded_at, section, action, target, method, endpoint, outcome, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		at.UTC().Format(time.RFC3339Nano), rec.Section, rec.Action, rec.TargetID,
		rec.Method, rec.Endpoint, string(rec.Outcome), rec.Message)
	if err != nil {
		return fmt.Errorf("journal: record outcome: %w", err)
	}
	return nil
}

// Observe records rec, logging instead of returning failures.
func (j *Journal) Observe(ctx context.Context, rec domain.OutcomeRecord) {
	if err := j.Record(context.WithoutCancel(ctx), rec); err != nil {
		j.logger.Warn("journal write failed", "error", err)
	}
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, recorded_at, section, action, target, method, endpoint, outcome, message
		 FROM outcomes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query outcomes: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			at      string
			outcome string
		)
		if err := rows.Scan(&e.ID, &at, &e.Section, &e.Action, &e.TargetID, &e.Method, &e.Endpoint, &outcome, &e.Message); err != nil {
			return nil, fmt.Errorf("journal: scan outcome: %w", err)
		}
		e.Outcome = domain.Outcome(outcome)
		if parsed, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.At = parsed
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate outcomes: %w", err)
	}
	return out, nil
}

// Prune deletes entries recorded before cutoff and returns how many.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM outcomes WHERE recorded_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("journal: prune rows: %w", err)
	}
	return n, nil
}
