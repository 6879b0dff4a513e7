// Package store keeps the records of every scrape run in a SQLite database so
// results can be re-exported and reused by later runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/get-rishabh/AutoLeads-Assignment/internal/profile"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a requested run, or any run at all, is missing.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed width so started_at orders correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS records (
	run_id      TEXT    NOT NULL REFERENCES runs(id),
	position    INTEGER NOT NULL,
	profile_url TEXT    NOT NULL,
	success     INTEGER NOT NULL,
	record      TEXT    NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS idx_records_profile_url ON records(profile_url);
`

type Run struct {
	ID        string
	StartedAt time.Time
	Model     string
}

type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Save stores run and its records, in order, in one transaction.
func (s *SQLite) Save(ctx context.Context, run Run, records []profile.Record) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, model) VALUES (?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeLayout), run.Model,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (run_id, position, profile_url, success, record) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		_ = stmt.Close()
	}()
	for i, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, rec.ProfileURL, boolInt(rec.Success), string(b)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LatestRun returns the most recently started run.
func (s *SQLite) LatestRun(ctx context.Context) (Run, error) {
	return s.scanRun(s.db.QueryRowContext(ctx, `SELECT id, started_at, model FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`))
}

// GetRun returns the run with the given id.
func (s *SQLite) GetRun(ctx context.Context, id string) (Run, error) {
	return s.scanRun(s.db.QueryRowContext(ctx, `SELECT id, started_at, model FROM runs WHERE id = ?`, id))
}

func (s *SQLite) scanRun(row *sql.Row) (Run, error) {
	var (
		run     Run
		started string
	)
	if err := row.Scan(&run.ID, &started, &run.Model); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, err
	}
	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = t
	return run, nil
}

// Records returns the records of a run in input order.
func (s *SQLite) Records(ctx context.Context, runID string) ([]profile.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	return decodeRecords(rows)
}

// SuccessfulByURL returns the newest successful record stored for each profile URL.
func (s *SQLite) SuccessfulByURL(ctx context.Context) (map[string]profile.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT r.record FROM records r JOIN runs ON runs.id = r.run_id
WHERE r.success = 1
ORDER BY runs.started_at, runs.rowid, r.position`)
	if err != nil {
		return nil, err
	}
	recs, err := decodeRecords(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]profile.Record, len(recs))
	for _, rec := range recs {
		out[strings.TrimSpace(rec.ProfileURL)] = rec
	}
	return out, nil
}

func decodeRecords(rows *sql.Rows) ([]profile.Record, error) {
	defer func() {
		_ = rows.Close()
	}()
	var out []profile.Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec profile.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
