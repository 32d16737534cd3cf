// Package runlog keeps a local history of merge runs in a SQLite file so
// past runs can be inspected without touching the customer database.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/crm-merge-cli/internal/dedupe"
)

// Log records run summaries. It implements dedupe.RunRecorder.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the run log at path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "runlog: exec %s", pragma)
		}
	}

	l := &Log{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS merge_runs (
	id              TEXT PRIMARY KEY,
	mode            TEXT NOT NULL,
	started_at      DATETIME NOT NULL,
	finished_at     DATETIME NOT NULL,
	customer_count  INTEGER NOT NULL,
	candidates      INTEGER NOT NULL,
	deleted         INTEGER NOT NULL DEFAULT 0,
	errors          INTEGER NOT NULL DEFAULT 0,
	report_path     TEXT,
	summary         TEXT NOT NULL,
	recorded_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_merge_runs_started_at ON merge_runs(started_at);
`

func (l *Log) migrate() error {
	_, err := l.db.Exec(migration)
	return eris.Wrap(err, "runlog: migrate")
}

// Entry is one recorded run, as listed by the runs command.
type Entry struct {
	RunID      string
	Mode       string
	StartedAt  time.Time
	FinishedAt time.Time
	Customers  int
	Candidates int
	Deleted    int
	Errors     int
	ReportPath string
}

// Record stores the run summary. The full summary is kept as JSON alongside
// the columns used for listing.
func (l *Log) Record(ctx context.Context, s *dedupe.Summary) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "runlog: marshal summary")
	}

	var deleted, errCount int
	if s.Cascade != nil {
		deleted = s.Cascade.Deleted
		errCount = len(s.Cascade.Errors)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO merge_runs (id, mode, started_at, finished_at, customer_count, candidates, deleted, errors, report_path, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.RunID, s.Mode, s.StartedAt.UTC(), s.FinishedAt.UTC(),
		s.CustomerCount, s.Candidates, deleted, errCount, s.ReportPath, string(blob),
	)
	return eris.Wrap(err, "runlog: record run")
}

// List returns the most recent runs, newest first.
func (l *Log) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, mode, started_at, finished_at, customer_count, candidates, deleted, errors, COALESCE(report_path, '')
		FROM merge_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list runs")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.Mode, &e.StartedAt, &e.FinishedAt, &e.Customers, &e.Candidates, &e.Deleted, &e.Errors, &e.ReportPath); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "runlog: iterate runs")
}

// Get returns the stored summary for one run, or nil when unknown.
func (l *Log) Get(ctx context.Context, runID string) (*dedupe.Summary, error) {
	var blob string
	err := l.db.QueryRowContext(ctx, `SELECT summary FROM merge_runs WHERE id = ?`, runID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "runlog: get run")
	}

	var s dedupe.Summary
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		return nil, eris.Wrap(err, "runlog: unmarshal summary")
	}
	return &s, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}
