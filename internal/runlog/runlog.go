// Package runlog keeps a SQLite ledger of stepping runs.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"heatsim/internal/heat"
)

// Run is one completed stepping call.
type Run struct {
	ID        int64
	StartedAt time.Time
	Elapsed   time.Duration

	Device   string
	Strategy string
	Scheme   string

	Width  int
	Height int
	DT     float32
	Steps  uint
	T      float32

	Stats   heat.Stats
	Summary Summary
}

// Ledger appends runs to a SQLite database.
type Ledger struct {
	db *sql.DB
}

// Open creates or opens the ledger at path. Parent directories are created.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("empty ledger path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		elapsed_ns INTEGER NOT NULL,
		device TEXT NOT NULL,
		strategy TEXT NOT NULL,
		scheme TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		dt REAL NOT NULL,
		steps INTEGER NOT NULL,
		t REAL NOT NULL,
		table_writes INTEGER NOT NULL,
		state_writes INTEGER NOT NULL,
		state_reads INTEGER NOT NULL,
		dispatches INTEGER NOT NULL,
		barriers INTEGER NOT NULL,
		min REAL NOT NULL,
		max REAL NOT NULL,
		mean REAL NOT NULL,
		stddev REAL NOT NULL,
		mutable_mean REAL NOT NULL,
		mutable INTEGER NOT NULL
	);`)
	return err
}

// Record stores r and returns its row id.
func (l *Ledger) Record(ctx context.Context, r Run) (int64, error) {
	res, err := l.db.ExecContext(ctx, `INSERT INTO runs (
		started_at, elapsed_ns, device, strategy, scheme, width, height, dt, steps, t,
		table_writes, state_writes, state_reads, dispatches, barriers,
		min, max, mean, stddev, mutable_mean, mutable
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt.UTC().Format(time.RFC3339Nano), int64(r.Elapsed), r.Device, r.Strategy, r.Scheme,
		r.Width, r.Height, float64(r.DT), int64(r.Steps), float64(r.T),
		r.Stats.TableWrites, r.Stats.StateWrites, r.Stats.StateReads, r.Stats.Dispatches, r.Stats.Barriers,
		r.Summary.Min, r.Summary.Max, r.Summary.Mean, r.Summary.StdDev, r.Summary.MutableMean, r.Summary.Mutable,
	)
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit runs, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT
		id, started_at, elapsed_ns, device, strategy, scheme, width, height, dt, steps, t,
		table_writes, state_writes, state_reads, dispatches, barriers,
		min, max, mean, stddev, mutable_mean, mutable
	FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			started string
			elapsed int64
			steps   int64
			dt, tm  float64
		)
		if err := rows.Scan(&r.ID, &started, &elapsed, &r.Device, &r.Strategy, &r.Scheme,
			&r.Width, &r.Height, &dt, &steps, &tm,
			&r.Stats.TableWrites, &r.Stats.StateWrites, &r.Stats.StateReads, &r.Stats.Dispatches, &r.Stats.Barriers,
			&r.Summary.Min, &r.Summary.Max, &r.Summary.Mean, &r.Summary.StdDev, &r.Summary.MutableMean, &r.Summary.Mutable,
		); err != nil {
			return nil, err
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", r.ID, err)
		}
		r.Elapsed = time.Duration(elapsed)
		r.Steps = uint(steps)
		r.DT = float32(dt)
		r.T = float32(tm)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
