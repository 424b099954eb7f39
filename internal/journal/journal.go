// Package journal keeps an append-only SQLite history of explosion runs.
//
// Writes are funnelled through one goroutine fed by a buffered channel so
// callers on the explosion path never wait on disk I/O.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/go-theft-craft/blast/internal/metrics"
)

const (
	queueSize     = 256
	commitEvery   = 64
	commitMaxWait = 250 * time.Millisecond
)

// Run is one completed explosion.
type Run struct {
	ID              uuid.UUID
	World           string
	X, Y, Z         int
	Radius          int
	CraterRadius    int
	Mutated         int
	Rings           int
	EffectiveRadius int
	Duration        time.Duration
	StartedAt       time.Time
	Error           string
}

type req struct {
	run   Run
	flush chan struct{}
}

// Journal is safe for concurrent use.
type Journal struct {
	db  *sql.DB
	log *slog.Logger

	mu      sync.RWMutex
	closed  bool
	ch      chan req
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Int64
	failed  atomic.Int64
}

// Open creates or opens the journal database at path.
func Open(path string, log *slog.Logger) (*Journal, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if path == "" {
		return nil, fmt.Errorf("open journal: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, log: log, ch: make(chan req, queueSize)}
	if err := j.initPragmas(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := j.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	j.wg.Add(1)
	go j.loop()
	return j, nil
}

func (j *Journal) initPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := j.db.Exec(p); err != nil {
			return fmt.Errorf("journal pragma %q: %w", p, err)
		}
	}
	return nil
}

func (j *Journal) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	world TEXT NOT NULL,
	x INTEGER NOT NULL,
	y INTEGER NOT NULL,
	z INTEGER NOT NULL,
	radius INTEGER NOT NULL,
	crater_radius INTEGER NOT NULL,
	mutated INTEGER NOT NULL,
	rings INTEGER NOT NULL,
	effective_radius INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL,
	started_at INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("journal schema: %w", err)
	}
	return nil
}

// Record queues a run for writing. It never blocks: when the buffer is full
// or the journal is closed the record is dropped and counted.
func (j *Journal) Record(run Run) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		j.drop()
		return
	}
	select {
	case j.ch <- req{run: run}:
	default:
		j.drop()
	}
}

func (j *Journal) drop() {
	j.dropped.Add(1)
	metrics.JournalDropped.Inc()
}

// Flush waits until every run queued before the call is committed.
func (j *Journal) Flush(ctx context.Context) error {
	done := make(chan struct{})
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return nil
	}
	select {
	case j.ch <- req{flush: done}:
		j.mu.RUnlock()
	case <-ctx.Done():
		j.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT id, world, x, y, z, radius, crater_radius, mutated, rings, effective_radius, duration_ns, started_at, error
FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			id      string
			dur     int64
			started int64
		)
		if err := rows.Scan(&id, &r.World, &r.X, &r.Y, &r.Z, &r.Radius, &r.CraterRadius,
			&r.Mutated, &r.Rings, &r.EffectiveRadius, &dur, &started, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}
		r.Duration = time.Duration(dur)
		r.StartedAt = time.Unix(0, started).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Dropped returns the number of runs that were never queued.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Failed returns the number of runs the writer could not insert.
func (j *Journal) Failed() int64 { return j.failed.Load() }

// Close drains the queue, commits and closes the database.
func (j *Journal) Close() error {
	var err error
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.ch)
		j.mu.Unlock()
		j.wg.Wait()
		err = j.db.Close()
	})
	return err
}

func (j *Journal) loop() {
	defer j.wg.Done()

	insert, err := j.db.Prepare(`
INSERT OR REPLACE INTO runs(id, world, x, y, z, radius, crater_radius, mutated, rings, effective_radius, duration_ns, started_at, error)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		j.log.Error("prepare journal insert", "error", err)
	} else {
		defer insert.Close()
	}

	var (
		tx         *sql.Tx
		opCount    int
		lastCommit = time.Now()
		waiting    []chan struct{}
	)
	commit := func() {
		if tx != nil {
			if err := tx.Commit(); err != nil {
				j.log.Warn("commit journal", "error", err, "runs", opCount)
				j.failed.Add(int64(opCount))
			}
			tx = nil
		}
		opCount = 0
		lastCommit = time.Now()
		for _, w := range waiting {
			close(w)
		}
		waiting = waiting[:0]
	}

	for r := range j.ch {
		if r.flush != nil {
			waiting = append(waiting, r.flush)
			commit()
			continue
		}
		if insert == nil {
			j.failed.Add(1)
			continue
		}
		if tx == nil {
			if tx, err = j.db.Begin(); err != nil {
				j.log.Warn("begin journal tx", "error", err)
				tx = nil
				j.failed.Add(1)
				continue
			}
		}
		run := r.run
		if _, err := tx.Stmt(insert).Exec(
			run.ID.String(), run.World, run.X, run.Y, run.Z, run.Radius, run.CraterRadius,
			run.Mutated, run.Rings, run.EffectiveRadius, int64(run.Duration),
			run.StartedAt.UnixNano(), run.Error,
		); err != nil {
			j.log.Warn("insert journal run", "id", run.ID, "error", err)
			j.failed.Add(1)
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(j.ch) == 0 {
			commit()
		}
	}
	commit()
}
