// Package recorder provides SQLite-based telemetry storage for headless
// simulation runs: one row per run, one per formation lifecycle event, and
// sampled per-tick population stats.
package recorder

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mcjdh/galactic-ring-cannon-sub004/internal/arena"
)

// DB wraps a SQLite connection for run telemetry.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scenario TEXT NOT NULL,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS formation_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		formation_id TEXT NOT NULL,
		pattern_id TEXT NOT NULL,
		members INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS tick_stats (
		run_id INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		enemies INTEGER NOT NULL,
		formations INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE INDEX IF NOT EXISTS idx_formation_events_run ON formation_events(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun registers a run and returns its id.
func (db *DB) BeginRun(scenario string, seed int64) (int64, error) {
	res, err := db.conn.Exec(
		`INSERT INTO runs (scenario, seed, started_at) VALUES (?, ?, ?)`,
		scenario, seed, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("begin run: %w", err)
	}
	return res.LastInsertId()
}

// RecordTickStats samples population counts for one tick.
func (db *DB) RecordTickStats(runID int64, tick, enemies, formations int) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO tick_stats (run_id, tick, enemies, formations) VALUES (?, ?, ?, ?)`,
		runID, tick, enemies, formations)
	return err
}

// FormationEventRow is one persisted lifecycle event.
type FormationEventRow struct {
	RunID       int64  `db:"run_id"`
	Tick        int    `db:"tick"`
	Kind        string `db:"kind"`
	FormationID string `db:"formation_id"`
	PatternID   string `db:"pattern_id"`
	Members     int    `db:"members"`
	Reason      string `db:"reason"`
}

// Events returns all lifecycle events for a run in tick order.
func (db *DB) Events(runID int64) ([]FormationEventRow, error) {
	var rows []FormationEventRow
	err := db.conn.Select(&rows,
		`SELECT run_id, tick, kind, formation_id, pattern_id, members, reason
		 FROM formation_events WHERE run_id = ? ORDER BY tick, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	return rows, nil
}

// Sink adapts a run to arena.EventSink so the director can record straight
// into the database. Write errors are remembered, not raised mid-tick; the
// core treats telemetry failure as non-fatal.
type Sink struct {
	db    *DB
	runID int64
	err   error
}

// NewSink creates a sink bound to a run.
func (db *DB) NewSink(runID int64) *Sink {
	return &Sink{db: db, runID: runID}
}

// Err returns the first write error, if any.
func (s *Sink) Err() error { return s.err }

func (s *Sink) FormationFormed(ev arena.FormationFormedEvent) {
	s.record(ev.Tick, "formed", ev.FormationID.String(), ev.PatternID, len(ev.MemberIDs), "")
}

func (s *Sink) FormationBroken(ev arena.FormationBrokenEvent) {
	s.record(ev.Tick, "broken", ev.FormationID.String(), ev.PatternID, len(ev.MemberIDs), ev.Reason.String())
}

func (s *Sink) record(tick int, kind, formationID, patternID string, members int, reason string) {
	_, err := s.db.conn.Exec(
		`INSERT INTO formation_events (run_id, tick, kind, formation_id, pattern_id, members, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID, tick, kind, formationID, patternID, members, reason)
	if err != nil && s.err == nil {
		s.err = err
	}
}
