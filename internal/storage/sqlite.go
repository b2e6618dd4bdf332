package storage

import (
	"database/sql"
	"time"

	"github.com/osoriano/pitwall/internal/models"
	_ "modernc.org/sqlite"
)

// Store is the local watch history: which runs this console observed and
// which gate decisions it submitted. It is a record of what the operator
// did, not a replica of backend state.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS watched_runs (
		run_id TEXT PRIMARY KEY,
		brief TEXT NOT NULL DEFAULT '',
		first_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_status TEXT NOT NULL DEFAULT '',
		last_phase TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS gate_decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		gate TEXT NOT NULL,
		decision TEXT NOT NULL,
		feedback TEXT NOT NULL DEFAULT '',
		result TEXT NOT NULL DEFAULT '',
		submitted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_gate_decisions_run ON gate_decisions(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// WatchedRun is one row of the local history shown by `pitwall list`.
type WatchedRun struct {
	RunID      string
	Brief      string
	FirstSeen  time.Time
	LastSeen   time.Time
	LastStatus models.RunStatus
	LastPhase  models.Phase
}

// GateDecision is one locally submitted decision.
type GateDecision struct {
	ID          int64
	RunID       string
	Gate        models.Phase
	Decision    models.Decision
	Feedback    string
	Result      string
	SubmittedAt time.Time
}

// RecordRun upserts the run's latest observed status. Called by the sync
// engine on every authoritative run-status poll.
func (s *Store) RecordRun(run *models.Run) error {
	_, err := s.db.Exec(
		`INSERT INTO watched_runs (run_id, brief, last_status, last_phase)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
		   brief = CASE WHEN excluded.brief != '' THEN excluded.brief ELSE watched_runs.brief END,
		   last_seen = CURRENT_TIMESTAMP,
		   last_status = excluded.last_status,
		   last_phase = excluded.last_phase`,
		run.ID, run.Brief, run.Status, run.CurrentPhase,
	)
	return err
}

// RecordDecision appends a submitted gate decision to the history.
func (s *Store) RecordDecision(runID string, gate models.Phase, decision models.Decision, feedback, result string) error {
	_, err := s.db.Exec(
		`INSERT INTO gate_decisions (run_id, gate, decision, feedback, result)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, gate, decision, feedback, result,
	)
	return err
}

func (s *Store) ListWatched(limit int) ([]*WatchedRun, error) {
	rows, err := s.db.Query(
		`SELECT run_id, brief, first_seen, last_seen, last_status, last_phase
		 FROM watched_runs ORDER BY last_seen DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*WatchedRun
	for rows.Next() {
		var run WatchedRun
		err := rows.Scan(
			&run.RunID, &run.Brief, &run.FirstSeen, &run.LastSeen,
			&run.LastStatus, &run.LastPhase,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

func (s *Store) DecisionsForRun(runID string) ([]*GateDecision, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, gate, decision, feedback, result, submitted_at
		 FROM gate_decisions WHERE run_id = ? ORDER BY submitted_at`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []*GateDecision
	for rows.Next() {
		var d GateDecision
		err := rows.Scan(
			&d.ID, &d.RunID, &d.Gate, &d.Decision, &d.Feedback, &d.Result, &d.SubmittedAt,
		)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, &d)
	}

	return decisions, rows.Err()
}
