package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	pattern      TEXT,
	confidence   REAL,
	source       TEXT,
	transcript   TEXT,
	result_json  TEXT,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	stage         TEXT NOT NULL,
	pattern       TEXT,
	payload_json  TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// #endregion schema

// #region store-struct
// Store persists runs and their provenance in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region new-run-id
// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// #endregion new-run-id

// #region save-run
// SaveRun inserts a run. An empty RunID is assigned; a zero CreatedAt is set to now.
func (s *Store) SaveRun(rec RunRecord) (RunRecord, error) {
	if rec.RunID == "" {
		rec.RunID = NewRunID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return RunRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, status, pattern, confidence, source, transcript, result_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Status, nullIfEmpty(rec.Pattern), rec.Confidence, nullIfEmpty(rec.Source),
		nullIfEmpty(rec.Transcript), nullIfEmpty(rec.ResultJSON), rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return RunRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion save-run

// #region get-run
// GetRun retrieves a run and its provenance rows.
func (s *Store) GetRun(id string) (RunWithProvenance, error) {
	row := s.db.QueryRow(
		`SELECT run_id, status, pattern, confidence, source, transcript, result_json, created_at
		 FROM runs WHERE run_id = ?`, id,
	)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunWithProvenance{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return RunWithProvenance{}, fmt.Errorf("get run %s: %w", id, err)
	}

	rows, err := s.db.Query(
		`SELECT stage, pattern, payload_json, decision, reason, created_at
		 FROM provenance_log WHERE run_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return RunWithProvenance{}, fmt.Errorf("get provenance %s: %w", id, err)
	}
	defer rows.Close()

	out := RunWithProvenance{RunRecord: rec}
	for rows.Next() {
		var p ProvenanceRow
		var pattern, payload, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&p.Stage, &pattern, &payload, &p.Decision, &reason, &createdStr); err != nil {
			return RunWithProvenance{}, fmt.Errorf("scan provenance: %w", err)
		}
		p.Pattern = pattern.String
		p.PayloadJSON = payload.String
		p.Reason = reason.String
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out.Provenance = append(out.Provenance, p)
	}
	return out, rows.Err()
}

// #endregion get-run

// #region list-runs
// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, status, pattern, confidence, source, transcript, result_json, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-runs

// #region helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunRecord, error) {
	var rec RunRecord
	var pattern, source, transcript, result sql.NullString
	var confidence sql.NullFloat64
	var createdStr string
	if err := sc.Scan(&rec.RunID, &rec.Status, &pattern, &confidence, &source, &transcript, &result, &createdStr); err != nil {
		return RunRecord{}, err
	}
	rec.Pattern = pattern.String
	rec.Confidence = confidence.Float64
	rec.Source = source.String
	rec.Transcript = transcript.String
	rec.ResultJSON = result.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
