package store

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// #region run-record
// RunRecord is one persisted pipeline run.
type RunRecord struct {
	RunID      string
	Status     string // "complete" | "needs_input" | "no_pattern"
	Pattern    string
	Confidence float64
	Source     string
	Transcript string
	ResultJSON string
	CreatedAt  time.Time
}

// #endregion run-record

// #region run-with-provenance
// RunWithProvenance pairs a run with its provenance rows in insertion order.
type RunWithProvenance struct {
	RunRecord
	Provenance []ProvenanceRow
}

// ProvenanceRow is a provenance_log row as read back.
type ProvenanceRow struct {
	Stage       string
	Pattern     string
	PayloadJSON string
	Decision    string
	Reason      string
	CreatedAt   time.Time
}

// #endregion run-with-provenance
