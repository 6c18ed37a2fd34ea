package logging

import "time"

// Pipeline stages recorded in the provenance log.
const (
	StageAggregate  = "aggregate"
	StageDetect     = "detect"
	StageGate       = "gate"
	StageSynthesize = "synthesize"
	StageEval       = "eval"
)

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	RunID       string
	Stage       string
	Pattern     string
	PayloadJSON string
	Decision    string // stage verdict, e.g. "proceed" | "needs_input" | "matched" | "no_match"
	Reason      string
	CreatedAt   time.Time
}

// #endregion provenance-entry

// #region gate-record
// GateRecord captures the gate inputs and verdict for one run.
// Serialized as JSON into provenance_log.payload_json for replay.
type GateRecord struct {
	Pattern    string             `json:"pattern"`
	Confidence float64            `json:"confidence"`
	Source     string             `json:"source"`
	Params     map[string]float64 `json:"params"`
	Required   []string           `json:"required"`
	Missing    []string           `json:"missing,omitempty"`
	Supplied   map[string]float64 `json:"supplied,omitempty"`
	Action     string             `json:"action"`
	Reason     string             `json:"reason"`
}

// #endregion gate-record
