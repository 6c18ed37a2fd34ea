package gate

import (
	"errors"
	"sort"

	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
)

// ErrStillMissing is returned when re-validation after supplying values still finds gaps.
// It terminates the run.
var ErrStillMissing = errors.New("measurements still missing after supply")

// #region action
// Action is the gate verdict.
type Action string

const (
	ActionProceed    Action = "proceed"
	ActionNeedsInput Action = "needs_input"
)

// #endregion action

// #region gate-config
// GateConfig controls how measurement sources are merged.
type GateConfig struct {
	PreferAudio bool // transcript values override detector values when both exist
}

// DefaultGateConfig trusts detector parameters first and fills gaps from the transcript.
func DefaultGateConfig() GateConfig {
	return GateConfig{PreferAudio: false}
}

// #endregion gate-config

// #region gate-decision
// Decision is the output of the gate evaluation.
type Decision struct {
	Action       Action                         `json:"action"`
	Pattern      string                         `json:"pattern"`
	Reason       string                         `json:"reason"`
	Required     []string                       `json:"required"`
	Missing      []string                       `json:"missing,omitempty"`
	Measurements map[string]measure.Measurement `json:"measurements"`
	Transcript   string                         `json:"transcript,omitempty"`
}

// Err returns the recoverable missing-measurement error, or nil when the gate passed.
func (d Decision) Err() error {
	if d.Action != ActionNeedsInput {
		return nil
	}
	return &measure.MissingMeasurementError{Missing: append([]string(nil), d.Missing...), Text: d.Transcript}
}

// Values flattens the measurements to name → value.
func (d Decision) Values() map[string]float64 {
	out := make(map[string]float64, len(d.Measurements))
	for k, m := range d.Measurements {
		out[k] = m.Value
	}
	return out
}

// Names lists measurement names, sorted.
func (d Decision) Names() []string {
	out := make([]string, 0, len(d.Measurements))
	for k := range d.Measurements {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// #endregion gate-decision
