package eval

import (
	"fmt"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/pattern"
	"github.com/danielpatrickdp/recad/go-engine/internal/sketch"
)

var chordCutConstraints = []sketch.ConstraintKind{
	sketch.Coincident,
	sketch.Parallel,
	sketch.Horizontal,
	sketch.Distance,
}

// #region eval-harness
// EvalHarness checks the synthesized feature list before it is emitted.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run validates every multi-primitive sketch and, for a chord cut, its structure.
// A nil match only gets the index and count checks.
func (h *EvalHarness) Run(features []feature.AggregatedFeature, match *pattern.Match) EvalResult {
	var metrics []EvalMetric
	var warnings []string
	var failReasons []string

	// 1. Constraint indices must reference existing primitives.
	invalid := 0
	constraints := 0
	cuts := 0
	for i, f := range features {
		if f.IsCut() {
			cuts++
		}
		if f.Sketch == nil {
			continue
		}
		constraints += len(f.Sketch.Constraints)
		if err := f.Sketch.Validate(); err != nil {
			invalid++
			failReasons = append(failReasons, fmt.Sprintf("feature %d: %v", i, err))
		}
	}
	metrics = append(metrics,
		EvalMetric{Name: "invalid_sketches", Value: float64(invalid), Pass: invalid == 0},
		EvalMetric{Name: "features", Value: float64(len(features)), Pass: true},
		EvalMetric{Name: "constraints", Value: float64(constraints), Pass: true},
	)

	// 2. Residual cuts are informational.
	residualPass := cuts <= h.config.MaxResidualCuts
	metrics = append(metrics, EvalMetric{Name: "residual_cuts", Value: float64(cuts), Pass: residualPass})

	// 3. Chord-cut structure.
	if match != nil && match.Pattern == pattern.ChordCutName {
		w := chordCutWarnings(features)
		metrics = append(metrics, EvalMetric{Name: "chord_cut_structure", Value: float64(len(w)), Pass: len(w) == 0})
		warnings = append(warnings, w...)
		if h.config.StrictStructure && len(w) > 0 {
			failReasons = append(failReasons, w[0])
		}
	}

	reason := "all checks passed"
	if len(failReasons) > 0 {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:   len(failReasons) == 0,
		Metrics:  metrics,
		Warnings: warnings,
		Reason:   reason,
	}
}

// #endregion eval-harness

// #region helpers
// chordCutWarnings inspects the first four-primitive sketch; absent one, that itself is the warning.
func chordCutWarnings(features []feature.AggregatedFeature) []string {
	var sk *sketch.Sketch
	for _, f := range features {
		if f.Sketch != nil && len(f.Sketch.Geometry) == 4 {
			sk = f.Sketch
			break
		}
	}
	if sk == nil {
		return []string{"chord cut: no four-primitive sketch in output"}
	}

	var out []string
	arcs := sk.CountPrimitives(sketch.KindArc)
	lines := sk.CountPrimitives(sketch.KindLine)
	if arcs != 2 || lines != 2 {
		out = append(out, fmt.Sprintf("chord cut: expected 2 arcs and 2 lines, got %d and %d", arcs, lines))
	}
	for _, kind := range chordCutConstraints {
		if !sk.HasConstraint(kind) {
			out = append(out, fmt.Sprintf("chord cut: missing %s constraint", kind))
		}
	}
	return out
}

// #endregion helpers
