package gate

import (
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
)

// #region gate
// Gate decides whether a recognised pattern has every measurement it needs.
// It never fills a gap with a guess.
type Gate struct {
	config       GateConfig
	requirements measure.Requirements
	extractor    measure.Extractor
}

// NewGate creates a gate over a requirement table and a transcript extractor.
func NewGate(config GateConfig, requirements measure.Requirements, extractor measure.Extractor) *Gate {
	return &Gate{config: config, requirements: requirements, extractor: extractor}
}

// Evaluate merges detector parameters (visual) with transcript extraction (audio)
// and computes the missing set. An unknown pattern is a fatal error.
func (g *Gate) Evaluate(pattern string, params map[string]float64, transcript string) (Decision, error) {
	required, err := g.requirements.Required(pattern)
	if err != nil {
		return Decision{}, fmt.Errorf("gate: %w", err)
	}

	measurements := make(map[string]measure.Measurement)
	visual := func() {
		for _, name := range required {
			if v, ok := params[name]; ok {
				if _, set := measurements[name]; !set {
					measurements[name] = measure.Measurement{Name: name, Value: v, Source: measure.SourceVisual}
				}
			}
		}
	}
	audio := func() {
		for name, v := range g.extractor.Extract(transcript) {
			if _, set := measurements[name]; !set {
				measurements[name] = measure.Measurement{Name: name, Value: v, Source: measure.SourceAudio}
			}
		}
	}
	if g.config.PreferAudio {
		audio()
		visual()
	} else {
		visual()
		audio()
	}

	return decide(pattern, required, measurements, transcript), nil
}

// Resupply adds caller-provided values and re-validates. Non-positive or
// non-finite values are ignored. Remaining gaps are fatal.
func (g *Gate) Resupply(d Decision, supplied map[string]float64) (Decision, error) {
	measurements := make(map[string]measure.Measurement, len(d.Measurements)+len(supplied))
	for k, m := range d.Measurements {
		measurements[k] = m
	}
	for name, v := range supplied {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if _, set := measurements[name]; set {
			continue
		}
		measurements[name] = measure.Measurement{Name: name, Value: v, Source: measure.SourceSupplied}
	}

	out := decide(d.Pattern, d.Required, measurements, d.Transcript)
	if out.Action == ActionNeedsInput {
		return out, fmt.Errorf("resupply %s: %w: %w", d.Pattern, ErrStillMissing, out.Err())
	}
	return out, nil
}

func decide(pattern string, required []string, measurements map[string]measure.Measurement, transcript string) Decision {
	var missing []string
	for _, name := range required {
		if _, ok := measurements[name]; !ok {
			missing = append(missing, name)
		}
	}

	d := Decision{
		Action:       ActionProceed,
		Pattern:      pattern,
		Required:     required,
		Missing:      missing,
		Measurements: measurements,
		Transcript:   transcript,
		Reason:       fmt.Sprintf("all %d required measurements present for %s", len(required), pattern),
	}
	if len(missing) > 0 {
		d.Action = ActionNeedsInput
		d.Reason = fmt.Sprintf("%s needs input: missing %s", pattern, strings.Join(missing, ", "))
	}
	return d
}

// #endregion gate
