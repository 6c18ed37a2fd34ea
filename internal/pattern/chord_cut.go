package pattern

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
)

// ChordCutName is the registry name of the bilateral chord cut.
const ChordCutName = "chord_cut"

// #region chord-cut-detector
// ChordCutDetector recognises a cylinder trimmed by two parallel flats.
type ChordCutDetector struct {
	extractor measure.Extractor
}

// NewChordCutDetector creates the detector.
func NewChordCutDetector(ex measure.Extractor) *ChordCutDetector {
	return &ChordCutDetector{extractor: ex}
}

func (d *ChordCutDetector) Name() string  { return ChordCutName }
func (d *ChordCutDetector) Priority() int { return 180 }

func (d *ChordCutDetector) Description() string {
	return "Cylinder with two parallel flat faces cut symmetrically (double-D profile)"
}

func (d *ChordCutDetector) Indicators() Indicators {
	return Indicators{
		Visual:   []string{"circular base with two straight parallel edges", "symmetric material removal on opposite sides"},
		Audio:    chordCutCues,
		Features: []string{"Extrude Circle base", "Cut at left_side and right_side", "Cut with bilateral position"},
	}
}

// #endregion chord-cut-detector

// #region chord-cut-detect
// Detect tries an explicit ChordCut feature, then paired side cuts on a circular
// base, then transcript cues alone.
func (d *ChordCutDetector) Detect(features []feature.AggregatedFeature, transcript string) *Match {
	values := d.extractor.Extract(transcript)
	cue := hasCue(transcript, chordCutCues)
	baseIdx, hasBase := baseCircle(features)

	for i, f := range features {
		if f.MultiPrimitive() || f.Shape.Kind != feature.ChordCut {
			continue
		}
		p := params{}
		p.set(measure.FlatToFlat, f.Shape.FlatToFlat)
		p.set(measure.Diameter, f.Shape.Diameter)
		p.fill(values, measure.Diameter, measure.FlatToFlat)
		if hasBase {
			p.setDefault(measure.Diameter, features[baseIdx].Shape.Diameter)
		}
		if m := d.match(p, 0.95, SourceExplicit, []int{i}); m != nil {
			return m
		}
	}

	if !hasBase {
		return nil
	}
	base := features[baseIdx]

	if consumed := sideCuts(features); consumed != nil {
		p := params{}
		p.fill(values, measure.Diameter, measure.FlatToFlat)
		p.setDefault(measure.Diameter, base.Shape.Diameter)
		if m := d.match(p, withCue(0.92, cue), SourceStructural, consumed); m != nil {
			return m
		}
	}

	if _, ok := values[measure.FlatToFlat]; ok && cue {
		p := params{}
		p.fill(values, measure.Diameter, measure.FlatToFlat)
		p.setDefault(measure.Diameter, base.Shape.Diameter)
		return d.match(p, 0.80, SourceTranscript, nil)
	}
	return nil
}

// sideCuts returns the cuts forming a bilateral trim: any bilateral or chord cut,
// or at least one left and one right cut.
func sideCuts(features []feature.AggregatedFeature) []int {
	var bilateral, left, right []int
	for i, f := range features {
		if !f.IsCut() || (f.Operation != "" && f.Operation != feature.Remove) {
			continue
		}
		pos := strings.ToLower(f.Position)
		switch {
		case strings.Contains(pos, "bilateral") || strings.Contains(pos, "chord"):
			bilateral = append(bilateral, i)
		case strings.Contains(pos, "left"):
			left = append(left, i)
		case strings.Contains(pos, "right"):
			right = append(right, i)
		}
	}
	if len(bilateral) > 0 {
		return bilateral
	}
	if len(left) > 0 && len(right) > 0 {
		return append(left, right...)
	}
	return nil
}

// match applies the plausibility check 0 < flat_to_flat < diameter when both are known.
func (d *ChordCutDetector) match(p params, confidence float64, source string, consumed []int) *Match {
	f, hasF := p[measure.FlatToFlat]
	dia, hasD := p[measure.Diameter]
	if hasF && (f <= 0 || (hasD && f >= dia)) {
		return nil
	}
	return &Match{Pattern: ChordCutName, Confidence: confidence, Parameters: p, Source: source, Consumed: consumed}
}

// #endregion chord-cut-detect

// #region chord-cut-geometry
// GenerateGeometry asks the caller for the base circle; the flats come from the match.
func (d *ChordCutDetector) GenerateGeometry(m Match) (GeometrySpec, error) {
	f, ok := m.Param(measure.FlatToFlat)
	if !ok {
		return GeometrySpec{}, fmt.Errorf("chord cut: %s: %w", measure.FlatToFlat, ErrMissingParameter)
	}
	p := map[string]float64{measure.FlatToFlat: f}
	if dia, ok := m.Param(measure.Diameter); ok {
		p[measure.Diameter] = dia
	}
	return GeometrySpec{Mode: NeedsBaseCircle, Pattern: ChordCutName, Params: p}, nil
}

// FilterFeatures removes every cut: the flats now live in the base profile.
func (d *ChordCutDetector) FilterFeatures(features []feature.AggregatedFeature, _ Match) []feature.AggregatedFeature {
	return removeWhere(features, func(f feature.AggregatedFeature) bool { return f.IsCut() })
}

// #endregion chord-cut-geometry
