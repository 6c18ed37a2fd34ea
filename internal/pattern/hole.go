package pattern

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
	"github.com/danielpatrickdp/recad/go-engine/internal/sketch"
)

// HoleName is the registry name of the plain hole fallback.
const HoleName = "hole"

// #region hole-detector
// HoleDetector is the lowest-priority fallback for single round holes.
type HoleDetector struct {
	extractor measure.Extractor
}

// NewHoleDetector creates the detector.
func NewHoleDetector(ex measure.Extractor) *HoleDetector {
	return &HoleDetector{extractor: ex}
}

func (d *HoleDetector) Name() string  { return HoleName }
func (d *HoleDetector) Priority() int { return 40 }

func (d *HoleDetector) Description() string {
	return "Single plain round hole, blind or through"
}

func (d *HoleDetector) Indicators() Indicators {
	return Indicators{
		Visual:   []string{"round opening"},
		Audio:    holeCues,
		Features: []string{"Cut Hole", "Cut Circle"},
	}
}

// #endregion hole-detector

// #region hole-detect
// Detect tries a tagged Hole cut, then any circle cut, then the transcript.
func (d *HoleDetector) Detect(features []feature.AggregatedFeature, transcript string) *Match {
	values := d.extractor.Extract(transcript)
	cue := hasCue(transcript, holeCues)

	for i, f := range features {
		if !f.IsCut() || f.MultiPrimitive() || f.Shape.Kind != feature.Hole {
			continue
		}
		if m := d.fromFeature(f, i, values, withCue(0.90, cue), SourceExplicit); m != nil {
			return m
		}
	}
	for i, f := range features {
		if !isCircleCut(f) {
			continue
		}
		if m := d.fromFeature(f, i, values, withCue(0.85, cue), SourceStructural); m != nil {
			return m
		}
	}
	if cue {
		if dia, ok := values[measure.Diameter]; ok && dia > 0 {
			p := params{measure.Diameter: dia}
			p.fill(values, measure.Depth)
			p.center(sketch.Point{})
			return &Match{Pattern: HoleName, Confidence: 0.75, Parameters: p, Source: SourceTranscript}
		}
	}
	return nil
}

func (d *HoleDetector) fromFeature(f feature.AggregatedFeature, i int, values map[string]float64, confidence float64, source string) *Match {
	p := params{}
	p.set(measure.Diameter, f.Shape.Diameter)
	p.fill(values, measure.Diameter)
	p.set(measure.Depth, depthOf(f))
	p.center(f.Shape.Center)
	if p[measure.Diameter] <= 0 {
		return nil
	}
	return &Match{Pattern: HoleName, Confidence: confidence, Parameters: p, Source: source, Consumed: []int{i}}
}

// #endregion hole-detect

// #region hole-geometry
// GenerateGeometry appends a single constrained circle cut.
func (d *HoleDetector) GenerateGeometry(m Match) (GeometrySpec, error) {
	dia, ok := m.Param(measure.Diameter)
	if !ok {
		return GeometrySpec{}, fmt.Errorf("hole: %s: %w", measure.Diameter, ErrMissingParameter)
	}
	center := centerOf(m.Parameters)
	sk, err := sketch.Circle(center, dia)
	if err != nil {
		return GeometrySpec{}, fmt.Errorf("hole: %w", err)
	}
	f := feature.AggregatedFeature{
		Feature: feature.Feature{
			Type:       feature.Cut,
			Operation:  feature.Remove,
			Shape:      feature.Shape{Kind: feature.Circle, Center: center, Diameter: dia},
			Sketch:     &sk,
			CutType:    feature.ThroughAll,
			Confidence: m.Confidence,
		},
		SupportCount: 1,
	}
	if depth := m.Parameters[measure.Depth]; depth > 0 {
		f.Distance = depth
		f.CutType = feature.ToDistance
	}
	return GeometrySpec{Mode: SelfContained, Pattern: HoleName, Params: m.Parameters, Features: []feature.AggregatedFeature{f}}, nil
}

// FilterFeatures removes the hole the constrained circle replaces.
func (d *HoleDetector) FilterFeatures(features []feature.AggregatedFeature, m Match) []feature.AggregatedFeature {
	if len(m.Consumed) > 0 {
		return removeIndices(features, m.Consumed)
	}
	center := centerOf(m.Parameters)
	dia := m.Parameters[measure.Diameter]
	return removeWhere(features, func(f feature.AggregatedFeature) bool {
		return isCircleCut(f) && math.Abs(f.Shape.Diameter-dia) < 0.1 && sameCenter(f.Shape.Center, center, 0.5)
	})
}

// #endregion hole-geometry
