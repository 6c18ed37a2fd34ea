package pattern

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
	"github.com/danielpatrickdp/recad/go-engine/internal/sketch"
)

// #region stepped-plausibility
// plausibleStep checks outer > inner diameter and, when both depths are known,
// that the outer stage is shallower than the through bore.
func plausibleStep(p params) bool {
	outer, hasOuter := p[measure.OuterDiameter]
	inner, hasInner := p[measure.InnerDiameter]
	if hasOuter && hasInner && outer <= inner {
		return false
	}
	od, hasOD := p[measure.OuterDepth]
	id, hasID := p[measure.InnerDepth]
	if hasOD && hasID && od >= id {
		return false
	}
	return true
}

// #endregion stepped-plausibility

// #region stepped-geometry
// steppedFeature builds one Cut with two concentric circles. Distance is the full
// bore depth; the stage depths ride along as parameters.
func steppedFeature(kind feature.ShapeKind, m Match) (feature.AggregatedFeature, error) {
	outer, okO := m.Param(measure.OuterDiameter)
	inner, okI := m.Param(measure.InnerDiameter)
	if !okO || !okI {
		return feature.AggregatedFeature{}, fmt.Errorf("%s: diameters: %w", m.Pattern, ErrMissingParameter)
	}
	center := centerOf(m.Parameters)
	sk, err := sketch.ConcentricPair(center, outer, inner)
	if err != nil {
		return feature.AggregatedFeature{}, fmt.Errorf("%s: %w", m.Pattern, err)
	}

	out := feature.AggregatedFeature{
		Feature: feature.Feature{
			Type:       feature.Cut,
			Operation:  feature.Remove,
			Shape:      feature.Shape{Kind: kind, Center: center, OuterDiameter: outer, InnerDiameter: inner},
			Sketch:     &sk,
			CutType:    feature.ThroughAll,
			Confidence: m.Confidence,
			Params:     map[string]float64{},
		},
		SupportCount: 1,
	}
	for _, name := range []string{measure.OuterDepth, measure.InnerDepth, measure.Angle} {
		if v, ok := m.Param(name); ok {
			out.Params[name] = v
		}
	}
	if id, ok := m.Param(measure.InnerDepth); ok && id > 0 {
		out.Distance = id
		out.CutType = feature.ToDistance
	}
	if a, ok := m.Param(measure.Angle); ok {
		out.Shape.Angle = a
	}
	return out, nil
}

// filterStepped removes the consumed cuts, or when none are recorded, every
// circular cut at the match center whose diameter is one of the two stages.
func filterStepped(features []feature.AggregatedFeature, m Match, kind feature.ShapeKind, tol float64) []feature.AggregatedFeature {
	if len(m.Consumed) > 0 {
		return removeIndices(features, m.Consumed)
	}
	center := centerOf(m.Parameters)
	outer := m.Parameters[measure.OuterDiameter]
	inner := m.Parameters[measure.InnerDiameter]
	return removeWhere(features, func(f feature.AggregatedFeature) bool {
		if !f.IsCut() || f.MultiPrimitive() || !sameCenter(f.Shape.Center, center, tol) {
			return false
		}
		switch f.Shape.Kind {
		case kind:
			return true
		case feature.Circle, feature.Chamfer:
			return math.Abs(f.Shape.Diameter-outer) < 0.1 || math.Abs(f.Shape.Diameter-inner) < 0.1
		}
		return false
	})
}

// #endregion stepped-geometry

// #region counterbore
// CounterboreName is the registry name of the flat-bottomed stepped hole.
const CounterboreName = "counterbore"

// CounterboreDetector recognises a wide shallow bore on top of a narrower deep one.
type CounterboreDetector struct {
	config    DetectorConfig
	extractor measure.Extractor
}

// NewCounterboreDetector creates the detector.
func NewCounterboreDetector(config DetectorConfig, ex measure.Extractor) *CounterboreDetector {
	return &CounterboreDetector{config: config, extractor: ex}
}

func (d *CounterboreDetector) Name() string  { return CounterboreName }
func (d *CounterboreDetector) Priority() int { return 155 }

func (d *CounterboreDetector) Description() string {
	return "Stepped hole: larger shallow bore concentric with a smaller deeper hole"
}

func (d *CounterboreDetector) Indicators() Indicators {
	return Indicators{
		Visual:   []string{"two concentric circles", "flat shoulder inside a hole"},
		Audio:    counterboreCues,
		Features: []string{"Cut Counterbore", "two Circle cuts sharing a center"},
	}
}

// Detect tries a tagged Counterbore cut, then two concentric circle cuts, then the transcript.
func (d *CounterboreDetector) Detect(features []feature.AggregatedFeature, transcript string) *Match {
	values := d.extractor.Extract(transcript)
	cue := hasCue(transcript, counterboreCues)
	names := []string{measure.OuterDiameter, measure.InnerDiameter, measure.OuterDepth, measure.InnerDepth}

	for i, f := range features {
		if !f.IsCut() || f.MultiPrimitive() || f.Shape.Kind != feature.Counterbore {
			continue
		}
		p := params{}
		p.set(measure.OuterDiameter, f.Shape.OuterDiameter)
		p.set(measure.InnerDiameter, f.Shape.InnerDiameter)
		p.set(measure.OuterDepth, f.Param(measure.OuterDepth))
		p.set(measure.InnerDepth, f.Param(measure.InnerDepth))
		p.setDefault(measure.InnerDepth, depthOf(f))
		p.fill(values, names...)
		p.center(f.Shape.Center)
		if plausibleStep(p) {
			return &Match{Pattern: CounterboreName, Confidence: withCue(0.90, cue), Parameters: p, Source: SourceExplicit, Consumed: []int{i}}
		}
	}

	for i := range features {
		for j := i + 1; j < len(features); j++ {
			a, b := features[i], features[j]
			if !isCircleCut(a) || !isCircleCut(b) || !sameCenter(a.Shape.Center, b.Shape.Center, d.config.CenterTolerance) {
				continue
			}
			if math.Abs(a.Shape.Diameter-b.Shape.Diameter) < 0.1 {
				continue
			}
			outer, inner := a, b
			if inner.Shape.Diameter > outer.Shape.Diameter {
				outer, inner = inner, outer
			}
			p := params{}
			p.set(measure.OuterDiameter, outer.Shape.Diameter)
			p.set(measure.InnerDiameter, inner.Shape.Diameter)
			p.set(measure.OuterDepth, depthOf(outer))
			p.set(measure.InnerDepth, depthOf(inner))
			p.fill(values, names...)
			p.center(outer.Shape.Center)
			if plausibleStep(p) {
				return &Match{Pattern: CounterboreName, Confidence: withCue(0.85, cue), Parameters: p, Source: SourceStructural, Consumed: []int{i, j}}
			}
		}
	}

	if cue {
		p := params{}
		p.fill(values, names...)
		if len(p) == len(names) && plausibleStep(p) {
			p.center(sketch.Point{})
			return &Match{Pattern: CounterboreName, Confidence: 0.80, Parameters: p, Source: SourceTranscript}
		}
	}
	return nil
}

// GenerateGeometry returns one concentric-pair cut.
func (d *CounterboreDetector) GenerateGeometry(m Match) (GeometrySpec, error) {
	f, err := steppedFeature(feature.Counterbore, m)
	if err != nil {
		return GeometrySpec{}, err
	}
	return GeometrySpec{Mode: SelfContained, Pattern: CounterboreName, Params: m.Parameters, Features: []feature.AggregatedFeature{f}}, nil
}

// FilterFeatures removes only the cuts the counterbore replaces.
func (d *CounterboreDetector) FilterFeatures(features []feature.AggregatedFeature, m Match) []feature.AggregatedFeature {
	return filterStepped(features, m, feature.Counterbore, d.config.CenterTolerance)
}

// #endregion counterbore

// #region countersink
// CountersinkName is the registry name of the conical stepped hole.
const CountersinkName = "countersink"

// standardCountersinkAngles are the included angles accepted, within countersinkAngleTolerance.
var standardCountersinkAngles = []float64{82, 90, 100, 120}

const countersinkAngleTolerance = 2.0

// CountersinkDetector recognises a conical seat over a through hole.
type CountersinkDetector struct {
	config    DetectorConfig
	extractor measure.Extractor
}

// NewCountersinkDetector creates the detector.
func NewCountersinkDetector(config DetectorConfig, ex measure.Extractor) *CountersinkDetector {
	return &CountersinkDetector{config: config, extractor: ex}
}

func (d *CountersinkDetector) Name() string  { return CountersinkName }
func (d *CountersinkDetector) Priority() int { return 154 }

func (d *CountersinkDetector) Description() string {
	return "Conical countersink seat concentric with a smaller hole, standard included angle"
}

func (d *CountersinkDetector) Indicators() Indicators {
	return Indicators{
		Visual:   []string{"conical chamfer around a hole", "two concentric circles with a sloped wall"},
		Audio:    countersinkCues,
		Features: []string{"Cut Countersink", "Chamfer cut and Circle cut sharing a center"},
	}
}

// StandardAngle reports whether angle is within tolerance of a standard countersink angle.
func StandardAngle(angle float64) bool {
	for _, a := range standardCountersinkAngles {
		if math.Abs(angle-a) <= countersinkAngleTolerance {
			return true
		}
	}
	return false
}

// Detect tries a tagged Countersink cut, then a chamfer over a circle, then the transcript.
// A non-standard angle declines; an unknown angle lowers confidence by 0.10.
func (d *CountersinkDetector) Detect(features []feature.AggregatedFeature, transcript string) *Match {
	values := d.extractor.Extract(transcript)
	cue := hasCue(transcript, countersinkCues)
	names := []string{measure.OuterDiameter, measure.InnerDiameter, measure.Angle, measure.OuterDepth, measure.InnerDepth}

	for i, f := range features {
		if !f.IsCut() || f.MultiPrimitive() || f.Shape.Kind != feature.Countersink {
			continue
		}
		p := params{}
		p.set(measure.OuterDiameter, f.Shape.OuterDiameter)
		p.set(measure.InnerDiameter, f.Shape.InnerDiameter)
		p.set(measure.Angle, f.Shape.Angle)
		p.set(measure.OuterDepth, f.Param(measure.OuterDepth))
		p.set(measure.InnerDepth, f.Param(measure.InnerDepth))
		p.setDefault(measure.InnerDepth, depthOf(f))
		p.fill(values, names...)
		p.center(f.Shape.Center)
		if m := d.match(p, withCue(0.90, cue), SourceExplicit, []int{i}); m != nil {
			return m
		}
	}

	for i, chamfer := range features {
		if !chamfer.IsCut() || chamfer.MultiPrimitive() || chamfer.Shape.Kind != feature.Chamfer {
			continue
		}
		for j, hole := range features {
			if !isCircleCut(hole) || !sameCenter(chamfer.Shape.Center, hole.Shape.Center, d.config.CenterTolerance) {
				continue
			}
			p := params{}
			outer := chamfer.Shape.OuterDiameter
			if outer <= 0 {
				outer = chamfer.Shape.Diameter
			}
			p.set(measure.OuterDiameter, outer)
			p.set(measure.InnerDiameter, hole.Shape.Diameter)
			p.set(measure.Angle, chamfer.Shape.Angle)
			p.set(measure.OuterDepth, depthOf(chamfer))
			p.set(measure.InnerDepth, depthOf(hole))
			p.fill(values, names...)
			p.center(hole.Shape.Center)
			consumed := []int{i, j}
			if j < i {
				consumed = []int{j, i}
			}
			if m := d.match(p, withCue(0.85, cue), SourceStructural, consumed); m != nil {
				return m
			}
		}
	}

	if cue {
		p := params{}
		p.fill(values, names...)
		if _, ok := p[measure.OuterDiameter]; ok {
			if _, ok := p[measure.InnerDiameter]; ok {
				p.center(sketch.Point{})
				return d.match(p, 0.80, SourceTranscript, nil)
			}
		}
	}
	return nil
}

func (d *CountersinkDetector) match(p params, confidence float64, source string, consumed []int) *Match {
	if !plausibleStep(p) {
		return nil
	}
	if angle, ok := p[measure.Angle]; ok {
		if !StandardAngle(angle) {
			return nil
		}
	} else {
		confidence -= 0.10
	}
	return &Match{Pattern: CountersinkName, Confidence: confidence, Parameters: p, Source: source, Consumed: consumed}
}

// GenerateGeometry returns one concentric-pair cut carrying the seat angle.
func (d *CountersinkDetector) GenerateGeometry(m Match) (GeometrySpec, error) {
	f, err := steppedFeature(feature.Countersink, m)
	if err != nil {
		return GeometrySpec{}, err
	}
	return GeometrySpec{Mode: SelfContained, Pattern: CountersinkName, Params: m.Parameters, Features: []feature.AggregatedFeature{f}}, nil
}

// FilterFeatures removes only the chamfer and hole the countersink replaces.
func (d *CountersinkDetector) FilterFeatures(features []feature.AggregatedFeature, m Match) []feature.AggregatedFeature {
	return filterStepped(features, m, feature.Countersink, d.config.CenterTolerance)
}

// #endregion countersink
