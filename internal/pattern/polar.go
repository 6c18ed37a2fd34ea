package pattern

import (
	"fmt"
	"math"
	"sort"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
	"github.com/danielpatrickdp/recad/go-engine/internal/sketch"
)

// PolarHoleName is the registry name of the circular hole array.
const PolarHoleName = "polar_hole_pattern"

// #region polar-detector
// PolarHoleDetector recognises equal holes spaced evenly on a pitch circle.
type PolarHoleDetector struct {
	config    DetectorConfig
	extractor measure.Extractor
}

// NewPolarHoleDetector creates the detector.
func NewPolarHoleDetector(config DetectorConfig, ex measure.Extractor) *PolarHoleDetector {
	return &PolarHoleDetector{config: config, extractor: ex}
}

func (d *PolarHoleDetector) Name() string  { return PolarHoleName }
func (d *PolarHoleDetector) Priority() int { return 160 }

func (d *PolarHoleDetector) Description() string {
	return "Three or more equal holes evenly spaced on a common pitch circle"
}

func (d *PolarHoleDetector) Indicators() Indicators {
	return Indicators{
		Visual:   []string{"ring of identical holes", "bolt circle on a flange"},
		Audio:    polarCues,
		Features: []string{"Cut PolarArray", ">=3 Circle cuts with equal diameter at equal radius"},
	}
}

// #endregion polar-detector

// #region polar-detect
// Detect tries a tagged PolarArray cut, then a geometric fit over circle cuts,
// then the transcript.
func (d *PolarHoleDetector) Detect(features []feature.AggregatedFeature, transcript string) *Match {
	values := d.extractor.Extract(transcript)
	cue := hasCue(transcript, polarCues)
	names := []string{measure.Count, measure.Diameter, measure.Radius}

	for i, f := range features {
		if !f.IsCut() || f.MultiPrimitive() || f.Shape.Kind != feature.PolarArray {
			continue
		}
		p := params{}
		p.set(measure.Count, float64(f.Shape.Count))
		p.set(measure.Diameter, f.Shape.Diameter)
		p.set(measure.Radius, f.Shape.Radius)
		p.set(measure.Depth, depthOf(f))
		p.fill(values, names...)
		p.center(f.Shape.Center)
		p[ParamStartAngle] = f.Shape.Angle
		if m := d.match(p, withCue(0.90, cue), SourceExplicit, []int{i}); m != nil {
			return m
		}
	}

	for _, group := range d.circleGroups(features) {
		if p, ok := d.fit(features, group); ok {
			return d.match(p, withCue(0.85, cue), SourceStructural, group)
		}
	}

	if cue {
		p := params{}
		p.fill(values, names...)
		if len(p) == len(names) {
			p.center(sketch.Point{})
			p[ParamStartAngle] = 0
			return d.match(p, 0.75, SourceTranscript, nil)
		}
	}
	return nil
}

// circleGroups buckets circle cuts by diameter; only buckets large enough to form an array are kept.
func (d *PolarHoleDetector) circleGroups(features []feature.AggregatedFeature) [][]int {
	var groups [][]int
	for i, f := range features {
		if !isCircleCut(f) {
			continue
		}
		placed := false
		for g, idx := range groups {
			ref := features[idx[0]].Shape.Diameter
			if math.Abs(f.Shape.Diameter-ref) <= d.config.PolarRadiusTolerance*ref {
				groups[g] = append(groups[g], i)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []int{i})
		}
	}
	var out [][]int
	for _, g := range groups {
		if len(g) >= d.config.PolarMinHoles {
			out = append(out, g)
		}
	}
	return out
}

// fit checks the holes share a pitch radius around their centroid and are evenly spaced.
func (d *PolarHoleDetector) fit(features []feature.AggregatedFeature, group []int) (params, bool) {
	n := float64(len(group))
	var cx, cy, dia, depth float64
	for _, i := range group {
		c := features[i].Shape.Center
		cx += c.X
		cy += c.Y
		dia += features[i].Shape.Diameter
		depth += depthOf(features[i])
	}
	cx, cy = cx/n, cy/n

	radii := make([]float64, len(group))
	angles := make([]float64, len(group))
	var meanR float64
	for k, i := range group {
		c := features[i].Shape.Center
		radii[k] = math.Hypot(c.X-cx, c.Y-cy)
		meanR += radii[k]
		a := math.Atan2(c.Y-cy, c.X-cx) * 180 / math.Pi
		if a < 0 {
			a += 360
		}
		angles[k] = a
	}
	meanR /= n
	if meanR <= 0 {
		return nil, false
	}
	for _, r := range radii {
		if math.Abs(r-meanR) > d.config.PolarRadiusTolerance*meanR {
			return nil, false
		}
	}

	sort.Float64s(angles)
	step := 360 / n
	for k := range angles {
		next := angles[(k+1)%len(angles)]
		if k == len(angles)-1 {
			next += 360
		}
		if math.Abs(next-angles[k]-step) > d.config.PolarAngleTolerance {
			return nil, false
		}
	}

	p := params{}
	p.set(measure.Count, n)
	p.set(measure.Diameter, round(dia/n, 2))
	p.set(measure.Radius, round(meanR, 2))
	p.set(measure.Depth, round(depth/n, 2))
	p.center(sketch.Point{X: round(cx, 2), Y: round(cy, 2)})
	p[ParamStartAngle] = round(angles[0], 1)
	return p, true
}

func (d *PolarHoleDetector) match(p params, confidence float64, source string, consumed []int) *Match {
	if c, ok := p[measure.Count]; ok && c < float64(d.config.PolarMinHoles) {
		return nil
	}
	if r, ok := p[measure.Radius]; ok && r <= 0 {
		return nil
	}
	return &Match{Pattern: PolarHoleName, Confidence: confidence, Parameters: p, Source: source, Consumed: consumed}
}

// #endregion polar-detect

// #region polar-geometry
// GenerateGeometry appends one cut holding every hole of the array.
func (d *PolarHoleDetector) GenerateGeometry(m Match) (GeometrySpec, error) {
	count, okN := m.Param(measure.Count)
	dia, okD := m.Param(measure.Diameter)
	radius, okR := m.Param(measure.Radius)
	if !okN || !okD || !okR {
		return GeometrySpec{}, fmt.Errorf("polar hole pattern: count/diameter/radius: %w", ErrMissingParameter)
	}
	center := centerOf(m.Parameters)
	n := int(math.Round(count))
	sk, err := sketch.PolarArray(center, n, dia, radius, m.Parameters[ParamStartAngle])
	if err != nil {
		return GeometrySpec{}, fmt.Errorf("polar hole pattern: %w", err)
	}
	f := feature.AggregatedFeature{
		Feature: feature.Feature{
			Type:       feature.Cut,
			Operation:  feature.Remove,
			Shape:      feature.Shape{Kind: feature.PolarArray, Center: center, Count: n, Diameter: dia, Radius: radius},
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
	return GeometrySpec{Mode: SelfContained, Pattern: PolarHoleName, Params: m.Parameters, Features: []feature.AggregatedFeature{f}}, nil
}

// FilterFeatures removes the member holes, or when none are recorded, circle
// cuts of the array diameter lying on the pitch circle.
func (d *PolarHoleDetector) FilterFeatures(features []feature.AggregatedFeature, m Match) []feature.AggregatedFeature {
	if len(m.Consumed) > 0 {
		return removeIndices(features, m.Consumed)
	}
	center := centerOf(m.Parameters)
	dia := m.Parameters[measure.Diameter]
	radius := m.Parameters[measure.Radius]
	return removeWhere(features, func(f feature.AggregatedFeature) bool {
		if f.IsCut() && !f.MultiPrimitive() && f.Shape.Kind == feature.PolarArray {
			return true
		}
		if !isCircleCut(f) || math.Abs(f.Shape.Diameter-dia) > d.config.PolarRadiusTolerance*dia {
			return false
		}
		r := math.Hypot(f.Shape.Center.X-center.X, f.Shape.Center.Y-center.Y)
		return math.Abs(r-radius) <= d.config.PolarRadiusTolerance*radius
	})
}

// #endregion polar-geometry
