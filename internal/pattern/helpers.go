package pattern

import (
	"errors"
	"math"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
	"github.com/danielpatrickdp/recad/go-engine/internal/sketch"
)

var errSelfContained = errors.New("self-contained geometry has no base to resolve")

// Parameter names that are not measurements.
const (
	ParamCenterX     = "center_x"
	ParamCenterY     = "center_y"
	ParamOrientation = "orientation"
	ParamStartAngle  = "start_angle"
)

// Confidence levels by strategy.
const (
	confidenceCue = 0.95
)

// #region base
// LocateBase returns the index of the feature a needs-base GeometrySpec rebuilds.
func LocateBase(spec GeometrySpec, features []feature.AggregatedFeature, m Match) (int, bool) {
	switch spec.Mode {
	case NeedsBaseCircle:
		if i, ok := baseCircle(features); ok {
			return i, true
		}
		for _, i := range m.Consumed {
			if i >= 0 && i < len(features) && features[i].Type == feature.Extrude {
				return i, true
			}
		}
	case NeedsBaseRectangle:
		for _, i := range m.Consumed {
			if i >= 0 && i < len(features) && features[i].IsCut() {
				return i, true
			}
		}
	}
	return -1, false
}

// Resolve runs the geometry helper for a needs-base GeometrySpec against its base feature.
func (s GeometrySpec) Resolve(base feature.AggregatedFeature) (sketch.Sketch, error) {
	switch s.Mode {
	case NeedsBaseCircle:
		d := s.Params[measure.Diameter]
		if d <= 0 {
			d = base.Shape.Diameter
		}
		return sketch.ChordCut(d/2, s.Params[measure.FlatToFlat])
	case NeedsBaseRectangle:
		width, length := s.Params[measure.Width], s.Params[measure.Length]
		if width <= 0 || length <= 0 {
			width, length = minMax(base.Shape.Width, base.Shape.Height)
		}
		return sketch.Slot(base.Shape.Center, width, length, s.Params[ParamOrientation])
	default:
		return sketch.Sketch{}, errSelfContained
	}
}

// baseCircle finds the first single-primitive Circle extrude.
func baseCircle(features []feature.AggregatedFeature) (int, bool) {
	for i, f := range features {
		if f.Type == feature.Extrude && !f.MultiPrimitive() && f.Shape.Kind == feature.Circle && f.Shape.Diameter > 0 {
			return i, true
		}
	}
	return -1, false
}

// #endregion base

// #region feature-helpers
func isCircleCut(f feature.AggregatedFeature) bool {
	return f.IsCut() && !f.MultiPrimitive() && f.Shape.Kind == feature.Circle && f.Shape.Diameter > 0
}

func sameCenter(a, b sketch.Point, tol float64) bool {
	return math.Hypot(a.X-b.X, a.Y-b.Y) <= tol
}

// depthOf returns a cut's depth, or 0 for through-all cuts.
func depthOf(f feature.AggregatedFeature) float64 {
	if d := f.Param(measure.Depth); d > 0 {
		return d
	}
	if f.CutType == feature.ThroughAll {
		return 0
	}
	return f.Distance
}

// removeIndices drops the features at the given indices.
func removeIndices(features []feature.AggregatedFeature, idx []int) []feature.AggregatedFeature {
	drop := make(map[int]bool, len(idx))
	for _, i := range idx {
		drop[i] = true
	}
	out := make([]feature.AggregatedFeature, 0, len(features))
	for i, f := range features {
		if !drop[i] {
			out = append(out, f)
		}
	}
	return out
}

// removeWhere drops features matching pred.
func removeWhere(features []feature.AggregatedFeature, pred func(feature.AggregatedFeature) bool) []feature.AggregatedFeature {
	out := make([]feature.AggregatedFeature, 0, len(features))
	for _, f := range features {
		if !pred(f) {
			out = append(out, f)
		}
	}
	return out
}

// #endregion feature-helpers

// #region param-helpers
// params collects positive values, skipping zeros so absent dimensions stay absent.
type params map[string]float64

func (p params) set(name string, v float64) {
	if v > 0 {
		p[name] = v
	}
}

// setDefault sets a positive value only when name is still absent.
func (p params) setDefault(name string, v float64) {
	if _, ok := p[name]; !ok {
		p.set(name, v)
	}
}

// fill copies transcript values for names not already set.
func (p params) fill(values map[string]float64, names ...string) {
	for _, n := range names {
		if _, ok := p[n]; ok {
			continue
		}
		if v, ok := values[n]; ok {
			p[n] = v
		}
	}
}

func (p params) center(c sketch.Point) {
	p[ParamCenterX] = c.X
	p[ParamCenterY] = c.Y
}

func centerOf(m map[string]float64) sketch.Point {
	return sketch.Point{X: m[ParamCenterX], Y: m[ParamCenterY]}
}

func withCue(base float64, cue bool) float64 {
	if cue {
		return confidenceCue
	}
	return base
}

func minMax(a, b float64) (float64, float64) {
	if a < b {
		return a, b
	}
	return b, a
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}

// #endregion param-helpers
