package pipeline

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/sketch"
)

// #region emit-types
// EmittedFeature is the CAD-facing form of one feature.
type EmittedFeature struct {
	ID         string         `json:"id"`
	Type       feature.Type   `json:"type"`
	Sketch     EmittedSketch  `json:"sketch"`
	Parameters EmitParameters `json:"parameters"`
}

// EmittedSketch is a sketch on the default work plane.
type EmittedSketch struct {
	Plane       Plane               `json:"plane"`
	Geometry    []sketch.Primitive  `json:"geometry"`
	Constraints []sketch.Constraint `json:"constraints"`
}

// Plane names the sketch plane.
type Plane struct {
	Type string `json:"type"`
}

// Quantity is a value with its unit.
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// EmitParameters carries the extrusion settings. Operation is set for extrudes,
// CutType for cuts.
type EmitParameters struct {
	Distance  Quantity          `json:"distance"`
	Direction string            `json:"direction"`
	Operation feature.Operation `json:"operation,omitempty"`
	CutType   string            `json:"cut_type,omitempty"`
}

// #endregion emit-types

// #region emit
// Emit converts features to their CAD-facing form. Features with a sketch keep
// it with its constraints; the rest become literal outlines without constraints.
// Features whose shape cannot be drawn are skipped and reported.
func Emit(features []feature.AggregatedFeature) ([]EmittedFeature, []string) {
	out := make([]EmittedFeature, 0, len(features))
	var warnings []string
	for i, f := range features {
		var sk sketch.Sketch
		if f.Sketch != nil {
			sk = f.Sketch.Clone()
		} else {
			var ok bool
			sk, ok = outline(f.Shape)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("feature %d: cannot draw %s shape, skipped", i, f.Shape.Kind))
				continue
			}
		}
		e := EmittedFeature{
			ID:   fmt.Sprintf("%s_%d", strings.ToLower(string(f.Type)), i),
			Type: f.Type,
			Sketch: EmittedSketch{
				Plane:       Plane{Type: "work_plane"},
				Geometry:    nonNilPrimitives(sk.Geometry),
				Constraints: nonNilConstraints(sk.Constraints),
			},
			Parameters: EmitParameters{
				Distance:  Quantity{Value: f.Distance, Unit: "mm"},
				Direction: "normal",
			},
		}
		if f.IsCut() {
			e.Parameters.CutType = f.CutType
			if e.Parameters.CutType == "" {
				e.Parameters.CutType = feature.ThroughAll
			}
		} else {
			e.Parameters.Operation = f.Operation
			if e.Parameters.Operation == "" {
				e.Parameters.Operation = feature.NewBody
			}
		}
		out = append(out, e)
	}
	return out, warnings
}

// outline draws a single-primitive shape literally, without constraints.
func outline(s feature.Shape) (sketch.Sketch, bool) {
	var sk sketch.Sketch
	var err error
	switch s.Kind {
	case feature.Circle, feature.Hole, feature.Chamfer, feature.ChordCut:
		d := s.Diameter
		if d <= 0 {
			d = s.OuterDiameter
		}
		if d <= 0 {
			return sketch.Sketch{}, false
		}
		sk = sketch.CircleOutline(s.Center, d)
	case feature.Rectangle:
		if s.Width <= 0 || s.Height <= 0 {
			return sketch.Sketch{}, false
		}
		sk = sketch.RectangleOutline(s.Center, s.Width, s.Height)
	case feature.Slot:
		sk, err = sketch.Slot(s.Center, s.Width, s.Length, s.Orientation)
	case feature.Counterbore, feature.Countersink:
		sk, err = sketch.ConcentricPair(s.Center, s.OuterDiameter, s.InnerDiameter)
	case feature.PolarArray:
		sk, err = sketch.PolarArray(s.Center, s.Count, s.Diameter, s.Radius, s.Angle)
	default:
		return sketch.Sketch{}, false
	}
	if err != nil {
		return sketch.Sketch{}, false
	}
	sk.Constraints = nil
	return sk, true
}

func nonNilPrimitives(p []sketch.Primitive) []sketch.Primitive {
	if p == nil {
		return []sketch.Primitive{}
	}
	return p
}

func nonNilConstraints(c []sketch.Constraint) []sketch.Constraint {
	if c == nil {
		return []sketch.Constraint{}
	}
	return c
}

// #endregion emit
