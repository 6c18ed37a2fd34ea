package feature

import "github.com/danielpatrickdp/recad/go-engine/internal/sketch"

// #region type
// Type is the CAD operation family of a feature.
type Type string

const (
	Extrude Type = "Extrude"
	Cut     Type = "Cut"
)

// Valid reports whether t is a recognised feature type.
func (t Type) Valid() bool {
	return t == Extrude || t == Cut
}

// Operation is the boolean mode of a feature.
type Operation string

const (
	NewBody Operation = "new_body"
	Add     Operation = "add"
	Remove  Operation = "remove"
)

// Cut extents.
const (
	ThroughAll = "through_all"
	ToDistance = "distance"
)

// #endregion type

// #region shape
// ShapeKind tags the single-primitive shape descriptor an agent reported.
type ShapeKind string

const (
	Circle      ShapeKind = "Circle"
	Rectangle   ShapeKind = "Rectangle"
	Slot        ShapeKind = "Slot"
	Chamfer     ShapeKind = "Chamfer"
	Counterbore ShapeKind = "Counterbore"
	Countersink ShapeKind = "Countersink"
	ChordCut    ShapeKind = "ChordCut"
	PolarArray  ShapeKind = "PolarArray"
	Hole        ShapeKind = "Hole"
)

// Shape is a tagged shape descriptor; only the fields meaningful for Kind are set.
type Shape struct {
	Kind          ShapeKind
	Center        sketch.Point
	Diameter      float64
	Width         float64
	Height        float64
	Length        float64
	OuterDiameter float64
	InnerDiameter float64
	Angle         float64
	Orientation   float64
	FlatToFlat    float64
	Radius        float64
	Count         int
}

// Dimensions lists the size fields in a fixed order for comparison.
func (s Shape) Dimensions() []float64 {
	return []float64{
		s.Diameter, s.Width, s.Height, s.Length,
		s.OuterDiameter, s.InnerDiameter, s.Angle,
		s.FlatToFlat, s.Radius, float64(s.Count),
	}
}

// WithDimensions returns a copy of s with dims written back in Dimensions order.
func (s Shape) WithDimensions(dims []float64) Shape {
	s.Diameter, s.Width, s.Height, s.Length = dims[0], dims[1], dims[2], dims[3]
	s.OuterDiameter, s.InnerDiameter, s.Angle = dims[4], dims[5], dims[6]
	s.FlatToFlat, s.Radius, s.Count = dims[7], dims[8], int(dims[9]+0.5)
	return s
}

// #endregion shape

// #region feature
// Feature holds the fields shared by raw and aggregated features.
// Sketch is set for multi-primitive geometry and replaces Shape when present.
type Feature struct {
	Type       Type
	Operation  Operation
	Shape      Shape
	Sketch     *sketch.Sketch
	Distance   float64
	CutType    string
	Position   string
	Confidence float64
	Params     map[string]float64
}

// MultiPrimitive reports whether the feature carries explicit sketch geometry.
func (f Feature) MultiPrimitive() bool {
	return f.Sketch != nil
}

// IsCut reports whether the feature removes material.
func (f Feature) IsCut() bool {
	return f.Type == Cut
}

// Param returns a named parameter, or 0 when absent.
func (f Feature) Param(name string) float64 {
	return f.Params[name]
}

// RawFeature is a single agent observation.
type RawFeature struct {
	AgentID string
	Feature
}

// AggregatedFeature is one canonical feature produced from a cluster of observations.
type AggregatedFeature struct {
	Feature
	SupportCount int
	Agents       []string
}

// #endregion feature

// #region report
// AgentReport is the feature list produced by one visual-analysis agent.
type AgentReport struct {
	AgentID  string       `json:"agent_id"`
	Features []RawFeature `json:"features"`
}

// Flatten returns every feature of every report, in report order.
func Flatten(reports []AgentReport) []RawFeature {
	var out []RawFeature
	for _, r := range reports {
		for _, f := range r.Features {
			if f.AgentID == "" {
				f.AgentID = r.AgentID
			}
			out = append(out, f)
		}
	}
	return out
}

// #endregion report
