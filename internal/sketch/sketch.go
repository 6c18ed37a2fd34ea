package sketch

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidIndex is returned when a constraint names a primitive outside the sketch.
var ErrInvalidIndex = errors.New("constraint references missing primitive")

// ErrDegenerate is returned for zero-length lines and non-positive arc radii.
var ErrDegenerate = errors.New("degenerate primitive")

// #region refs
// Refs returns the primitive indices a constraint depends on.
func (c Constraint) Refs() []int {
	switch c.Kind {
	case Coincident, Parallel, Distance, Concentric:
		return []int{c.Geo1, c.Geo2}
	case Horizontal, Vertical, Radius, Diameter:
		return []int{c.Geo1}
	default:
		return nil
	}
}

// #endregion refs

// #region validate
// Validate checks every constraint index and primitive shape.
func (s Sketch) Validate() error {
	for i, p := range s.Geometry {
		switch p.Kind {
		case KindArc:
			if p.Radius <= 0 {
				return fmt.Errorf("primitive %d: arc radius %.4f: %w", i, p.Radius, ErrDegenerate)
			}
		case KindLine:
			if p.Start == p.End {
				return fmt.Errorf("primitive %d: zero-length line: %w", i, ErrDegenerate)
			}
		default:
			return fmt.Errorf("primitive %d: unknown kind %q", i, p.Kind)
		}
	}
	for i, c := range s.Constraints {
		refs := c.Refs()
		if refs == nil {
			return fmt.Errorf("constraint %d: unknown kind %q", i, c.Kind)
		}
		for _, r := range refs {
			if r < 0 || r >= len(s.Geometry) {
				return fmt.Errorf("constraint %d (%s) index %d of %d: %w", i, c.Kind, r, len(s.Geometry), ErrInvalidIndex)
			}
		}
	}
	return nil
}

// #endregion validate

// #region queries
// CountPrimitives returns how many primitives of the given kind the sketch holds.
func (s Sketch) CountPrimitives(kind PrimitiveKind) int {
	n := 0
	for _, p := range s.Geometry {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

// HasConstraint reports whether any constraint of the given kind exists.
func (s Sketch) HasConstraint(kind ConstraintKind) bool {
	for _, c := range s.Constraints {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (s Sketch) Clone() Sketch {
	out := Sketch{
		Geometry:    make([]Primitive, len(s.Geometry)),
		Constraints: make([]Constraint, len(s.Constraints)),
	}
	copy(out.Geometry, s.Geometry)
	copy(out.Constraints, s.Constraints)
	return out
}

// #endregion queries

// #region json
type primitiveJSON struct {
	Type       PrimitiveKind `json:"type"`
	Center     *Point        `json:"center,omitempty"`
	Radius     *float64      `json:"radius,omitempty"`
	StartAngle *float64      `json:"start_angle,omitempty"`
	EndAngle   *float64      `json:"end_angle,omitempty"`
	Start      *Point        `json:"start,omitempty"`
	End        *Point        `json:"end,omitempty"`
}

// MarshalJSON emits only the fields that belong to the primitive kind.
func (p Primitive) MarshalJSON() ([]byte, error) {
	out := primitiveJSON{Type: p.Kind}
	switch p.Kind {
	case KindArc:
		out.Center, out.Radius, out.StartAngle, out.EndAngle = &p.Center, &p.Radius, &p.StartAngle, &p.EndAngle
	case KindLine:
		out.Start, out.End = &p.Start, &p.End
	default:
		return nil, fmt.Errorf("marshal primitive: unknown kind %q", p.Kind)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the tagged primitive form.
func (p *Primitive) UnmarshalJSON(data []byte) error {
	var in primitiveJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("unmarshal primitive: %w", err)
	}
	*p = Primitive{Kind: in.Type}
	switch in.Type {
	case KindArc:
		if in.Center != nil {
			p.Center = *in.Center
		}
		p.Radius = deref(in.Radius)
		p.StartAngle = deref(in.StartAngle)
		p.EndAngle = deref(in.EndAngle)
	case KindLine:
		if in.Start != nil {
			p.Start = *in.Start
		}
		if in.End != nil {
			p.End = *in.End
		}
	default:
		return fmt.Errorf("unmarshal primitive: unknown type %q", in.Type)
	}
	return nil
}

type constraintJSON struct {
	Type   ConstraintKind `json:"type"`
	Geo1   int            `json:"geo1"`
	Point1 *int           `json:"point1,omitempty"`
	Geo2   *int           `json:"geo2,omitempty"`
	Point2 *int           `json:"point2,omitempty"`
	Value  *float64       `json:"value,omitempty"`
}

// MarshalJSON emits only the fields that belong to the constraint kind.
func (c Constraint) MarshalJSON() ([]byte, error) {
	out := constraintJSON{Type: c.Kind, Geo1: c.Geo1}
	switch c.Kind {
	case Coincident:
		out.Point1, out.Geo2, out.Point2 = &c.Point1, &c.Geo2, &c.Point2
	case Distance:
		out.Point1, out.Geo2, out.Point2, out.Value = &c.Point1, &c.Geo2, &c.Point2, &c.Value
	case Parallel, Concentric:
		out.Geo2 = &c.Geo2
	case Radius, Diameter:
		out.Value = &c.Value
	case Horizontal, Vertical:
	default:
		return nil, fmt.Errorf("marshal constraint: unknown kind %q", c.Kind)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the tagged constraint form.
func (c *Constraint) UnmarshalJSON(data []byte) error {
	var in constraintJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("unmarshal constraint: %w", err)
	}
	*c = Constraint{
		Kind:   in.Type,
		Geo1:   in.Geo1,
		Point1: derefInt(in.Point1),
		Geo2:   derefInt(in.Geo2),
		Point2: derefInt(in.Point2),
		Value:  deref(in.Value),
	}
	if c.Refs() == nil {
		return fmt.Errorf("unmarshal constraint: unknown type %q", in.Type)
	}
	return nil
}

type sketchJSON struct {
	Geometry    []Primitive  `json:"geometry"`
	Constraints []Constraint `json:"constraints"`
}

// MarshalJSON always emits both arrays, even when empty.
func (s Sketch) MarshalJSON() ([]byte, error) {
	out := sketchJSON{Geometry: s.Geometry, Constraints: s.Constraints}
	if out.Geometry == nil {
		out.Geometry = []Primitive{}
	}
	if out.Constraints == nil {
		out.Constraints = []Constraint{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes {geometry, constraints}.
func (s *Sketch) UnmarshalJSON(data []byte) error {
	var in sketchJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("unmarshal sketch: %w", err)
	}
	s.Geometry, s.Constraints = in.Geometry, in.Constraints
	return nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

// #endregion json
