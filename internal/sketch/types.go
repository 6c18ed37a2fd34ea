package sketch

// #region point
// Point is a 2-D sketch coordinate in millimetres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// #endregion point

// #region primitive-kind
// PrimitiveKind enumerates the geometry primitives a sketch can hold.
type PrimitiveKind string

const (
	KindArc  PrimitiveKind = "Arc"
	KindLine PrimitiveKind = "Line"
)

// #endregion primitive-kind

// #region primitive
// Primitive is one sketch element. Arc uses Center, Radius and the angles
// (degrees, counter-clockwise); Line uses Start and End.
type Primitive struct {
	Kind       PrimitiveKind
	Center     Point
	Radius     float64
	StartAngle float64
	EndAngle   float64
	Start      Point
	End        Point
}

// Arc builds an arc primitive.
func Arc(center Point, radius, startAngle, endAngle float64) Primitive {
	return Primitive{Kind: KindArc, Center: center, Radius: radius, StartAngle: startAngle, EndAngle: endAngle}
}

// Line builds a line primitive.
func Line(start, end Point) Primitive {
	return Primitive{Kind: KindLine, Start: start, End: end}
}

// #endregion primitive

// #region constraint-kind
// ConstraintKind enumerates the supported geometric constraints.
type ConstraintKind string

const (
	Coincident ConstraintKind = "Coincident"
	Parallel   ConstraintKind = "Parallel"
	Horizontal ConstraintKind = "Horizontal"
	Vertical   ConstraintKind = "Vertical"
	Distance   ConstraintKind = "Distance"
	Radius     ConstraintKind = "Radius"
	Diameter   ConstraintKind = "Diameter"
	Concentric ConstraintKind = "Concentric"
)

// Point ids used by Coincident and Distance.
const (
	PointStart  = 1
	PointEnd    = 2
	PointCenter = 3
)

// #endregion constraint-kind

// #region constraint
// Constraint references primitives by index into the owning sketch.
// Which fields are meaningful depends on Kind.
type Constraint struct {
	Kind   ConstraintKind
	Geo1   int
	Point1 int
	Geo2   int
	Point2 int
	Value  float64
}

// CoincidentAt joins point p1 of geo1 with point p2 of geo2.
func CoincidentAt(geo1, p1, geo2, p2 int) Constraint {
	return Constraint{Kind: Coincident, Geo1: geo1, Point1: p1, Geo2: geo2, Point2: p2}
}

// ParallelTo keeps two lines parallel.
func ParallelTo(geo1, geo2 int) Constraint {
	return Constraint{Kind: Parallel, Geo1: geo1, Geo2: geo2}
}

// HorizontalOf keeps a line horizontal.
func HorizontalOf(geo int) Constraint {
	return Constraint{Kind: Horizontal, Geo1: geo}
}

// VerticalOf keeps a line vertical.
func VerticalOf(geo int) Constraint {
	return Constraint{Kind: Vertical, Geo1: geo}
}

// DistanceBetween fixes the distance between two primitive points.
func DistanceBetween(geo1, p1, geo2, p2 int, value float64) Constraint {
	return Constraint{Kind: Distance, Geo1: geo1, Point1: p1, Geo2: geo2, Point2: p2, Value: value}
}

// RadiusOf fixes an arc radius.
func RadiusOf(geo int, value float64) Constraint {
	return Constraint{Kind: Radius, Geo1: geo, Value: value}
}

// DiameterOf fixes an arc diameter.
func DiameterOf(geo int, value float64) Constraint {
	return Constraint{Kind: Diameter, Geo1: geo, Value: value}
}

// ConcentricWith shares the center of two arcs.
func ConcentricWith(geo1, geo2 int) Constraint {
	return Constraint{Kind: Concentric, Geo1: geo1, Geo2: geo2}
}

// #endregion constraint

// #region sketch
// Sketch is an index arena: constraints refer to Geometry by position.
type Sketch struct {
	Geometry    []Primitive
	Constraints []Constraint
}

// #endregion sketch
