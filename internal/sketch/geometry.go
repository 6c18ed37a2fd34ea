package sketch

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDimensions is returned when a helper cannot build closed geometry from its inputs.
var ErrInvalidDimensions = errors.New("invalid dimensions")

// #region chord-cut
// ChordCut builds a circle of radius r trimmed by two parallel horizontal flats
// flatToFlat apart. Primitives: Arc, Line, Arc, Line; each end meets the next start.
func ChordCut(r, flatToFlat float64) (Sketch, error) {
	if r <= 0 || flatToFlat <= 0 || flatToFlat >= 2*r {
		return Sketch{}, fmt.Errorf("chord cut r=%.4f f=%.4f: %w", r, flatToFlat, ErrInvalidDimensions)
	}
	halfF := flatToFlat / 2
	halfW := math.Sqrt(r*r - halfF*halfF)
	theta := math.Atan2(halfF, halfW) * 180 / math.Pi
	origin := Point{}

	geometry := []Primitive{
		Arc(origin, r, -theta, theta),
		Line(Point{X: halfW, Y: halfF}, Point{X: -halfW, Y: halfF}),
		Arc(origin, r, 180-theta, 180+theta),
		Line(Point{X: -halfW, Y: -halfF}, Point{X: halfW, Y: -halfF}),
	}
	constraints := []Constraint{
		CoincidentAt(0, PointEnd, 1, PointStart),
		CoincidentAt(1, PointEnd, 2, PointStart),
		CoincidentAt(2, PointEnd, 3, PointStart),
		CoincidentAt(3, PointEnd, 0, PointStart),
		ParallelTo(1, 3),
		HorizontalOf(1),
		DistanceBetween(1, PointStart, 3, PointEnd, flatToFlat),
	}
	return Sketch{Geometry: geometry, Constraints: constraints}, nil
}

// #endregion chord-cut

// #region circles
// Circle builds a full-circle arc with its diameter fixed.
func Circle(center Point, diameter float64) (Sketch, error) {
	if diameter <= 0 {
		return Sketch{}, fmt.Errorf("circle d=%.4f: %w", diameter, ErrInvalidDimensions)
	}
	return Sketch{
		Geometry:    []Primitive{fullCircle(center, diameter)},
		Constraints: []Constraint{DiameterOf(0, diameter)},
	}, nil
}

// ConcentricPair builds the two circles of a stepped hole sharing one center.
// Index 0 is the outer circle.
func ConcentricPair(center Point, outerDiameter, innerDiameter float64) (Sketch, error) {
	if innerDiameter <= 0 || outerDiameter <= innerDiameter {
		return Sketch{}, fmt.Errorf("concentric pair outer=%.4f inner=%.4f: %w", outerDiameter, innerDiameter, ErrInvalidDimensions)
	}
	return Sketch{
		Geometry: []Primitive{
			fullCircle(center, outerDiameter),
			fullCircle(center, innerDiameter),
		},
		Constraints: []Constraint{
			ConcentricWith(0, 1),
			DiameterOf(0, outerDiameter),
			DiameterOf(1, innerDiameter),
		},
	}, nil
}

// PolarArray places count holes evenly on a pitch circle, starting at startAngle degrees.
func PolarArray(center Point, count int, holeDiameter, pitchRadius, startAngle float64) (Sketch, error) {
	if count < 1 || holeDiameter <= 0 || pitchRadius <= 0 {
		return Sketch{}, fmt.Errorf("polar array n=%d d=%.4f r=%.4f: %w", count, holeDiameter, pitchRadius, ErrInvalidDimensions)
	}
	step := 360.0 / float64(count)
	var s Sketch
	for i := 0; i < count; i++ {
		a := (startAngle + step*float64(i)) * math.Pi / 180
		c := Point{
			X: roundTo(center.X+pitchRadius*math.Cos(a), 2),
			Y: roundTo(center.Y+pitchRadius*math.Sin(a), 2),
		}
		s.Geometry = append(s.Geometry, fullCircle(c, holeDiameter))
		s.Constraints = append(s.Constraints, DiameterOf(i, holeDiameter))
	}
	return s, nil
}

func fullCircle(center Point, diameter float64) Primitive {
	return Arc(center, diameter/2, 0, 360)
}

// #endregion circles

// #region slot
// Slot builds a rectangular slot of the given width and length, rotated by
// orientation degrees around its center. Only dimensional constraints are set.
func Slot(center Point, width, length, orientation float64) (Sketch, error) {
	if width <= 0 || length <= 0 {
		return Sketch{}, fmt.Errorf("slot w=%.4f l=%.4f: %w", width, length, ErrInvalidDimensions)
	}
	corners := rectangleCorners(center, length, width, orientation)
	return Sketch{
		Geometry: closedPolyline(corners),
		Constraints: []Constraint{
			DistanceBetween(0, PointStart, 0, PointEnd, length),
			DistanceBetween(1, PointStart, 1, PointEnd, width),
		},
	}, nil
}

// #endregion slot

// #region outlines
// CircleOutline returns an unconstrained full circle.
func CircleOutline(center Point, diameter float64) Sketch {
	return Sketch{Geometry: []Primitive{fullCircle(center, diameter)}}
}

// RectangleOutline returns four unconstrained lines around center.
func RectangleOutline(center Point, width, height float64) Sketch {
	return Sketch{Geometry: closedPolyline(rectangleCorners(center, width, height, 0))}
}

// rectangleCorners lists corners counter-clockwise; the first edge runs along sizeX.
func rectangleCorners(center Point, sizeX, sizeY, orientation float64) []Point {
	hx, hy := sizeX/2, sizeY/2
	local := []Point{{X: -hx, Y: -hy}, {X: hx, Y: -hy}, {X: hx, Y: hy}, {X: -hx, Y: hy}}
	rad := orientation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	out := make([]Point, len(local))
	for i, p := range local {
		out[i] = Point{
			X: roundTo(center.X+p.X*cos-p.Y*sin, 6),
			Y: roundTo(center.Y+p.X*sin+p.Y*cos, 6),
		}
	}
	return out
}

func closedPolyline(points []Point) []Primitive {
	lines := make([]Primitive, len(points))
	for i := range points {
		lines[i] = Line(points[i], points[(i+1)%len(points)])
	}
	return lines
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}

// #endregion outlines

// #region endpoints
// Endpoint resolves a primitive point id to coordinates.
func (p Primitive) Endpoint(id int) Point {
	switch p.Kind {
	case KindLine:
		if id == PointEnd {
			return p.End
		}
		if id == PointStart {
			return p.Start
		}
		return Point{X: (p.Start.X + p.End.X) / 2, Y: (p.Start.Y + p.End.Y) / 2}
	case KindArc:
		angle := p.StartAngle
		switch id {
		case PointEnd:
			angle = p.EndAngle
		case PointCenter:
			return p.Center
		}
		rad := angle * math.Pi / 180
		return Point{X: p.Center.X + p.Radius*math.Cos(rad), Y: p.Center.Y + p.Radius*math.Sin(rad)}
	}
	return Point{}
}

// #endregion endpoints
