package sketch

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func near(a, b Point) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

// #region chord-cut-tests
func TestChordCut_Structure(t *testing.T) {
	s, err := ChordCut(45, 78)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kinds := make([]PrimitiveKind, len(s.Geometry))
	for i, p := range s.Geometry {
		kinds[i] = p.Kind
	}
	want := []PrimitiveKind{KindArc, KindLine, KindArc, KindLine}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("primitive kinds mismatch (-want +got):\n%s", diff)
	}
	if len(s.Constraints) != 7 {
		t.Fatalf("expected 7 constraints, got %d", len(s.Constraints))
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, k := range []ConstraintKind{Coincident, Parallel, Horizontal, Distance} {
		if !s.HasConstraint(k) {
			t.Errorf("missing %s constraint", k)
		}
	}
}

func TestChordCut_LoopIsClosed(t *testing.T) {
	s, err := ChordCut(45, 78)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range s.Constraints {
		if c.Kind != Coincident {
			continue
		}
		a := s.Geometry[c.Geo1].Endpoint(c.Point1)
		b := s.Geometry[c.Geo2].Endpoint(c.Point2)
		if !near(a, b) {
			t.Errorf("coincident %d.%d/%d.%d apart: %v vs %v", c.Geo1, c.Point1, c.Geo2, c.Point2, a, b)
		}
	}
}

func TestChordCut_FlatsExactlyApart(t *testing.T) {
	for _, tc := range []struct{ r, f float64 }{{45, 78}, {10, 1}, {10, 19.99}, {3.5, 5}} {
		s, err := ChordCut(tc.r, tc.f)
		if err != nil {
			t.Fatalf("r=%v f=%v: %v", tc.r, tc.f, err)
		}
		top, bottom := s.Geometry[1], s.Geometry[3]
		if top.Start.Y != top.End.Y || bottom.Start.Y != bottom.End.Y {
			t.Fatalf("flats not horizontal: %+v %+v", top, bottom)
		}
		if got := top.Start.Y - bottom.Start.Y; math.Abs(got-tc.f) > 1e-9 {
			t.Errorf("r=%v f=%v: flats %v apart", tc.r, tc.f, got)
		}
		dist := s.Constraints[6]
		if dist.Kind != Distance || dist.Value != tc.f || dist.Geo1 != 1 || dist.Geo2 != 3 {
			t.Errorf("unexpected distance constraint %+v", dist)
		}
	}
}

func TestChordCut_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		r, f float64
	}{
		{"zero radius", 0, 10},
		{"zero flat", 10, 0},
		{"flat equals diameter", 10, 20},
		{"flat exceeds diameter", 10, 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ChordCut(tc.r, tc.f)
			if !errors.Is(err, ErrInvalidDimensions) {
				t.Fatalf("expected ErrInvalidDimensions, got %v", err)
			}
		})
	}
}

// #endregion chord-cut-tests

// #region validate-tests
func TestValidate_InvalidIndex(t *testing.T) {
	s := Sketch{
		Geometry:    []Primitive{Line(Point{}, Point{X: 1})},
		Constraints: []Constraint{ParallelTo(0, 1)},
	}
	if err := s.Validate(); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestValidate_Degenerate(t *testing.T) {
	s := Sketch{Geometry: []Primitive{Line(Point{X: 1}, Point{X: 1})}}
	if err := s.Validate(); !errors.Is(err, ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate, got %v", err)
	}
}

// #endregion validate-tests

// #region helper-tests
func TestConcentricPair(t *testing.T) {
	s, err := ConcentricPair(Point{X: 5, Y: 5}, 16, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Geometry[0].Radius != 8 || s.Geometry[1].Radius != 4 {
		t.Fatalf("unexpected radii: %v %v", s.Geometry[0].Radius, s.Geometry[1].Radius)
	}
	if s.Constraints[0] != ConcentricWith(0, 1) {
		t.Errorf("expected concentric first, got %+v", s.Constraints[0])
	}
	if _, err := ConcentricPair(Point{}, 8, 16); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("expected ErrInvalidDimensions for inverted pair, got %v", err)
	}
}

func TestPolarArray(t *testing.T) {
	s, err := PolarArray(Point{}, 4, 6, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var centers []Point
	for _, p := range s.Geometry {
		centers = append(centers, p.Center)
	}
	want := []Point{{X: 20}, {Y: 20}, {X: -20}, {Y: -20}}
	if diff := cmp.Diff(want, centers); diff != "" {
		t.Errorf("centers mismatch (-want +got):\n%s", diff)
	}
	if len(s.Constraints) != 4 {
		t.Errorf("expected 4 diameter constraints, got %d", len(s.Constraints))
	}
}

func TestSlot_Orientation(t *testing.T) {
	s, err := Slot(Point{}, 10, 55, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := s.Geometry[0]
	if first.Start.X != first.End.X {
		t.Errorf("long edge should be vertical at 90 degrees: %+v", first)
	}
	if got := math.Abs(first.End.Y - first.Start.Y); math.Abs(got-55) > 1e-6 {
		t.Errorf("long edge length %v, want 55", got)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

// #endregion helper-tests

// #region json-tests
func TestSketchJSON(t *testing.T) {
	s, err := ChordCut(45, 78)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Sketch
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(s, back, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("sketch changed over JSON (-want +got):\n%s", diff)
	}

	var raw map[string][]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, ok := raw["geometry"][1]["radius"]; ok {
		t.Error("line should not carry a radius field")
	}
	if raw["constraints"][5]["type"] != "Horizontal" {
		t.Errorf("expected Horizontal at index 5, got %v", raw["constraints"][5]["type"])
	}
}

func TestConstraintJSON_UnknownType(t *testing.T) {
	var c Constraint
	if err := json.Unmarshal([]byte(`{"type":"Tangent","geo1":0}`), &c); err == nil {
		t.Fatal("expected error for unknown constraint type")
	}
}

// #endregion json-tests
