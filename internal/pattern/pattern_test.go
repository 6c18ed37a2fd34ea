package pattern

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
	"github.com/danielpatrickdp/recad/go-engine/internal/sketch"
)

// #region helpers
func agg(f feature.Feature) feature.AggregatedFeature {
	return feature.AggregatedFeature{Feature: f, SupportCount: 1}
}

func baseCylinder(d float64) feature.AggregatedFeature {
	return agg(feature.Feature{Type: feature.Extrude, Operation: feature.NewBody, Shape: feature.Shape{Kind: feature.Circle, Diameter: d}, Distance: 30})
}

func sideCut(position string) feature.AggregatedFeature {
	return agg(feature.Feature{Type: feature.Cut, Operation: feature.Remove, Shape: feature.Shape{Kind: feature.Rectangle, Width: 6, Height: 90}, CutType: feature.ThroughAll, Position: position})
}

func circleCut(x, y, d, depth float64) feature.AggregatedFeature {
	return agg(feature.Feature{Type: feature.Cut, Operation: feature.Remove, Shape: feature.Shape{Kind: feature.Circle, Diameter: d, Center: sketch.Point{X: x, Y: y}}, Distance: depth, CutType: feature.ToDistance})
}

func rectCut(w, h float64) feature.AggregatedFeature {
	return agg(feature.Feature{Type: feature.Cut, Operation: feature.Remove, Shape: feature.Shape{Kind: feature.Rectangle, Width: w, Height: h}, Distance: 5, CutType: feature.ToDistance})
}

func registry(t *testing.T) *Registry {
	t.Helper()
	r, err := DefaultRegistry(DefaultDetectorConfig(), measure.NewRegexExtractor())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

type stubDetector struct {
	name     string
	priority int
	match    bool
}

func (s stubDetector) Name() string                   { return s.name }
func (s stubDetector) Priority() int                  { return s.priority }
func (s stubDetector) Description() string            { return s.name }
func (s stubDetector) Indicators() Indicators         { return Indicators{} }
func (s stubDetector) GenerateGeometry(Match) (GeometrySpec, error) { return GeometrySpec{}, nil }
func (s stubDetector) FilterFeatures(f []feature.AggregatedFeature, _ Match) []feature.AggregatedFeature {
	return f
}
func (s stubDetector) Detect([]feature.AggregatedFeature, string) *Match {
	if !s.match {
		return nil
	}
	return &Match{Pattern: s.name, Confidence: 0.9}
}

// #endregion helpers

// #region registry-tests
func TestRegistry_Order(t *testing.T) {
	want := []string{ChordCutName, PolarHoleName, CounterboreName, CountersinkName, SlotName, HoleName}
	if diff := cmp.Diff(want, registry(t).Names()); diff != "" {
		t.Fatalf("evaluation order (-want +got):\n%s", diff)
	}
}

func TestRegistry_TiesKeepRegistrationOrder(t *testing.T) {
	r, err := NewRegistry(stubDetector{name: "b", priority: 10}, stubDetector{name: "a", priority: 10}, stubDetector{name: "c", priority: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"c", "b", "a"}, r.Names()); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestRegistry_HigherPriorityWins(t *testing.T) {
	r, err := NewRegistry(stubDetector{name: "low", priority: 1, match: true}, stubDetector{name: "high", priority: 99, match: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, d := r.Detect(nil, "")
	if m == nil || m.Pattern != "high" || d.Name() != "high" {
		t.Fatalf("expected high to win, got %+v", m)
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	if _, err := NewRegistry(stubDetector{name: "x"}, stubDetector{name: "x"}); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestRegistry_Deterministic(t *testing.T) {
	r := registry(t)
	features := []feature.AggregatedFeature{baseCylinder(90), sideCut("left_side"), sideCut("right_side")}
	transcript := "diâmetro 90mm, distância de 78mm"
	first, _ := r.Detect(features, transcript)
	for i := 0; i < 20; i++ {
		again, _ := r.Detect(features, transcript)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestRegistry_ValidateExternalMatch(t *testing.T) {
	r := registry(t)
	if _, err := r.Validate(Match{Pattern: "dovetail", Confidence: 0.9}); !errors.Is(err, measure.ErrUnknownPattern) {
		t.Errorf("expected ErrUnknownPattern, got %v", err)
	}
	if _, err := r.Validate(Match{Pattern: SlotName, Confidence: 1.5}); err == nil {
		t.Error("expected confidence range error")
	}
	if d, err := r.Validate(Match{Pattern: SlotName, Confidence: 0.7}); err != nil || d.Name() != SlotName {
		t.Errorf("expected slot detector, got %v", err)
	}
	if err := r.CheckRequirements(measure.DefaultRequirements()); err != nil {
		t.Errorf("requirements out of sync: %v", err)
	}
	if err := r.CheckRequirements(measure.NewRequirements(map[string][]string{HoleName: {measure.Diameter}})); !errors.Is(err, measure.ErrUnknownPattern) {
		t.Errorf("expected drift to be reported, got %v", err)
	}
}

// #endregion registry-tests

// #region chord-cut-tests
func TestChordCut_Scenario(t *testing.T) {
	features := []feature.AggregatedFeature{baseCylinder(90), sideCut("left_side"), sideCut("right_side")}
	m, d := registry(t).Detect(features, "Peça com diâmetro 90mm e dois cortes laterais, distância de 78mm")
	if m == nil || m.Pattern != ChordCutName {
		t.Fatalf("expected chord_cut, got %+v", m)
	}
	want := map[string]float64{measure.Diameter: 90, measure.FlatToFlat: 78}
	if diff := cmp.Diff(want, m.Parameters); diff != "" {
		t.Errorf("parameters (-want +got):\n%s", diff)
	}

	spec, err := d.GenerateGeometry(*m)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	idx, ok := LocateBase(spec, features, *m)
	if spec.Mode != NeedsBaseCircle || !ok || idx != 0 {
		t.Fatalf("expected base circle at 0, got mode=%s idx=%d", spec.Mode, idx)
	}
	sk, err := spec.Resolve(features[idx])
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(sk.Geometry) != 4 || len(sk.Constraints) != 7 {
		t.Errorf("expected 4/7 sketch, got %d/%d", len(sk.Geometry), len(sk.Constraints))
	}

	remaining := d.FilterFeatures(features, *m)
	if len(remaining) != 1 || remaining[0].Type != feature.Extrude {
		t.Errorf("expected only the base extrude to remain, got %d features", len(remaining))
	}
}

func TestChordCut_MatchesWithoutFlatToFlat(t *testing.T) {
	features := []feature.AggregatedFeature{baseCylinder(90), sideCut("left_side"), sideCut("right_side")}
	m := NewChordCutDetector(measure.NewRegexExtractor()).Detect(features, "diâmetro 90mm")
	if m == nil {
		t.Fatal("structural match should not need flat_to_flat")
	}
	if _, ok := m.Param(measure.FlatToFlat); ok {
		t.Error("flat_to_flat should be absent")
	}
}

func TestChordCut_ImplausibleFlatDeclines(t *testing.T) {
	features := []feature.AggregatedFeature{baseCylinder(50), sideCut("bilateral")}
	m := NewChordCutDetector(measure.NewRegexExtractor()).Detect(features, "distância de 78mm")
	if m != nil {
		t.Fatalf("flat_to_flat wider than the cylinder should decline, got %+v", m)
	}
}

func TestChordCut_NeedsBase(t *testing.T) {
	m := NewChordCutDetector(measure.NewRegexExtractor()).Detect([]feature.AggregatedFeature{sideCut("left"), sideCut("right")}, "")
	if m != nil {
		t.Fatalf("no base cylinder should decline, got %+v", m)
	}
}

// #endregion chord-cut-tests

// #region stepped-tests
func TestCounterbore_Structural(t *testing.T) {
	features := []feature.AggregatedFeature{circleCut(10, 10, 8, 15), circleCut(10.2, 10, 16, 6), circleCut(40, 0, 5, 5)}
	r := registry(t)
	m, d := r.Detect(features, "")
	if m == nil || m.Pattern != CounterboreName {
		t.Fatalf("expected counterbore, got %+v", m)
	}
	for name, want := range map[string]float64{measure.OuterDiameter: 16, measure.InnerDiameter: 8, measure.OuterDepth: 6, measure.InnerDepth: 15} {
		if m.Parameters[name] != want {
			t.Errorf("%s = %v, want %v", name, m.Parameters[name], want)
		}
	}

	spec, err := d.GenerateGeometry(*m)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if spec.Mode != SelfContained || len(spec.Features) != 1 {
		t.Fatalf("expected one self-contained feature, got %+v", spec)
	}
	sk := spec.Features[0].Sketch
	if !sk.HasConstraint(sketch.Concentric) || sk.CountPrimitives(sketch.KindArc) != 2 {
		t.Errorf("expected concentric pair, got %+v", sk)
	}
	if spec.Features[0].Distance != 15 {
		t.Errorf("expected full depth 15, got %v", spec.Features[0].Distance)
	}

	remaining := d.FilterFeatures(features, *m)
	if len(remaining) != 1 || remaining[0].Shape.Diameter != 5 {
		t.Errorf("only the unrelated hole should remain, got %+v", remaining)
	}
}

func TestCounterbore_Plausibility(t *testing.T) {
	cases := []struct {
		name       string
		outerDepth float64
		want       bool
	}{
		{"shallow counterbore", 6, true},
		{"outer deeper than bore", 20, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := agg(feature.Feature{
				Type: feature.Cut, Operation: feature.Remove,
				Shape:  feature.Shape{Kind: feature.Counterbore, OuterDiameter: 16, InnerDiameter: 8},
				Params: map[string]float64{measure.OuterDepth: tc.outerDepth, measure.InnerDepth: 15},
			})
			m := NewCounterboreDetector(DefaultDetectorConfig(), measure.NewRegexExtractor()).Detect([]feature.AggregatedFeature{f}, "")
			if (m != nil) != tc.want {
				t.Fatalf("match = %+v, want match %v", m, tc.want)
			}
		})
	}
}

func TestCountersink_Angles(t *testing.T) {
	cases := []struct {
		angle    float64
		want     bool
		wantConf float64
	}{
		{90, true, 0.90},
		{91.5, true, 0.90},
		{82, true, 0.90},
		{95, false, 0},
		{0, true, 0.80},
	}
	for _, tc := range cases {
		f := agg(feature.Feature{
			Type: feature.Cut, Operation: feature.Remove,
			Shape:  feature.Shape{Kind: feature.Countersink, OuterDiameter: 12, InnerDiameter: 6, Angle: tc.angle},
			Params: map[string]float64{measure.OuterDepth: 3, measure.InnerDepth: 10},
		})
		m := NewCountersinkDetector(DefaultDetectorConfig(), measure.NewRegexExtractor()).Detect([]feature.AggregatedFeature{f}, "")
		if (m != nil) != tc.want {
			t.Errorf("angle %v: match = %+v, want %v", tc.angle, m, tc.want)
			continue
		}
		if m != nil && math.Abs(m.Confidence-tc.wantConf) > 1e-9 {
			t.Errorf("angle %v: confidence %v, want %v", tc.angle, m.Confidence, tc.wantConf)
		}
	}
}

func TestCountersink_ChamferOverHole(t *testing.T) {
	chamfer := agg(feature.Feature{Type: feature.Cut, Operation: feature.Remove, Shape: feature.Shape{Kind: feature.Chamfer, Diameter: 12, Angle: 90}, Distance: 3, CutType: feature.ToDistance})
	hole := circleCut(0, 0, 6, 10)
	features := []feature.AggregatedFeature{hole, chamfer}
	m, d := registry(t).Detect(features, "furo escareado")
	if m == nil || m.Pattern != CountersinkName {
		t.Fatalf("expected countersink, got %+v", m)
	}
	if m.Confidence != 0.95 {
		t.Errorf("cue should raise confidence to 0.95, got %v", m.Confidence)
	}
	if diff := cmp.Diff([]int{0, 1}, m.Consumed); diff != "" {
		t.Errorf("consumed (-want +got):\n%s", diff)
	}
	if got := d.FilterFeatures(features, *m); len(got) != 0 {
		t.Errorf("expected both cuts removed, got %d", len(got))
	}
}

// #endregion stepped-tests

// #region slot-tests
func TestSlot_AspectRatio(t *testing.T) {
	r := registry(t)

	m, d := r.Detect([]feature.AggregatedFeature{rectCut(10, 55)}, "")
	if m == nil || m.Pattern != SlotName {
		t.Fatalf("10x55 should be a slot, got %+v", m)
	}
	if m.Parameters[ParamOrientation] != 90 || m.Parameters[measure.Width] != 10 || m.Parameters[measure.Length] != 55 {
		t.Errorf("unexpected slot parameters %v", m.Parameters)
	}
	spec, err := d.GenerateGeometry(*m)
	if err != nil || spec.Mode != NeedsBaseRectangle {
		t.Fatalf("expected needs_base_rectangle, got %s (%v)", spec.Mode, err)
	}
	features := []feature.AggregatedFeature{rectCut(10, 55)}
	if got := d.FilterFeatures(features, *m); len(got) != 1 {
		t.Errorf("slot filter should keep the rectangle, got %d", len(got))
	}

	if m, _ := r.Detect([]feature.AggregatedFeature{rectCut(10, 15)}, ""); m != nil {
		t.Errorf("10x15 should fall through, got %+v", m)
	}
}

func TestSlot_TranscriptOnly(t *testing.T) {
	d := NewSlotDetector(DefaultDetectorConfig(), measure.NewRegexExtractor())
	m := d.Detect(nil, "um rasgo com largura de 8mm e comprimento de 40mm, profundidade de 4mm")
	if m == nil || m.Source != SourceTranscript {
		t.Fatalf("expected transcript slot, got %+v", m)
	}
	spec, err := d.GenerateGeometry(*m)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if spec.Mode != SelfContained || spec.Features[0].Distance != 4 {
		t.Errorf("expected appended 4mm slot, got %+v", spec)
	}
}

// #endregion slot-tests

// #region polar-tests
func TestPolar_Structural(t *testing.T) {
	var features []feature.AggregatedFeature
	for i := 0; i < 6; i++ {
		a := float64(i) * math.Pi / 3
		features = append(features, circleCut(50+30*math.Cos(a), 50+30*math.Sin(a), 6, 10))
	}
	m, d := registry(t).Detect(features, "")
	if m == nil || m.Pattern != PolarHoleName {
		t.Fatalf("expected polar pattern, got %+v", m)
	}
	if m.Parameters[measure.Count] != 6 || m.Parameters[measure.Radius] != 30 || m.Parameters[ParamCenterX] != 50 {
		t.Errorf("unexpected parameters %v", m.Parameters)
	}
	spec, err := d.GenerateGeometry(*m)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if n := len(spec.Features[0].Sketch.Geometry); n != 6 {
		t.Errorf("expected 6 holes, got %d", n)
	}
	if got := d.FilterFeatures(features, *m); len(got) != 0 {
		t.Errorf("expected members removed, got %d", len(got))
	}
}

func TestPolar_UnevenSpacingFallsToHole(t *testing.T) {
	features := []feature.AggregatedFeature{circleCut(30, 0, 6, 10), circleCut(0, 30, 6, 10), circleCut(-21.2, 21.2, 6, 10)}
	m, _ := registry(t).Detect(features, "")
	if m == nil || m.Pattern != HoleName {
		t.Fatalf("expected hole fallback, got %+v", m)
	}
}

// #endregion polar-tests

// #region hole-tests
func TestHole_FilterKeepsOthers(t *testing.T) {
	features := []feature.AggregatedFeature{baseCylinder(40), circleCut(0, 0, 5, 8)}
	m, d := registry(t).Detect(features, "")
	if m == nil || m.Pattern != HoleName {
		t.Fatalf("expected hole, got %+v", m)
	}
	got := d.FilterFeatures(features, *m)
	if len(got) != 1 || got[0].Type != feature.Extrude {
		t.Errorf("expected base to remain, got %+v", got)
	}
	spec, err := d.GenerateGeometry(*m)
	if err != nil || spec.Features[0].Sketch.Constraints[0].Kind != sketch.Diameter {
		t.Errorf("expected constrained circle, got %+v (%v)", spec, err)
	}
}

func TestNoPattern(t *testing.T) {
	if m, _ := registry(t).Detect([]feature.AggregatedFeature{baseCylinder(40)}, "uma peça simples"); m != nil {
		t.Errorf("expected no match, got %+v", m)
	}
}

// #endregion hole-tests

// #region catalog-tests
func TestCatalog(t *testing.T) {
	entries := registry(t).Catalog()
	if len(entries) != 6 || entries[0].Name != ChordCutName || entries[0].Priority != 180 {
		t.Fatalf("unexpected catalog head %+v", entries[0])
	}

	var buf bytes.Buffer
	if err := WriteCatalog(&buf, entries, "json"); err != nil {
		t.Fatalf("json: %v", err)
	}
	var fromJSON []CatalogEntry
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if diff := cmp.Diff(entries, fromJSON); diff != "" {
		t.Errorf("json catalog (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := WriteCatalog(&buf, entries, "yaml"); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "name: chord_cut") {
		t.Errorf("yaml catalog missing chord_cut:\n%s", buf.String())
	}
	var fromYAML []CatalogEntry
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if diff := cmp.Diff(entries, fromYAML); diff != "" {
		t.Errorf("yaml catalog (-want +got):\n%s", diff)
	}

	if err := WriteCatalog(&buf, entries, "xml"); err == nil {
		t.Error("expected unknown format error")
	}
}

// #endregion catalog-tests
