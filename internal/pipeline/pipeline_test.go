package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/gate"
	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
	"github.com/danielpatrickdp/recad/go-engine/internal/metrics"
	"github.com/danielpatrickdp/recad/go-engine/internal/pattern"
	"github.com/danielpatrickdp/recad/go-engine/internal/sketch"
)

const chordTranscript = "Peça cilíndrica com diâmetro 90mm e dois cortes laterais, com distância de 78mm entre as faces planas"

// #region helpers
func chordReports() []feature.AgentReport {
	var reports []feature.AgentReport
	for i := 0; i < 5; i++ {
		agent := fmt.Sprintf("agent_%d", i)
		reports = append(reports, feature.AgentReport{AgentID: agent, Features: []feature.RawFeature{
			{Feature: feature.Feature{
				Type: feature.Extrude, Operation: feature.NewBody,
				Shape: feature.Shape{Kind: feature.Circle, Diameter: 90}, Distance: 27, Confidence: 0.9,
			}},
			{Feature: feature.Feature{
				Type: feature.Cut, Operation: feature.Remove,
				Shape:   feature.Shape{Kind: feature.Rectangle, Width: 6, Height: 90},
				CutType: feature.ThroughAll, Position: "left_side", Confidence: 0.8,
			}},
			{Feature: feature.Feature{
				Type: feature.Cut, Operation: feature.Remove,
				Shape:   feature.Shape{Kind: feature.Rectangle, Width: 6, Height: 90},
				CutType: feature.ThroughAll, Position: "right_side", Confidence: 0.8,
			}},
		}})
	}
	return reports
}

func newPipeline(t *testing.T, opts Options) (*Pipeline, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	opts.Metrics = m
	p, err := New(opts)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p, m
}

type stubProposer struct {
	match *pattern.Match
	err   error
	calls int
}

func (s *stubProposer) Propose(_ context.Context, _ []pattern.CatalogEntry, _ []feature.AggregatedFeature, _ string) (*pattern.Match, error) {
	s.calls++
	return s.match, s.err
}

// #endregion helpers

// #region chord-cut-tests
func TestRun_ChordCutComplete(t *testing.T) {
	p, m := newPipeline(t, Options{})

	res, err := p.Run(context.Background(), chordReports(), chordTranscript)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusComplete {
		t.Fatalf("expected complete, got %s (warnings %v)", res.Status, res.Warnings)
	}
	if res.PatternName() != pattern.ChordCutName {
		t.Fatalf("expected chord_cut, got %q", res.PatternName())
	}
	if res.Decision == nil || res.Decision.Action != gate.ActionProceed {
		t.Fatalf("expected gate proceed, got %+v", res.Decision)
	}
	if len(res.Features) != 1 || res.Features[0].Type != feature.Extrude {
		t.Fatalf("expected only the base extrude, got %d features", len(res.Features))
	}
	if res.Features[0].SupportCount != 5 {
		t.Fatalf("expected support 5, got %d", res.Features[0].SupportCount)
	}
	if !res.Eval.Passed || len(res.Eval.Warnings) != 0 {
		t.Fatalf("expected clean eval, got %+v", res.Eval)
	}

	if len(res.Emitted) != 1 {
		t.Fatalf("expected 1 emitted feature, got %d", len(res.Emitted))
	}
	e := res.Emitted[0]
	if e.ID != "extrude_0" || len(e.Sketch.Geometry) != 4 || len(e.Sketch.Constraints) != 7 {
		t.Fatalf("unexpected emitted feature %s: %d primitives, %d constraints", e.ID, len(e.Sketch.Geometry), len(e.Sketch.Constraints))
	}
	kinds := []sketch.PrimitiveKind{sketch.KindArc, sketch.KindLine, sketch.KindArc, sketch.KindLine}
	for i, k := range kinds {
		if e.Sketch.Geometry[i].Kind != k {
			t.Fatalf("primitive %d: expected %s, got %s", i, k, e.Sketch.Geometry[i].Kind)
		}
	}
	flat := e.Sketch.Geometry[1].Start.Y - e.Sketch.Geometry[3].Start.Y
	if flat < 77.999 || flat > 78.001 {
		t.Fatalf("flats should be 78 apart, got %v", flat)
	}
	if e.Parameters.Operation != feature.NewBody || e.Parameters.Direction != "normal" || e.Parameters.Distance.Value != 27 {
		t.Fatalf("unexpected parameters %+v", e.Parameters)
	}

	if got := testutil.ToFloat64(m.Runs.WithLabelValues("complete")); got != 1 {
		t.Fatalf("expected 1 complete run, got %v", got)
	}
	if got := testutil.ToFloat64(m.PatternMatches.WithLabelValues("chord_cut", "structural")); got != 1 {
		t.Fatalf("expected 1 structural chord match, got %v", got)
	}

	stages := make([]string, len(res.Provenance))
	for i, pe := range res.Provenance {
		stages[i] = pe.Stage
	}
	want := []string{"aggregate", "detect", "gate", "synthesize", "eval"}
	if fmt.Sprint(stages) != fmt.Sprint(want) {
		t.Fatalf("provenance stages = %v, want %v", stages, want)
	}
}

func TestRun_ChordCutNeedsInput(t *testing.T) {
	p, m := newPipeline(t, Options{})

	res, err := p.Run(context.Background(), chordReports(), "peça com cortes laterais")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusNeedsInput {
		t.Fatalf("expected needs_input, got %s", res.Status)
	}
	if res.Decision == nil || fmt.Sprint(res.Decision.Missing) != "[flat_to_flat]" {
		t.Fatalf("expected [flat_to_flat] missing, got %+v", res.Decision)
	}
	if !errors.Is(res.Decision.Err(), measure.ErrMissingMeasurement) {
		t.Fatalf("decision error should be a missing measurement, got %v", res.Decision.Err())
	}
	if res.Emitted != nil {
		t.Fatal("nothing should be emitted while input is pending")
	}
	if got := testutil.ToFloat64(m.MissingMeasurements.WithLabelValues("flat_to_flat")); got != 1 {
		t.Fatalf("expected missing counter 1, got %v", got)
	}
}

func TestRun_ChordCutSupplied(t *testing.T) {
	p, _ := newPipeline(t, Options{Supplier: gate.DefaultsSupplier{Values: map[string]float64{measure.FlatToFlat: 78}}})

	res, err := p.Run(context.Background(), chordReports(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusComplete {
		t.Fatalf("expected complete, got %s", res.Status)
	}
	if res.Supplied[measure.FlatToFlat] != 78 {
		t.Fatalf("expected supplied flat_to_flat, got %v", res.Supplied)
	}
	if res.Decision.Measurements[measure.FlatToFlat].Source != measure.SourceSupplied {
		t.Fatalf("expected supplied source, got %+v", res.Decision.Measurements[measure.FlatToFlat])
	}
	if len(res.Emitted) != 1 || len(res.Emitted[0].Sketch.Constraints) != 7 {
		t.Fatalf("expected synthesized chord cut, got %+v", res.Emitted)
	}
}

func TestRun_StillMissingIsFatal(t *testing.T) {
	p, m := newPipeline(t, Options{Supplier: gate.DefaultsSupplier{}})

	_, err := p.Run(context.Background(), chordReports(), "")
	if !errors.Is(err, gate.ErrStillMissing) {
		t.Fatalf("expected ErrStillMissing, got %v", err)
	}
	if got := testutil.ToFloat64(m.Runs.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected error run counted, got %v", got)
	}
}

// #endregion chord-cut-tests

// #region no-pattern-tests
func TestRun_NoPatternEmitsLiteralOutlines(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	reports := []feature.AgentReport{{AgentID: "a", Features: []feature.RawFeature{
		{Feature: feature.Feature{
			Type: feature.Extrude, Operation: feature.NewBody,
			Shape: feature.Shape{Kind: feature.Rectangle, Width: 40, Height: 20}, Distance: 5,
		}},
	}}}

	res, err := p.Run(context.Background(), reports, "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusNoPattern || res.Match != nil {
		t.Fatalf("expected no_pattern, got %s", res.Status)
	}
	if len(res.Emitted) != 1 {
		t.Fatalf("expected 1 emitted feature, got %d", len(res.Emitted))
	}
	sk := res.Emitted[0].Sketch
	if len(sk.Geometry) != 4 || len(sk.Constraints) != 0 {
		t.Fatalf("expected 4 unconstrained lines, got %d/%d", len(sk.Geometry), len(sk.Constraints))
	}
}

func TestRun_DropsUnknownTypes(t *testing.T) {
	p, m := newPipeline(t, Options{})
	reports := []feature.AgentReport{{AgentID: "a", Features: []feature.RawFeature{
		{Feature: feature.Feature{Type: "Revolve", Shape: feature.Shape{Kind: feature.Circle, Diameter: 10}}},
	}}}

	res, err := p.Run(context.Background(), reports, "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a dropped-feature warning")
	}
	if got := testutil.ToFloat64(m.DroppedFeatures); got != 1 {
		t.Fatalf("expected 1 dropped feature, got %v", got)
	}
}

// #endregion no-pattern-tests

// #region reasoner-tests
func holeReports() []feature.AgentReport {
	return []feature.AgentReport{{AgentID: "a", Features: []feature.RawFeature{
		{Feature: feature.Feature{
			Type: feature.Extrude, Operation: feature.NewBody,
			Shape: feature.Shape{Kind: feature.Circle, Diameter: 50}, Distance: 10,
		}},
		{Feature: feature.Feature{
			Type: feature.Cut, Operation: feature.Remove,
			Shape: feature.Shape{Kind: feature.Circle, Diameter: 8}, CutType: feature.ThroughAll,
		}},
	}}}
}

func TestRun_ReasonerMatch(t *testing.T) {
	proposer := &stubProposer{match: &pattern.Match{
		Pattern: pattern.HoleName, Confidence: 0.7, Parameters: map[string]float64{measure.Diameter: 8},
	}}
	p, _ := newPipeline(t, Options{Strategy: StrategyReasoner, Proposer: proposer})

	res, err := p.Run(context.Background(), holeReports(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusComplete || res.Match.Source != pattern.SourceReasoner {
		t.Fatalf("expected complete reasoner match, got %s / %+v", res.Status, res.Match)
	}
	if len(res.Features) != 2 {
		t.Fatalf("expected extrude + synthesized hole, got %d", len(res.Features))
	}
	hole := res.Features[1]
	if hole.Sketch == nil || !hole.Sketch.HasConstraint(sketch.Diameter) {
		t.Fatal("expected constrained hole sketch")
	}
}

func TestRun_ReasonerUnknownPatternIsFatal(t *testing.T) {
	proposer := &stubProposer{match: &pattern.Match{Pattern: "dovetail", Confidence: 0.9}}
	p, _ := newPipeline(t, Options{Strategy: StrategyReasoner, Proposer: proposer})

	_, err := p.Run(context.Background(), holeReports(), "")
	if !errors.Is(err, measure.ErrUnknownPattern) {
		t.Fatalf("expected ErrUnknownPattern, got %v", err)
	}
}

func TestRun_ReasonerThenRegistryFallsBack(t *testing.T) {
	proposer := &stubProposer{err: errors.New("unavailable")}
	p, _ := newPipeline(t, Options{Strategy: StrategyReasonerThenRegistry, Proposer: proposer})

	res, err := p.Run(context.Background(), holeReports(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if proposer.calls != 1 {
		t.Fatalf("expected one reasoner call, got %d", proposer.calls)
	}
	if res.PatternName() != pattern.HoleName || res.Match.Source != pattern.SourceStructural {
		t.Fatalf("expected registry hole match, got %+v", res.Match)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected reasoner failure warning")
	}
}

// #endregion reasoner-tests

// #region wiring-tests
func TestNew_ReasonerWithoutProposer(t *testing.T) {
	_, err := New(Options{Strategy: StrategyReasoner})
	if !errors.Is(err, ErrReasonerRequired) {
		t.Fatalf("expected ErrReasonerRequired, got %v", err)
	}
}

func TestNew_RequirementDrift(t *testing.T) {
	req := measure.NewRequirements(map[string][]string{"chord_cut": {measure.Diameter, measure.FlatToFlat}})
	_, err := New(Options{Requirements: req})
	if !errors.Is(err, measure.ErrUnknownPattern) {
		t.Fatalf("expected ErrUnknownPattern, got %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"", "registry", "reasoner", "reasoner_then_registry"} {
		if _, err := ParseStrategy(s); err != nil {
			t.Errorf("ParseStrategy(%q): %v", s, err)
		}
	}
	if _, err := ParseStrategy("oracle"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

// #endregion wiring-tests

// #region emit-tests
func TestEmitJSONShape(t *testing.T) {
	cut := feature.AggregatedFeature{Feature: feature.Feature{
		Type: feature.Cut, Operation: feature.Remove,
		Shape: feature.Shape{Kind: feature.Circle, Diameter: 8}, Distance: 4, CutType: feature.ToDistance,
	}}
	emitted, warnings := Emit([]feature.AggregatedFeature{cut, {Feature: feature.Feature{Type: feature.Cut}}})
	if len(emitted) != 1 || len(warnings) != 1 {
		t.Fatalf("expected 1 emitted and 1 skipped, got %d/%d", len(emitted), len(warnings))
	}

	data, err := json.Marshal(emitted[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["id"] != "cut_0" || got["type"] != "Cut" {
		t.Fatalf("unexpected id/type: %v", got)
	}
	params := got["parameters"].(map[string]any)
	if params["cut_type"] != "distance" || params["direction"] != "normal" {
		t.Fatalf("unexpected parameters %v", params)
	}
	if _, ok := params["operation"]; ok {
		t.Fatal("cuts should not carry an operation")
	}
	sk := got["sketch"].(map[string]any)
	if sk["plane"].(map[string]any)["type"] != "work_plane" {
		t.Fatalf("unexpected plane %v", sk["plane"])
	}
	if cons := sk["constraints"].([]any); len(cons) != 0 {
		t.Fatalf("literal outline should have no constraints, got %v", cons)
	}
}

// #endregion emit-tests
