package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/recad/go-engine/internal/aggregate"
	"github.com/danielpatrickdp/recad/go-engine/internal/eval"
	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/gate"
	"github.com/danielpatrickdp/recad/go-engine/internal/logging"
	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
	"github.com/danielpatrickdp/recad/go-engine/internal/metrics"
	"github.com/danielpatrickdp/recad/go-engine/internal/pattern"
	"github.com/danielpatrickdp/recad/go-engine/internal/sketch"
)

// ErrReasonerRequired is returned by New when a reasoner strategy has no proposer.
var ErrReasonerRequired = errors.New("reasoner strategy without a proposer")

// #region options
// Options wires the pipeline. Zero values fall back to the built-in defaults.
type Options struct {
	Registry     *pattern.Registry
	Requirements measure.Requirements
	Extractor    measure.Extractor
	Aggregator   aggregate.AggregatorConfig
	Gate         gate.GateConfig
	Eval         eval.EvalConfig
	Strategy     Strategy
	Proposer     Proposer      // required for reasoner strategies
	Supplier     gate.Supplier // nil stops at needs_input
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

// #endregion options

// #region pipeline
// Pipeline runs aggregation, detection, validation, synthesis, filtering,
// evaluation and emission over one snapshot of agent reports.
type Pipeline struct {
	registry   *pattern.Registry
	aggregator *aggregate.Aggregator
	gate       *gate.Gate
	harness    *eval.EvalHarness
	strategy   Strategy
	proposer   Proposer
	supplier   gate.Supplier
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// New validates the wiring. A registered pattern without a requirement entry
// fails with measure.ErrUnknownPattern.
func New(opts Options) (*Pipeline, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Extractor == nil {
		opts.Extractor = measure.NewRegexExtractor()
	}
	if len(opts.Requirements.Patterns()) == 0 {
		opts.Requirements = measure.DefaultRequirements()
	}
	if opts.Registry == nil {
		reg, err := pattern.DefaultRegistry(pattern.DefaultDetectorConfig(), opts.Extractor)
		if err != nil {
			return nil, fmt.Errorf("default registry: %w", err)
		}
		opts.Registry = reg
	}
	if opts.Aggregator == (aggregate.AggregatorConfig{}) {
		opts.Aggregator = aggregate.DefaultAggregatorConfig()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	strategy, err := ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
	}
	if strategy != StrategyRegistry && opts.Proposer == nil {
		return nil, fmt.Errorf("strategy %s: %w", strategy, ErrReasonerRequired)
	}
	if err := opts.Registry.CheckRequirements(opts.Requirements); err != nil {
		return nil, fmt.Errorf("registry and requirements out of sync: %w", err)
	}

	return &Pipeline{
		registry:   opts.Registry,
		aggregator: aggregate.NewAggregator(opts.Aggregator, opts.Logger.Named("aggregate")),
		gate:       gate.NewGate(opts.Gate, opts.Requirements, opts.Extractor),
		harness:    eval.NewEvalHarness(opts.Eval),
		strategy:   strategy,
		proposer:   opts.Proposer,
		supplier:   opts.Supplier,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}, nil
}

// #endregion pipeline

// #region run
// Run processes one snapshot. Only an unknown pattern, a failed supply or
// measurements still missing after supply return an error; the partial result
// is returned alongside it.
func (p *Pipeline) Run(ctx context.Context, reports []feature.AgentReport, transcript string) (Result, error) {
	res, err := p.run(ctx, reports, transcript)
	status := string(res.Status)
	if err != nil {
		status = "error"
	}
	p.metrics.Runs.WithLabelValues(status).Inc()
	return res, err
}

func (p *Pipeline) run(ctx context.Context, reports []feature.AgentReport, transcript string) (Result, error) {
	var res Result

	// 1. Aggregate.
	agg := p.aggregator.Aggregate(feature.Flatten(reports))
	res.Features = agg.Features
	res.Warnings = append(res.Warnings, agg.Warnings...)
	p.metrics.DroppedFeatures.Add(float64(agg.Dropped))
	p.metrics.ObserveClusters(agg.ClusterSizes)
	p.record(&res, logging.StageAggregate, "", agg.ClusterSizes, "ok",
		fmt.Sprintf("%d features from %d reports, %d dropped", len(agg.Features), len(reports), agg.Dropped))

	// 2. Detect.
	match, det, err := p.detect(ctx, agg.Features, transcript, &res)
	if err != nil {
		return res, err
	}
	if match == nil {
		p.record(&res, logging.StageDetect, "", nil, "no_match", "no detector matched")
		p.logger.Info("no pattern recognised", zap.Int("features", len(agg.Features)))
		res.Status = StatusNoPattern
		p.finish(&res, agg.Features, nil)
		return res, nil
	}
	res.Match = match
	p.metrics.PatternMatches.WithLabelValues(match.Pattern, match.Source).Inc()
	p.record(&res, logging.StageDetect, match.Pattern, match, "matched",
		fmt.Sprintf("%s via %s at %.2f", match.Pattern, match.Source, match.Confidence))
	p.logger.Info("pattern recognised",
		zap.String("pattern", match.Pattern),
		zap.String("source", match.Source),
		zap.Float64("confidence", match.Confidence))

	// 3. Gate.
	decision, err := p.gate.Evaluate(match.Pattern, match.Parameters, transcript)
	if err != nil {
		return res, fmt.Errorf("validate measurements: %w", err)
	}
	if decision.Action == gate.ActionNeedsInput {
		p.metrics.ObserveMissing(decision.Missing)
		p.logger.Warn("missing measurements",
			zap.String("pattern", match.Pattern),
			zap.Strings("missing", decision.Missing))
		if p.supplier == nil {
			res.Decision = &decision
			res.Status = StatusNeedsInput
			p.recordGate(&res, match, decision, nil)
			return res, nil
		}
		supplied, err := p.supplier.Supply(ctx, decision)
		if err != nil {
			res.Decision = &decision
			p.recordGate(&res, match, decision, nil)
			return res, fmt.Errorf("supply measurements: %w", err)
		}
		res.Supplied = supplied
		decision, err = p.gate.Resupply(decision, supplied)
		if err != nil {
			res.Decision = &decision
			p.recordGate(&res, match, decision, supplied)
			return res, err
		}
	}
	res.Decision = &decision
	p.recordGate(&res, match, decision, res.Supplied)

	// 4. Synthesize and filter.
	merged := *match
	merged.Parameters = make(map[string]float64, len(match.Parameters)+len(decision.Measurements))
	for k, v := range match.Parameters {
		merged.Parameters[k] = v
	}
	for k, v := range decision.Values() {
		merged.Parameters[k] = v
	}
	final, err := synthesize(det, agg.Features, merged)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: geometry not synthesized: %v", match.Pattern, err))
		p.logger.Warn("synthesis skipped", zap.String("pattern", match.Pattern), zap.Error(err))
		p.record(&res, logging.StageSynthesize, match.Pattern, nil, "skipped", err.Error())
		final = agg.Features
	} else {
		p.record(&res, logging.StageSynthesize, match.Pattern, nil, "ok",
			fmt.Sprintf("%d features after filtering", len(final)))
	}

	res.Status = StatusComplete
	p.finish(&res, final, &merged)
	return res, nil
}

// finish evaluates and emits the final feature list.
func (p *Pipeline) finish(res *Result, final []feature.AggregatedFeature, match *pattern.Match) {
	res.Features = final
	result := p.harness.Run(final, match)
	res.Eval = &result
	res.Warnings = append(res.Warnings, result.Warnings...)
	verdict := "passed"
	if !result.Passed {
		verdict = "failed"
		res.Warnings = append(res.Warnings, result.Reason)
		p.logger.Warn("evaluation failed", zap.String("reason", result.Reason))
	}
	name := ""
	if match != nil {
		name = match.Pattern
	}
	p.record(res, logging.StageEval, name, result.Metrics, verdict, result.Reason)

	emitted, warnings := Emit(final)
	res.Emitted = emitted
	res.Warnings = append(res.Warnings, warnings...)
}

// #endregion run

// #region detect
// detect applies the configured strategy. A reasoner failure is a warning; a
// reasoner match for an unregistered pattern is fatal.
func (p *Pipeline) detect(ctx context.Context, features []feature.AggregatedFeature, transcript string, res *Result) (*pattern.Match, pattern.Detector, error) {
	if p.strategy == StrategyRegistry {
		m, d := p.registry.Detect(features, transcript)
		return m, d, nil
	}

	m, err := p.proposer.Propose(ctx, p.registry.Catalog(), features, transcript)
	switch {
	case err != nil:
		res.Warnings = append(res.Warnings, fmt.Sprintf("reasoner: %v", err))
		p.logger.Warn("reasoner failed", zap.Error(err))
	case m != nil:
		d, verr := p.registry.Validate(*m)
		if errors.Is(verr, measure.ErrUnknownPattern) {
			return nil, nil, fmt.Errorf("reasoner proposal: %w", verr)
		}
		if verr != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("reasoner: %v", verr))
			break
		}
		if m.Source == "" {
			m.Source = pattern.SourceReasoner
		}
		return m, d, nil
	}

	if p.strategy == StrategyReasonerThenRegistry {
		m, d := p.registry.Detect(features, transcript)
		return m, d, nil
	}
	return nil, nil, nil
}

// #endregion detect

// #region synthesize
// synthesize applies the detector's geometry to a copy of the features and
// removes what it replaces.
func synthesize(det pattern.Detector, features []feature.AggregatedFeature, m pattern.Match) ([]feature.AggregatedFeature, error) {
	spec, err := det.GenerateGeometry(m)
	if err != nil {
		return nil, err
	}
	working := append([]feature.AggregatedFeature(nil), features...)

	switch spec.Mode {
	case pattern.NeedsBaseCircle, pattern.NeedsBaseRectangle:
		idx, ok := pattern.LocateBase(spec, working, m)
		if !ok {
			return nil, fmt.Errorf("%s: no base feature to rebuild", spec.Mode)
		}
		base := working[idx]
		sk, err := spec.Resolve(base)
		if err != nil {
			return nil, err
		}
		working[idx] = rebuild(base, spec, sk)
		return det.FilterFeatures(working, m), nil
	default:
		filtered := det.FilterFeatures(working, m)
		return append(filtered, spec.Features...), nil
	}
}

// rebuild swaps the base feature's geometry for the synthesized sketch.
func rebuild(base feature.AggregatedFeature, spec pattern.GeometrySpec, sk sketch.Sketch) feature.AggregatedFeature {
	base.Sketch = &sk
	switch spec.Mode {
	case pattern.NeedsBaseCircle:
		if d := spec.Params[measure.Diameter]; d > 0 {
			base.Shape.Diameter = d
		}
		base.Shape.Kind = feature.ChordCut
		base.Shape.FlatToFlat = spec.Params[measure.FlatToFlat]
	case pattern.NeedsBaseRectangle:
		base.Shape.Kind = feature.Slot
		base.Shape.Width = spec.Params[measure.Width]
		base.Shape.Length = spec.Params[measure.Length]
		base.Shape.Orientation = spec.Params[pattern.ParamOrientation]
	}
	return base
}

// #endregion synthesize

// #region provenance
func (p *Pipeline) record(res *Result, stage, patternName string, payload any, decision, reason string) {
	entry := logging.ProvenanceEntry{Stage: stage, Pattern: patternName, Decision: decision, Reason: reason}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			entry.PayloadJSON = string(data)
		}
	}
	res.Provenance = append(res.Provenance, entry)
}

func (p *Pipeline) recordGate(res *Result, m *pattern.Match, d gate.Decision, supplied map[string]float64) {
	rec := logging.GateRecord{
		Pattern:    m.Pattern,
		Confidence: m.Confidence,
		Source:     m.Source,
		Params:     m.Parameters,
		Required:   d.Required,
		Missing:    d.Missing,
		Supplied:   supplied,
		Action:     string(d.Action),
		Reason:     d.Reason,
	}
	p.record(res, logging.StageGate, m.Pattern, rec, string(d.Action), d.Reason)
}

// #endregion provenance
