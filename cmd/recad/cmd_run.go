package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/recad/go-engine/internal/config"
	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/gate"
	"github.com/danielpatrickdp/recad/go-engine/internal/logging"
	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
	"github.com/danielpatrickdp/recad/go-engine/internal/metrics"
	"github.com/danielpatrickdp/recad/go-engine/internal/pattern"
	"github.com/danielpatrickdp/recad/go-engine/internal/pipeline"
	"github.com/danielpatrickdp/recad/go-engine/internal/reasoner"
	"github.com/danielpatrickdp/recad/go-engine/internal/store"
)

type runFlags struct {
	transcript     string
	transcriptFile string
	out            string
	onMissing      string
	noStore        bool
	full           bool
	metricsFile    string
}

func newRunCmd(a *app) *cobra.Command {
	var fl runFlags
	cmd := &cobra.Command{
		Use:   "run REPORT.json [REPORT.json...]",
		Short: "Aggregate agent reports, recognise a pattern and emit constrained sketches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, a, fl, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&fl.transcript, "transcript", "", "narration text")
	f.StringVar(&fl.transcriptFile, "transcript-file", "", "file holding the narration text")
	f.StringVarP(&fl.out, "out", "o", "", "write emitted features here instead of stdout")
	f.StringVar(&fl.onMissing, "on-missing", "", "override measurements.on_missing (prompt, defaults, halt)")
	f.BoolVar(&fl.noStore, "no-store", false, "do not persist the run")
	f.BoolVar(&fl.full, "full", false, "write the whole result instead of only the emitted features")
	f.StringVar(&fl.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file")
	cmd.MarkFlagsMutuallyExclusive("transcript", "transcript-file")
	return cmd
}

// #region run
func runPipeline(cmd *cobra.Command, a *app, fl runFlags, paths []string) error {
	ctx := cmd.Context()
	cfg := a.cfg
	if fl.onMissing != "" {
		cfg.Measurements.OnMissing = fl.onMissing
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("--on-missing: %w", err)
		}
	}

	reports, err := feature.LoadReports(ctx, paths...)
	if err != nil {
		return err
	}
	transcript := fl.transcript
	if fl.transcriptFile != "" {
		if transcript, err = measure.LoadTranscript(fl.transcriptFile); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	opts, closeFn, err := pipelineOptions(cfg, a.logger, supplierFor(cmd, cfg), metrics.New(reg))
	if err != nil {
		return err
	}
	defer closeFn()

	p, err := pipeline.New(opts)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	res, runErr := p.Run(ctx, reports, transcript)
	if fl.metricsFile != "" {
		if err := prometheus.WriteToTextfile(fl.metricsFile, reg); err != nil {
			a.logger.Warn("write metrics", zap.String("path", fl.metricsFile), zap.Error(err))
		}
	}
	if runErr != nil {
		return fmt.Errorf("run: %w", runErr)
	}
	for _, w := range res.Warnings {
		a.logger.Warn("pipeline warning", zap.String("warning", w))
	}

	runID := ""
	if !fl.noStore {
		if runID, err = persist(cfg.Store.Path, res, transcript); err != nil {
			return err
		}
	}
	a.logger.Info("run finished",
		zap.String("run_id", runID),
		zap.String("status", string(res.Status)),
		zap.String("pattern", res.PatternName()),
		zap.Float64("confidence", res.Confidence()),
		zap.Int("features", len(res.Emitted)),
	)

	if res.Status == pipeline.StatusNeedsInput {
		printMissing(cmd.ErrOrStderr(), *res.Decision)
		return fmt.Errorf("run %s: %w", res.PatternName(), res.Decision.Err())
	}
	return writeResult(cmd.OutOrStdout(), fl, res)
}

// pipelineOptions wires the pipeline from config. The returned func releases
// the reasoner connection, if one was opened.
func pipelineOptions(cfg config.Config, logger *zap.Logger, sup gate.Supplier, m *metrics.Metrics) (pipeline.Options, func(), error) {
	extractor := measure.NewRegexExtractor()
	registry, err := pattern.DefaultRegistry(cfg.DetectorConfig(), extractor)
	if err != nil {
		return pipeline.Options{}, nil, fmt.Errorf("build registry: %w", err)
	}
	strategy, err := pipeline.ParseStrategy(cfg.Detection.Strategy)
	if err != nil {
		return pipeline.Options{}, nil, err
	}
	opts := pipeline.Options{
		Registry:     registry,
		Requirements: measure.DefaultRequirements(),
		Extractor:    extractor,
		Aggregator:   cfg.AggregatorConfig(),
		Gate:         cfg.GateConfig(),
		Strategy:     strategy,
		Supplier:     sup,
		Logger:       logger,
		Metrics:      m,
	}
	closeFn := func() {}
	if strategy != pipeline.StrategyRegistry {
		client, err := reasoner.NewClient(cfg.Detection.ReasonerAddr, cfg.Detection.ReasonerTimeout)
		if err != nil {
			return pipeline.Options{}, nil, fmt.Errorf("connect reasoner: %w", err)
		}
		opts.Proposer = client
		closeFn = func() { _ = client.Close() }
	}
	return opts, closeFn, nil
}

func supplierFor(cmd *cobra.Command, cfg config.Config) gate.Supplier {
	switch cfg.Measurements.OnMissing {
	case config.OnMissingPrompt:
		return gate.NewPromptSupplier(cmd.InOrStdin(), cmd.ErrOrStderr())
	case config.OnMissingDefaults:
		return gate.DefaultsSupplier{Values: cfg.Measurements.Defaults}
	default:
		return nil
	}
}

// #endregion run

// #region persist
// persist saves the run row first; provenance rows reference it.
func persist(path string, res pipeline.Result, transcript string) (string, error) {
	st, err := store.NewStore(path)
	if err != nil {
		return "", fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	resultJSON, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	rec := store.RunRecord{
		Status:     string(res.Status),
		Pattern:    res.PatternName(),
		Confidence: res.Confidence(),
		Transcript: transcript,
		ResultJSON: string(resultJSON),
	}
	if res.Match != nil {
		rec.Source = res.Match.Source
	}
	rec, err = st.SaveRun(rec)
	if err != nil {
		return "", err
	}
	for _, entry := range res.Provenance {
		entry.RunID = rec.RunID
		if err := logging.LogDecision(st.DB(), entry); err != nil {
			return rec.RunID, fmt.Errorf("log provenance: %w", err)
		}
	}
	return rec.RunID, nil
}

// #endregion persist

// #region output
func writeResult(stdout io.Writer, fl runFlags, res pipeline.Result) error {
	w := stdout
	if fl.out != "" {
		f, err := os.Create(fl.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	var v any = res.Emitted
	if fl.full {
		v = res
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func printMissing(w io.Writer, d gate.Decision) {
	fmt.Fprintf(w, "Padrão %s precisa de medidas:\n", d.Pattern)
	for _, name := range d.Missing {
		fmt.Fprintf(w, "  - %s (%s)\n", gate.DisplayName(name), name)
	}
}

// #endregion output
