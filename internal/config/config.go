package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/recad/go-engine/internal/aggregate"
	"github.com/danielpatrickdp/recad/go-engine/internal/gate"
	"github.com/danielpatrickdp/recad/go-engine/internal/logging"
	"github.com/danielpatrickdp/recad/go-engine/internal/pattern"
	"github.com/danielpatrickdp/recad/go-engine/internal/pipeline"
)

// Missing-measurement handling modes.
const (
	OnMissingPrompt   = "prompt"
	OnMissingDefaults = "defaults"
	OnMissingHalt     = "halt"
)

// #region config
// Config is the full engine configuration.
type Config struct {
	Aggregation  AggregationConfig  `koanf:"aggregation"`
	Detection    DetectionConfig    `koanf:"detection"`
	Measurements MeasurementsConfig `koanf:"measurements"`
	Store        StoreConfig        `koanf:"store"`
	Logging      logging.Config     `koanf:"logging"`
}

// AggregationConfig tunes clustering.
type AggregationConfig struct {
	RelativeTolerance   float64 `koanf:"relative_tolerance"`
	CenterTolerance     float64 `koanf:"center_tolerance"`
	MultiGeometryPolicy string  `koanf:"multi_geometry_policy"`
}

// DetectionConfig selects the detection strategy and detector thresholds.
type DetectionConfig struct {
	Strategy           string        `koanf:"strategy"`
	SlotMinAspectRatio float64       `koanf:"slot_min_aspect_ratio"`
	ReasonerAddr       string        `koanf:"reasoner_addr"`
	ReasonerTimeout    time.Duration `koanf:"reasoner_timeout"`
}

// MeasurementsConfig controls what happens when the gate reports gaps.
type MeasurementsConfig struct {
	OnMissing   string             `koanf:"on_missing"`
	PreferAudio bool               `koanf:"prefer_audio"`
	Defaults    map[string]float64 `koanf:"defaults"`
}

// StoreConfig locates the run database.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	agg := aggregate.DefaultAggregatorConfig()
	det := pattern.DefaultDetectorConfig()
	return Config{
		Aggregation: AggregationConfig{
			RelativeTolerance:   agg.RelativeTolerance,
			CenterTolerance:     agg.CenterTolerance,
			MultiGeometryPolicy: string(agg.Policy),
		},
		Detection: DetectionConfig{
			Strategy:           string(pipeline.StrategyRegistry),
			SlotMinAspectRatio: det.SlotMinAspectRatio,
			ReasonerTimeout:    5 * time.Second,
		},
		Measurements: MeasurementsConfig{
			OnMissing: OnMissingPrompt,
			Defaults:  map[string]float64{},
		},
		Store:   StoreConfig{Path: "recad.db"},
		Logging: logging.DefaultConfig(),
	}
}

// #endregion config

// #region validate
// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Aggregation.RelativeTolerance <= 0 || c.Aggregation.RelativeTolerance >= 1 {
		errs = append(errs, fmt.Errorf("aggregation.relative_tolerance %v: must be in (0, 1)", c.Aggregation.RelativeTolerance))
	}
	if c.Aggregation.CenterTolerance < 0 {
		errs = append(errs, fmt.Errorf("aggregation.center_tolerance %v: must not be negative", c.Aggregation.CenterTolerance))
	}
	if _, err := aggregate.ParseGeometryPolicy(c.Aggregation.MultiGeometryPolicy); err != nil {
		errs = append(errs, fmt.Errorf("aggregation.multi_geometry_policy: %w", err))
	}
	strategy, err := pipeline.ParseStrategy(c.Detection.Strategy)
	if err != nil {
		errs = append(errs, fmt.Errorf("detection.strategy: %w", err))
	} else if strategy != pipeline.StrategyRegistry && c.Detection.ReasonerAddr == "" {
		errs = append(errs, fmt.Errorf("detection.reasoner_addr: required for strategy %s", strategy))
	}
	if c.Detection.SlotMinAspectRatio < 1 {
		errs = append(errs, fmt.Errorf("detection.slot_min_aspect_ratio %v: must be >= 1", c.Detection.SlotMinAspectRatio))
	}
	if c.Detection.ReasonerTimeout <= 0 {
		errs = append(errs, fmt.Errorf("detection.reasoner_timeout %v: must be positive", c.Detection.ReasonerTimeout))
	}
	switch c.Measurements.OnMissing {
	case OnMissingPrompt, OnMissingDefaults, OnMissingHalt:
	default:
		errs = append(errs, fmt.Errorf("measurements.on_missing %q: must be prompt, defaults or halt", c.Measurements.OnMissing))
	}
	for name, v := range c.Measurements.Defaults {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("measurements.defaults.%s %v: must be positive", name, v))
		}
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path: required"))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// #endregion validate

// #region conversions
// AggregatorConfig converts to the aggregator's config. Call after Validate.
func (c Config) AggregatorConfig() aggregate.AggregatorConfig {
	policy, _ := aggregate.ParseGeometryPolicy(c.Aggregation.MultiGeometryPolicy)
	return aggregate.AggregatorConfig{
		RelativeTolerance: c.Aggregation.RelativeTolerance,
		CenterTolerance:   c.Aggregation.CenterTolerance,
		Policy:            policy,
	}
}

// DetectorConfig converts to the detector thresholds.
func (c Config) DetectorConfig() pattern.DetectorConfig {
	det := pattern.DefaultDetectorConfig()
	det.SlotMinAspectRatio = c.Detection.SlotMinAspectRatio
	return det
}

// GateConfig converts to the gate's config.
func (c Config) GateConfig() gate.GateConfig {
	return gate.GateConfig{PreferAudio: c.Measurements.PreferAudio}
}

// #endregion conversions
