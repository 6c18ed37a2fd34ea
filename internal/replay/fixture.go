package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielpatrickdp/recad/go-engine/internal/aggregate"
	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/gate"
	"github.com/danielpatrickdp/recad/go-engine/internal/pipeline"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: one snapshot of
// agent reports plus the outcome it must produce.
type Fixture struct {
	Name        string                `json:"-"`
	Description string                `json:"description"`
	Transcript  string                `json:"transcript"`
	Supplied    map[string]float64    `json:"supplied,omitempty"`
	Reports     []feature.AgentReport `json:"reports"`
	Config      FixtureConfig         `json:"config"`
	Expected    FixtureExpected       `json:"expected"`
}

// FixtureConfig overrides the aggregation and gate settings for one fixture.
type FixtureConfig struct {
	RelativeTolerance   float64 `json:"relative_tolerance,omitempty"`
	CenterTolerance     float64 `json:"center_tolerance,omitempty"`
	MultiGeometryPolicy string  `json:"multi_geometry_policy,omitempty"`
	PreferAudio         bool    `json:"prefer_audio,omitempty"`
}

// FixtureExpected is the outcome a fixture asserts. Zero fields are not checked,
// except Status which is always compared.
type FixtureExpected struct {
	Status      string   `json:"status"`
	Pattern     string   `json:"pattern,omitempty"`
	Missing     []string `json:"missing,omitempty"`
	Features    int      `json:"features,omitempty"`
	Constraints int      `json:"constraints,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file. The fixture is named after the file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &f, nil
}

// ToOptions overlays the fixture's settings on base. Supplied values become a
// defaults supplier; without them the run stops at needs_input.
func (f *Fixture) ToOptions(base pipeline.Options) (pipeline.Options, error) {
	opts := base
	agg := aggregate.DefaultAggregatorConfig()
	if f.Config.RelativeTolerance > 0 {
		agg.RelativeTolerance = f.Config.RelativeTolerance
	}
	if f.Config.CenterTolerance > 0 {
		agg.CenterTolerance = f.Config.CenterTolerance
	}
	policy, err := aggregate.ParseGeometryPolicy(f.Config.MultiGeometryPolicy)
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("fixture %s: %w", f.Name, err)
	}
	agg.Policy = policy
	opts.Aggregator = agg
	opts.Gate = gate.GateConfig{PreferAudio: f.Config.PreferAudio}
	opts.Supplier = nil
	if f.Supplied != nil {
		opts.Supplier = gate.DefaultsSupplier{Values: f.Supplied}
	}
	return opts, nil
}

// #endregion fixture-loader
