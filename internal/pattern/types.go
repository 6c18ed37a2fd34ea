package pattern

import (
	"errors"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
)

// ErrMissingParameter is returned by GenerateGeometry when a match lacks a value it needs.
var ErrMissingParameter = errors.New("match missing parameter")

// #region match
// Match sources.
const (
	SourceExplicit   = "explicit"
	SourceStructural = "structural"
	SourceTranscript = "transcript"
	SourceReasoner   = "reasoner"
)

// Match is a recognised manufacturing pattern. Consumed lists indices into the
// aggregated feature slice the detector folded into the match.
type Match struct {
	Pattern    string             `json:"pattern_name"`
	Confidence float64            `json:"confidence"`
	Parameters map[string]float64 `json:"parameters"`
	Source     string             `json:"source"`
	Consumed   []int              `json:"consumed,omitempty"`
}

// Param returns a parameter and whether it is set.
func (m Match) Param(name string) (float64, bool) {
	v, ok := m.Parameters[name]
	return v, ok
}

// #endregion match

// #region geometry-spec
// GeometryMode tells the caller how to apply a GeometrySpec.
type GeometryMode string

const (
	// NeedsBaseCircle rebuilds the base Circle extrude's sketch in place.
	NeedsBaseCircle GeometryMode = "needs_base_circle"
	// NeedsBaseRectangle rebuilds a consumed Rectangle cut's sketch in place.
	NeedsBaseRectangle GeometryMode = "needs_base_rectangle"
	// SelfContained appends ready-made features.
	SelfContained GeometryMode = "self_contained"
)

// GeometrySpec is the synthesizer output for one match.
type GeometrySpec struct {
	Mode     GeometryMode
	Pattern  string
	Params   map[string]float64
	Features []feature.AggregatedFeature // SelfContained only
}

// #endregion geometry-spec

// #region detector
// Indicators describe what evidence a detector looks for.
type Indicators struct {
	Visual   []string `json:"visual" yaml:"visual"`
	Audio    []string `json:"audio" yaml:"audio"`
	Features []string `json:"features" yaml:"features"`
}

// Detector recognises one pattern, synthesizes its geometry and filters the
// features the synthesized geometry replaces. Detect must be deterministic and
// return nil when the pattern is absent or implausible.
type Detector interface {
	Name() string
	Priority() int
	Description() string
	Indicators() Indicators
	Detect(features []feature.AggregatedFeature, transcript string) *Match
	GenerateGeometry(m Match) (GeometrySpec, error)
	FilterFeatures(features []feature.AggregatedFeature, m Match) []feature.AggregatedFeature
}

// CatalogEntry is the exported description of one detector.
type CatalogEntry struct {
	Name        string     `json:"name" yaml:"name"`
	Priority    int        `json:"priority" yaml:"priority"`
	Description string     `json:"description" yaml:"description"`
	Indicators  Indicators `json:"indicators" yaml:"indicators"`
}

// #endregion detector

// #region detector-config
// DetectorConfig holds the thresholds shared by the built-in detectors.
type DetectorConfig struct {
	CenterTolerance      float64 // mm between centers treated as shared
	SlotMinAspectRatio   float64 // length/width needed for a rectangle to read as a slot
	PolarRadiusTolerance float64 // relative spread allowed around the pitch radius
	PolarAngleTolerance  float64 // degrees allowed off even spacing
	PolarMinHoles        int
}

// DefaultDetectorConfig returns the standard detection thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		CenterTolerance:      0.5,
		SlotMinAspectRatio:   2.0,
		PolarRadiusTolerance: 0.05,
		PolarAngleTolerance:  5.0,
		PolarMinHoles:        3,
	}
}

// #endregion detector-config
