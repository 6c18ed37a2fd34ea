package aggregate

import (
	"fmt"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
)

// #region policy
// GeometryPolicy selects which member's sketch a multi-primitive cluster keeps.
// Constraint graphs are never interpolated.
type GeometryPolicy string

const (
	PolicyFirstMember       GeometryPolicy = "first_member"
	PolicyHighestConfidence GeometryPolicy = "highest_confidence"
)

// ParseGeometryPolicy validates a policy name; empty means first_member.
func ParseGeometryPolicy(s string) (GeometryPolicy, error) {
	switch GeometryPolicy(s) {
	case "", PolicyFirstMember:
		return PolicyFirstMember, nil
	case PolicyHighestConfidence:
		return PolicyHighestConfidence, nil
	default:
		return "", fmt.Errorf("unknown multi-geometry policy %q", s)
	}
}

// #endregion policy

// #region aggregator-config
// AggregatorConfig holds clustering thresholds.
type AggregatorConfig struct {
	RelativeTolerance float64        // max relative difference per dimension
	CenterTolerance   float64        // max center offset in mm
	Policy            GeometryPolicy // multi-primitive representative
}

// DefaultAggregatorConfig returns the standard tolerances.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		RelativeTolerance: 0.10,
		CenterTolerance:   1.0,
		Policy:            PolicyFirstMember,
	}
}

// #endregion aggregator-config

// #region result
// Result is the output of one aggregation pass.
type Result struct {
	Features     []feature.AggregatedFeature // Extrudes first, then Cuts
	Warnings     []string
	Dropped      int   // raw features with an unrecognised type
	ClusterSizes []int // support count per output feature
}

// #endregion result
