package pipeline

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/recad/go-engine/internal/eval"
	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/gate"
	"github.com/danielpatrickdp/recad/go-engine/internal/logging"
	"github.com/danielpatrickdp/recad/go-engine/internal/pattern"
)

// #region strategy
// Strategy selects where pattern matches come from.
type Strategy string

const (
	StrategyRegistry             Strategy = "registry"
	StrategyReasoner             Strategy = "reasoner"
	StrategyReasonerThenRegistry Strategy = "reasoner_then_registry"
)

// ParseStrategy validates a strategy name; empty means registry.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyRegistry:
		return StrategyRegistry, nil
	case StrategyReasoner, StrategyReasonerThenRegistry:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown detection strategy %q", s)
	}
}

// #endregion strategy

// #region status
// Status is the outcome of one run.
type Status string

const (
	StatusComplete   Status = "complete"
	StatusNeedsInput Status = "needs_input"
	StatusNoPattern  Status = "no_pattern"
)

// #endregion status

// #region proposer
// Proposer names a pattern from outside the registry, e.g. a remote reasoner.
// A nil match with a nil error means no proposal.
type Proposer interface {
	Propose(ctx context.Context, catalog []pattern.CatalogEntry, features []feature.AggregatedFeature, transcript string) (*pattern.Match, error)
}

// #endregion proposer

// #region result
// Result is the output of one pipeline run.
type Result struct {
	Status     Status                      `json:"status"`
	Features   []feature.AggregatedFeature `json:"features"`
	Emitted    []EmittedFeature            `json:"emitted,omitempty"`
	Match      *pattern.Match              `json:"match,omitempty"`
	Decision   *gate.Decision              `json:"decision,omitempty"`
	Supplied   map[string]float64          `json:"supplied,omitempty"`
	Eval       *eval.EvalResult            `json:"eval,omitempty"`
	Warnings   []string                    `json:"warnings,omitempty"`
	Provenance []logging.ProvenanceEntry   `json:"-"`
}

// Confidence returns the match confidence, or 0 without a match.
func (r Result) Confidence() float64 {
	if r.Match == nil {
		return 0
	}
	return r.Match.Confidence
}

// PatternName returns the matched pattern, or "" without a match.
func (r Result) PatternName() string {
	if r.Match == nil {
		return ""
	}
	return r.Match.Pattern
}

// #endregion result
