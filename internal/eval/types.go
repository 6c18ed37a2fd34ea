package eval

// #region eval-config
// EvalConfig holds thresholds for post-synthesis validation.
type EvalConfig struct {
	MaxResidualCuts int  // warn when more cuts than this survive filtering
	StrictStructure bool // promote chord-cut structure warnings to failures
}

// DefaultEvalConfig keeps structure checks informational.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxResidualCuts: 0,
		StrictStructure: false,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of post-synthesis validation.
type EvalResult struct {
	Passed   bool         `json:"passed"`
	Metrics  []EvalMetric `json:"metrics"`
	Warnings []string     `json:"warnings,omitempty"`
	Reason   string       `json:"reason"`
}

// Metric returns the named metric.
func (r EvalResult) Metric(name string) (EvalMetric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return EvalMetric{}, false
}

// #endregion eval-result
