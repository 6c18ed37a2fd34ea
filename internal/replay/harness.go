package replay

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/danielpatrickdp/recad/go-engine/internal/pipeline"
)

// #region types
// ReplayResult captures the outcome of replaying one fixture through the pipeline.
type ReplayResult struct {
	Name        string
	Status      string // pipeline status, or "error"
	Pattern     string
	Missing     []string
	Features    int
	Constraints int
	Passed      bool
	Mismatches  []string
	Err         error
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	Total    int
	Passed   int
	Failed   int
	Errors   int
	ByStatus map[string]int
}

// #endregion types

// #region replay
// Replay runs each fixture through a fresh pipeline built from base and
// compares the outcome with the fixture's expectation.
func Replay(ctx context.Context, fixtures []*Fixture, base pipeline.Options) []ReplayResult {
	results := make([]ReplayResult, 0, len(fixtures))
	for _, f := range fixtures {
		results = append(results, replayOne(ctx, f, base))
	}
	return results
}

func replayOne(ctx context.Context, f *Fixture, base pipeline.Options) ReplayResult {
	r := ReplayResult{Name: f.Name}

	opts, err := f.ToOptions(base)
	if err != nil {
		return failed(r, err)
	}
	p, err := pipeline.New(opts)
	if err != nil {
		return failed(r, err)
	}
	res, err := p.Run(ctx, f.Reports, f.Transcript)
	if err != nil {
		return failed(r, err)
	}

	r.Status = string(res.Status)
	r.Pattern = res.PatternName()
	if res.Decision != nil {
		r.Missing = res.Decision.Missing
	}
	r.Features = len(res.Emitted)
	for _, e := range res.Emitted {
		r.Constraints += len(e.Sketch.Constraints)
	}

	exp := f.Expected
	if r.Status != exp.Status {
		r.Mismatches = append(r.Mismatches, fmt.Sprintf("status: got %s, want %s", r.Status, exp.Status))
	}
	if exp.Pattern != "" && r.Pattern != exp.Pattern {
		r.Mismatches = append(r.Mismatches, fmt.Sprintf("pattern: got %q, want %q", r.Pattern, exp.Pattern))
	}
	if len(exp.Missing) > 0 && strings.Join(r.Missing, ",") != strings.Join(exp.Missing, ",") {
		r.Mismatches = append(r.Mismatches, fmt.Sprintf("missing: got %v, want %v", r.Missing, exp.Missing))
	}
	if exp.Features > 0 && r.Features != exp.Features {
		r.Mismatches = append(r.Mismatches, fmt.Sprintf("features: got %d, want %d", r.Features, exp.Features))
	}
	if exp.Constraints > 0 && r.Constraints != exp.Constraints {
		r.Mismatches = append(r.Mismatches, fmt.Sprintf("constraints: got %d, want %d", r.Constraints, exp.Constraints))
	}
	r.Passed = len(r.Mismatches) == 0
	return r
}

func failed(r ReplayResult, err error) ReplayResult {
	r.Status = "error"
	r.Err = err
	r.Mismatches = append(r.Mismatches, err.Error())
	return r
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{
		Total:    len(results),
		ByStatus: make(map[string]int),
	}
	for _, r := range results {
		s.ByStatus[r.Status]++
		switch {
		case r.Err != nil:
			s.Errors++
			s.Failed++
		case r.Passed:
			s.Passed++
		default:
			s.Failed++
		}
	}
	return s
}

// Statuses lists the statuses seen, sorted.
func (s ReplaySummary) Statuses() []string {
	out := make([]string, 0, len(s.ByStatus))
	for k := range s.ByStatus {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// #endregion replay
