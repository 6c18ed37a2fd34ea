package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/recad/go-engine/internal/pipeline"
	"github.com/danielpatrickdp/recad/go-engine/internal/replay"
)

var errReplayFailed = errors.New("replay failed")

func newReplayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replay FIXTURE.json [FIXTURE.json...]",
		Short: "Replay recorded fixtures and compare each outcome with its expectation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixtures := make([]*replay.Fixture, 0, len(args))
			for _, path := range args {
				f, err := replay.LoadFixture(path)
				if err != nil {
					return err
				}
				fixtures = append(fixtures, f)
			}

			base := pipeline.Options{Logger: a.logger.Named("replay")}
			results := replay.Replay(cmd.Context(), fixtures, base)

			w := cmd.OutOrStdout()
			for _, r := range results {
				mark := "PASS"
				if !r.Passed {
					mark = "FAIL"
				}
				fmt.Fprintf(w, "%s  %-28s %-12s %-20s features=%d constraints=%d\n",
					mark, r.Name, r.Status, dash(r.Pattern), r.Features, r.Constraints)
				for _, m := range r.Mismatches {
					fmt.Fprintf(w, "      %s\n", m)
				}
			}

			s := replay.Summarize(results)
			parts := make([]string, 0, len(s.ByStatus))
			for _, st := range s.Statuses() {
				parts = append(parts, fmt.Sprintf("%s=%d", st, s.ByStatus[st]))
			}
			fmt.Fprintf(w, "\n%d fixtures: %d passed, %d failed (%d errors) [%s]\n",
				s.Total, s.Passed, s.Failed, s.Errors, strings.Join(parts, " "))
			if s.Failed > 0 {
				return fmt.Errorf("%w: %d of %d fixtures", errReplayFailed, s.Failed, s.Total)
			}
			return nil
		},
	}
}
