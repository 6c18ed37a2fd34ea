package feature

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
)

// DefaultLoadConcurrency bounds concurrent report file reads.
const DefaultLoadConcurrency = 4

// #region load-reports
// LoadReports reads report files concurrently. Reports keep the order of paths,
// then the order inside each file.
func LoadReports(ctx context.Context, paths ...string) ([]AgentReport, error) {
	perFile := make([][]AgentReport, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultLoadConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open report %s: %w", path, err)
			}
			defer f.Close()

			reports, err := DecodeReports(f)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			perFile[i] = reports
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []AgentReport
	for _, reports := range perFile {
		out = append(out, reports...)
	}
	return out, nil
}

// #endregion load-reports
