package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
	"github.com/danielpatrickdp/recad/go-engine/internal/pattern"
)

func newCatalogCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the registered patterns with their indicators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := pattern.DefaultRegistry(a.cfg.DetectorConfig(), measure.NewRegexExtractor())
			if err != nil {
				return fmt.Errorf("build registry: %w", err)
			}
			return pattern.WriteCatalog(cmd.OutOrStdout(), reg.Catalog(), format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}
