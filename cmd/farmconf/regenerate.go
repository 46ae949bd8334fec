package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/neomorfeo/farmconf/internal/app"
)

func newRegenerateCmd(o *options) *cobra.Command {
	var farm string

	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Rebuild list files from the registry",
		Long: `Rebuild the active, databases, deleted and per-version list files of one
farm, or of every farm when --farm is omitted. Runs in the foreground.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRegenerate(cmd.Context(), o, farm)
		},
	}

	cmd.Flags().StringVar(&farm, "farm", "", "Farm name (omit for all farms)")

	return cmd
}

func runRegenerate(ctx context.Context, o *options, farm string) error {
	c := newComponents(o.cfg, o.logger)
	defer c.stop()

	repo, registry, err := openRegistry(o.cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	generator := app.NewListGenerator(registry, c.lists, c.farms, o.logger)
	if farm != "" {
		return generator.Regenerate(ctx, farm)
	}
	return generator.RegenerateAll(ctx)
}
