package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neomorfeo/farmconf/internal/app"
)

func newExtensionsCmd(o *options) *cobra.Command {
	var (
		req       app.Request
		manifests bool
	)

	cmd := &cobra.Command{
		Use:   "extensions",
		Short: "List a wiki's active extensions",
		Long: `List the extensions a wiki runs, one per line in declaration order.
With --manifests each name is followed by the manifest registering it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.CLI = true
			return runExtensions(cmd.Context(), o, req, manifests)
		},
	}

	cmd.Flags().StringVar(&req.Wiki, "wiki", "", "Database name (required)")
	cmd.Flags().StringVar(&req.Version, "version", "", "Code version to resolve against")
	cmd.Flags().BoolVar(&manifests, "manifests", false, "Print manifest paths")
	_ = cmd.MarkFlagRequired("wiki")

	return cmd
}

func runExtensions(ctx context.Context, o *options, req app.Request, manifests bool) error {
	c := newComponents(o.cfg, o.logger)
	defer c.stop()

	rc := app.NewRequestContext(req)
	set, err := c.extensions.Active(ctx, rc)
	if err != nil {
		return err
	}
	names := set.Names()

	paths := map[string]string{}
	if manifests {
		version, err := c.directory.Version(ctx, rc, req.Wiki)
		if err != nil {
			return err
		}
		if paths, err = c.manifests.Manifests(ctx, version, names); err != nil {
			return err
		}
	}

	for _, name := range names {
		if path, ok := paths[name]; ok {
			fmt.Fprintf(o.out, "%s\t%s\n", name, path)
			continue
		}
		fmt.Fprintln(o.out, name)
	}
	return nil
}
