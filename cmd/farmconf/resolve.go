package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/neomorfeo/farmconf/internal/app"
	"github.com/neomorfeo/farmconf/internal/domain"
)

// resolution is what resolve prints.
type resolution struct {
	DBName   string                 `json:"dbname"`
	Farm     string                 `json:"farm"`
	Cluster  string                 `json:"cluster,omitempty"`
	Status   string                 `json:"status"`
	URL      string                 `json:"url"`
	SiteName string                 `json:"sitename"`
	Version  string                 `json:"version"`
	Config   *domain.ConfigSnapshot `json:"config,omitempty"`
}

func newResolveCmd(o *options) *cobra.Command {
	var (
		req     app.Request
		globals bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a host or wiki",
		Long: `Resolve a host name or database name to a wiki and print its identity as
JSON. Deleted wikis are visible and maintenance is ignored, as for any
command-line request.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.CLI = true
			return runResolve(cmd.Context(), o, req, globals)
		},
	}

	cmd.Flags().StringVar(&req.Host, "host", "", "Request host name")
	cmd.Flags().StringVar(&req.Wiki, "wiki", "", "Database name")
	cmd.Flags().StringVar(&req.Version, "version", "", "Code version to resolve against")
	cmd.Flags().BoolVar(&globals, "globals", false, "Include the materialized configuration")
	cmd.MarkFlagsOneRequired("host", "wiki")
	cmd.MarkFlagsMutuallyExclusive("host", "wiki")

	return cmd
}

func runResolve(ctx context.Context, o *options, req app.Request, globals bool) error {
	c := newComponents(o.cfg, o.logger)
	defer c.stop()

	rc := app.NewRequestContext(req)
	dbname, err := c.directory.Resolve(ctx, rc)
	if err != nil {
		return err
	}

	farm, err := c.farms.ForWiki(dbname)
	if err != nil {
		return err
	}
	out := resolution{DBName: dbname, Farm: farm.Name, Status: string(domain.StatusActive)}
	if wiki, err := c.directory.Wiki(ctx, rc, dbname); err == nil {
		out.Cluster = wiki.Cluster
		out.Status = string(wiki.Status)
	}
	if out.URL, err = c.directory.URL(ctx, rc, dbname); err != nil {
		return err
	}
	if out.SiteName, err = c.directory.SiteName(ctx, rc, dbname); err != nil {
		return err
	}
	if out.Version, err = c.directory.Version(ctx, rc, dbname); err != nil {
		return err
	}

	if globals {
		snap, err := c.snapshots.Get(ctx, rc)
		if err != nil {
			return err
		}
		out.Config = &snap
	}

	enc := json.NewEncoder(o.out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
