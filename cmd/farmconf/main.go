// Command farmconf resolves wiki farm configuration and serves it over HTTP.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/neomorfeo/farmconf/internal/adapter/otel"
	"github.com/neomorfeo/farmconf/internal/config"
)

var version = "dev"

// options carries what the root command loads for every subcommand.
type options struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	out        io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	o := &options{out: out}

	root := &cobra.Command{
		Use:   "farmconf",
		Short: "Wiki farm configuration resolver",
		Long: `farmconf maps requests to wikis, computes each wiki's settings from the
farm's base files and per-wiki overrides, and caches the result.

Configuration is read from farmconf.yaml and FARMCONF_* environment variables.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			o.cfg = cfg
			o.logger = otel.NewLogger(os.Stderr, otel.ParseLevel(cfg.LogLevel), otel.ConfigFromEnv())
			slog.SetDefault(o.logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", "", "Config file (default ./farmconf.yaml or /etc/farmconf/farmconf.yaml)")

	root.AddCommand(newServeCmd(o))
	root.AddCommand(newResolveCmd(o))
	root.AddCommand(newExtensionsCmd(o))
	root.AddCommand(newRegenerateCmd(o))

	return root
}
