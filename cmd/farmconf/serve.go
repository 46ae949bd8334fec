package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"github.com/spf13/cobra"

	"github.com/neomorfeo/farmconf/internal/adapter/fsm"
	handler "github.com/neomorfeo/farmconf/internal/adapter/http"
	"github.com/neomorfeo/farmconf/internal/adapter/otel"
	riveradapter "github.com/neomorfeo/farmconf/internal/adapter/river"
	"github.com/neomorfeo/farmconf/internal/app"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the configuration and registry API",
		Long: `Serve the HTTP API. Registry changes enqueue list regeneration jobs that
run in the background; every farm's lists are also rebuilt on start and
then every lists.regenerate_interval.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), o)
		},
	}
}

// newRouter builds the HTTP handler for s.
func newRouter(s handler.Services) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware("farmconf", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("farmconf", version))
	handler.Register(api, s)
	return router
}

// runServe runs the server until SIGINT or SIGTERM.
func runServe(ctx context.Context, o *options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			o.logger.Error("telemetry shutdown", "error", err)
		}
	}()

	c := newComponents(o.cfg, o.logger)
	defer c.stop()

	repo, registry, err := openRegistry(o.cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	generator := app.NewListGenerator(registry, c.lists, c.farms, o.logger)

	farmNames := make([]string, len(c.farms))
	for i, f := range c.farms {
		farmNames[i] = f.Name
	}
	client, err := riveradapter.Setup(ctx, repo.DB(), riveradapter.Options{
		Generator: generator,
		Logger:    o.logger,
		Farms:     farmNames,
		Interval:  o.cfg.Lists.RegenerateInterval,
	})
	if err != nil {
		return fmt.Errorf("job queue: %w", err)
	}
	publisher := otel.NewTracingPublisher(riveradapter.NewPublisher(client, c.farms))

	router := newRouter(handler.Services{
		Directory:  c.directory,
		Snapshots:  c.snapshots,
		Extensions: c.extensions,
		Manifests:  c.manifests,
		Wikis:      app.NewWikiService(registry, publisher, fsm.New(), c.farms),
		Lists:      generator,
		Logger:     o.logger,
	})

	// The queue outlives ctx so in-flight jobs finish during Stop.
	if err := client.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("starting job queue: %w", err)
	}

	srv := &http.Server{
		Addr:              o.cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		o.logger.Info("farmconf listening", "addr", o.cfg.HTTP.Addr, "docs", "/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		o.logger.Info("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		o.logger.Error("http shutdown", "error", err)
	}
	if err := client.Stop(shutdownCtx); err != nil {
		o.logger.Error("job queue shutdown", "error", err)
	}

	if serveErr != nil {
		return fmt.Errorf("server: %w", serveErr)
	}
	o.logger.Info("stopped")
	return nil
}
