package main

import (
	"fmt"
	"log/slog"

	"github.com/neomorfeo/farmconf/internal/adapter/jsonfile"
	"github.com/neomorfeo/farmconf/internal/adapter/listfile"
	"github.com/neomorfeo/farmconf/internal/adapter/otel"
	"github.com/neomorfeo/farmconf/internal/adapter/sqlite"
	"github.com/neomorfeo/farmconf/internal/app"
	"github.com/neomorfeo/farmconf/internal/config"
	"github.com/neomorfeo/farmconf/internal/domain"
)

// components are the file-backed parts every command shares.
type components struct {
	farms      app.FarmSet
	lists      domain.ListStore
	directory  *app.Directory
	snapshots  *app.SnapshotCache
	extensions *app.Extensions
	manifests  *app.ManifestIndex
	stop       func()
}

func newComponents(cfg *config.Config, logger *slog.Logger) *components {
	farms := app.FarmSet(cfg.Farms)

	var lists domain.ListStore = otel.NewTracingListStore(listfile.New(cfg.Paths.ListDir))
	stop := func() {}
	if cfg.Cache.ListTTL > 0 {
		cached := listfile.NewCachedStore(lists, cfg.Cache.ListTTL)
		lists, stop = cached, cached.Stop
	}

	sources := app.Sources{
		BaseFiles:     cfg.Paths.BaseFiles,
		ExtensionFile: cfg.Paths.ExtensionFile,
		RuntimeDir:    cfg.Paths.RuntimeDir,
		VersionMarker: cfg.Paths.VersionMarker,
		OverrideDir:   cfg.Paths.OverrideDir,
	}
	store := jsonfile.NewSnapshotStore(cfg.Paths.CacheDir)

	dir := app.NewDirectory(lists, farms, app.DirectoryOptions{
		MaintenanceClusters: cfg.MaintenanceClusters,
		NodeName:            cfg.NodeName,
	})
	exts := app.NewExtensions(dir, sources, store, cfg.DisabledExtensions)

	return &components{
		farms:      farms,
		lists:      lists,
		directory:  dir,
		extensions: exts,
		snapshots: app.NewSnapshotCache(dir, sources, store, exts, logger, app.SnapshotOptions{
			RevalidateDelay: cfg.Cache.RevalidateDelay,
		}),
		manifests: app.NewManifestIndex(sources, cfg.Paths.CacheDir, logger),
		stop:      stop,
	}
}

// openRegistry opens the instrumented registry database. The caller closes
// the returned repository.
func openRegistry(cfg *config.Config) (*sqlite.Repository, *otel.TracingRegistry, error) {
	db, err := otel.OpenDB(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	return repo, otel.NewTracingRegistry(repo), nil
}
