package app

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/neomorfeo/farmconf/internal/domain"
)

// ListGenerator rebuilds a farm's list files from the registry.
type ListGenerator struct {
	registry domain.Registry
	store    domain.ListStore
	farms    FarmSet
	logger   *slog.Logger
}

// NewListGenerator creates a list generator.
func NewListGenerator(registry domain.Registry, store domain.ListStore, farms FarmSet, logger *slog.Logger) *ListGenerator {
	return &ListGenerator{registry: registry, store: store, farms: farms, logger: logger}
}

// Regenerate rewrites every list of farmName: active, databases, deleted and
// one per version channel. The lists are written as one set, so a registry
// or write failure leaves every existing file untouched.
func (g *ListGenerator) Regenerate(ctx context.Context, farmName string) error {
	farm, err := g.farms.ByName(farmName)
	if err != nil {
		return err
	}

	lists, err := g.build(ctx, farm)
	if err != nil {
		return fmt.Errorf("regenerating %s lists: %w", farm.Name, err)
	}

	if err := g.store.WriteSet(ctx, lists); err != nil {
		return fmt.Errorf("regenerating %s lists: %w", farm.Name, err)
	}

	g.logger.InfoContext(ctx, "lists regenerated",
		"farm", farm.Name,
		"lists", len(lists),
	)
	return nil
}

// RegenerateAll regenerates the lists of every farm, stopping at the first
// failure.
func (g *ListGenerator) RegenerateAll(ctx context.Context) error {
	for _, farm := range g.farms {
		if err := g.Regenerate(ctx, farm.Name); err != nil {
			return err
		}
	}
	return nil
}

func (g *ListGenerator) build(ctx context.Context, farm domain.Farm) (map[string]domain.ListFile, error) {
	lists := make(map[string]domain.ListFile)

	active, err := g.registry.ActiveWikis(ctx)
	if err != nil {
		return nil, err
	}
	lists[domain.ActiveListName(farm.Name)] = domain.NewCombiList(entries(farm, active, false))

	combi, err := g.registry.CombiWikis(ctx, "")
	if err != nil {
		return nil, err
	}
	lists[domain.DatabasesListName(farm.Name)] = domain.NewCombiList(entries(farm, combi, true))

	deleted, err := g.registry.DeletedWikis(ctx)
	if err != nil {
		return nil, err
	}
	lists[domain.DeletedListName(farm.Name)] = domain.NewDeletedList(entries(farm, deleted, false))

	for _, channel := range slices.Sorted(maps.Keys(farm.Versions)) {
		pinned, err := g.registry.CombiWikis(ctx, farm.Versions[channel])
		if err != nil {
			return nil, err
		}
		lists[domain.VersionListName(channel, farm.Name)] = domain.NewCombiList(entries(farm, pinned, true))
	}
	return lists, nil
}

// entries keeps the wikis farm owns. Full entries also carry version and URL,
// the version defaulting to the farm's default channel.
func entries(farm domain.Farm, wikis []domain.Wiki, full bool) map[string]domain.ListEntry {
	out := make(map[string]domain.ListEntry, len(wikis))
	for _, w := range wikis {
		if !farm.Owns(w.DBName) {
			continue
		}
		e := domain.ListEntry{SiteName: w.SiteName, Cluster: w.Cluster}
		if full {
			e.URL = w.URL
			e.Version = w.Version
			if e.Version == "" {
				e.Version = farm.DefaultVersion("")
			}
		}
		out[w.DBName] = e
	}
	return out
}
