package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/farmconf/internal/domain"
)

// SnapshotOptions tunes a SnapshotCache.
type SnapshotOptions struct {
	// RevalidateDelay is how long sources must stay unchanged before a
	// recomputed snapshot is written back.
	RevalidateDelay time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// SnapshotCache serves each wiki's materialized configuration, recomputing it
// when any source changed since the stored snapshot was taken.
type SnapshotCache struct {
	dir        *Directory
	sources    Sources
	store      domain.SnapshotStore
	extensions *Extensions
	revalidate time.Duration
	now        func() time.Time
	logger     *slog.Logger
	metrics    *snapshotMetrics
}

// NewSnapshotCache creates a snapshot cache.
func NewSnapshotCache(
	dir *Directory,
	sources Sources,
	store domain.SnapshotStore,
	extensions *Extensions,
	logger *slog.Logger,
	opts SnapshotOptions,
) *SnapshotCache {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SnapshotCache{
		dir:        dir,
		sources:    sources,
		store:      store,
		extensions: extensions,
		revalidate: opts.RevalidateDelay,
		now:        now,
		logger:     logger,
		metrics:    newSnapshotMetrics(),
	}
}

// Get returns the config snapshot of the wiki rc addresses. A stored snapshot
// whose fingerprint matches the sources is returned as is. Otherwise the
// snapshot is recomputed and, once the sources have been stable for the
// revalidation delay, written back. Write-back failures are logged only.
// A stored snapshot that cannot be decoded fails with
// *domain.CacheCorruptError.
func (c *SnapshotCache) Get(ctx context.Context, rc *RequestContext) (domain.ConfigSnapshot, error) {
	l, err := resolveLookup(ctx, c.dir, c.sources, rc)
	if err != nil {
		return domain.ConfigSnapshot{}, err
	}

	stored, err := c.store.Load(ctx, l.dbname)
	if err != nil {
		return domain.ConfigSnapshot{}, err
	}
	if stored != nil && stored.Mtime == l.fp {
		c.metrics.add(ctx, c.metrics.hits, l.farm.Name)
		if rc.extensions == nil {
			rc.extensions = NewExtensionSet(stored.Extensions)
		}
		return *stored, nil
	}

	c.metrics.add(ctx, c.metrics.misses, l.farm.Name)
	snap, err := c.compute(ctx, rc, l)
	if err != nil {
		return domain.ConfigSnapshot{}, err
	}

	if c.now().Unix() > l.fp+int64(c.revalidate/time.Second) {
		if err := c.store.Save(ctx, l.dbname, snap); err != nil {
			c.logger.WarnContext(ctx, "config snapshot write-back failed",
				"wiki", l.dbname,
				"error", err,
			)
		} else {
			c.metrics.add(ctx, c.metrics.writes, l.farm.Name)
		}
	}
	return snap, nil
}

func (c *SnapshotCache) compute(ctx context.Context, rc *RequestContext, l lookup) (domain.ConfigSnapshot, error) {
	doc, err := override(rc, c.sources, l.dbname)
	if err != nil {
		return domain.ConfigSnapshot{}, err
	}
	extensions, err := c.extensions.compute(rc, doc)
	if err != nil {
		return domain.ConfigSnapshot{}, err
	}
	rc.extensions = NewExtensionSet(extensions)

	var states map[string]domain.StateValue
	if doc != nil {
		states = doc.States
	}
	tags := ComputeTags(l.farm.Name, l.version, states, extensions)

	base, err := c.sources.LoadBase()
	if err != nil {
		return domain.ConfigSnapshot{}, err
	}
	settings := BuildSettings(base, doc)
	if err := c.identity(ctx, rc, settings, l.dbname); err != nil {
		return domain.ConfigSnapshot{}, err
	}

	params := SiteParams{
		Lang: l.farm.Label(l.dbname),
		Site: l.farm.Suffix,
		Wiki: l.dbname,
	}
	globals, err := normalize(Materialize(settings, l.dbname, tags, params))
	if err != nil {
		return domain.ConfigSnapshot{}, fmt.Errorf("materializing %s: %w", l.dbname, err)
	}

	return domain.ConfigSnapshot{
		Mtime:      l.fp,
		Globals:    globals,
		Extensions: extensions,
	}, nil
}

// identity adds the wiki's own name, server and site name as wiki tiers.
func (c *SnapshotCache) identity(ctx context.Context, rc *RequestContext, settings domain.Settings, dbname string) error {
	url, err := c.dir.URL(ctx, rc, dbname)
	if err != nil {
		return err
	}
	sitename, err := c.dir.SiteName(ctx, rc, dbname)
	if err != nil {
		return err
	}
	settings.Set("wgDBname", dbname, dbname)
	settings.Set("wgServer", dbname, url)
	settings.Set("wgSitename", dbname, sitename)
	return nil
}

// normalize round-trips globals through JSON so a freshly computed snapshot
// equals the same snapshot read back from its cache file.
func normalize(globals map[string]any) (map[string]any, error) {
	data, err := json.Marshal(globals)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
