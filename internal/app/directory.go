package app

import (
	"context"
	"errors"
	"maps"
	"net"
	"os"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/neomorfeo/farmconf/internal/adapter/listfile"
	"github.com/neomorfeo/farmconf/internal/domain"
)

// VersionEnv forces every wiki onto one code version when set.
const VersionEnv = "FARMCONF_WIKI_VERSION"

// DirectoryOptions tunes a Directory.
type DirectoryOptions struct {
	// MaintenanceClusters are database clusters currently under maintenance.
	MaintenanceClusters []string
	// NodeName is this host's name; the farm's beta host serves the beta channel.
	NodeName string
	// Getenv looks up environment variables. Defaults to os.Getenv.
	Getenv func(string) string
}

// Directory maps hosts and command-line context to wikis and exposes per-wiki
// metadata read from the generated list files.
type Directory struct {
	store       domain.ListStore
	farms       FarmSet
	maintenance mapset.Set[string]
	nodeName    string
	getenv      func(string) string
}

// NewDirectory creates a directory over store for the given farms.
func NewDirectory(store domain.ListStore, farms FarmSet, opts DirectoryOptions) *Directory {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return &Directory{
		store:       store,
		farms:       farms,
		maintenance: mapset.NewSet(opts.MaintenanceClusters...),
		nodeName:    opts.NodeName,
		getenv:      getenv,
	}
}

// Farms returns the farms this directory serves.
func (d *Directory) Farms() FarmSet {
	return d.farms
}

// Resolve returns the dbname addressed by rc. It returns domain.ErrWikiNotFound
// when nothing matches and domain.ErrUnderMaintenance when the wiki's cluster
// is under maintenance for a web request. The result is memoized on rc.
func (d *Directory) Resolve(ctx context.Context, rc *RequestContext) (string, error) {
	if !rc.wikiResolved {
		rc.wiki, rc.wikiErr = d.resolve(ctx, rc)
		rc.wikiResolved = true
	}
	return rc.wiki, rc.wikiErr
}

func (d *Directory) resolve(ctx context.Context, rc *RequestContext) (string, error) {
	if rc.Wiki != "" {
		return d.confirm(ctx, rc, rc.Wiki)
	}

	host := normalizeHost(rc.Host)
	if host == "" {
		return "", domain.ErrWikiNotFound
	}

	if dbname, err := d.lookupByURL(ctx, rc, "https://"+host); err != nil {
		return "", err
	} else if dbname != "" {
		return d.confirm(ctx, rc, dbname)
	}

	label, suffix, _ := strings.Cut(host, ".")
	bare := host
	if label == "www" {
		bare = suffix
		label, suffix, _ = strings.Cut(suffix, ".")
	}

	for _, farm := range d.farms {
		if suffix != farm.Domain {
			continue
		}
		dbname, err := d.confirm(ctx, rc, label+farm.Suffix)
		if !errors.Is(err, domain.ErrWikiNotFound) {
			return dbname, err
		}
	}

	for _, farm := range d.farms {
		if host == farm.DefaultServer || bare == farm.DefaultServer {
			return domain.DefaultWiki, nil
		}
	}

	return "", domain.ErrWikiNotFound
}

// confirm checks that dbname is a known wiki and not hidden by maintenance.
func (d *Directory) confirm(ctx context.Context, rc *RequestContext, dbname string) (string, error) {
	farm, err := d.farms.ForWiki(dbname)
	if err != nil {
		return "", domain.ErrWikiNotFound
	}
	entries, err := d.local(ctx, rc, farm)
	if err != nil {
		return "", err
	}
	entry, ok := entries[dbname]
	if !ok {
		return "", domain.ErrWikiNotFound
	}
	filter := d.filter(rc, dbname)
	if filter.Excludes(dbname, entry) {
		return "", domain.ErrUnderMaintenance
	}
	return dbname, nil
}

// lookupByURL scans every farm's combi list for an entry whose custom URL
// equals url. This is linear in the number of wikis.
func (d *Directory) lookupByURL(ctx context.Context, rc *RequestContext, url string) (string, error) {
	for _, farm := range d.farms {
		list, err := d.read(ctx, rc, domain.DatabasesListName(farm.Name))
		if err != nil {
			return "", err
		}
		entries := list.Entries()
		for _, dbname := range slices.Sorted(maps.Keys(entries)) {
			if entries[dbname].URL == url {
				return dbname, nil
			}
		}
	}
	return "", nil
}

// Wiki returns the list record for dbname. Deleted wikis are only visible to
// command-line requests.
func (d *Directory) Wiki(ctx context.Context, rc *RequestContext, dbname string) (domain.Wiki, error) {
	farm, err := d.farms.ForWiki(dbname)
	if err != nil {
		return domain.Wiki{}, domain.ErrWikiNotFound
	}

	list, err := d.read(ctx, rc, domain.DatabasesListName(farm.Name))
	if err != nil {
		return domain.Wiki{}, err
	}
	if entry, ok := list.Lookup(dbname); ok {
		if d.filter(rc, dbname).Excludes(dbname, entry) {
			return domain.Wiki{}, domain.ErrUnderMaintenance
		}
		return wikiFromEntry(dbname, entry, domain.StatusActive), nil
	}

	if rc.CLI {
		deleted, err := d.read(ctx, rc, domain.DeletedListName(farm.Name))
		if err != nil {
			return domain.Wiki{}, err
		}
		if entry, ok := deleted.Lookup(dbname); ok {
			return wikiFromEntry(dbname, entry, domain.StatusDeleted), nil
		}
	}

	return domain.Wiki{}, domain.ErrWikiNotFound
}

// List returns the sorted dbnames of a farm.
func (d *Directory) List(ctx context.Context, rc *RequestContext, farmName string, includeDeleted bool) ([]string, error) {
	farm, err := d.farms.ByName(farmName)
	if err != nil {
		return nil, err
	}
	list, err := d.read(ctx, rc, domain.DatabasesListName(farm.Name))
	if err != nil {
		return nil, err
	}
	entries := d.filter(rc, rc.wiki).Apply(list.Entries())

	if includeDeleted {
		deleted, err := d.read(ctx, rc, domain.DeletedListName(farm.Name))
		if err != nil {
			return nil, err
		}
		maps.Copy(entries, deleted.Entries())
	}

	return slices.Sorted(maps.Keys(entries)), nil
}

// ClusterMap returns dbname → database cluster for a farm's non-deleted wikis.
func (d *Directory) ClusterMap(ctx context.Context, rc *RequestContext, farmName string) (map[string]string, error) {
	farm, err := d.farms.ByName(farmName)
	if err != nil {
		return nil, err
	}
	list, err := d.read(ctx, rc, domain.DatabasesListName(farm.Name))
	if err != nil {
		return nil, err
	}
	clusters := make(map[string]string)
	for dbname, e := range d.filter(rc, rc.wiki).Apply(list.Entries()) {
		clusters[dbname] = e.Cluster
	}
	return clusters, nil
}

// URL returns the wiki's explicit URL, or one built from its label and the
// farm domain. The default wiki and unknown names map to the default server.
func (d *Directory) URL(ctx context.Context, rc *RequestContext, dbname string) (string, error) {
	farm, err := d.farms.ForWiki(dbname)
	if err != nil || dbname == domain.DefaultWiki {
		return "https://" + d.farms.Default().DefaultServer, nil
	}
	entry, _, err := d.anyEntry(ctx, rc, farm, dbname)
	if err != nil {
		return "", err
	}
	if entry.URL != "" {
		return entry.URL, nil
	}
	return "https://" + farm.Label(dbname) + "." + farm.Domain, nil
}

// SiteName returns the wiki's site name, or domain.NoSiteName.
func (d *Directory) SiteName(ctx context.Context, rc *RequestContext, dbname string) (string, error) {
	farm, err := d.farms.ForWiki(dbname)
	if err != nil || dbname == domain.DefaultWiki {
		return domain.NoSiteName, nil
	}
	entry, ok, err := d.anyEntry(ctx, rc, farm, dbname)
	if err != nil {
		return "", err
	}
	if !ok || entry.SiteName == "" {
		return domain.NoSiteName, nil
	}
	return entry.SiteName, nil
}

// Version returns the code version dbname runs. In order: the VersionEnv
// override, an explicit command-line version the farm serves, the list
// record, then the farm's default channel.
func (d *Directory) Version(ctx context.Context, rc *RequestContext, dbname string) (string, error) {
	if v := d.getenv(VersionEnv); v != "" {
		return v, nil
	}

	farm, err := d.farms.ForWiki(dbname)
	if err != nil {
		farm = d.farms.Default()
	}
	if rc.CLI && rc.Version != "" && farm.HasVersion(rc.Version) {
		return rc.Version, nil
	}

	if dbname != domain.DefaultWiki {
		list, err := d.read(ctx, rc, domain.DatabasesListName(farm.Name))
		if err != nil {
			return "", err
		}
		if entry, ok := list.Lookup(dbname); ok && entry.Version != "" {
			return entry.Version, nil
		}
	}

	return farm.DefaultVersion(d.nodeName), nil
}

// IsMissing reports whether dbname is absent from the wikis visible to rc.
func (d *Directory) IsMissing(ctx context.Context, rc *RequestContext, dbname string) (bool, error) {
	farm, err := d.farms.ForWiki(dbname)
	if err != nil {
		return true, nil
	}
	entries, err := d.local(ctx, rc, farm)
	if err != nil {
		return false, err
	}
	_, ok := entries[dbname]
	return !ok, nil
}

// local returns the farm's wikis visible to rc: the combi list, plus the
// deleted list for command-line requests.
func (d *Directory) local(ctx context.Context, rc *RequestContext, farm domain.Farm) (map[string]domain.ListEntry, error) {
	list, err := d.read(ctx, rc, domain.DatabasesListName(farm.Name))
	if err != nil {
		return nil, err
	}
	entries := maps.Clone(list.Entries())
	if rc.CLI {
		deleted, err := d.read(ctx, rc, domain.DeletedListName(farm.Name))
		if err != nil {
			return nil, err
		}
		for dbname, e := range deleted.Entries() {
			if _, ok := entries[dbname]; !ok {
				entries[dbname] = e
			}
		}
	}
	return entries, nil
}

// anyEntry looks dbname up in the combi list, then the deleted list.
func (d *Directory) anyEntry(ctx context.Context, rc *RequestContext, farm domain.Farm, dbname string) (domain.ListEntry, bool, error) {
	for _, name := range []string{domain.DatabasesListName(farm.Name), domain.DeletedListName(farm.Name)} {
		list, err := d.read(ctx, rc, name)
		if err != nil {
			return domain.ListEntry{}, false, err
		}
		if e, ok := list.Lookup(dbname); ok {
			return e, true, nil
		}
	}
	return domain.ListEntry{}, false, nil
}

func (d *Directory) filter(rc *RequestContext, current string) listfile.MaintenanceFilter {
	return listfile.MaintenanceFilter{
		Clusters: d.maintenance,
		Current:  current,
		CLI:      rc.CLI,
	}
}

// read returns the named list, reading it at most once per request.
func (d *Directory) read(ctx context.Context, rc *RequestContext, name string) (domain.ListFile, error) {
	if list, ok := rc.lists[name]; ok {
		return list, nil
	}
	list, err := d.store.Read(ctx, name)
	if err != nil {
		return domain.ListFile{}, err
	}
	rc.lists[name] = list
	return list, nil
}

func wikiFromEntry(dbname string, e domain.ListEntry, status domain.Status) domain.Wiki {
	return domain.Wiki{
		DBName:   dbname,
		SiteName: e.SiteName,
		Cluster:  e.Cluster,
		URL:      e.URL,
		Version:  e.Version,
		Status:   status,
	}
}

// normalizeHost lowercases host and drops any port.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}
