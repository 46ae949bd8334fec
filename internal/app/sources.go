package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/neomorfeo/farmconf/internal/adapter/jsonfile"
	"github.com/neomorfeo/farmconf/internal/domain"
)

// Sources locates every input a wiki's configuration is computed from.
type Sources struct {
	// BaseFiles hold tiered settings shared by all wikis, merged in order.
	BaseFiles []string
	// ExtensionFile declares the extensions wikis may enable.
	ExtensionFile string
	// RuntimeDir contains one directory per installed code version.
	RuntimeDir string
	// VersionMarker is a file inside each version directory that changes on
	// every upgrade.
	VersionMarker string
	// OverrideDir holds one <dbname>.json override document per wiki.
	OverrideDir string
}

// OverridePath returns the override document of dbname.
func (s Sources) OverridePath(dbname string) string {
	return filepath.Join(s.OverrideDir, dbname+".json")
}

// VersionDir returns the installation directory of a code version.
func (s Sources) VersionDir(version string) string {
	return filepath.Join(s.RuntimeDir, version)
}

// Fingerprint returns the newest modification time, in unix seconds, across
// the sources of dbname at version. A missing override document contributes
// nothing; any other missing source is an error.
func (s Sources) Fingerprint(dbname, version string) (int64, error) {
	required := slices.Concat(s.BaseFiles, []string{
		s.ExtensionFile,
		filepath.Join(s.VersionDir(version), s.VersionMarker),
	})

	var fp int64
	for _, path := range required {
		info, err := os.Stat(path)
		if err != nil {
			return 0, fmt.Errorf("fingerprinting %s: %w", path, err)
		}
		fp = max(fp, info.ModTime().Unix())
	}

	info, err := os.Stat(s.OverridePath(dbname))
	switch {
	case err == nil:
		fp = max(fp, info.ModTime().Unix())
	case !errors.Is(err, fs.ErrNotExist):
		return 0, fmt.Errorf("fingerprinting override of %s: %w", dbname, err)
	}
	return fp, nil
}

// LoadBase reads and merges the base settings files. Tiers of a setting
// declared in several files are merged, later files winning per tier.
func (s Sources) LoadBase() (domain.Settings, error) {
	out := make(domain.Settings)
	for _, path := range s.BaseFiles {
		var file map[string]map[string]any
		if err := readYAML(path, &file); err != nil {
			return nil, err
		}
		for name, tiers := range file {
			for tier, v := range tiers {
				out.Set(name, tier, v)
			}
		}
	}
	return out, nil
}

// LoadDeclarations reads the extension declarations ordered by key.
// Declarations without a name are skipped.
func (s Sources) LoadDeclarations() ([]domain.ExtensionDecl, error) {
	var file map[string]domain.ExtensionDecl
	if err := readYAML(s.ExtensionFile, &file); err != nil {
		return nil, err
	}
	decls := make([]domain.ExtensionDecl, 0, len(file))
	for _, key := range slices.Sorted(maps.Keys(file)) {
		d := file[key]
		if d.Name == "" {
			continue
		}
		d.Key = key
		decls = append(decls, d)
	}
	return decls, nil
}

// LoadOverride reads the override document of dbname. It returns nil when
// the wiki has none.
func (s Sources) LoadOverride(dbname string) (*domain.OverrideDocument, error) {
	var doc domain.OverrideDocument
	found, err := jsonfile.Read(s.OverridePath(dbname), &doc)
	if err != nil {
		return nil, fmt.Errorf("loading override of %s: %w", dbname, err)
	}
	if !found {
		return nil, nil
	}
	return &doc, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// override returns the memoized override document of dbname for rc.
func override(rc *RequestContext, sources Sources, dbname string) (*domain.OverrideDocument, error) {
	if rc.overrideLoaded {
		return rc.override, nil
	}
	doc, err := sources.LoadOverride(dbname)
	if err != nil {
		return nil, err
	}
	rc.override, rc.overrideLoaded = doc, true
	return doc, nil
}

// declarations returns the memoized extension declarations for rc.
func declarations(rc *RequestContext, sources Sources) ([]domain.ExtensionDecl, error) {
	if rc.decls != nil {
		return rc.decls, nil
	}
	decls, err := sources.LoadDeclarations()
	if err != nil {
		return nil, err
	}
	rc.decls = decls
	return decls, nil
}

// lookup is the context-free part of a resolution that every cached
// component needs: the wiki, its farm, version and source fingerprint.
type lookup struct {
	dbname  string
	farm    domain.Farm
	version string
	fp      int64
}

func resolveLookup(ctx context.Context, dir *Directory, sources Sources, rc *RequestContext) (lookup, error) {
	dbname, err := dir.Resolve(ctx, rc)
	if err != nil {
		return lookup{}, err
	}
	farm, err := dir.Farms().ForWiki(dbname)
	if err != nil {
		return lookup{}, err
	}
	version, err := dir.Version(ctx, rc, dbname)
	if err != nil {
		return lookup{}, err
	}
	fp, err := sources.Fingerprint(dbname, version)
	if err != nil {
		return lookup{}, err
	}
	return lookup{dbname: dbname, farm: farm, version: version, fp: fp}, nil
}
