package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/neomorfeo/farmconf/internal/adapter/jsonfile"
)

// Manifest globs relative to a version directory.
var manifestGlobs = []string{
	filepath.Join("extensions", "*", "extension*.json"),
	filepath.Join("skins", "*", "skin.json"),
}

// ManifestIndex maps extension names to the manifest file that registers
// them for one installed code version. The index is built by scanning the
// version directory and kept in <cacheDir>/<version>/extension-list.json
// until the version marker changes.
type ManifestIndex struct {
	sources  Sources
	cacheDir string
	logger   *slog.Logger
}

// NewManifestIndex creates a manifest index.
func NewManifestIndex(sources Sources, cacheDir string, logger *slog.Logger) *ManifestIndex {
	return &ManifestIndex{sources: sources, cacheDir: cacheDir, logger: logger}
}

// Path returns the cached index of version.
func (m *ManifestIndex) Path(version string) string {
	return filepath.Join(m.cacheDir, version, "extension-list.json")
}

// Manifests returns name → manifest path for each of names installed at
// version. Names without a manifest are left out.
func (m *ManifestIndex) Manifests(ctx context.Context, version string, names []string) (map[string]string, error) {
	index, err := m.load(ctx, version)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(names))
	for _, name := range names {
		if path, ok := index[name]; ok {
			out[name] = path
		}
	}
	return out, nil
}

func (m *ManifestIndex) load(ctx context.Context, version string) (map[string]string, error) {
	path := m.Path(version)
	stale, err := m.stale(path, version)
	if err != nil {
		return nil, err
	}
	if !stale {
		var index map[string]string
		_, err := jsonfile.Read(path, &index)
		if err == nil {
			return index, nil
		}
		m.logger.WarnContext(ctx, "rebuilding unreadable extension list",
			"version", version,
			"error", err,
		)
	}

	index, err := m.scan(version)
	if err != nil {
		return nil, err
	}
	if err := jsonfile.Write(path, index); err != nil {
		m.logger.WarnContext(ctx, "extension list write failed",
			"version", version,
			"error", err,
		)
	}
	return index, nil
}

// stale reports whether the cached index is missing or older than the
// version marker.
func (m *ManifestIndex) stale(path, version string) (bool, error) {
	cached, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}
	marker, err := os.Stat(filepath.Join(m.sources.VersionDir(version), m.sources.VersionMarker))
	if err != nil {
		return false, fmt.Errorf("checking version %s: %w", version, err)
	}
	return marker.ModTime().After(cached.ModTime()), nil
}

// scan indexes every manifest of version by its name field. The first
// manifest in path order wins when two declare the same name.
func (m *ManifestIndex) scan(version string) (map[string]string, error) {
	root := m.sources.VersionDir(version)
	var paths []string
	for _, pattern := range manifestGlobs {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	index := make(map[string]string, len(paths))
	for _, path := range paths {
		var manifest struct {
			Name string `json:"name"`
		}
		if _, err := jsonfile.Read(path, &manifest); err != nil || manifest.Name == "" {
			continue
		}
		if _, dup := index[manifest.Name]; !dup {
			index[manifest.Name] = path
		}
	}
	return index, nil
}
