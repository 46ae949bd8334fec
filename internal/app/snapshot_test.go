package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/neomorfeo/farmconf/internal/adapter/jsonfile"
	"github.com/neomorfeo/farmconf/internal/app"
	"github.com/neomorfeo/farmconf/internal/domain"
)

var t0 = time.Unix(1_700_000_000, 0)

const baseYAML = `
wgLogo:
  default: /$site/$lang/logo.png
  private: /private.png
wgEnableEcho:
  default: false
  ext-Echo: true
wgPinned:
  default: 1
  testwikitide: 2
`

const extensionsYAML = `
cite:
  name: Cite
echo:
  name: Echo
smw:
  name: Semantic MediaWiki
broken: {}
`

const overrideJSON = `{
	"core": {"wgLanguageCode": "en"},
	"states": {"private": true, "closed": false},
	"settings": {"wgRightsText": "$wiki"},
	"extensions": ["echo", "smw", "notdeclared"]
}`

// recordingStore counts snapshot saves and can be told to fail them.
type recordingStore struct {
	*jsonfile.SnapshotStore
	saves   int
	failing bool
}

func (r *recordingStore) Save(ctx context.Context, dbname string, snap domain.ConfigSnapshot) error {
	if r.failing {
		return errors.New("disk full")
	}
	r.saves++
	return r.SnapshotStore.Save(ctx, dbname, snap)
}

type snapshotFixture struct {
	sources  app.Sources
	cacheDir string
	store    *recordingStore
	now      time.Time
	cache    *app.SnapshotCache
	exts     *app.Extensions
}

func newSnapshotFixture(t *testing.T, disabled ...string) *snapshotFixture {
	t.Helper()
	root := t.TempDir()
	f := &snapshotFixture{
		sources: app.Sources{
			BaseFiles:     []string{filepath.Join(root, "etc", "base.yaml")},
			ExtensionFile: filepath.Join(root, "etc", "extensions.yaml"),
			RuntimeDir:    filepath.Join(root, "runtime"),
			VersionMarker: "VERSION",
			OverrideDir:   filepath.Join(root, "cache"),
		},
		cacheDir: filepath.Join(root, "cache"),
		now:      t0.Add(time.Hour),
	}
	writeFile(t, f.sources.BaseFiles[0], baseYAML, t0)
	writeFile(t, f.sources.ExtensionFile, extensionsYAML, t0)
	writeFile(t, filepath.Join(f.sources.RuntimeDir, "1.40", "VERSION"), "1.40", t0)
	writeFile(t, f.sources.OverridePath("testwikitide"), overrideJSON, t0.Add(-time.Minute))

	dir := newDirectory(t, app.DirectoryOptions{})
	f.store = &recordingStore{SnapshotStore: jsonfile.NewSnapshotStore(f.cacheDir)}
	f.exts = app.NewExtensions(dir, f.sources, f.store, disabled)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.cache = app.NewSnapshotCache(dir, f.sources, f.store, f.exts, logger, app.SnapshotOptions{
		RevalidateDelay: time.Minute,
		Now:             func() time.Time { return f.now },
	})
	return f
}

func (f *snapshotFixture) get(t *testing.T, dbname string) domain.ConfigSnapshot {
	t.Helper()
	snap, err := f.cache.Get(context.Background(), app.NewRequestContext(app.Request{Wiki: dbname, CLI: true}))
	if err != nil {
		t.Fatalf("Get(%s): %v", dbname, err)
	}
	return snap
}

func TestSnapshot_ComputesGlobals(t *testing.T) {
	f := newSnapshotFixture(t)
	snap := f.get(t, "testwikitide")

	if snap.Mtime != t0.Unix() {
		t.Errorf("Mtime = %d, want %d", snap.Mtime, t0.Unix())
	}
	want := map[string]any{
		"wgLogo":         "/private.png",
		"wgEnableEcho":   true,
		"wgPinned":       float64(2),
		"wgRightsText":   "testwikitide",
		"wgLanguageCode": "en",
		"wgDBname":       "testwikitide",
		"wgServer":       "https://test.wikitide.org",
		"wgSitename":     "Test Wiki",
	}
	for name, v := range want {
		if !reflect.DeepEqual(snap.Globals[name], v) {
			t.Errorf("%s = %#v, want %#v", name, snap.Globals[name], v)
		}
	}
	if !slices.Equal(snap.Extensions, []string{"Echo", "Semantic MediaWiki"}) {
		t.Errorf("Extensions = %v", snap.Extensions)
	}
}

func TestSnapshot_HitReturnsStoredValue(t *testing.T) {
	f := newSnapshotFixture(t)

	first := f.get(t, "testwikitide")
	if f.store.saves != 1 {
		t.Fatalf("saves after miss = %d, want 1", f.store.saves)
	}

	stored, err := f.store.Load(context.Background(), "testwikitide")
	if err != nil || stored == nil {
		t.Fatalf("Load: %v, %v", stored, err)
	}
	if !reflect.DeepEqual(*stored, first) {
		t.Errorf("stored snapshot differs from returned one:\n%+v\n%+v", *stored, first)
	}

	second := f.get(t, "testwikitide")
	if f.store.saves != 1 {
		t.Errorf("saves after hit = %d, want 1", f.store.saves)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("hit returned a different snapshot")
	}
}

func TestSnapshot_SourceChangeInvalidates(t *testing.T) {
	sources := []struct {
		name string
		path func(f *snapshotFixture) string
	}{
		{"base", func(f *snapshotFixture) string { return f.sources.BaseFiles[0] }},
		{"extensions", func(f *snapshotFixture) string { return f.sources.ExtensionFile }},
		{"version marker", func(f *snapshotFixture) string {
			return filepath.Join(f.sources.RuntimeDir, "1.40", f.sources.VersionMarker)
		}},
		{"override", func(f *snapshotFixture) string { return f.sources.OverridePath("testwikitide") }},
	}

	for _, src := range sources {
		t.Run(src.name, func(t *testing.T) {
			f := newSnapshotFixture(t)
			before := f.get(t, "testwikitide")

			touch(t, src.path(f), t0.Add(10*time.Second))
			after := f.get(t, "testwikitide")

			if after.Mtime <= before.Mtime {
				t.Errorf("Mtime = %d, want > %d", after.Mtime, before.Mtime)
			}
			if f.store.saves != 2 {
				t.Errorf("saves = %d, want 2", f.store.saves)
			}
		})
	}
}

func TestSnapshot_WriteBackRateLimited(t *testing.T) {
	f := newSnapshotFixture(t)
	f.now = t0.Add(30 * time.Second)

	snap := f.get(t, "testwikitide")
	if f.store.saves != 0 {
		t.Errorf("saves = %d, want 0 inside the revalidation delay", f.store.saves)
	}
	if snap.Globals["wgDBname"] != "testwikitide" {
		t.Error("skipped write-back must still return the computed snapshot")
	}

	f.now = t0.Add(2 * time.Minute)
	f.get(t, "testwikitide")
	if f.store.saves != 1 {
		t.Errorf("saves = %d, want 1 after the delay", f.store.saves)
	}
}

func TestSnapshot_WriteFailureIsNotFatal(t *testing.T) {
	f := newSnapshotFixture(t)
	f.store.failing = true

	snap := f.get(t, "testwikitide")
	if snap.Globals["wgDBname"] != "testwikitide" {
		t.Errorf("Globals = %v", snap.Globals)
	}
	if _, err := os.Stat(f.store.Path("testwikitide")); !os.IsNotExist(err) {
		t.Errorf("cache file should not exist after failed save, stat err = %v", err)
	}
}

func TestSnapshot_CorruptCacheIsFatal(t *testing.T) {
	f := newSnapshotFixture(t)
	writeFile(t, f.store.Path("testwikitide"), `{"mtime": 1, "globals": {`, t0)

	_, err := f.cache.Get(context.Background(), app.NewRequestContext(app.Request{Wiki: "testwikitide", CLI: true}))
	var corrupt *domain.CacheCorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("err = %v, want CacheCorruptError", err)
	}
	if corrupt.Path != f.store.Path("testwikitide") {
		t.Errorf("Path = %q", corrupt.Path)
	}
}

func TestSnapshot_MissingOverride(t *testing.T) {
	f := newSnapshotFixture(t)

	snap := f.get(t, "plainwikitide")
	if snap.Mtime != t0.Unix() {
		t.Errorf("Mtime = %d, want %d", snap.Mtime, t0.Unix())
	}
	if len(snap.Extensions) != 0 {
		t.Errorf("Extensions = %v, want none", snap.Extensions)
	}
	if snap.Globals["wgLogo"] != "/wikitide/plain/logo.png" {
		t.Errorf("wgLogo = %v", snap.Globals["wgLogo"])
	}
	if snap.Globals["wgSitename"] != domain.NoSiteName {
		t.Errorf("wgSitename = %v", snap.Globals["wgSitename"])
	}
}

func TestSnapshot_MissingSourceFails(t *testing.T) {
	f := newSnapshotFixture(t)
	if err := os.Remove(f.sources.ExtensionFile); err != nil {
		t.Fatal(err)
	}

	_, err := f.cache.Get(context.Background(), app.NewRequestContext(app.Request{Wiki: "testwikitide", CLI: true}))
	if err == nil {
		t.Fatal("expected error for a missing extension declaration file")
	}
}

func TestSnapshot_UnknownWiki(t *testing.T) {
	f := newSnapshotFixture(t)

	_, err := f.cache.Get(context.Background(), app.NewRequestContext(app.Request{Host: "nope.wikitide.org"}))
	if !errors.Is(err, domain.ErrWikiNotFound) {
		t.Errorf("err = %v, want ErrWikiNotFound", err)
	}
}
