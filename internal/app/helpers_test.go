package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neomorfeo/farmconf/internal/adapter/listfile"
	"github.com/neomorfeo/farmconf/internal/app"
	"github.com/neomorfeo/farmconf/internal/domain"
)

func testFarm() domain.Farm {
	return domain.Farm{
		Name:           "wikitide",
		Suffix:         "wikitide",
		Domain:         "wikitide.org",
		DefaultServer:  "meta.wikitide.org",
		GlobalDatabase: "wtglobal",
		Versions: map[string]string{
			"alpha":  "1.42",
			"beta":   "1.41",
			"lts":    "1.39",
			"stable": "1.40",
		},
		DefaultChannel: "stable",
		BetaChannel:    "beta",
		BetaHost:       "test1.wikitide.net",
	}
}

func testFarms() app.FarmSet {
	return app.FarmSet{testFarm()}
}

// seedLists writes a databases and a deleted list for the test farm.
func seedLists(t *testing.T, dir string, combi, deleted map[string]domain.ListEntry) *listfile.Store {
	t.Helper()
	store := listfile.New(dir)
	ctx := context.Background()
	if err := store.Write(ctx, domain.DatabasesListName("wikitide"), domain.NewCombiList(combi)); err != nil {
		t.Fatalf("seeding databases list: %v", err)
	}
	if err := store.Write(ctx, domain.DeletedListName("wikitide"), domain.NewDeletedList(deleted)); err != nil {
		t.Fatalf("seeding deleted list: %v", err)
	}
	return store
}

func defaultLists() (map[string]domain.ListEntry, map[string]domain.ListEntry) {
	combi := map[string]domain.ListEntry{
		"testwikitide":   {SiteName: "Test Wiki", Cluster: "c1", Version: "1.40"},
		"customwikitide": {SiteName: "Custom", Cluster: "c2", Version: "1.41", URL: "https://wiki.example.com"},
		"plainwikitide":  {Cluster: "c2"},
	}
	deleted := map[string]domain.ListEntry{
		"oldwikitide": {SiteName: "Old Wiki", Cluster: "c3"},
	}
	return combi, deleted
}

func noEnv(string) string { return "" }

func newDirectory(t *testing.T, opts app.DirectoryOptions) *app.Directory {
	t.Helper()
	combi, deleted := defaultLists()
	store := seedLists(t, t.TempDir(), combi, deleted)
	if opts.Getenv == nil {
		opts.Getenv = noEnv
	}
	return app.NewDirectory(store, testFarms(), opts)
}

// writeFile creates path with content and sets its modification time.
func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	touch(t, path, mtime)
}

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
