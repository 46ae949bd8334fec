package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/neomorfeo/farmconf/internal/adapter/sqlite"
	"github.com/neomorfeo/farmconf/internal/domain"
)

// newTestRepo creates an in-memory SQLite repository for testing.
func newTestRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCreate(t *testing.T, repo *sqlite.Repository, wiki domain.Wiki) {
	t.Helper()
	if err := repo.Create(context.Background(), wiki); err != nil {
		t.Fatalf("mustCreate failed: %v", err)
	}
}

func withStatus(w domain.Wiki, s domain.Status) domain.Wiki {
	w.Status = s
	return w
}

func TestCreate_And_Get(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	wiki := domain.NewWiki("testwikitide", "Test Wiki", "c1", "1.40")
	wiki.URL = "https://test.example.com"
	wiki.Private = true

	if err := repo.Create(ctx, wiki); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.Get(ctx, "testwikitide")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.SiteName != "Test Wiki" {
		t.Errorf("SiteName = %q, want %q", got.SiteName, "Test Wiki")
	}
	if got.Cluster != "c1" {
		t.Errorf("Cluster = %q, want %q", got.Cluster, "c1")
	}
	if got.URL != "https://test.example.com" {
		t.Errorf("URL = %q", got.URL)
	}
	if got.Version != "1.40" {
		t.Errorf("Version = %q, want %q", got.Version, "1.40")
	}
	if got.Status != domain.StatusActive {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusActive)
	}
	if !got.Private || got.Locked {
		t.Errorf("Private = %v, Locked = %v", got.Private, got.Locked)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
}

func TestCreate_NullableColumns(t *testing.T) {
	repo := newTestRepo(t)
	mustCreate(t, repo, domain.NewWiki("plainwikitide", "Plain", "c2", ""))

	got, err := repo.Get(context.Background(), "plainwikitide")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.URL != "" || got.Version != "" {
		t.Errorf("URL = %q, Version = %q, want both empty", got.URL, got.Version)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "nonexistentwikitide")
	if !errors.Is(err, domain.ErrWikiNotFound) {
		t.Errorf("expected ErrWikiNotFound, got %v", err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo := newTestRepo(t)

	mustCreate(t, repo, domain.NewWiki("testwikitide", "Test", "c1", ""))
	err := repo.Create(context.Background(), domain.NewWiki("testwikitide", "Again", "c2", ""))

	var existsErr *domain.WikiExistsError
	if !errors.As(err, &existsErr) {
		t.Fatalf("expected WikiExistsError, got %v", err)
	}
	if existsErr.DBName != "testwikitide" {
		t.Errorf("dbname = %q, want %q", existsErr.DBName, "testwikitide")
	}
}

func TestUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	wiki := domain.NewWiki("testwikitide", "Test", "c1", "")
	mustCreate(t, repo, wiki)

	wiki.Status = domain.StatusClosed
	wiki.SiteName = "Test Updated"
	wiki.Locked = true

	if err := repo.Update(ctx, wiki); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := repo.Get(ctx, "testwikitide")
	if got.Status != domain.StatusClosed {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusClosed)
	}
	if got.SiteName != "Test Updated" {
		t.Errorf("SiteName = %q, want %q", got.SiteName, "Test Updated")
	}
	if !got.Locked {
		t.Error("Locked should be set")
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Error("UpdatedAt should not be before CreatedAt")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Update(context.Background(), domain.NewWiki("nonexistentwikitide", "X", "c1", ""))
	if !errors.Is(err, domain.ErrWikiNotFound) {
		t.Errorf("expected ErrWikiNotFound, got %v", err)
	}
}

func seedRegistry(t *testing.T, repo *sqlite.Repository) {
	t.Helper()
	mustCreate(t, repo, domain.NewWiki("activewikitide", "Active", "c1", "1.40"))
	mustCreate(t, repo, domain.NewWiki("betawikitide", "Beta", "c1", "1.41"))
	mustCreate(t, repo, withStatus(domain.NewWiki("closedwikitide", "Closed", "c2", "1.40"), domain.StatusClosed))
	mustCreate(t, repo, withStatus(domain.NewWiki("sleepywikitide", "Sleepy", "c2", ""), domain.StatusInactive))
	mustCreate(t, repo, withStatus(domain.NewWiki("gonewikitide", "Gone", "c3", "1.40"), domain.StatusDeleted))
}

func names(wikis []domain.Wiki) []string {
	out := make([]string, len(wikis))
	for i, w := range wikis {
		out[i] = w.DBName
	}
	return out
}

func TestRegistryReadShapes(t *testing.T) {
	repo := newTestRepo(t)
	seedRegistry(t, repo)
	ctx := context.Background()

	tests := []struct {
		name  string
		query func() ([]domain.Wiki, error)
		want  []string
	}{
		{"active", func() ([]domain.Wiki, error) { return repo.ActiveWikis(ctx) },
			[]string{"activewikitide", "betawikitide"}},
		{"combi", func() ([]domain.Wiki, error) { return repo.CombiWikis(ctx, "") },
			[]string{"activewikitide", "betawikitide", "closedwikitide", "sleepywikitide"}},
		{"combi pinned", func() ([]domain.Wiki, error) { return repo.CombiWikis(ctx, "1.40") },
			[]string{"activewikitide", "closedwikitide"}},
		{"deleted", func() ([]domain.Wiki, error) { return repo.DeletedWikis(ctx) },
			[]string{"gonewikitide"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wikis, err := tt.query()
			if err != nil {
				t.Fatalf("query failed: %v", err)
			}
			if got := names(wikis); fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestList_FilterByStatus(t *testing.T) {
	repo := newTestRepo(t)
	seedRegistry(t, repo)

	for status, want := range map[domain.Status]int{
		domain.StatusActive:   2,
		domain.StatusClosed:   1,
		domain.StatusInactive: 1,
		domain.StatusDeleted:  1,
	} {
		wikis, err := repo.List(context.Background(), domain.ListFilter{Status: &status})
		if err != nil {
			t.Fatalf("List(%s) failed: %v", status, err)
		}
		if len(wikis) != want {
			t.Errorf("List(%s) = %v, want %d wikis", status, names(wikis), want)
		}
		for _, w := range wikis {
			if w.Status != status {
				t.Errorf("List(%s) returned %s in status %s", status, w.DBName, w.Status)
			}
		}
	}
}

func TestList_Pagination(t *testing.T) {
	repo := newTestRepo(t)

	for i := range 5 {
		mustCreate(t, repo, domain.NewWiki(fmt.Sprintf("w%dwikitide", i), "W", "c1", ""))
	}

	wikis, err := repo.List(context.Background(), domain.ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if got := names(wikis); fmt.Sprint(got) != "[w1wikitide w2wikitide]" {
		t.Errorf("got %v", got)
	}

	wikis, err = repo.List(context.Background(), domain.ListFilter{Offset: 3})
	if err != nil {
		t.Fatalf("List with offset only failed: %v", err)
	}
	if len(wikis) != 2 {
		t.Errorf("got %d wikis, want 2", len(wikis))
	}
}
