// Package listfile stores the generated wiki lists as JSON files named
// <name>.json under a cache directory.
package listfile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/neomorfeo/farmconf/internal/adapter/jsonfile"
	"github.com/neomorfeo/farmconf/internal/domain"
)

// Compile-time check: Store implements domain.ListStore.
var _ domain.ListStore = (*Store)(nil)

// Store reads and writes list files directly on disk.
type Store struct {
	dir string
}

// New creates a store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the file backing list name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Read returns the named list. A missing file is a cold cache, not a fault,
// and yields an empty list.
func (s *Store) Read(_ context.Context, name string) (domain.ListFile, error) {
	var list domain.ListFile
	if _, err := jsonfile.Read(s.Path(name), &list); err != nil {
		return domain.ListFile{}, fmt.Errorf("reading list %s: %w", name, err)
	}
	return list, nil
}

// Write atomically replaces the named list.
func (s *Store) Write(_ context.Context, name string, list domain.ListFile) error {
	if err := jsonfile.Write(s.Path(name), list); err != nil {
		return fmt.Errorf("writing list %s: %w", name, err)
	}
	return nil
}

// WriteSet replaces every list in lists. Nothing is replaced unless every
// list was staged.
func (s *Store) WriteSet(_ context.Context, lists map[string]domain.ListFile) error {
	docs := make(map[string]any, len(lists))
	for name, list := range lists {
		docs[s.Path(name)] = list
	}
	if err := jsonfile.WriteAll(docs); err != nil {
		return fmt.Errorf("writing lists: %w", err)
	}
	return nil
}
