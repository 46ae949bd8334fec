package jsonfile

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/neomorfeo/farmconf/internal/domain"
)

// Compile-time check: SnapshotStore implements domain.SnapshotStore.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore keeps one config-<dbname>.json file per wiki in dir.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates a store rooted at dir.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: dir}
}

// Path returns the cache file for dbname.
func (s *SnapshotStore) Path(dbname string) string {
	return filepath.Join(s.dir, "config-"+dbname+".json")
}

// Load returns the stored snapshot, (nil, nil) when none exists, or a
// *domain.CacheCorruptError when the file cannot be decoded.
func (s *SnapshotStore) Load(_ context.Context, dbname string) (*domain.ConfigSnapshot, error) {
	var snap domain.ConfigSnapshot
	found, err := Read(s.Path(dbname), &snap)
	if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			return nil, &domain.CacheCorruptError{Path: decodeErr.Path, Err: decodeErr.Err}
		}
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &snap, nil
}

// Save atomically replaces the snapshot file for dbname.
func (s *SnapshotStore) Save(_ context.Context, dbname string, snap domain.ConfigSnapshot) error {
	return Write(s.Path(dbname), snap)
}
