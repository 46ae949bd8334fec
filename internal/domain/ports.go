package domain

import "context"

// Registry is the backing store of record for wikis. It exposes the three
// read shapes list generation needs.
type Registry interface {
	// ActiveWikis returns wikis that are not closed, inactive or deleted.
	ActiveWikis(ctx context.Context) ([]Wiki, error)
	// CombiWikis returns all non-deleted wikis, optionally pinned to version.
	CombiWikis(ctx context.Context, version string) ([]Wiki, error)
	// DeletedWikis returns deleted wikis only.
	DeletedWikis(ctx context.Context) ([]Wiki, error)
}

// WikiRepository defines the write side of the registry.
type WikiRepository interface {
	Create(ctx context.Context, wiki Wiki) error
	Get(ctx context.Context, dbname string) (Wiki, error)
	List(ctx context.Context, filter ListFilter) ([]Wiki, error)
	Update(ctx context.Context, wiki Wiki) error
}

// ListFilter holds optional criteria for listing registry wikis.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// ListStore reads and writes generated list files. WriteSet replaces several
// lists together and leaves all of them untouched when any one fails before
// the first replacement.
type ListStore interface {
	Read(ctx context.Context, name string) (ListFile, error)
	Write(ctx context.Context, name string, list ListFile) error
	WriteSet(ctx context.Context, lists map[string]ListFile) error
}

// SnapshotStore persists config snapshots. Load returns (nil, nil) when no
// snapshot exists and *CacheCorruptError when one exists but is unreadable.
type SnapshotStore interface {
	Load(ctx context.Context, dbname string) (*ConfigSnapshot, error)
	Save(ctx context.Context, dbname string, snap ConfigSnapshot) error
}

// EventPublisher defines the contract for emitting registry change events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, wiki Wiki) error
}

// TransitionValidator checks lifecycle transitions.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
	Available(current Status) []Event
}
