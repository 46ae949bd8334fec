package app

import (
	"context"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/neomorfeo/farmconf/internal/domain"
)

// ExtensionSet is the resolved set of active extensions of one wiki.
type ExtensionSet struct {
	names []string
	set   mapset.Set[string]
}

// NewExtensionSet builds a set keeping names in the given order.
func NewExtensionSet(names []string) *ExtensionSet {
	return &ExtensionSet{
		names: slices.Clone(names),
		set:   mapset.NewThreadUnsafeSet(names...),
	}
}

// Names returns the active extensions in declaration order.
func (s *ExtensionSet) Names() []string {
	return slices.Clone(s.names)
}

// IsActive reports whether name is active.
func (s *ExtensionSet) IsActive(name string) bool {
	return s.set.Contains(name)
}

// AnyActive reports whether at least one of names is active.
func (s *ExtensionSet) AnyActive(names ...string) bool {
	return s.set.ContainsAny(names...)
}

// AllActive reports whether every one of names is active. It is true for no
// names.
func (s *ExtensionSet) AllActive(names ...string) bool {
	return s.set.Contains(names...)
}

// Extensions resolves which extensions a wiki runs.
type Extensions struct {
	dir      *Directory
	sources  Sources
	store    domain.SnapshotStore
	disabled mapset.Set[string]
}

// NewExtensions creates a resolver. disabled lists declaration keys switched
// off for the whole process.
func NewExtensions(dir *Directory, sources Sources, store domain.SnapshotStore, disabled []string) *Extensions {
	return &Extensions{
		dir:      dir,
		sources:  sources,
		store:    store,
		disabled: mapset.NewSet(disabled...),
	}
}

// Active returns the wiki's active extensions. The list stored in a current
// config snapshot is used when there is one; otherwise it is computed from
// the declarations and the override document. The result is memoized on rc.
func (e *Extensions) Active(ctx context.Context, rc *RequestContext) (*ExtensionSet, error) {
	if rc.extensions != nil {
		return rc.extensions, nil
	}

	l, err := resolveLookup(ctx, e.dir, e.sources, rc)
	if err != nil {
		return nil, err
	}
	snap, err := e.store.Load(ctx, l.dbname)
	if err != nil {
		return nil, err
	}

	var names []string
	if snap != nil && snap.Mtime == l.fp {
		names = snap.Extensions
	} else {
		doc, err := override(rc, e.sources, l.dbname)
		if err != nil {
			return nil, err
		}
		if names, err = e.compute(rc, doc); err != nil {
			return nil, err
		}
	}

	rc.extensions = NewExtensionSet(names)
	return rc.extensions, nil
}

// compute intersects the declared extensions with those doc enables, minus
// the process-wide disabled set. Names come back in declaration key order.
func (e *Extensions) compute(rc *RequestContext, doc *domain.OverrideDocument) ([]string, error) {
	if doc == nil {
		return []string{}, nil
	}
	decls, err := declarations(rc, e.sources)
	if err != nil {
		return nil, err
	}
	enabled := mapset.NewThreadUnsafeSet(doc.Extensions...)

	names := make([]string, 0, len(doc.Extensions))
	for _, d := range decls {
		if enabled.Contains(d.Key) && !e.disabled.Contains(d.Key) {
			names = append(names, d.Name)
		}
	}
	return names, nil
}
