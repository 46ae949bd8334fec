package listfile

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/neomorfeo/farmconf/internal/domain"
)

// Compile-time check: CachedStore implements domain.ListStore.
var _ domain.ListStore = (*CachedStore)(nil)

// CachedStore keeps decoded lists in process memory for a short TTL so a
// long-running server does not re-read every list on every request. Writes go
// through to the wrapped store and refresh the cached copy.
type CachedStore struct {
	next  domain.ListStore
	cache *ttlcache.Cache[string, domain.ListFile]
}

// NewCachedStore wraps next with a TTL cache. Call Stop when done.
func NewCachedStore(next domain.ListStore, ttl time.Duration) *CachedStore {
	cache := ttlcache.New[string, domain.ListFile](
		ttlcache.WithTTL[string, domain.ListFile](ttl),
		ttlcache.WithDisableTouchOnHit[string, domain.ListFile](),
	)
	go cache.Start()
	return &CachedStore{next: next, cache: cache}
}

func (s *CachedStore) Read(ctx context.Context, name string) (domain.ListFile, error) {
	if item := s.cache.Get(name); item != nil {
		return item.Value(), nil
	}
	list, err := s.next.Read(ctx, name)
	if err != nil {
		return domain.ListFile{}, err
	}
	s.cache.Set(name, list, ttlcache.DefaultTTL)
	return list, nil
}

func (s *CachedStore) Write(ctx context.Context, name string, list domain.ListFile) error {
	if err := s.next.Write(ctx, name, list); err != nil {
		s.cache.Delete(name)
		return err
	}
	s.cache.Set(name, list, ttlcache.DefaultTTL)
	return nil
}

func (s *CachedStore) WriteSet(ctx context.Context, lists map[string]domain.ListFile) error {
	if err := s.next.WriteSet(ctx, lists); err != nil {
		for name := range lists {
			s.cache.Delete(name)
		}
		return err
	}
	for name, list := range lists {
		s.cache.Set(name, list, ttlcache.DefaultTTL)
	}
	return nil
}

// Stop halts the expiry loop.
func (s *CachedStore) Stop() {
	s.cache.Stop()
}
