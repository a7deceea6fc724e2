package cache

import (
	"context"

	"github.com/joocer/s1/internal/domain"
)

var _ domain.ObjectStore = (*Store)(nil)

// Store decorates a backend with the content cache. Fetch goes through the
// cache; Stat and List always reach the backend.
type Store struct {
	backend domain.ObjectStore
	cache   *Cache
}

// NewStore wraps backend with c.
func NewStore(backend domain.ObjectStore, c *Cache) *Store {
	return &Store{backend: backend, cache: c}
}

// Get returns a read-only view of the object content, fetching it on a miss.
func (s *Store) Get(ctx context.Context, key domain.ObjectKey) (Blob, error) {
	return s.cache.Get(ctx, key, s.fetch)
}

// Fetch returns a copy of the object content.
func (s *Store) Fetch(ctx context.Context, bucket, path string) ([]byte, error) {
	blob, err := s.Get(ctx, domain.ObjectKey{Bucket: bucket, Path: path})
	if err != nil {
		return nil, err
	}
	return blob.Bytes(), nil
}

// Stat passes through to the backend.
func (s *Store) Stat(ctx context.Context, bucket, path string) (domain.ObjectInfo, error) {
	return s.backend.Stat(ctx, bucket, path)
}

// List passes through to the backend.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]domain.ObjectInfo, error) {
	return s.backend.List(ctx, bucket, prefix)
}

// Cache returns the underlying cache.
func (s *Store) Cache() *Cache { return s.cache }

func (s *Store) fetch(ctx context.Context, key domain.ObjectKey) ([]byte, error) {
	return s.backend.Fetch(ctx, key.Bucket, key.Path)
}
