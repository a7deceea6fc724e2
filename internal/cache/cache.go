// Package cache provides a bounded, key-addressed content cache with
// single-flight fetch coordination.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"

	"github.com/joocer/s1/internal/domain"
)

// DefaultCapacity is the number of objects held when no capacity is configured.
const DefaultCapacity = 128

// FetchFunc loads the content for key from the backing store.
type FetchFunc func(ctx context.Context, key domain.ObjectKey) ([]byte, error)

// Blob is a read-only view over cached object content.
type Blob struct {
	data []byte
}

// Len returns the content size in bytes.
func (b Blob) Len() int { return len(b.data) }

// NewReader returns an independent reader positioned at the start of the content.
func (b Blob) NewReader() *bytes.Reader { return bytes.NewReader(b.data) }

// WriteTo writes the content to w.
func (b Blob) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.data)
	return int64(n), err
}

// Bytes returns a copy of the content.
func (b Blob) Bytes() []byte { return bytes.Clone(b.data) }

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Fetches   uint64
	Evictions uint64
	Entries   int
	Capacity  int
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for fetch and eviction events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// Cache is a strict LRU over object content. Concurrent misses for the same key
// are coalesced so the backing store sees at most one fetch per key at a time.
// Failed fetches are never stored.
type Cache struct {
	mu       sync.Mutex
	entries  *simplelru.LRU[domain.ObjectKey, []byte]
	flights  singleflight.Group
	capacity int
	logger   *slog.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	fetches   atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache holding at most capacity objects.
func New(capacity int, opts ...Option) (*Cache, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("cache capacity must be at least 1, got %d", capacity)
	}
	entries, err := simplelru.NewLRU[domain.ObjectKey, []byte](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c := &Cache{
		entries:  entries,
		capacity: capacity,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the content for key, calling fetch on a miss.
//
// A *domain.NotFoundError from fetch is returned unchanged; any other failure is
// wrapped in *domain.FetchError. Every caller waiting on the same fetch receives
// the same content or the same error. A caller whose context ends while waiting
// returns the context error; the shared fetch carries on for the others.
func (c *Cache) Get(ctx context.Context, key domain.ObjectKey, fetch FetchFunc) (Blob, error) {
	if data, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return Blob{data: data}, nil
	}
	c.misses.Add(1)

	ch := c.flights.DoChan(key.String(), func() (interface{}, error) {
		// A flight for this key may have completed between the miss above and
		// joining the group.
		if data, ok := c.lookup(key); ok {
			return data, nil
		}
		return c.load(context.WithoutCancel(ctx), key, fetch)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Blob{}, res.Err
		}
		return Blob{data: res.Val.([]byte)}, nil
	case <-ctx.Done():
		return Blob{}, ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context, key domain.ObjectKey, fetch FetchFunc) ([]byte, error) {
	c.fetches.Add(1)
	data, err := fetch(ctx, key)
	if err != nil {
		var notFound *domain.NotFoundError
		var fetchErr *domain.FetchError
		switch {
		case errors.As(err, &notFound), errors.As(err, &fetchErr):
			return nil, err
		default:
			c.logger.Warn("fetch failed", "key", key.String(), "error", err)
			return nil, domain.ErrFetch(key, err)
		}
	}
	if data == nil {
		data = []byte{}
	}

	c.mu.Lock()
	evicted := c.entries.Add(key, data)
	c.mu.Unlock()
	if evicted {
		c.evictions.Add(1)
	}
	c.logger.Debug("cached object", "key", key.String(), "bytes", len(data), "evicted", evicted)
	return data, nil
}

// lookup returns the cached content and marks it most recently used.
func (c *Cache) lookup(key domain.ObjectKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(key)
}

// Contains reports whether key is cached without touching its recency.
func (c *Cache) Contains(key domain.ObjectKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Contains(key)
}

// Len returns the number of cached objects.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Purge drops every cached object. In-flight fetches still complete and
// populate the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	n := c.entries.Len()
	c.entries.Purge()
	c.mu.Unlock()
	c.logger.Info("cache purged", "entries", n)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Fetches:   c.fetches.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.Len(),
		Capacity:  c.capacity,
	}
}
