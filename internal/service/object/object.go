// Package object implements the read side of the S3 object API: GetObject,
// HeadObject and ListObjects.
package object

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/joocer/s1/internal/cache"
	"github.com/joocer/s1/internal/domain"
)

// DefaultMaxKeys is the page size used when a listing does not ask for one.
const DefaultMaxKeys = 1000

// Store is the storage surface the service needs. *cache.Store satisfies it.
type Store interface {
	Get(ctx context.Context, key domain.ObjectKey) (cache.Blob, error)
	Stat(ctx context.Context, bucket, path string) (domain.ObjectInfo, error)
	List(ctx context.Context, bucket, prefix string) ([]domain.ObjectInfo, error)
}

// ListParams are the query parameters of a ListObjects request.
type ListParams struct {
	Prefix            string
	Delimiter         string
	MaxKeys           int
	Marker            string
	StartAfter        string
	ContinuationToken string
}

// Pivot is the key a page starts after. start-after wins over
// continuation-token, which wins over marker.
func (p ListParams) Pivot() string {
	switch {
	case p.StartAfter != "":
		return p.StartAfter
	case p.ContinuationToken != "":
		return p.ContinuationToken
	default:
		return p.Marker
	}
}

// ListResult is one page of a listing.
type ListResult struct {
	Contents       []domain.ObjectInfo
	CommonPrefixes []string
	IsTruncated    bool
	// NextMarker is the last key or common prefix in the page when the listing
	// is truncated. It doubles as the V2 continuation token.
	NextMarker string
}

// KeyCount is the number of keys and common prefixes in the page.
func (r *ListResult) KeyCount() int {
	return len(r.Contents) + len(r.CommonPrefixes)
}

// Service answers object reads through the cached store.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, logger: logger}
}

// Get returns the object content through the cache.
func (s *Service) Get(ctx context.Context, key domain.ObjectKey) (cache.Blob, error) {
	if err := validateKey(key); err != nil {
		return cache.Blob{}, err
	}
	return s.store.Get(ctx, key)
}

// Head returns object metadata from the backend.
func (s *Service) Head(ctx context.Context, key domain.ObjectKey) (domain.ObjectInfo, error) {
	if err := validateKey(key); err != nil {
		return domain.ObjectInfo{}, err
	}
	return s.store.Stat(ctx, key.Bucket, key.Path)
}

// List returns one page of objects in bucket. Keys sharing a segment up to
// the delimiter after the prefix are rolled up into CommonPrefixes.
func (s *Service) List(ctx context.Context, bucket string, p ListParams) (*ListResult, error) {
	if bucket == "" {
		return nil, domain.ErrValidation("bucket name is required")
	}
	if p.MaxKeys < 0 {
		return nil, domain.ErrValidation("max-keys must not be negative, got %d", p.MaxKeys)
	}

	objects, err := s.store.List(ctx, bucket, p.Prefix)
	if err != nil {
		return nil, err
	}
	if p.MaxKeys == 0 {
		return &ListResult{}, nil
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	res := &ListResult{}
	pivot := p.Pivot()
	seen := make(map[string]bool)
	var last string
	for _, obj := range objects {
		if pivot != "" && obj.Key <= pivot {
			continue
		}
		entry, prefix := obj.Key, ""
		if p.Delimiter != "" {
			rest := strings.TrimPrefix(obj.Key, p.Prefix)
			if i := strings.Index(rest, p.Delimiter); i >= 0 {
				prefix = p.Prefix + rest[:i+len(p.Delimiter)]
				entry = prefix
			}
		}
		if prefix != "" && seen[prefix] {
			continue
		}
		// A common prefix sorting at or before the pivot was already
		// returned on an earlier page.
		if prefix != "" && pivot != "" && strings.HasPrefix(pivot, prefix) {
			continue
		}
		if res.KeyCount() == p.MaxKeys {
			res.IsTruncated = true
			res.NextMarker = last
			break
		}
		if prefix != "" {
			seen[prefix] = true
			res.CommonPrefixes = append(res.CommonPrefixes, prefix)
		} else {
			res.Contents = append(res.Contents, obj)
		}
		last = entry
	}

	s.logger.DebugContext(ctx, "listed objects",
		"bucket", bucket, "prefix", p.Prefix, "keys", res.KeyCount(), "truncated", res.IsTruncated)
	return res, nil
}

func validateKey(key domain.ObjectKey) error {
	if key.Bucket == "" || key.Path == "" {
		return domain.ErrValidation("bucket and key are required")
	}
	return nil
}
