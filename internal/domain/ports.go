package domain

import "context"

// ObjectStore is the storage port every backend implements.
// Implemented by storage.Local, storage.GCS, storage.S3 and storage.Azure, and
// decorated by cache.Store.
//
// A missing bucket or object is reported as *NotFoundError. Any other error is
// treated by callers as a fetch failure.
type ObjectStore interface {
	// Fetch returns the full content of the object.
	Fetch(ctx context.Context, bucket, path string) ([]byte, error)
	// Stat returns metadata for a single object.
	Stat(ctx context.Context, bucket, path string) (ObjectInfo, error)
	// List returns every object whose key starts with prefix, sorted by key.
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}
