package domain

import (
	"strings"
	"time"
)

// ObjectKey identifies an object within a bucket. It is both the storage lookup
// key and the content cache key.
type ObjectKey struct {
	Bucket string
	Path   string
}

// String renders the key as bucket/path.
func (k ObjectKey) String() string {
	return k.Bucket + "/" + k.Path
}

// ParseObjectKey splits "bucket/path/to/object" into an ObjectKey.
// A leading "s3://" or "/" is tolerated.
func ParseObjectKey(s string) (ObjectKey, error) {
	s = strings.TrimPrefix(s, "s3://")
	s = strings.TrimPrefix(s, "/")
	bucket, path, ok := strings.Cut(s, "/")
	if !ok || bucket == "" || path == "" {
		return ObjectKey{}, ErrValidation("object reference %q must be bucket/key", s)
	}
	return ObjectKey{Bucket: bucket, Path: path}, nil
}

// ObjectInfo describes a stored object without its content.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}
