package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/joocer/s1/internal/domain"
)

var _ domain.ObjectStore = (*GCSStore)(nil)

// GCSStore reads objects from Google Cloud Storage.
type GCSStore struct {
	client *gcs.Client
}

// GCSOptions configures NewGCSStore.
type GCSOptions struct {
	CredentialsFile string // service account key; empty uses application default credentials
	EmulatorHost    string // when set, the client talks to an emulator without credentials
}

// NewGCSStore creates a client according to opts.
func NewGCSStore(ctx context.Context, opts GCSOptions) (*GCSStore, error) {
	var clientOpts []option.ClientOption
	switch {
	case opts.EmulatorHost != "":
		// The client library reads STORAGE_EMULATOR_HOST itself; it only
		// needs to be told not to look for credentials.
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithAuthCredentialsFile(option.ServiceAccount, opts.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// Close releases the client.
func (s *GCSStore) Close() error { return s.client.Close() }

// Fetch reads the whole object.
func (s *GCSStore) Fetch(ctx context.Context, bucket, path string) ([]byte, error) {
	r, err := s.client.Bucket(bucket).Object(path).NewReader(ctx)
	if err != nil {
		return nil, gcsError(bucket, path, err)
	}
	defer r.Close() //nolint:errcheck

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", bucket, path, err)
	}
	return data, nil
}

// Stat returns the object's attributes.
func (s *GCSStore) Stat(ctx context.Context, bucket, path string) (domain.ObjectInfo, error) {
	attrs, err := s.client.Bucket(bucket).Object(path).Attrs(ctx)
	if err != nil {
		return domain.ObjectInfo{}, gcsError(bucket, path, err)
	}
	return gcsInfo(attrs), nil
}

// List returns every object under prefix in key order.
func (s *GCSStore) List(ctx context.Context, bucket, prefix string) ([]domain.ObjectInfo, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	var out []domain.ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, gcsError(bucket, prefix, err)
		}
		out = append(out, gcsInfo(attrs))
	}
	return out, nil
}

func gcsInfo(attrs *gcs.ObjectAttrs) domain.ObjectInfo {
	return domain.ObjectInfo{
		Key:          attrs.Name,
		Size:         attrs.Size,
		LastModified: attrs.Updated.UTC(),
		ETag:         `"` + attrs.Etag + `"`,
	}
}

func gcsError(bucket, path string, err error) error {
	switch {
	case errors.Is(err, gcs.ErrObjectNotExist):
		return notFound(bucket, path)
	case errors.Is(err, gcs.ErrBucketNotExist):
		return domain.ErrNotFound("bucket %s not found", bucket)
	default:
		return fmt.Errorf("gs://%s/%s: %w", bucket, path, err)
	}
}
