// Package storage provides the object store backends the gateway reads from.
package storage

import (
	"context"
	"crypto/md5" //nolint:gosec // etag, not security
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joocer/s1/internal/domain"
)

var _ domain.ObjectStore = (*LocalStore)(nil)

// LocalStore serves objects from a directory tree. Each top-level
// subdirectory of the root is a bucket.
type LocalStore struct {
	root string
}

// NewLocalStore returns a store rooted at dir. The directory must exist.
func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("local storage root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local storage root %s is not a directory", abs)
	}
	return &LocalStore{root: abs}, nil
}

// resolve maps bucket/path to a filesystem path inside the root. Keys that
// would escape their bucket are rejected.
func (s *LocalStore) resolve(bucket, p string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", domain.ErrValidation("invalid bucket name %q", bucket)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", domain.ErrValidation("invalid object key %q", p)
		}
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(p)), nil
}

// Fetch reads the whole object.
func (s *LocalStore) Fetch(ctx context.Context, bucket, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(bucket, p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full) //nolint:gosec // confined to root by resolve
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || isDirErr(full) {
			return nil, notFound(bucket, p)
		}
		return nil, fmt.Errorf("read %s/%s: %w", bucket, p, err)
	}
	return data, nil
}

// Stat returns object metadata without reading the content.
func (s *LocalStore) Stat(ctx context.Context, bucket, p string) (domain.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.ObjectInfo{}, err
	}
	full, err := s.resolve(bucket, p)
	if err != nil {
		return domain.ObjectInfo{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ObjectInfo{}, notFound(bucket, p)
		}
		return domain.ObjectInfo{}, fmt.Errorf("stat %s/%s: %w", bucket, p, err)
	}
	if info.IsDir() {
		return domain.ObjectInfo{}, notFound(bucket, p)
	}
	return s.objectInfo(bucket, p, info), nil
}

// List walks the bucket recursively and returns every object whose key
// starts with prefix, sorted by key.
func (s *LocalStore) List(ctx context.Context, bucket, prefix string) ([]domain.ObjectInfo, error) {
	base, err := s.resolve(bucket, "")
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(base); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound("bucket %s not found", bucket)
		}
		return nil, fmt.Errorf("stat bucket %s: %w", bucket, err)
	}

	var out []domain.ObjectInfo
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, s.objectInfo(bucket, key, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *LocalStore) objectInfo(bucket, key string, info fs.FileInfo) domain.ObjectInfo {
	sum := md5.Sum([]byte(fmt.Sprintf("%s/%s:%d:%d", bucket, key, info.Size(), info.ModTime().UnixNano()))) //nolint:gosec
	return domain.ObjectInfo{
		Key:          key,
		Size:         info.Size(),
		LastModified: info.ModTime().UTC(),
		ETag:         `"` + hex.EncodeToString(sum[:]) + `"`,
	}
}

func notFound(bucket, key string) error {
	return domain.ErrNotFound("object %s/%s not found", bucket, key)
}

func isDirErr(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
