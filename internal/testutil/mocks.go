// Package testutil provides shared mock implementations of domain interfaces
// and fixture builders for use in tests across the codebase.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joocer/s1/internal/domain"
)

// === Object Store Mock ===

// MockObjectStore implements domain.ObjectStore over an in-memory map keyed by
// "bucket/path". The *Fn hooks, when set, replace the default behaviour.
type MockObjectStore struct {
	FetchFn func(ctx context.Context, bucket, path string) ([]byte, error)
	StatFn  func(ctx context.Context, bucket, path string) (domain.ObjectInfo, error)
	ListFn  func(ctx context.Context, bucket, prefix string) ([]domain.ObjectInfo, error)

	mu      sync.Mutex
	objects map[string][]byte
	fetches map[string]int
}

// NewMockObjectStore creates an empty mock store.
func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{
		objects: make(map[string][]byte),
		fetches: make(map[string]int),
	}
}

// Put stores an object.
func (m *MockObjectStore) Put(bucket, path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+path] = data
}

// FetchCount returns how many times Fetch reached the mock for the object.
func (m *MockObjectStore) FetchCount(bucket, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[bucket+"/"+path]
}

// Fetch implements the interface method for testing.
func (m *MockObjectStore) Fetch(ctx context.Context, bucket, path string) ([]byte, error) {
	m.mu.Lock()
	m.fetches[bucket+"/"+path]++
	data, ok := m.objects[bucket+"/"+path]
	m.mu.Unlock()
	if m.FetchFn != nil {
		return m.FetchFn(ctx, bucket, path)
	}
	if !ok {
		return nil, domain.ErrNotFound("object %s/%s not found", bucket, path)
	}
	return data, nil
}

// Stat implements the interface method for testing.
func (m *MockObjectStore) Stat(ctx context.Context, bucket, path string) (domain.ObjectInfo, error) {
	if m.StatFn != nil {
		return m.StatFn(ctx, bucket, path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+path]
	if !ok {
		return domain.ObjectInfo{}, domain.ErrNotFound("object %s/%s not found", bucket, path)
	}
	return info(path, data), nil
}

// List implements the interface method for testing.
func (m *MockObjectStore) List(ctx context.Context, bucket, prefix string) ([]domain.ObjectInfo, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, bucket, prefix)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ObjectInfo
	for k, data := range m.objects {
		b, path, _ := strings.Cut(k, "/")
		if b == bucket && strings.HasPrefix(path, prefix) {
			out = append(out, info(path, data))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// FixedTime is the LastModified reported for every mock object.
var FixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func info(path string, data []byte) domain.ObjectInfo {
	return domain.ObjectInfo{
		Key:          path,
		Size:         int64(len(data)),
		LastModified: FixedTime,
		ETag:         `"` + path + `"`,
	}
}
