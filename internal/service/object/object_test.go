package object

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joocer/s1/internal/cache"
	"github.com/joocer/s1/internal/domain"
	"github.com/joocer/s1/internal/testutil"
)

func newService(t *testing.T, keys ...string) (*Service, *testutil.MockObjectStore) {
	t.Helper()
	backend := testutil.NewMockObjectStore()
	for _, k := range keys {
		backend.Put("bkt", k, []byte("content of "+k))
	}
	c, err := cache.New(8)
	require.NoError(t, err)
	return NewService(cache.NewStore(backend, c), nil), backend
}

func listKeys(r *ListResult) []string {
	out := make([]string, 0, len(r.Contents))
	for _, o := range r.Contents {
		out = append(out, o.Key)
	}
	return out
}

func TestService_GetIsCached(t *testing.T) {
	svc, backend := newService(t, "a.parquet")
	ctx := context.Background()
	key := domain.ObjectKey{Bucket: "bkt", Path: "a.parquet"}

	for range 3 {
		blob, err := svc.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "content of a.parquet", string(blob.Bytes()))
	}
	assert.Equal(t, 1, backend.FetchCount("bkt", "a.parquet"))

	_, err := svc.Get(ctx, domain.ObjectKey{Bucket: "bkt", Path: "missing"})
	var nf *domain.NotFoundError
	assert.True(t, errors.As(err, &nf))

	_, err = svc.Get(ctx, domain.ObjectKey{Bucket: "bkt"})
	var ve *domain.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestService_Head(t *testing.T) {
	svc, backend := newService(t, "a.parquet")

	info, err := svc.Head(context.Background(), domain.ObjectKey{Bucket: "bkt", Path: "a.parquet"})
	require.NoError(t, err)
	assert.Equal(t, int64(len("content of a.parquet")), info.Size)
	assert.Equal(t, testutil.FixedTime, info.LastModified)
	assert.Zero(t, backend.FetchCount("bkt", "a.parquet"), "head does not read content")
}

func TestService_List(t *testing.T) {
	svc, _ := newService(t,
		"a.csv", "b.parquet", "logs/2024/01.json", "logs/2024/02.json", "logs/readme", "z/x")
	ctx := context.Background()

	tests := []struct {
		name      string
		params    ListParams
		keys      []string
		prefixes  []string
		truncated bool
		next      string
	}{
		{
			name:   "everything",
			params: ListParams{MaxKeys: DefaultMaxKeys},
			keys:   []string{"a.csv", "b.parquet", "logs/2024/01.json", "logs/2024/02.json", "logs/readme", "z/x"},
		},
		{
			name:   "prefix",
			params: ListParams{Prefix: "logs/", MaxKeys: DefaultMaxKeys},
			keys:   []string{"logs/2024/01.json", "logs/2024/02.json", "logs/readme"},
		},
		{
			name:     "delimiter at root",
			params:   ListParams{Delimiter: "/", MaxKeys: DefaultMaxKeys},
			keys:     []string{"a.csv", "b.parquet"},
			prefixes: []string{"logs/", "z/"},
		},
		{
			name:     "delimiter under prefix",
			params:   ListParams{Prefix: "logs/", Delimiter: "/", MaxKeys: DefaultMaxKeys},
			keys:     []string{"logs/readme"},
			prefixes: []string{"logs/2024/"},
		},
		{
			name:      "max keys truncates",
			params:    ListParams{MaxKeys: 2},
			keys:      []string{"a.csv", "b.parquet"},
			truncated: true,
			next:      "b.parquet",
		},
		{
			name:   "marker",
			params: ListParams{Marker: "b.parquet", MaxKeys: DefaultMaxKeys},
			keys:   []string{"logs/2024/01.json", "logs/2024/02.json", "logs/readme", "z/x"},
		},
		{
			name:   "start-after wins over marker",
			params: ListParams{Marker: "a", StartAfter: "logs/readme", MaxKeys: DefaultMaxKeys},
			keys:   []string{"z/x"},
		},
		{
			name:   "continuation token",
			params: ListParams{ContinuationToken: "logs/2024/01.json", MaxKeys: 1},
			keys:   []string{"logs/2024/02.json"}, truncated: true, next: "logs/2024/02.json",
		},
		{
			name:     "common prefix not repeated after pivot",
			params:   ListParams{Delimiter: "/", StartAfter: "logs/", MaxKeys: DefaultMaxKeys},
			prefixes: []string{"z/"},
		},
		{
			name:      "common prefix counts toward max keys",
			params:    ListParams{Delimiter: "/", MaxKeys: 3},
			keys:      []string{"a.csv", "b.parquet"},
			prefixes:  []string{"logs/"},
			truncated: true,
			next:      "logs/",
		},
		{
			name:   "zero max keys",
			params: ListParams{MaxKeys: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.List(ctx, "bkt", tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.keys, nilIfEmpty(listKeys(res)))
			assert.Equal(t, tt.prefixes, res.CommonPrefixes)
			assert.Equal(t, tt.truncated, res.IsTruncated)
			assert.Equal(t, tt.next, res.NextMarker)
		})
	}
}

func TestService_ListPagination(t *testing.T) {
	svc, _ := newService(t, "1", "2", "3", "4", "5")
	ctx := context.Background()

	var all []string
	token := ""
	for pages := 0; pages < 10; pages++ {
		res, err := svc.List(ctx, "bkt", ListParams{ContinuationToken: token, MaxKeys: 2})
		require.NoError(t, err)
		all = append(all, listKeys(res)...)
		if !res.IsTruncated {
			break
		}
		token = res.NextMarker
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, all)
}

func TestService_ListErrors(t *testing.T) {
	svc, backend := newService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, "bkt", ListParams{MaxKeys: -1})
	var ve *domain.ValidationError
	assert.True(t, errors.As(err, &ve))

	backend.ListFn = func(context.Context, string, string) ([]domain.ObjectInfo, error) {
		return nil, domain.ErrNotFound("bucket %s not found", "bkt")
	}
	_, err = svc.List(ctx, "bkt", ListParams{MaxKeys: 1})
	var nf *domain.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestListParams_Pivot(t *testing.T) {
	assert.Equal(t, "s", ListParams{StartAfter: "s", ContinuationToken: "c", Marker: "m"}.Pivot())
	assert.Equal(t, "c", ListParams{ContinuationToken: "c", Marker: "m"}.Pivot())
	assert.Equal(t, "m", ListParams{Marker: "m"}.Pivot())
	assert.Empty(t, ListParams{}.Pivot())
}

func nilIfEmpty(v []string) []string {
	if len(v) == 0 {
		return nil
	}
	return v
}
