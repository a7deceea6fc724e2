package query

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joocer/s1/internal/cache"
	"github.com/joocer/s1/internal/columnar"
	"github.com/joocer/s1/internal/domain"
	"github.com/joocer/s1/internal/output"
	"github.com/joocer/s1/internal/testutil"
)

func newSelectService(t *testing.T) (*SelectService, *testutil.MockObjectStore) {
	t.Helper()
	backend := testutil.NewMockObjectStore()
	backend.Put("bkt", "price.parquet", testutil.PriceParquet(t))
	backend.Put("bkt", "products.parquet", testutil.ProductsParquet(t))
	backend.Put("bkt", "notes.txt", []byte("this is not parquet"))
	c, err := cache.New(4)
	require.NoError(t, err)
	return NewSelectService(cache.NewStore(backend, c), nil), backend
}

func runSelect(t *testing.T, svc *SelectService, path, sql string, f output.Format) (string, output.Stats) {
	t.Helper()
	sel, err := svc.Prepare(context.Background(), SelectRequest{
		Key:        domain.ObjectKey{Bucket: "bkt", Path: path},
		Expression: sql,
		Format:     f,
	})
	require.NoError(t, err)
	var buf bytes.Buffer
	stats, err := sel.Stream(context.Background(), &buf)
	require.NoError(t, err)
	return buf.String(), stats
}

func TestSelect_PriceRoundTrip(t *testing.T) {
	svc, backend := newSelectService(t)

	js, stats := runSelect(t, svc, "price.parquet", "SELECT price FROM S3Object", output.JSON)
	assert.Equal(t, "{\"price\":150}\n", js)
	assert.Equal(t, int64(1), stats.Records)
	assert.Positive(t, stats.BytesScanned)
	assert.Equal(t, int64(len(js)), stats.BytesReturned)

	csv, _ := runSelect(t, svc, "price.parquet", "SELECT price FROM S3Object", output.CSV)
	assert.Equal(t, "150\n", csv)

	assert.Equal(t, 1, backend.FetchCount("bkt", "price.parquet"), "second select is served from cache")
}

func TestSelect_FilterAndProject(t *testing.T) {
	svc, _ := newSelectService(t)

	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"filter", "SELECT name, price FROM S3Object WHERE price > 100", "apple,150\ncherry,300\n"},
		{"alias", "SELECT s.id FROM S3Object s WHERE s.rating IS NULL", "2\n"},
		{"null renders empty", "SELECT id, name FROM S3Object WHERE id = 4", "4,\n"},
		{"limit", "SELECT id FROM S3Object LIMIT 2", "1\n2\n"},
		{"no match", "SELECT id FROM S3Object WHERE price > 1000", ""},
		{"wildcard", "SELECT * FROM S3Object WHERE id = 1", "1,apple,150,4.5,true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := runSelect(t, svc, "products.parquet", tt.sql, output.CSV)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_ErrorsBeforeFirstByte(t *testing.T) {
	svc, backend := newSelectService(t)

	tests := []struct {
		name string
		path string
		sql  string
		want interface{}
	}{
		{"parse", "price.parquet", "SELECT * FROM OtherAlias", new(*domain.ParseError)},
		{"format", "notes.txt", "SELECT * FROM S3Object", new(*domain.FormatError)},
		{"evaluation", "products.parquet", "SELECT missing FROM S3Object", new(*domain.EvaluationError)},
		{"evaluation in where", "products.parquet", "SELECT id FROM S3Object WHERE nope = 1", new(*domain.EvaluationError)},
		{"not found", "missing.parquet", "SELECT * FROM S3Object", new(*domain.NotFoundError)},
		{"empty expression", "price.parquet", "   ", new(*domain.ValidationError)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := svc.Prepare(context.Background(), SelectRequest{
				Key:        domain.ObjectKey{Bucket: "bkt", Path: tt.path},
				Expression: tt.sql,
			})
			require.Error(t, err)
			assert.Nil(t, sel)
			assert.True(t, errors.As(err, tt.want), "got %T: %v", err, err)
		})
	}

	assert.Zero(t, backend.FetchCount("bkt", "price.parquet"), "parse errors never reach storage")
}

func TestSelect_CaseCollidingColumns(t *testing.T) {
	svc, backend := newSelectService(t)
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "Price", Type: arrow.PrimitiveTypes.Int64},
		{Name: "price", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	backend.Put("bkt", "cased.parquet", testutil.WriteParquet(t, schema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.Int64Builder).Append(1)
		b.Field(1).(*array.Int64Builder).Append(2)
	}))

	tests := []struct {
		name    string
		sql     string
		want    string
		wantErr string
	}{
		{name: "exact names", sql: "SELECT Price, price FROM S3Object", want: "1,2\n"},
		{name: "quoted exact", sql: `SELECT "Price" FROM S3Object`, want: "1\n"},
		{name: "folded name is ambiguous", sql: "SELECT PRICE, price FROM S3Object", wantErr: "ambiguous"},
		{name: "folded name alone is ambiguous", sql: "SELECT PRICE FROM S3Object", wantErr: "ambiguous"},
		{name: "quoted folded does not match", sql: `SELECT "PRICE" FROM S3Object`, wantErr: "does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr == "" {
				got, _ := runSelect(t, svc, "cased.parquet", tt.sql, output.CSV)
				assert.Equal(t, tt.want, got)
				return
			}
			_, err := svc.Prepare(context.Background(), SelectRequest{
				Key:        domain.ObjectKey{Bucket: "bkt", Path: "cased.parquet"},
				Expression: tt.sql,
			})
			var ee *domain.EvaluationError
			require.True(t, errors.As(err, &ee), "got %T: %v", err, err)
			assert.Contains(t, ee.Message, tt.wantErr)
		})
	}
}

func TestSelect_FetchError(t *testing.T) {
	svc, backend := newSelectService(t)
	backend.FetchFn = func(context.Context, string, string) ([]byte, error) {
		return nil, errors.New("connection reset")
	}

	_, err := svc.Prepare(context.Background(), SelectRequest{
		Key:        domain.ObjectKey{Bucket: "bkt", Path: "price.parquet"},
		Expression: "SELECT * FROM S3Object",
	})
	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe), "got %T", err)
	assert.Equal(t, "bkt/price.parquet", fe.Key.String())
}

func TestSelection_FirstRowIsNotLost(t *testing.T) {
	svc, _ := newSelectService(t)

	sel, err := svc.Prepare(context.Background(), SelectRequest{
		Key:        domain.ObjectKey{Bucket: "bkt", Path: "products.parquet"},
		Expression: "SELECT id FROM S3Object",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, sel.Columns())

	var got []int64
	for sel.Next() {
		got = append(got, sel.Row()[0].Int)
	}
	require.NoError(t, sel.Err())
	assert.Equal(t, []int64{1, 2, 3, 4}, got)
}

func TestSelectService_Schema(t *testing.T) {
	svc, _ := newSelectService(t)

	schema, err := svc.Schema(context.Background(), domain.ObjectKey{Bucket: "bkt", Path: "products.parquet"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "price", "rating", "in_stock"}, schema.Names())
	i, ok := schema.Lookup("rating")
	require.True(t, ok)
	assert.Equal(t, columnar.Float, schema.Fields[i].Type)

	_, err = svc.Schema(context.Background(), domain.ObjectKey{Bucket: "bkt", Path: "notes.txt"})
	var fe *domain.FormatError
	assert.True(t, errors.As(err, &fe))
}
