package testutil

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/require"
)

// WriteParquet builds a single-record Parquet file. build appends the column
// values through the record builder.
func WriteParquet(t testing.TB, schema *arrow.Schema, build func(b *array.RecordBuilder)) []byte {
	t.Helper()

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	build(b)

	rec := b.NewRecord()
	defer rec.Release()

	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	err := pqarrow.WriteTable(tbl, &buf, 1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	return buf.Bytes()
}

// ProductsParquet returns a small product catalogue with a nullable column:
//
//	id | name    | price | rating | in_stock
//	 1 | apple   |   150 |   4.5  | true
//	 2 | banana  |    20 |   null | false
//	 3 | cherry  |   300 |   3.0  | null
//	 4 | null    |    75 |   5.0  | true
func ProductsParquet(t testing.TB) []byte {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "price", Type: arrow.PrimitiveTypes.Int32},
		{Name: "rating", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "in_stock", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
	}, nil)
	return WriteParquet(t, schema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 3, 4}, nil)
		b.Field(1).(*array.StringBuilder).AppendValues(
			[]string{"apple", "banana", "cherry", ""}, []bool{true, true, true, false})
		b.Field(2).(*array.Int32Builder).AppendValues([]int32{150, 20, 300, 75}, nil)
		b.Field(3).(*array.Float64Builder).AppendValues(
			[]float64{4.5, 0, 3.0, 5.0}, []bool{true, false, true, true})
		b.Field(4).(*array.BooleanBuilder).AppendValues(
			[]bool{true, false, false, true}, []bool{true, true, false, true})
	})
}

// PriceParquet returns a one-column file with a single row: price = 150.
func PriceParquet(t testing.TB) []byte {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "price", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	return WriteParquet(t, schema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.Int64Builder).Append(150)
	})
}
