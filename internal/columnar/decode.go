package columnar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/joocer/s1/internal/domain"
)

// batchSize is the number of rows pulled from the Parquet reader per record.
const batchSize = 64 * 1024

// Source is random-access object content, such as the reader returned by
// cache.Blob.NewReader.
type Source interface {
	io.ReaderAt
	io.Seeker
}

// ReadSchema returns the schema of a Parquet object without decoding data.
// Columns with nested or otherwise unsupported types are omitted.
func ReadSchema(src Source) (Schema, error) {
	pf, fr, err := open(src)
	if err != nil {
		return Schema{}, err
	}
	defer pf.Close() //nolint:errcheck

	arrowSchema, err := fr.Schema()
	if err != nil {
		return Schema{}, domain.ErrFormat("read parquet schema: %v", err)
	}
	if err := checkDuplicates(arrowSchema); err != nil {
		return Schema{}, err
	}
	var schema Schema
	for _, f := range arrowSchema.Fields() {
		if t, ok := mapType(f.Type); ok {
			schema.Fields = append(schema.Fields, Field{Name: f.Name, Type: t})
		}
	}
	return schema, nil
}

// Decode reads the named columns of a Parquet object into a Table. A nil
// columns slice decodes every column. Requested names the object does not
// contain are skipped; binding them is the caller's concern.
//
// Malformed input yields *domain.FormatError. An ambiguous column name or a
// requested column with a nested or unsupported type yields *domain.SchemaError.
func Decode(ctx context.Context, src Source, columns []string) (tbl *Table, err error) {
	defer func() {
		// The Parquet reader panics on some corrupt footers and pages.
		if r := recover(); r != nil {
			tbl, err = nil, domain.ErrFormat("corrupt parquet data: %v", r)
		}
	}()

	pf, fr, err := open(src)
	if err != nil {
		return nil, err
	}
	defer pf.Close() //nolint:errcheck

	arrowSchema, err := fr.Schema()
	if err != nil {
		return nil, domain.ErrFormat("read parquet schema: %v", err)
	}
	if err := checkDuplicates(arrowSchema); err != nil {
		return nil, err
	}

	fields, err := selectFields(arrowSchema, columns)
	if err != nil {
		return nil, err
	}

	tbl = &Table{Columns: make([]*Column, len(fields))}
	leaves := make([]int, 0, len(fields))
	for i, f := range fields {
		tbl.Schema.Fields = append(tbl.Schema.Fields, Field{Name: f.Name, Type: f.typ})
		tbl.Columns[i] = newColumn(f.typ, int(pf.NumRows()))
		leaf := pf.MetaData().Schema.ColumnIndexByName(f.Name)
		if leaf < 0 {
			return nil, domain.ErrSchema("column %q has no leaf in the parquet schema", f.Name)
		}
		leaves = append(leaves, leaf)
	}

	if len(fields) == 0 {
		tbl.NumRows = int(pf.NumRows())
		return tbl, nil
	}

	rr, err := fr.GetRecordReader(ctx, leaves, nil)
	if err != nil {
		return nil, domain.ErrFormat("open parquet columns: %v", err)
	}
	defer rr.Release()

	for rr.Next() {
		rec := rr.Record()
		for i, f := range fields {
			idx := rec.Schema().FieldIndices(f.Name)
			if len(idx) != 1 {
				return nil, domain.ErrFormat("column %q missing from decoded record", f.Name)
			}
			if err := appendArray(tbl.Columns[i], rec.Column(idx[0])); err != nil {
				return nil, err
			}
		}
		tbl.NumRows += int(rec.NumRows())
	}
	if err := rr.Err(); err != nil && !errors.Is(err, io.EOF) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.ErrFormat("decode parquet: %v", err)
	}

	for i, col := range tbl.Columns {
		if col.Len() != tbl.NumRows {
			return nil, domain.ErrFormat("column %q has %d values, expected %d",
				tbl.Schema.Fields[i].Name, col.Len(), tbl.NumRows)
		}
	}
	return tbl, nil
}

func open(src Source) (*file.Reader, *pqarrow.FileReader, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("rewind source: %w", err)
	}
	pf, err := file.NewParquetReader(src)
	if err != nil {
		return nil, nil, domain.ErrFormat("not a parquet file: %v", err)
	}
	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: batchSize}, memory.DefaultAllocator)
	if err != nil {
		pf.Close() //nolint:errcheck
		return nil, nil, domain.ErrFormat("open parquet file: %v", err)
	}
	return pf, fr, nil
}

type selectedField struct {
	Name string
	typ  Type
}

// selectFields resolves requested names against the file schema, in request
// order and without duplicates. A name with no exact match selects every
// case-insensitive match, so an ambiguous reference still sees all candidates
// when it is bound.
func selectFields(s *arrow.Schema, columns []string) ([]selectedField, error) {
	all := s.Fields()
	if columns == nil {
		out := make([]selectedField, 0, len(all))
		for _, f := range all {
			t, ok := mapType(f.Type)
			if !ok {
				return nil, domain.ErrSchema("column %q has unsupported type %s", f.Name, f.Type)
			}
			out = append(out, selectedField{Name: f.Name, typ: t})
		}
		return out, nil
	}

	names := Schema{Fields: make([]Field, len(all))}
	for i, f := range all {
		names.Fields[i] = Field{Name: f.Name}
	}
	seen := make(map[int]bool, len(columns))
	out := make([]selectedField, 0, len(columns))
	for _, name := range columns {
		matches := names.FoldMatches(name)
		if i, ok := names.LookupExact(name); ok {
			matches = []int{i}
		}
		for _, i := range matches {
			if seen[i] {
				continue
			}
			seen[i] = true
			t, ok := mapType(all[i].Type)
			if !ok {
				return nil, domain.ErrSchema("column %q has unsupported type %s", all[i].Name, all[i].Type)
			}
			out = append(out, selectedField{Name: all[i].Name, typ: t})
		}
	}
	return out, nil
}

func checkDuplicates(s *arrow.Schema) error {
	seen := make(map[string]bool, s.NumFields())
	for _, f := range s.Fields() {
		if seen[f.Name] {
			return domain.ErrSchema("ambiguous column name %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// mapType maps an Arrow type to a logical type. Nested types are unsupported.
func mapType(dt arrow.DataType) (Type, bool) {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return Int, true
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128, arrow.DECIMAL256:
		return Float, true
	case arrow.STRING, arrow.LARGE_STRING, arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY,
		arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
		return String, true
	case arrow.BOOL:
		return Bool, true
	case arrow.NULL:
		return Null, true
	case arrow.DICTIONARY:
		return mapType(dt.(*arrow.DictionaryType).ValueType)
	default:
		return Null, false
	}
}

func appendArray(col *Column, arr arrow.Array) error {
	if d, ok := arr.(*array.Dictionary); ok {
		return appendDictionary(col, d)
	}
	n := arr.Len()
	for i := 0; i < n; i++ {
		if arr.IsNull(i) {
			col.appendNull()
			continue
		}
		switch a := arr.(type) {
		case *array.Int8:
			col.appendInt(int64(a.Value(i)))
		case *array.Int16:
			col.appendInt(int64(a.Value(i)))
		case *array.Int32:
			col.appendInt(int64(a.Value(i)))
		case *array.Int64:
			col.appendInt(a.Value(i))
		case *array.Uint8:
			col.appendInt(int64(a.Value(i)))
		case *array.Uint16:
			col.appendInt(int64(a.Value(i)))
		case *array.Uint32:
			col.appendInt(int64(a.Value(i)))
		case *array.Uint64:
			col.appendInt(int64(a.Value(i))) //nolint:gosec // values above MaxInt64 wrap
		case *array.Float16:
			col.appendFloat(float64(a.Value(i).Float32()))
		case *array.Float32:
			col.appendFloat(float64(a.Value(i)))
		case *array.Float64:
			col.appendFloat(a.Value(i))
		case *array.Decimal128:
			scale := a.DataType().(*arrow.Decimal128Type).Scale
			col.appendFloat(a.Value(i).ToFloat64(scale))
		case *array.Decimal256:
			scale := a.DataType().(*arrow.Decimal256Type).Scale
			col.appendFloat(a.Value(i).ToFloat64(scale))
		case *array.String:
			col.appendString(a.Value(i))
		case *array.LargeString:
			col.appendString(a.Value(i))
		case *array.Binary:
			col.appendString(string(a.Value(i)))
		case *array.LargeBinary:
			col.appendString(string(a.Value(i)))
		case *array.FixedSizeBinary:
			col.appendString(string(a.Value(i)))
		case *array.Date32:
			col.appendString(a.Value(i).ToTime().UTC().Format(time.DateOnly))
		case *array.Date64:
			col.appendString(a.Value(i).ToTime().UTC().Format(time.DateOnly))
		case *array.Timestamp:
			unit := a.DataType().(*arrow.TimestampType).Unit
			col.appendString(a.Value(i).ToTime(unit).UTC().Format(time.RFC3339Nano))
		case *array.Boolean:
			col.appendBool(a.Value(i))
		case *array.Null:
			col.appendNull()
		default:
			return domain.ErrSchema("unsupported arrow array %s", arr.DataType())
		}
	}
	return nil
}

// appendDictionary decodes the dictionary once and then copies values out by
// index.
func appendDictionary(col *Column, d *array.Dictionary) error {
	dict := newColumn(col.Type, d.Dictionary().Len())
	if err := appendArray(dict, d.Dictionary()); err != nil {
		return err
	}
	for i := 0; i < d.Len(); i++ {
		if d.IsNull(i) {
			col.appendNull()
			continue
		}
		col.appendValue(dict.Value(d.GetValueIndex(i)))
	}
	return nil
}

func errRowWidth(row, got, want int) error {
	return fmt.Errorf("row %d has %d values, schema has %d columns", row, got, want)
}

func errCellType(row int, f Field, got Type) error {
	return fmt.Errorf("row %d: column %q is %s, got %s", row, f.Name, f.Type, got)
}
