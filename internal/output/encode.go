// Package output renders selected rows as CSV or line-delimited JSON and
// optionally frames them as an S3 Select event stream.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/joocer/s1/internal/columnar"
	"github.com/joocer/s1/internal/domain"
)

// Format is an output serialization.
type Format int

// Output formats.
const (
	CSV Format = iota
	JSON
)

func (f Format) String() string {
	if f == JSON {
		return "JSON"
	}
	return "CSV"
}

// ParseFormat maps a format name (case-insensitive) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "json", "ndjson", "jsonl":
		return JSON, nil
	default:
		return CSV, domain.ErrValidation("unsupported output format %q", s)
	}
}

// ContentType returns the media type of a bare (unframed) response in format f.
func ContentType(f Format) string {
	if f == JSON {
		return "application/x-ndjson"
	}
	return "text/csv"
}

// RowSource yields rows one at a time. It is implemented by s3select.Cursor.
type RowSource interface {
	Next() bool
	Row() []columnar.Value
	Columns() []string
	Err() error
}

// Stats summarises an encoded response.
type Stats struct {
	BytesScanned   int64
	BytesProcessed int64
	BytesReturned  int64
	Records        int64
}

// Encode drains rows into w in format f. Each row is rendered into a reused
// buffer and handed to w in a single Write call, so at most one row is
// buffered. An error from the source or from w stops encoding; rows already
// written stay written.
func Encode(ctx context.Context, w io.Writer, rows RowSource, f Format) (Stats, error) {
	var stats Stats
	enc := newRowEncoder(f, rows.Columns())

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		n, err := w.Write(enc.encode(rows.Row()))
		stats.BytesReturned += int64(n)
		if err != nil {
			return stats, fmt.Errorf("write row: %w", err)
		}
		stats.Records++
	}
	return stats, rows.Err()
}

type rowEncoder struct {
	format Format
	buf    bytes.Buffer
	keys   [][]byte // pre-rendered JSON keys including the colon
}

func newRowEncoder(f Format, columns []string) *rowEncoder {
	e := &rowEncoder{format: f}
	if f == JSON {
		e.keys = make([][]byte, len(columns))
		for i, name := range columns {
			k, _ := json.Marshal(name)
			e.keys[i] = append(k, ':')
		}
	}
	return e
}

// encode renders one row. The returned slice is valid until the next call.
func (e *rowEncoder) encode(row []columnar.Value) []byte {
	e.buf.Reset()
	if e.format == JSON {
		e.encodeJSON(row)
	} else {
		e.encodeCSV(row)
	}
	return e.buf.Bytes()
}

// encodeCSV writes fields comma-separated, quoting a field only when it holds
// a comma, a quote or a line break. A row made of a single empty field is
// written as "" so readers do not skip it as a blank line.
func (e *rowEncoder) encodeCSV(row []columnar.Value) {
	for i, v := range row {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		field := formatText(v)
		switch {
		case len(row) == 1 && field == "":
			e.buf.WriteString(`""`)
		case strings.ContainsAny(field, ",\"\r\n"):
			e.buf.WriteByte('"')
			e.buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
			e.buf.WriteByte('"')
		default:
			e.buf.WriteString(field)
		}
	}
	e.buf.WriteByte('\n')
}

func (e *rowEncoder) encodeJSON(row []columnar.Value) {
	var scratch [64]byte
	e.buf.WriteByte('{')
	for i, v := range row {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if i < len(e.keys) {
			e.buf.Write(e.keys[i])
		}
		switch v.Type {
		case columnar.Int:
			e.buf.Write(strconv.AppendInt(scratch[:0], v.Int, 10))
		case columnar.Float:
			if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
				e.buf.WriteString("null")
			} else {
				e.buf.Write(appendFloat(scratch[:0], v.Float))
			}
		case columnar.String:
			s, _ := json.Marshal(v.Str)
			e.buf.Write(s)
		case columnar.Bool:
			e.buf.WriteString(strconv.FormatBool(v.Bool))
		default:
			e.buf.WriteString("null")
		}
	}
	e.buf.WriteString("}\n")
}

// formatText renders a value as a CSV field; null becomes the empty field.
func formatText(v columnar.Value) string {
	if v.Type == columnar.Float {
		return string(appendFloat(nil, v.Float))
	}
	return v.String()
}

// appendFloat uses the shortest representation that round-trips, in plain
// notation for moderate magnitudes and exponent notation otherwise.
func appendFloat(dst []byte, f float64) []byte {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.AppendFloat(dst, f, 'e', -1, 64)
	}
	return strconv.AppendFloat(dst, f, 'f', -1, 64)
}
