// Package query runs S3 Select requests: fetch through the cache, decode the
// referenced columns, evaluate the compiled query and encode the rows.
package query

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joocer/s1/internal/cache"
	"github.com/joocer/s1/internal/columnar"
	"github.com/joocer/s1/internal/domain"
	"github.com/joocer/s1/internal/output"
	"github.com/joocer/s1/internal/s3select"
)

// BlobGetter returns object content. *cache.Store satisfies it.
type BlobGetter interface {
	Get(ctx context.Context, key domain.ObjectKey) (cache.Blob, error)
}

// SelectRequest is one select against one object.
type SelectRequest struct {
	Key        domain.ObjectKey
	Expression string
	Format     output.Format
}

// SelectService wraps the cache, decoder and engine.
type SelectService struct {
	store  BlobGetter
	logger *slog.Logger
}

// NewSelectService creates a new SelectService.
func NewSelectService(store BlobGetter, logger *slog.Logger) *SelectService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SelectService{store: store, logger: logger}
}

// Prepare runs everything that can fail before the first output byte: parse,
// fetch, decode, bind and evaluation up to the first matching row. The
// returned Selection streams the remaining rows.
func (s *SelectService) Prepare(ctx context.Context, req SelectRequest) (*Selection, error) {
	if strings.TrimSpace(req.Expression) == "" {
		return nil, domain.ErrValidation("select expression is required")
	}
	q, err := s3select.Compile(req.Expression, req.Format)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	blob, err := s.store.Get(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	tbl, err := columnar.Decode(ctx, blob.NewReader(), q.Columns())
	if err != nil {
		return nil, err
	}

	sel := &Selection{
		cursor:  s3select.Evaluate(tbl, q),
		format:  q.Format,
		scanned: int64(blob.Len()),
	}
	sel.pending = sel.cursor.Next()
	if err := sel.cursor.Err(); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "select prepared",
		"object", req.Key.String(),
		"query", q.String(),
		"rows", tbl.NumRows,
		"columns", len(tbl.Columns),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return sel, nil
}

// Schema returns the supported columns of a Parquet object.
func (s *SelectService) Schema(ctx context.Context, key domain.ObjectKey) (columnar.Schema, error) {
	blob, err := s.store.Get(ctx, key)
	if err != nil {
		return columnar.Schema{}, err
	}
	return columnar.ReadSchema(blob.NewReader())
}

// Selection is a prepared select with its first row already evaluated.
// It implements output.RowSource.
type Selection struct {
	cursor  *s3select.Cursor
	format  output.Format
	scanned int64
	pending bool // the cursor is positioned on a row not yet handed out
	started bool
}

// Columns returns the output column names.
func (s *Selection) Columns() []string { return s.cursor.Columns() }

// Next advances to the next output row.
func (s *Selection) Next() bool {
	if !s.started {
		s.started = true
		return s.pending
	}
	return s.cursor.Next()
}

// Row returns the current row.
func (s *Selection) Row() []columnar.Value { return s.cursor.Row() }

// Err returns the first evaluation error.
func (s *Selection) Err() error { return s.cursor.Err() }

// Format returns the output format the query was compiled for.
func (s *Selection) Format() output.Format { return s.format }

// Stream encodes every remaining row to w.
func (s *Selection) Stream(ctx context.Context, w io.Writer) (output.Stats, error) {
	stats, err := output.Encode(ctx, w, s, s.format)
	stats.BytesScanned = s.scanned
	stats.BytesProcessed = s.scanned
	return stats, err
}
