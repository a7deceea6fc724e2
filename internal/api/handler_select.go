package api

import (
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/joocer/s1/internal/config"
	"github.com/joocer/s1/internal/domain"
	"github.com/joocer/s1/internal/output"
	"github.com/joocer/s1/internal/service/query"
)

const maxSelectRequestBytes = 1 << 20

func (h *Handler) postObject(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("select") {
		h.notImplemented(w, r)
		return
	}
	h.selectObjectContent(w, r)
}

// selectObjectContent runs an S3 Select. Errors found before the first row
// are answered with an error document; errors while streaming truncate the
// response (raw framing) or end it with an error event.
func (h *Handler) selectObjectContent(w http.ResponseWriter, r *http.Request) {
	key, err := objectKey(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := decodeSelectRequest(http.MaxBytesReader(w, r.Body, maxSelectRequestBytes))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req.Key = key

	ctx := r.Context()
	sel, err := h.selects.Prepare(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var stats output.Stats
	fw := newFlushWriter(w)
	if h.framing == config.FramingRaw {
		w.Header().Set("Content-Type", output.ContentType(sel.Format()))
		w.WriteHeader(http.StatusOK)
		stats, err = sel.Stream(ctx, fw)
		if err != nil {
			h.logger.WarnContext(ctx, "select stream truncated", "object", key.String(), "error", err)
		}
	} else {
		w.Header().Set("Content-Type", output.EventStreamContentType)
		w.WriteHeader(http.StatusOK)
		es := output.NewEventStreamWriter(fw)
		stats, err = sel.Stream(ctx, es)
		switch {
		case err != nil:
			h.logger.WarnContext(ctx, "select stream failed", "object", key.String(), "error", err)
			_ = es.WriteError(s3ErrorFromDomainError(err).Code, err.Error())
		default:
			if err = es.WriteStats(stats); err == nil {
				err = es.WriteEnd()
			}
			if err != nil {
				h.logger.WarnContext(ctx, "select stream trailer failed", "object", key.String(), "error", err)
			}
		}
	}

	if h.metrics != nil {
		h.metrics.SelectRecords.Add(float64(stats.Records))
		h.metrics.SelectBytesScanned.Add(float64(stats.BytesScanned))
	}
	h.logger.DebugContext(ctx, "select complete",
		"object", key.String(), "records", stats.Records, "bytes_returned", stats.BytesReturned)
}

// flushWriter flushes the response after every write so each row or event
// reaches the client as soon as it is encoded.
type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func newFlushWriter(w http.ResponseWriter) *flushWriter {
	return &flushWriter{w: w, rc: http.NewResponseController(w)}
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	if err := f.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, err
	}
	return n, nil
}

// decodeSelectRequest parses and validates the request envelope. Only SQL
// over Parquet input is accepted; output defaults to CSV.
func decodeSelectRequest(body io.Reader) (query.SelectRequest, error) {
	var doc SelectObjectContentRequest
	if err := xml.NewDecoder(body).Decode(&doc); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return query.SelectRequest{}, domain.ErrValidation("select request body exceeds %d bytes", tooLarge.Limit)
		}
		return query.SelectRequest{}, domain.ErrValidation("malformed select request: %v", err)
	}

	if t := strings.TrimSpace(doc.ExpressionType); !strings.EqualFold(t, "SQL") {
		return query.SelectRequest{}, domain.ErrValidation("unsupported ExpressionType %q: only SQL is supported", t)
	}

	in := doc.InputSerialization
	switch {
	case in == nil:
		return query.SelectRequest{}, domain.ErrValidation("InputSerialization is required and must be Parquet")
	case in.Parquet != nil:
	case in.CSV != nil:
		return query.SelectRequest{}, domain.ErrValidation("CSV input is not supported: only Parquet objects can be selected, use GetObject for other files")
	case in.JSON != nil:
		return query.SelectRequest{}, domain.ErrValidation("JSON input is not supported: only Parquet objects can be selected, use GetObject for other files")
	default:
		return query.SelectRequest{}, domain.ErrValidation("InputSerialization must specify Parquet")
	}

	format := output.CSV
	if out := doc.OutputSerialization; out != nil && out.JSON != nil {
		format = output.JSON
	}
	return query.SelectRequest{Expression: doc.Expression, Format: format}, nil
}
