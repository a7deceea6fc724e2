package api

import (
	"context"
	"encoding/xml"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joocer/s1/internal/domain"
	"github.com/joocer/s1/internal/middleware"
)

// s3Error is an S3 error code with its HTTP status.
type s3Error struct {
	Status int
	Code   string
}

// s3ErrorFromDomainError maps domain errors to S3 error codes and HTTP statuses.
func s3ErrorFromDomainError(err error) s3Error {
	var (
		parse          *domain.ParseError
		format         *domain.FormatError
		schema         *domain.SchemaError
		evaluation     *domain.EvaluationError
		validation     *domain.ValidationError
		notFound       *domain.NotFoundError
		fetch          *domain.FetchError
		notImplemented *domain.NotImplementedError
	)

	switch {
	case errors.As(err, &parse):
		return s3Error{http.StatusBadRequest, "ParseSelectFailure"}
	case errors.As(err, &format):
		return s3Error{http.StatusBadRequest, "InvalidFileFormat"}
	case errors.As(err, &schema):
		return s3Error{http.StatusBadRequest, "UnsupportedColumnType"}
	case errors.As(err, &evaluation):
		return s3Error{http.StatusBadRequest, "InvalidColumnReference"}
	case errors.As(err, &validation):
		return s3Error{http.StatusBadRequest, "InvalidRequest"}
	case errors.As(err, &notFound):
		return s3Error{http.StatusNotFound, "NoSuchKey"}
	case errors.As(err, &fetch):
		return s3Error{http.StatusBadGateway, "BackendFetchFailed"}
	case errors.As(err, &notImplemented):
		return s3Error{http.StatusNotImplemented, "NotImplemented"}
	default:
		return s3Error{http.StatusInternalServerError, "InternalError"}
	}
}

// ErrorResponse is the S3 error document.
type ErrorResponse struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource"`
	RequestID string   `xml:"RequestId"`
}

// writeError renders err as an S3 error document. Internal errors are logged
// and their details withheld from the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// The client went away; there is nobody to answer.
		return
	}
	e := s3ErrorFromDomainError(err)
	msg := err.Error()
	switch {
	case e.Status >= http.StatusInternalServerError && e.Status != http.StatusNotImplemented:
		h.logger.ErrorContext(r.Context(), "request failed",
			"code", e.Code, "path", r.URL.Path, "error", err)
		if e.Code == "InternalError" {
			msg = "We encountered an internal error. Please try again."
		}
	default:
		h.logger.DebugContext(r.Context(), "request rejected",
			"code", e.Code, "path", r.URL.Path, "error", err)
	}

	body := ErrorResponse{
		Code:      e.Code,
		Message:   msg,
		Resource:  r.URL.Path,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	}
	if r.Method == http.MethodHead {
		// HEAD responses carry no body.
		w.WriteHeader(e.Status)
		return
	}
	writeXML(w, e.Status, body, h.logger)
}

func writeXML(w http.ResponseWriter, status int, v interface{}, logger *slog.Logger) {
	out, err := xml.Marshal(v)
	if err != nil {
		logger.Error("marshal xml response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}
