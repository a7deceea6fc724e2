// Package api serves the read-only S3 HTTP surface.
package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joocer/s1/internal/config"
	"github.com/joocer/s1/internal/domain"
	"github.com/joocer/s1/internal/metrics"
	"github.com/joocer/s1/internal/service/object"
	"github.com/joocer/s1/internal/service/query"
)

// Options configures a Handler.
type Options struct {
	Region  string // reported by GetBucketLocation
	Framing string // config.FramingEventStream or config.FramingRaw
	Logger  *slog.Logger
	Metrics *metrics.Metrics // optional
}

// Handler implements the S3 operations on top of the object and select services.
type Handler struct {
	objects *object.Service
	selects *query.SelectService
	region  string
	framing string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a Handler.
func NewHandler(objects *object.Service, selects *query.SelectService, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Region == "" {
		opts.Region = "eu-west-2"
	}
	if opts.Framing == "" {
		opts.Framing = config.FramingEventStream
	}
	return &Handler{
		objects: objects,
		selects: selects,
		region:  opts.Region,
		framing: opts.Framing,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Mount registers the S3 routes on r. Static routes registered on r by the
// caller, such as /metrics, take precedence over bucket names.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/healthz", h.healthz)
	r.Get("/", h.notImplemented)

	r.Route("/{bucket}", func(r chi.Router) {
		r.Get("/", h.getBucket)
		r.Head("/", h.headBucket)
		r.Get("/*", h.getObject)
		r.Head("/*", h.headObject)
		r.Post("/*", h.postObject)

		r.Put("/", h.notImplemented)
		r.Put("/*", h.notImplemented)
		r.Delete("/", h.notImplemented)
		r.Delete("/*", h.notImplemented)
		r.Post("/", h.notImplemented)
	})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (h *Handler) notImplemented(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, domain.ErrNotImplemented("%s %s is not supported by this read-only gateway", r.Method, r.URL.Path))
}

// bucketName returns the unescaped {bucket} path parameter.
func bucketName(r *http.Request) (string, error) {
	return pathParam(r, "bucket")
}

// objectKey returns the bucket and the unescaped remainder of the path.
func objectKey(r *http.Request) (domain.ObjectKey, error) {
	bucket, err := bucketName(r)
	if err != nil {
		return domain.ObjectKey{}, err
	}
	key, err := pathParam(r, "*")
	if err != nil {
		return domain.ObjectKey{}, err
	}
	if key == "" {
		return domain.ObjectKey{}, domain.ErrValidation("object key is required")
	}
	return domain.ObjectKey{Bucket: bucket, Path: key}, nil
}

// pathParam reads a chi URL parameter. chi routes on the raw path when the
// request carried escapes, in which case the parameter is still escaped.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	unescaped, err := url.PathUnescape(v)
	if err != nil {
		return "", domain.ErrValidation("malformed path: %v", err)
	}
	return unescaped, nil
}

// OperationName labels a request with the S3 operation it maps to.
func OperationName(r *http.Request) string {
	path := strings.Trim(r.URL.Path, "/")
	switch path {
	case "":
		return "ListBuckets"
	case "healthz":
		return "Health"
	case "metrics":
		return "Metrics"
	}
	isBucket := !strings.Contains(path, "/")
	switch {
	case r.Method == http.MethodGet && isBucket && r.URL.Query().Has("location"):
		return "GetBucketLocation"
	case r.Method == http.MethodGet && isBucket:
		return "ListObjects"
	case r.Method == http.MethodHead && isBucket:
		return "HeadBucket"
	case r.Method == http.MethodGet:
		return "GetObject"
	case r.Method == http.MethodHead:
		return "HeadObject"
	case r.Method == http.MethodPost && r.URL.Query().Has("select"):
		return "SelectObjectContent"
	default:
		return "Unsupported"
	}
}
