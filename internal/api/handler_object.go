package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/joocer/s1/internal/domain"
	"github.com/joocer/s1/internal/service/object"
)

// getBucket answers GetBucketLocation and ListObjects (V1 and V2).
func (h *Handler) getBucket(w http.ResponseWriter, r *http.Request) {
	bucket, err := bucketName(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	if q.Has("location") {
		writeXML(w, http.StatusOK, LocationConstraint{Xmlns: s3Namespace, Region: h.region}, h.logger)
		return
	}

	params := object.ListParams{
		Prefix:            q.Get("prefix"),
		Delimiter:         q.Get("delimiter"),
		MaxKeys:           object.DefaultMaxKeys,
		Marker:            q.Get("marker"),
		StartAfter:        q.Get("start-after"),
		ContinuationToken: q.Get("continuation-token"),
	}
	if v := q.Get("max-keys"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, r, domain.ErrValidation("max-keys must be a non-negative integer, got %q", v))
			return
		}
		params.MaxKeys = min(n, object.DefaultMaxKeys)
	}
	v2 := q.Get("list-type") == "2"
	if v2 {
		// V2 pages with continuation-token and start-after only.
		params.Marker = ""
	}

	res, err := h.objects.List(r.Context(), bucket, params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := ListBucketResult{
		Xmlns:       s3Namespace,
		Name:        bucket,
		Prefix:      params.Prefix,
		KeyCount:    res.KeyCount(),
		MaxKeys:     params.MaxKeys,
		Delimiter:   params.Delimiter,
		IsTruncated: res.IsTruncated,
	}
	if v2 {
		out.StartAfter = params.StartAfter
		out.ContinuationToken = params.ContinuationToken
		if res.IsTruncated {
			out.NextContinuationToken = res.NextMarker
		}
	} else {
		marker := params.Marker
		out.Marker = &marker
		if res.IsTruncated {
			out.NextMarker = res.NextMarker
		}
	}
	for _, o := range res.Contents {
		out.Contents = append(out.Contents, Contents{
			Key:          o.Key,
			LastModified: s3Time(o.LastModified),
			ETag:         o.ETag,
			Size:         o.Size,
			StorageClass: "STANDARD",
		})
	}
	for _, p := range res.CommonPrefixes {
		out.CommonPrefixes = append(out.CommonPrefixes, CommonPrefix{Prefix: p})
	}
	writeXML(w, http.StatusOK, out, h.logger)
}

func (h *Handler) headBucket(w http.ResponseWriter, r *http.Request) {
	bucket, err := bucketName(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.objects.List(r.Context(), bucket, object.ListParams{MaxKeys: 1}); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("x-amz-bucket-region", h.region)
	w.WriteHeader(http.StatusOK)
}

// getObject serves the object through the cache. Range and conditional
// requests are handled by http.ServeContent.
func (h *Handler) getObject(w http.ResponseWriter, r *http.Request) {
	key, err := objectKey(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	blob, err := h.objects.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, key.Path, time.Time{}, blob.NewReader())
}

func (h *Handler) headObject(w http.ResponseWriter, r *http.Request) {
	key, err := objectKey(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	info, err := h.objects.Head(r.Context(), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Accept-Ranges", "bytes")
	if info.ETag != "" {
		w.Header().Set("ETag", info.ETag)
	}
	if !info.LastModified.IsZero() {
		w.Header().Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
}
