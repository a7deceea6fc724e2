package middleware

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimited(t *testing.T, rps float64, burst int) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return RateLimiter(ctx, RateLimitConfig{
		RequestsPerSecond: rps,
		Burst:             burst,
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

// hit sends one GET from addr and returns the status code.
func hit(h http.Handler, addr, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_HeadersWithinBurst(t *testing.T) {
	h := newLimited(t, 100, 10)

	for i := range 5 {
		rec := hit(h, "192.0.2.1:4000", "/bkt/obj")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimiter_SlowDownDocument(t *testing.T) {
	h := RequestID(newLimited(t, 1, 2))
	for range 2 {
		require.Equal(t, http.StatusOK, hit(h, "192.0.2.1:4000", "/bkt/obj").Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/bkt/obj", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "S3 clients retry 503 SlowDown")
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"), "throttled responses skip the quota headers")

	var doc slowDownError
	require.NoError(t, xml.NewDecoder(rec.Body).Decode(&doc))
	assert.Equal(t, slowDownError{
		XMLName:   xml.Name{Local: "Error"},
		Code:      "SlowDown",
		Message:   "Please reduce your request rate.",
		Resource:  "/bkt/obj",
		RequestID: "req-42",
	}, doc)
}

func TestRateLimiter_BucketsPerClientAddress(t *testing.T) {
	h := newLimited(t, 1, 2)

	steps := []struct {
		addr string
		want int
	}{
		{"198.51.100.7:1000", http.StatusOK},
		{"198.51.100.7:1001", http.StatusOK},
		{"198.51.100.7:1002", http.StatusServiceUnavailable}, // same host, new port
		{"198.51.100.8:1000", http.StatusOK},
		{"[2001:db8::1]:443", http.StatusOK},
	}
	for i, s := range steps {
		assert.Equal(t, s.want, hit(h, s.addr, "/bkt/k").Code, "step %d from %s", i, s.addr)
	}
}

func TestClientIP_ExtractsHost(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{
			name:       "IPv4 with port",
			remoteAddr: "192.168.1.1:12345",
			want:       "192.168.1.1",
		},
		{
			name:       "IPv6 with port",
			remoteAddr: "[::1]:12345",
			want:       "::1",
		},
		{
			name:       "no port",
			remoteAddr: "192.168.1.1",
			want:       "192.168.1.1",
		},
		{
			name:       "X-Forwarded-For is ignored",
			remoteAddr: "10.0.0.1:1234",
			xff:        "203.0.113.50",
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
