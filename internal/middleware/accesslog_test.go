package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantLevel string
	}{
		{"ok", http.StatusOK, "hello", "INFO"},
		{"implicit ok", 0, "hi", "INFO"},
		{"not found", http.StatusNotFound, "", "WARN"},
		{"bad gateway", http.StatusBadGateway, "", "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			handler := RequestID(AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte(tt.body))
			})))

			req := httptest.NewRequest(http.MethodGet, "/bkt/key?select", nil)
			req.Header.Set(RequestIDHeader, "abc")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			var line map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tt.wantLevel, line["level"])
			assert.Equal(t, "GET", line["method"])
			assert.Equal(t, "/bkt/key", line["path"])
			assert.Equal(t, "select", line["query"])
			assert.Equal(t, "abc", line["request_id"])
			assert.InDelta(t, float64(len(tt.body)), line["bytes"], 0)
			want := tt.status
			if want == 0 {
				want = http.StatusOK
			}
			assert.InDelta(t, float64(want), line["status"], 0)
		})
	}
}
