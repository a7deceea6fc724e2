package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectKey(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    ObjectKey
		wantErr string
	}{
		{name: "plain", in: "bucket/a.parquet", want: ObjectKey{Bucket: "bucket", Path: "a.parquet"}},
		{name: "nested path", in: "bucket/x/y/z.parquet", want: ObjectKey{Bucket: "bucket", Path: "x/y/z.parquet"}},
		{name: "s3 scheme", in: "s3://bucket/k", want: ObjectKey{Bucket: "bucket", Path: "k"}},
		{name: "leading slash", in: "/bucket/k", want: ObjectKey{Bucket: "bucket", Path: "k"}},
		{name: "bucket only", in: "bucket", wantErr: "must be bucket/key"},
		{name: "empty key", in: "bucket/", wantErr: "must be bucket/key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObjectKey(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				var ve *ValidationError
				assert.True(t, errors.As(err, &ve))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in[len(tt.in)-len(got.String()):], got.String())
		})
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrFetch(ObjectKey{Bucket: "b", Path: "k"}, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch b/k: connection reset", err.Error())
}

func TestParseErrorMessage(t *testing.T) {
	assert.Equal(t, "parse error at position 7: unexpected token", ErrParse(7, "unexpected %s", "token").Error())
	assert.Equal(t, "parse error: empty expression", ErrParse(-1, "empty expression").Error())
}
