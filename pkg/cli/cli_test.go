package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joocer/s1/internal/testutil"
)

// setupLocal points the CLI at a temporary local backend holding a bucket
// "bkt" with a few objects.
func setupLocal(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		"STORAGE_BACKEND", "LOCAL_STORAGE_PATH", "STORAGE_CACHE_SIZE", "LOG_LEVEL", "ENV",
		"SELECT_FRAMING", "CORS_ALLOWED_ORIGINS", "S3_KEY_ID", "S3_SECRET",
	} {
		t.Setenv(k, "")
	}
	root := t.TempDir()
	bkt := filepath.Join(root, "bkt")
	require.NoError(t, os.MkdirAll(filepath.Join(bkt, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bkt, "products.parquet"), testutil.ProductsParquet(t), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(bkt, "price.parquet"), testutil.PriceParquet(t), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(bkt, "docs", "readme.txt"), []byte("hello"), 0o600))

	t.Setenv("STORAGE_BACKEND", "local")
	t.Setenv("LOCAL_STORAGE_PATH", root)
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "s1 version dev (commit: none)\n", out)

	out, err = execute(t, "--output", "json", "version")
	require.NoError(t, err)
	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "dev", v["version"])
}

func TestSelect(t *testing.T) {
	setupLocal(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "csv",
			args: []string{"select", "bkt/price.parquet", "--sql", "SELECT price FROM S3Object"},
			want: "150\n",
		},
		{
			name: "json",
			args: []string{"select", "bkt/price.parquet", "--format", "json", "--sql", "SELECT price FROM S3Object"},
			want: "{\"price\":150}\n",
		},
		{
			name: "s3 url",
			args: []string{"select", "s3://bkt/price.parquet", "-e", "SELECT * FROM S3Object s WHERE s.price > 100"},
			want: "150\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSelect_Schema(t *testing.T) {
	setupLocal(t)

	out, err := execute(t, "--output", "json", "select", "bkt/price.parquet", "--schema")
	require.NoError(t, err)
	var fields []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	require.Len(t, fields, 1)
	assert.Equal(t, "price", fields[0]["name"])

	out, err = execute(t, "select", "bkt/price.parquet", "--schema")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "price\t"), out)
}

func TestSelect_Errors(t *testing.T) {
	setupLocal(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no sql", []string{"select", "bkt/price.parquet"}, "--sql is required"},
		{"bad key", []string{"select", "bkt", "--sql", "SELECT * FROM S3Object"}, "must be bucket/key"},
		{"bad format", []string{"select", "bkt/price.parquet", "--format", "xml", "--sql", "SELECT * FROM S3Object"}, "unsupported output format"},
		{"parse", []string{"select", "bkt/price.parquet", "--sql", "SELECT FROM"}, "parse error"},
		{"missing", []string{"select", "bkt/nope.parquet", "--sql", "SELECT * FROM S3Object"}, "not found"},
		{"not parquet", []string{"select", "bkt/docs/readme.txt", "--sql", "SELECT * FROM S3Object"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLs(t *testing.T) {
	setupLocal(t)

	out, err := execute(t, "ls", "bkt")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "\tdocs/readme.txt"), lines[0])
	assert.True(t, strings.HasSuffix(lines[2], "\tproducts.parquet"), lines[2])
	assert.Contains(t, lines[0], "\t5\t")

	out, err = execute(t, "ls", "bkt", "--delimiter", "/", "--page-size", "1")
	require.NoError(t, err)
	assert.Equal(t, "PRE\t\tdocs/\n", strings.Split(out, "\n")[0]+"\n")
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 3, "all pages are followed")

	out, err = execute(t, "--output", "json", "ls", "bkt", "docs/")
	require.NoError(t, err)
	var entries []lsEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "docs/readme.txt", entries[0].Key)
	assert.Equal(t, int64(5), entries[0].Size)
}

func TestLs_Errors(t *testing.T) {
	setupLocal(t)

	_, err := execute(t, "ls", "nobucket")
	assert.ErrorContains(t, err, "not found")

	_, err = execute(t, "ls", "bkt", "--page-size", "0")
	assert.ErrorContains(t, err, "--page-size")
}

func TestConfigFile(t *testing.T) {
	setupLocal(t)
	t.Setenv("LOCAL_STORAGE_PATH", "")
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "other"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "other", "k.txt"), []byte("x"), 0o600))

	path := filepath.Join(t.TempDir(), "s1.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: local\n  local-path: "+root+"\n"), 0o600))

	out, err := execute(t, "--config", path, "ls", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "k.txt")
}

func TestInvalidOutputFlag(t *testing.T) {
	_, err := execute(t, "--output", "yaml", "version")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestErrorKind(t *testing.T) {
	setupLocal(t)
	_, err := execute(t, "select", "bkt/nope.parquet", "--sql", "SELECT * FROM S3Object")
	require.Error(t, err)
	assert.Equal(t, "not_found", errorKind(err))

	_, err = execute(t, "select", "bkt/price.parquet", "--sql", "SELECT nope FROM S3Object")
	require.Error(t, err)
	assert.Equal(t, "evaluation", errorKind(err))
}
