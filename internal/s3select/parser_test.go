package s3select

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joocer/s1/internal/columnar"
	"github.com/joocer/s1/internal/domain"
	"github.com/joocer/s1/internal/output"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"wildcard", "SELECT * FROM S3Object", "SELECT * FROM S3Object"},
		{"lowercase keywords", "select * from s3object", "SELECT * FROM S3Object"},
		{"projection", "SELECT name, price FROM S3Object", "SELECT name, price FROM S3Object"},
		{"alias", "SELECT s.name FROM S3Object s", "SELECT s.name FROM S3Object s"},
		{"alias with AS", "SELECT s.name FROM S3Object AS s", "SELECT s.name FROM S3Object s"},
		{"table qualifier", "SELECT S3Object.name FROM S3Object", "SELECT S3Object.name FROM S3Object"},
		{"quoted column", `SELECT "Unit Price" FROM S3Object`, `SELECT "Unit Price" FROM S3Object`},
		{"where", "SELECT * FROM S3Object WHERE price > 100", "SELECT * FROM S3Object WHERE price > 100"},
		{"and or", "SELECT * FROM S3Object WHERE a = 1 AND b = 2 OR c = 3",
			"SELECT * FROM S3Object WHERE ((a = 1 AND b = 2) OR c = 3)"},
		{"parens", "SELECT * FROM S3Object WHERE a = 1 AND (b = 2 OR c = 3)",
			"SELECT * FROM S3Object WHERE (a = 1 AND (b = 2 OR c = 3))"},
		{"flattened and", "SELECT * FROM S3Object WHERE a = 1 AND b = 2 AND c = 3",
			"SELECT * FROM S3Object WHERE (a = 1 AND b = 2 AND c = 3)"},
		{"literal first is flipped", "SELECT * FROM S3Object WHERE 100 < price", "SELECT * FROM S3Object WHERE price > 100"},
		{"negative number", "SELECT * FROM S3Object WHERE delta >= -2.5", "SELECT * FROM S3Object WHERE delta >= -2.5"},
		{"string literal", "SELECT * FROM S3Object WHERE name = 'it''s'", "SELECT * FROM S3Object WHERE name = 'it''s'"},
		{"bool literal", "SELECT * FROM S3Object WHERE active = TRUE", "SELECT * FROM S3Object WHERE active = true"},
		{"diamond", "SELECT * FROM S3Object WHERE a <> 'x'", "SELECT * FROM S3Object WHERE a != 'x'"},
		{"not", "SELECT * FROM S3Object WHERE NOT a = 1", "SELECT * FROM S3Object WHERE NOT a = 1"},
		{"is null", "SELECT * FROM S3Object WHERE a IS NULL", "SELECT * FROM S3Object WHERE a IS NULL"},
		{"is not null", "SELECT * FROM S3Object WHERE a IS NOT NULL", "SELECT * FROM S3Object WHERE a IS NOT NULL"},
		{"limit", "SELECT * FROM S3Object LIMIT 10", "SELECT * FROM S3Object LIMIT 10"},
		{"limit zero", "SELECT * FROM S3Object LIMIT 0", "SELECT * FROM S3Object LIMIT 0"},
		{"trailing semicolon", "SELECT * FROM S3Object;", "SELECT * FROM S3Object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.String())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantMsg string
		wantPos int
	}{
		{"empty", "   ", "empty expression", 0},
		{"other table", "SELECT * FROM OtherAlias", `unsupported table "OtherAlias"`, 14},
		{"missing from", "SELECT *", "expected FROM", 8},
		{"missing projection", "SELECT FROM S3Object", "expected column name", 7},
		{"trailing comma", "SELECT a, FROM S3Object", "expected column name", 10},
		{"unknown qualifier", "SELECT t.a FROM S3Object s", `unknown table alias "t"`, 7},
		{"unknown qualifier in where", "SELECT * FROM S3Object s WHERE x.a = 1", `unknown table alias "x"`, 31},
		{"missing operator", "SELECT * FROM S3Object WHERE a 1", "expected comparison operator", 31},
		{"column vs column", "SELECT * FROM S3Object WHERE a = b", "between a column and a literal", 29},
		{"literal vs literal", "SELECT * FROM S3Object WHERE 1 = 1", "between a column and a literal", 29},
		{"unbalanced paren", "SELECT * FROM S3Object WHERE (a = 1", "expected )", 35},
		{"unterminated string", "SELECT * FROM S3Object WHERE a = 'x", "unterminated literal", 33},
		{"bad limit", "SELECT * FROM S3Object LIMIT -1", "LIMIT expects a non-negative integer", 29},
		{"trailing garbage", "SELECT * FROM S3Object WHERE a = 1 b", "after statement", 35},
		{"not a select", "DELETE FROM S3Object", "expected SELECT", 0},
		{"is null on literal", "SELECT * FROM S3Object WHERE 1 IS NULL", "requires a column", 29},
		{"illegal character", "SELECT * FROM S3Object WHERE a = #", `character "#"`, 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.sql)
			require.Error(t, err)
			var pe *domain.ParseError
			require.True(t, errors.As(err, &pe), "got %T: %v", err, err)
			assert.Contains(t, pe.Message, tt.wantMsg)
			assert.Equal(t, tt.wantPos, pe.Pos)
		})
	}
}

func TestParse_Literals(t *testing.T) {
	tests := []struct {
		sql  string
		want columnar.Value
	}{
		{"SELECT * FROM S3Object WHERE a = 150", columnar.IntValue(150)},
		{"SELECT * FROM S3Object WHERE a = -7", columnar.IntValue(-7)},
		{"SELECT * FROM S3Object WHERE a = 1.5", columnar.FloatValue(1.5)},
		{"SELECT * FROM S3Object WHERE a = 1e3", columnar.FloatValue(1000)},
		{"SELECT * FROM S3Object WHERE a = 99999999999999999999", columnar.FloatValue(1e20)},
		{"SELECT * FROM S3Object WHERE a = 'x'", columnar.StringValue("x")},
		{"SELECT * FROM S3Object WHERE a = false", columnar.BoolValue(false)},
		{"SELECT * FROM S3Object WHERE a = NULL", columnar.NullValue()},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			q, err := Parse(tt.sql)
			require.NoError(t, err)
			cmp, ok := q.Where.(*Comparison)
			require.True(t, ok)
			assert.Equal(t, tt.want, cmp.Right.Value)
		})
	}
}

func TestParseExpr(t *testing.T) {
	e, err := ParseExpr("price > 10 AND name = 'x'")
	require.NoError(t, err)
	assert.Equal(t, "(price > 10 AND name = 'x')", e.String())

	_, err = ParseExpr("price > 10 )")
	var pe *domain.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "after expression")
}

func TestCompile(t *testing.T) {
	q, err := Compile("SELECT name, s.price FROM S3Object s WHERE rating > 4 AND price < 200 OR name IS NULL", output.JSON)
	require.NoError(t, err)
	assert.Equal(t, output.JSON, q.Format)
	assert.Equal(t, int64(-1), q.Limit)
	assert.Equal(t, []string{"name", "price", "rating"}, q.Columns())

	wild, err := Compile("SELECT * FROM S3Object WHERE price > 1", output.CSV)
	require.NoError(t, err)
	assert.Nil(t, wild.Columns())

	_, err = Compile("SELECT * FROM OtherAlias", output.CSV)
	var pe *domain.ParseError
	assert.ErrorAs(t, err, &pe)
}
