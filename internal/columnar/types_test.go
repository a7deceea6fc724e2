package columnar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaLookup(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "Price"}, {Name: "price"}, {Name: "Name"}, {Name: "QTY"}, {Name: "qty2"}}}

	tests := []struct {
		name   string
		lookup string
		want   int
		found  bool
	}{
		{name: "exact wins over folded", lookup: "price", want: 1, found: true},
		{name: "exact upper", lookup: "Price", want: 0, found: true},
		{name: "ambiguous fold", lookup: "PRICE", want: -1, found: false},
		{name: "unique fold", lookup: "name", want: 2, found: true},
		{name: "unique fold upper", lookup: "qty", want: 3, found: true},
		{name: "missing", lookup: "nope", want: -1, found: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Lookup(tt.lookup)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchemaLookupExactAndFold(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "Price"}, {Name: "price"}, {Name: "Name"}}}

	tests := []struct {
		name  string
		in    string
		exact int
		fold  []int
	}{
		{name: "exact lower", in: "price", exact: 1, fold: []int{0, 1}},
		{name: "folded only", in: "PRICE", exact: -1, fold: []int{0, 1}},
		{name: "unique fold", in: "name", exact: -1, fold: []int{2}},
		{name: "missing", in: "nope", exact: -1, fold: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.LookupExact(tt.in)
			assert.Equal(t, tt.exact, got)
			assert.Equal(t, tt.exact >= 0, ok)
			assert.Equal(t, tt.fold, s.FoldMatches(tt.in))
		})
	}
}

func TestNewTable(t *testing.T) {
	schema := Schema{Fields: []Field{{Name: "a", Type: Int}, {Name: "b", Type: String}}}

	tbl, err := NewTable(schema, [][]Value{
		{IntValue(1), StringValue("x")},
		{NullValue(), NullValue()},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows)
	assert.Equal(t, IntValue(1), tbl.Column(0).Value(0))
	assert.True(t, tbl.Column(1).Value(1).IsNull())

	_, err = NewTable(schema, [][]Value{{IntValue(1)}})
	assert.ErrorContains(t, err, "has 1 values")

	_, err = NewTable(schema, [][]Value{{StringValue("x"), StringValue("y")}})
	assert.ErrorContains(t, err, `column "a" is int, got string`)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "150", IntValue(150).String())
	assert.Equal(t, "1.5", FloatValue(1.5).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "", NullValue().String())
	assert.Equal(t, "Type(9)", Type(9).String())
}
