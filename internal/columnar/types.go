// Package columnar decodes Parquet objects into typed, column-oriented tables.
package columnar

import (
	"strconv"
	"strings"
)

// Type is the logical type of a column or value.
type Type int

// Logical types.
const (
	Null Type = iota
	Int
	Float
	String
	Bool
)

var typeNames = map[Type]string{
	Null:   "null",
	Int:    "int",
	Float:  "float",
	String: "string",
	Bool:   "bool",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Value is a single cell. A Value whose Type is Null carries no payload.
type Value struct {
	Type  Type
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

// NullValue returns the null value.
func NullValue() Value { return Value{Type: Null} }

// IntValue returns an Int value.
func IntValue(v int64) Value { return Value{Type: Int, Int: v} }

// FloatValue returns a Float value.
func FloatValue(v float64) Value { return Value{Type: Float, Float: v} }

// StringValue returns a String value.
func StringValue(v string) Value { return Value{Type: String, Str: v} }

// BoolValue returns a Bool value.
func BoolValue(v bool) Value { return Value{Type: Bool, Bool: v} }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.Type == Null }

// String renders v as plain text, with null as the empty string.
func (v Value) String() string {
	switch v.Type {
	case Int:
		return strconv.FormatInt(v.Int, 10)
	case Float:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case String:
		return v.Str
	case Bool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// Field is a named, typed column in a schema.
type Field struct {
	Name string
	Type Type
}

// Schema is the ordered list of columns of a table.
type Schema struct {
	Fields []Field
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Lookup resolves a column name to its position. An exact match wins;
// otherwise a single case-insensitive match is accepted.
func (s Schema) Lookup(name string) (int, bool) {
	folded := -1
	for i, f := range s.Fields {
		if f.Name == name {
			return i, true
		}
		if strings.EqualFold(f.Name, name) {
			if folded >= 0 {
				folded = -2
			} else if folded == -1 {
				folded = i
			}
		}
	}
	if folded >= 0 {
		return folded, true
	}
	return -1, false
}

// LookupExact resolves a column name by case-sensitive match only.
func (s Schema) LookupExact(name string) (int, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return -1, false
}

// FoldMatches returns the positions of every column whose name equals name
// under case folding.
func (s Schema) FoldMatches(name string) []int {
	var out []int
	for i, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			out = append(out, i)
		}
	}
	return out
}

// Column holds the values of one column. Exactly one of the typed slices is
// populated, matching Type; valid marks non-null positions.
type Column struct {
	Type   Type
	ints   []int64
	floats []float64
	strs   []string
	bools  []bool
	valid  []bool
}

func newColumn(t Type, capacity int) *Column {
	c := &Column{Type: t, valid: make([]bool, 0, capacity)}
	switch t {
	case Int:
		c.ints = make([]int64, 0, capacity)
	case Float:
		c.floats = make([]float64, 0, capacity)
	case String:
		c.strs = make([]string, 0, capacity)
	case Bool:
		c.bools = make([]bool, 0, capacity)
	}
	return c
}

// Len returns the number of values in the column.
func (c *Column) Len() int { return len(c.valid) }

// Value returns the value at row i.
func (c *Column) Value(i int) Value {
	if !c.valid[i] {
		return NullValue()
	}
	switch c.Type {
	case Int:
		return IntValue(c.ints[i])
	case Float:
		return FloatValue(c.floats[i])
	case String:
		return StringValue(c.strs[i])
	case Bool:
		return BoolValue(c.bools[i])
	default:
		return NullValue()
	}
}

func (c *Column) appendNull() {
	c.valid = append(c.valid, false)
	switch c.Type {
	case Int:
		c.ints = append(c.ints, 0)
	case Float:
		c.floats = append(c.floats, 0)
	case String:
		c.strs = append(c.strs, "")
	case Bool:
		c.bools = append(c.bools, false)
	}
}

func (c *Column) appendValue(v Value) {
	switch v.Type {
	case Int:
		c.appendInt(v.Int)
	case Float:
		c.appendFloat(v.Float)
	case String:
		c.appendString(v.Str)
	case Bool:
		c.appendBool(v.Bool)
	default:
		c.appendNull()
	}
}

func (c *Column) appendInt(v int64) {
	c.valid = append(c.valid, true)
	c.ints = append(c.ints, v)
}

func (c *Column) appendFloat(v float64) {
	c.valid = append(c.valid, true)
	c.floats = append(c.floats, v)
}

func (c *Column) appendString(v string) {
	c.valid = append(c.valid, true)
	c.strs = append(c.strs, v)
}

func (c *Column) appendBool(v bool) {
	c.valid = append(c.valid, true)
	c.bools = append(c.bools, v)
}

// Table is a decoded, column-oriented view of an object. Every column has
// exactly NumRows values. Tables own their data and are not shared between
// requests.
type Table struct {
	Schema  Schema
	Columns []*Column
	NumRows int
}

// Column returns the column at position i.
func (t *Table) Column(i int) *Column { return t.Columns[i] }

// NewTable builds a table from row-oriented values, mainly for tests and
// callers that already hold decoded data. Every row must have one value per
// field, and each value must be null or match its field type.
func NewTable(schema Schema, rows [][]Value) (*Table, error) {
	t := &Table{Schema: schema, Columns: make([]*Column, len(schema.Fields)), NumRows: len(rows)}
	for i, f := range schema.Fields {
		t.Columns[i] = newColumn(f.Type, len(rows))
	}
	for r, row := range rows {
		if len(row) != len(schema.Fields) {
			return nil, errRowWidth(r, len(row), len(schema.Fields))
		}
		for i, v := range row {
			col := t.Columns[i]
			if v.IsNull() {
				col.appendNull()
				continue
			}
			if v.Type != col.Type {
				return nil, errCellType(r, schema.Fields[i], v.Type)
			}
			switch v.Type {
			case Int:
				col.appendInt(v.Int)
			case Float:
				col.appendFloat(v.Float)
			case String:
				col.appendString(v.Str)
			case Bool:
				col.appendBool(v.Bool)
			}
		}
	}
	return t, nil
}
