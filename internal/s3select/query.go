package s3select

import (
	"strconv"
	"strings"

	"github.com/joocer/s1/internal/output"
)

// Query is a compiled select expression. It is immutable and independent of
// any particular object's schema.
type Query struct {
	Wildcard   bool
	Projection []*ColumnRef // nil when Wildcard
	Alias      string
	Where      Expr  // nil when there is no WHERE clause
	Limit      int64 // -1 when there is no LIMIT clause
	Format     output.Format
}

// Compile parses sql into a Query that renders rows in format.
// Malformed SQL yields *domain.ParseError.
func Compile(sql string, format output.Format) (*Query, error) {
	q, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	q.Format = format
	return q, nil
}

// Columns returns the distinct column names the query reads, in first
// reference order, or nil when the query selects every column.
func (q *Query) Columns() []string {
	if q.Wildcard {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	add := func(c *ColumnRef) {
		if !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}
	for _, c := range q.Projection {
		add(c)
	}
	if q.Where != nil {
		walkColumns(q.Where, add)
	}
	return names
}

// String renders the query back to SQL.
func (q *Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Wildcard {
		b.WriteString("*")
	} else {
		for i, c := range q.Projection {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.String())
		}
	}
	b.WriteString(" FROM " + TableName)
	if q.Alias != "" {
		b.WriteString(" " + q.Alias)
	}
	if q.Where != nil {
		b.WriteString(" WHERE " + q.Where.String())
	}
	if q.Limit >= 0 {
		b.WriteString(" LIMIT " + strconv.FormatInt(q.Limit, 10))
	}
	return b.String()
}
