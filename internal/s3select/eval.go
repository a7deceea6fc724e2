package s3select

import (
	"strings"

	"github.com/joocer/s1/internal/columnar"
	"github.com/joocer/s1/internal/domain"
)

// truth is a three-valued logic result.
type truth int8

const (
	falseT truth = iota
	trueT
	unknownT
)

func and(a, b truth) truth {
	switch {
	case a == falseT || b == falseT:
		return falseT
	case a == unknownT || b == unknownT:
		return unknownT
	default:
		return trueT
	}
}

func or(a, b truth) truth {
	switch {
	case a == trueT || b == trueT:
		return trueT
	case a == unknownT || b == unknownT:
		return unknownT
	default:
		return falseT
	}
}

func not(a truth) truth {
	switch a {
	case trueT:
		return falseT
	case falseT:
		return trueT
	default:
		return unknownT
	}
}

func fromBool(b bool) truth {
	if b {
		return trueT
	}
	return falseT
}

// Compare applies op to a and b. Int and Float compare numerically, strings
// compare byte-wise and bools support only equality. Nulls and mismatched
// types are unknown.
func Compare(a columnar.Value, op CompareOp, b columnar.Value) (result, known bool) {
	t := compare(a, op, b)
	return t == trueT, t != unknownT
}

func compare(a columnar.Value, op CompareOp, b columnar.Value) truth {
	if a.IsNull() || b.IsNull() {
		return unknownT
	}
	var c int
	switch {
	case a.Type == columnar.Int && b.Type == columnar.Int:
		c = cmpOrdered(a.Int, b.Int)
	case isNumeric(a) && isNumeric(b):
		x, y := asFloat(a), asFloat(b)
		if x != x || y != y { // NaN
			return fromBool(op == OpNe)
		}
		c = cmpOrdered(x, y)
	case a.Type == columnar.String && b.Type == columnar.String:
		c = strings.Compare(a.Str, b.Str)
	case a.Type == columnar.Bool && b.Type == columnar.Bool:
		switch op {
		case OpEq:
			return fromBool(a.Bool == b.Bool)
		case OpNe:
			return fromBool(a.Bool != b.Bool)
		default:
			return unknownT
		}
	default:
		return unknownT
	}

	switch op {
	case OpEq:
		return fromBool(c == 0)
	case OpNe:
		return fromBool(c != 0)
	case OpLt:
		return fromBool(c < 0)
	case OpLe:
		return fromBool(c <= 0)
	case OpGt:
		return fromBool(c > 0)
	default:
		return fromBool(c >= 0)
	}
}

func cmpOrdered[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func isNumeric(v columnar.Value) bool {
	return v.Type == columnar.Int || v.Type == columnar.Float
}

func asFloat(v columnar.Value) float64 {
	if v.Type == columnar.Int {
		return float64(v.Int)
	}
	return v.Float
}

// predicate evaluates a bound WHERE clause against one input row.
type predicate func(row int) truth

// bindPredicate resolves column references in e against tbl.
func bindPredicate(e Expr, tbl *columnar.Table) (predicate, error) {
	switch n := e.(type) {
	case *Comparison:
		col, err := bindColumn(n.Left, tbl)
		if err != nil {
			return nil, err
		}
		lit, op := n.Right.Value, n.Op
		return func(row int) truth {
			return compare(col.Value(row), op, lit)
		}, nil

	case *IsNullExpr:
		col, err := bindColumn(n.Column, tbl)
		if err != nil {
			return nil, err
		}
		want := !n.Not
		return func(row int) truth {
			return fromBool(col.Value(row).IsNull() == want)
		}, nil

	case *NotExpr:
		inner, err := bindPredicate(n.Expr, tbl)
		if err != nil {
			return nil, err
		}
		return func(row int) truth { return not(inner(row)) }, nil

	case *BooleanExpr:
		operands := make([]predicate, len(n.Operands))
		for i, op := range n.Operands {
			p, err := bindPredicate(op, tbl)
			if err != nil {
				return nil, err
			}
			operands[i] = p
		}
		if n.Op == OpOr {
			return func(row int) truth {
				acc := falseT
				for _, p := range operands {
					if acc = or(acc, p(row)); acc == trueT {
						return trueT
					}
				}
				return acc
			}, nil
		}
		return func(row int) truth {
			acc := trueT
			for _, p := range operands {
				if acc = and(acc, p(row)); acc == falseT {
					return falseT
				}
			}
			return acc
		}, nil

	default:
		return nil, domain.ErrEvaluation("unsupported predicate %s", e)
	}
}

func bindColumn(c *ColumnRef, tbl *columnar.Table) (*columnar.Column, error) {
	i, err := resolveColumn(c, tbl.Schema)
	if err != nil {
		return nil, err
	}
	return tbl.Column(i), nil
}

// resolveColumn finds the position of c in s. Quoted names match exactly;
// bare names fall back to a unique case-insensitive match.
func resolveColumn(c *ColumnRef, s columnar.Schema) (int, error) {
	if c.Quoted {
		if i, ok := s.LookupExact(c.Name); ok {
			return i, nil
		}
		return -1, domain.ErrEvaluation("column %q does not exist", c.Name)
	}
	if i, ok := s.Lookup(c.Name); ok {
		return i, nil
	}
	if len(s.FoldMatches(c.Name)) > 1 {
		return -1, domain.ErrEvaluation("ambiguous column name %q", c.Name)
	}
	return -1, domain.ErrEvaluation("column %q does not exist", c.Name)
}

// Cursor lazily filters and projects a table. It is not safe for concurrent
// use and cannot be rewound; evaluate the query again to restart.
type Cursor struct {
	table *columnar.Table
	query *Query

	bound   bool
	err     error
	cols    []int
	names   []string
	pred    predicate
	next    int
	emitted int64
	row     []columnar.Value
}

// Evaluate returns a cursor over the rows of tbl that satisfy q. Column names
// are bound on first use, so an unknown column surfaces from the first call to
// Next or Columns as *domain.EvaluationError.
func Evaluate(tbl *columnar.Table, q *Query) *Cursor {
	return &Cursor{table: tbl, query: q}
}

func (c *Cursor) bind() {
	if c.bound {
		return
	}
	c.bound = true

	if c.query.Wildcard {
		c.cols = make([]int, len(c.table.Schema.Fields))
		for i := range c.cols {
			c.cols[i] = i
		}
		c.names = c.table.Schema.Names()
	} else {
		for _, ref := range c.query.Projection {
			i, err := resolveColumn(ref, c.table.Schema)
			if err != nil {
				c.err = err
				return
			}
			c.cols = append(c.cols, i)
			c.names = append(c.names, c.table.Schema.Fields[i].Name)
		}
	}

	if c.query.Where != nil {
		pred, err := bindPredicate(c.query.Where, c.table)
		if err != nil {
			c.err = err
			return
		}
		c.pred = pred
	}
	c.row = make([]columnar.Value, len(c.cols))
}

// Columns returns the output column names in emission order, or nil if the
// query cannot be bound.
func (c *Cursor) Columns() []string {
	c.bind()
	if c.err != nil {
		return nil
	}
	return c.names
}

// Next advances to the next matching row.
func (c *Cursor) Next() bool {
	c.bind()
	if c.err != nil {
		return false
	}
	if c.query.Limit >= 0 && c.emitted >= c.query.Limit {
		return false
	}
	for c.next < c.table.NumRows {
		r := c.next
		c.next++
		if c.pred != nil && c.pred(r) != trueT {
			continue
		}
		for i, col := range c.cols {
			c.row[i] = c.table.Column(col).Value(r)
		}
		c.emitted++
		return true
	}
	return false
}

// Row returns the current row. The slice is reused by the next call to Next.
func (c *Cursor) Row() []columnar.Value { return c.row }

// Err returns the binding error, if any.
func (c *Cursor) Err() error { return c.err }
