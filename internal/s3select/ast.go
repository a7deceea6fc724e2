package s3select

import (
	"fmt"
	"strings"

	"github.com/joocer/s1/internal/columnar"
)

// Expr is a node of a WHERE predicate. The set of implementations is closed.
type Expr interface {
	exprNode()
	String() string
}

// ColumnRef references a column, optionally qualified by the table or its alias.
type ColumnRef struct {
	Qualifier string
	Name      string
	Quoted    bool
	Pos       int
}

// Literal is a constant operand.
type Literal struct {
	Value columnar.Value
}

// CompareOp is a comparison operator.
type CompareOp int

// Comparison operators.
const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var compareOpNames = [...]string{"=", "!=", "<", "<=", ">", ">="}

func (o CompareOp) String() string { return compareOpNames[o] }

// flip returns the operator that gives the same result with operands swapped.
func (o CompareOp) flip() CompareOp {
	switch o {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	default:
		return o
	}
}

func compareOpFromToken(t TokenType) CompareOp {
	switch t {
	case TOKEN_NE:
		return OpNe
	case TOKEN_LT:
		return OpLt
	case TOKEN_LE:
		return OpLe
	case TOKEN_GT:
		return OpGt
	case TOKEN_GE:
		return OpGe
	default:
		return OpEq
	}
}

// Comparison compares a column with a literal. The parser normalizes
// "literal op column" so Left is always the column.
type Comparison struct {
	Op    CompareOp
	Left  *ColumnRef
	Right *Literal
}

// BoolOp joins predicates.
type BoolOp int

// Boolean connectives.
const (
	OpAnd BoolOp = iota
	OpOr
)

func (o BoolOp) String() string {
	if o == OpOr {
		return "OR"
	}
	return "AND"
}

// BooleanExpr is an AND or OR over two or more operands.
type BooleanExpr struct {
	Op       BoolOp
	Operands []Expr
}

// NotExpr negates a predicate.
type NotExpr struct {
	Expr Expr
}

// IsNullExpr tests a column for null.
type IsNullExpr struct {
	Column *ColumnRef
	Not    bool
}

func (*ColumnRef) exprNode()   {}
func (*Literal) exprNode()     {}
func (*Comparison) exprNode()  {}
func (*BooleanExpr) exprNode() {}
func (*NotExpr) exprNode()     {}
func (*IsNullExpr) exprNode()  {}

func (c *ColumnRef) String() string {
	name := c.Name
	if c.Quoted {
		name = `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	if c.Qualifier != "" {
		return c.Qualifier + "." + name
	}
	return name
}

func (l *Literal) String() string {
	switch l.Value.Type {
	case columnar.String:
		return "'" + strings.ReplaceAll(l.Value.Str, "'", "''") + "'"
	case columnar.Null:
		return "NULL"
	default:
		return l.Value.String()
	}
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

func (b *BooleanExpr) String() string {
	parts := make([]string, len(b.Operands))
	for i, e := range b.Operands {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, " "+b.Op.String()+" ") + ")"
}

func (n *NotExpr) String() string { return "NOT " + n.Expr.String() }

func (n *IsNullExpr) String() string {
	if n.Not {
		return n.Column.String() + " IS NOT NULL"
	}
	return n.Column.String() + " IS NULL"
}

// walkColumns calls fn for every column referenced by e, in source order.
func walkColumns(e Expr, fn func(*ColumnRef)) {
	switch n := e.(type) {
	case *ColumnRef:
		fn(n)
	case *Comparison:
		fn(n.Left)
	case *BooleanExpr:
		for _, op := range n.Operands {
			walkColumns(op, fn)
		}
	case *NotExpr:
		walkColumns(n.Expr, fn)
	case *IsNullExpr:
		fn(n.Column)
	}
}
