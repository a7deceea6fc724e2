package s3select

import (
	"strconv"
	"strings"

	"github.com/joocer/s1/internal/columnar"
	"github.com/joocer/s1/internal/domain"
)

// TableName is the only table a select expression may read from.
const TableName = "S3Object"

// Parser parses S3 Select SQL into a Query.
type Parser struct {
	lexer *Lexer
	token Token // current token
	peek  Token // lookahead token
	err   *domain.ParseError
}

// NewParser creates a new parser for the given SQL input.
func NewParser(sql string) *Parser {
	p := &Parser{lexer: NewLexer(sql)}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a single SELECT statement.
func Parse(sql string) (*Query, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, domain.ErrParse(0, "empty expression")
	}
	p := NewParser(sql)
	q := p.parseSelect()
	if p.err != nil {
		return nil, p.err
	}
	return q, nil
}

// ParseExpr parses a standalone WHERE predicate.
func ParseExpr(sql string) (Expr, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, domain.ErrParse(0, "empty expression")
	}
	p := NewParser(sql)
	e := p.parseOr()
	if p.err == nil && !p.check(TOKEN_EOF) {
		p.fail("unexpected %s after expression", describe(p.token))
	}
	if p.err != nil {
		return nil, p.err
	}
	return e, nil
}

// === Token Helpers ===

func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.fail("unexpected %s, expected %s", describe(p.token), t)
	return false
}

// fail records the first error at the current token.
func (p *Parser) fail(format string, args ...interface{}) {
	if p.err == nil {
		p.err = domain.ErrParse(p.token.Pos, format, args...)
	}
}

func describe(tok Token) string {
	switch tok.Type {
	case TOKEN_EOF:
		return "end of expression"
	case TOKEN_ILLEGAL:
		if tok.Literal == "" || len(tok.Literal) > 1 {
			return "unterminated literal"
		}
		return "character " + strconv.Quote(tok.Literal)
	case TOKEN_STRING:
		return "string '" + tok.Literal + "'"
	default:
		if tok.Literal != "" {
			return strconv.Quote(tok.Literal)
		}
		return tok.Type.String()
	}
}

// === Statement ===

func (p *Parser) parseSelect() *Query {
	q := &Query{Limit: -1}
	if !p.expect(TOKEN_SELECT) {
		return nil
	}

	if p.match(TOKEN_STAR) {
		q.Wildcard = true
	} else {
		for {
			col := p.parseColumnRef()
			if col == nil {
				return nil
			}
			q.Projection = append(q.Projection, col)
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
	}

	if !p.expect(TOKEN_FROM) {
		return nil
	}
	p.parseSource(q)
	if p.err != nil {
		return nil
	}

	if p.match(TOKEN_WHERE) {
		q.Where = p.parseOr()
		if p.err != nil {
			return nil
		}
	}

	if p.match(TOKEN_LIMIT) {
		if !p.check(TOKEN_NUMBER) {
			p.fail("LIMIT expects a non-negative integer, got %s", describe(p.token))
			return nil
		}
		n, err := strconv.ParseInt(p.token.Literal, 10, 64)
		if err != nil {
			p.fail("LIMIT expects a non-negative integer, got %s", describe(p.token))
			return nil
		}
		q.Limit = n
		p.nextToken()
	}

	p.match(TOKEN_SEMICOLON)
	if !p.check(TOKEN_EOF) {
		p.fail("unexpected %s after statement", describe(p.token))
		return nil
	}

	p.checkQualifiers(q)
	return q
}

// parseSource parses "S3Object [[AS] alias]".
func (p *Parser) parseSource(q *Query) {
	if !p.check(TOKEN_IDENT) && !p.check(TOKEN_QUOTED_IDENT) {
		p.fail("unexpected %s, expected %s", describe(p.token), TableName)
		return
	}
	if !strings.EqualFold(p.token.Literal, TableName) {
		p.fail("unsupported table %q, only %s can be queried", p.token.Literal, TableName)
		return
	}
	p.nextToken()

	if p.match(TOKEN_AS) {
		if !p.check(TOKEN_IDENT) && !p.check(TOKEN_QUOTED_IDENT) {
			p.fail("unexpected %s, expected alias", describe(p.token))
			return
		}
	}
	if p.check(TOKEN_IDENT) || p.check(TOKEN_QUOTED_IDENT) {
		q.Alias = p.token.Literal
		p.nextToken()
	}
}

// checkQualifiers verifies every qualified column names the table or its alias.
func (p *Parser) checkQualifiers(q *Query) {
	valid := func(c *ColumnRef) {
		if p.err != nil || c.Qualifier == "" {
			return
		}
		if strings.EqualFold(c.Qualifier, TableName) || (q.Alias != "" && strings.EqualFold(c.Qualifier, q.Alias)) {
			return
		}
		p.err = domain.ErrParse(c.Pos, "unknown table alias %q", c.Qualifier)
	}
	for _, c := range q.Projection {
		valid(c)
	}
	if q.Where != nil {
		walkColumns(q.Where, valid)
	}
}

// parseColumnRef parses "[qualifier.]name".
func (p *Parser) parseColumnRef() *ColumnRef {
	if !p.check(TOKEN_IDENT) && !p.check(TOKEN_QUOTED_IDENT) {
		p.fail("unexpected %s, expected column name", describe(p.token))
		return nil
	}
	col := &ColumnRef{Name: p.token.Literal, Quoted: p.check(TOKEN_QUOTED_IDENT), Pos: p.token.Pos}
	p.nextToken()

	if p.match(TOKEN_DOT) {
		if !p.check(TOKEN_IDENT) && !p.check(TOKEN_QUOTED_IDENT) {
			p.fail("unexpected %s, expected column name after %q", describe(p.token), col.Name+".")
			return nil
		}
		col.Qualifier = col.Name
		col.Name = p.token.Literal
		col.Quoted = p.check(TOKEN_QUOTED_IDENT)
		p.nextToken()
	}
	return col
}

// === Predicates ===

// parseOr parses "and (OR and)*".
func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	if left == nil || !p.check(TOKEN_OR) {
		return left
	}
	operands := []Expr{left}
	for p.match(TOKEN_OR) {
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		operands = append(operands, right)
	}
	return &BooleanExpr{Op: OpOr, Operands: operands}
}

// parseAnd parses "not (AND not)*".
func (p *Parser) parseAnd() Expr {
	left := p.parseNot()
	if left == nil || !p.check(TOKEN_AND) {
		return left
	}
	operands := []Expr{left}
	for p.match(TOKEN_AND) {
		right := p.parseNot()
		if right == nil {
			return nil
		}
		operands = append(operands, right)
	}
	return &BooleanExpr{Op: OpAnd, Operands: operands}
}

func (p *Parser) parseNot() Expr {
	if p.match(TOKEN_NOT) {
		inner := p.parseNot()
		if inner == nil {
			return nil
		}
		return &NotExpr{Expr: inner}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Expr {
	if p.match(TOKEN_LPAREN) {
		e := p.parseOr()
		if e == nil || !p.expect(TOKEN_RPAREN) {
			return nil
		}
		return e
	}
	return p.parseComparison()
}

// parseComparison parses "operand op operand" or "column IS [NOT] NULL".
// Exactly one operand must be a column.
func (p *Parser) parseComparison() Expr {
	start := p.token.Pos
	left := p.parseOperand()
	if left == nil {
		return nil
	}

	if p.match(TOKEN_IS) {
		negated := p.match(TOKEN_NOT)
		if !p.expect(TOKEN_NULL) {
			return nil
		}
		col, ok := left.(*ColumnRef)
		if !ok {
			p.err = domain.ErrParse(start, "IS NULL requires a column operand")
			return nil
		}
		return &IsNullExpr{Column: col, Not: negated}
	}

	if !p.token.Type.isComparison() {
		p.fail("unexpected %s, expected comparison operator", describe(p.token))
		return nil
	}
	op := compareOpFromToken(p.token.Type)
	p.nextToken()

	right := p.parseOperand()
	if right == nil {
		return nil
	}

	switch l := left.(type) {
	case *ColumnRef:
		if lit, ok := right.(*Literal); ok {
			return &Comparison{Op: op, Left: l, Right: lit}
		}
	case *Literal:
		if col, ok := right.(*ColumnRef); ok {
			return &Comparison{Op: op.flip(), Left: col, Right: l}
		}
	}
	p.err = domain.ErrParse(start, "comparison must be between a column and a literal")
	return nil
}

// parseOperand parses a column reference or a literal.
func (p *Parser) parseOperand() Expr {
	switch p.token.Type {
	case TOKEN_IDENT, TOKEN_QUOTED_IDENT:
		col := p.parseColumnRef()
		if col == nil {
			return nil
		}
		return col
	case TOKEN_STRING:
		lit := &Literal{Value: columnar.StringValue(p.token.Literal)}
		p.nextToken()
		return lit
	case TOKEN_TRUE, TOKEN_FALSE:
		lit := &Literal{Value: columnar.BoolValue(p.check(TOKEN_TRUE))}
		p.nextToken()
		return lit
	case TOKEN_NULL:
		p.nextToken()
		return &Literal{Value: columnar.NullValue()}
	case TOKEN_MINUS:
		p.nextToken()
		if !p.check(TOKEN_NUMBER) {
			p.fail("unexpected %s after '-', expected number", describe(p.token))
			return nil
		}
		return p.parseNumber(true)
	case TOKEN_NUMBER:
		return p.parseNumber(false)
	default:
		p.fail("unexpected %s, expected column or literal", describe(p.token))
		return nil
	}
}

func (p *Parser) parseNumber(negative bool) Expr {
	text := p.token.Literal
	if negative {
		text = "-" + text
	}
	var v columnar.Value
	if !strings.ContainsAny(text, ".eE") {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			v = columnar.IntValue(n)
		}
	}
	if v.Type == columnar.Null {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.fail("invalid number %q", text)
			return nil
		}
		v = columnar.FloatValue(f)
	}
	p.nextToken()
	return &Literal{Value: v}
}
