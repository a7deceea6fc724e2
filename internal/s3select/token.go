// Package s3select implements the S3 Select SQL dialect: a lexer, a
// recursive-descent parser producing a typed expression tree, and a pull-based
// cursor that filters and projects decoded columnar tables one row at a time.
package s3select

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

// TOKEN_EOF and friends enumerate all token types produced by the lexer.
const (
	TOKEN_EOF     TokenType = iota // end of input
	TOKEN_ILLEGAL                  // unexpected character or unterminated literal

	TOKEN_IDENT        // identifier
	TOKEN_QUOTED_IDENT // "identifier"
	TOKEN_NUMBER       // 123, 45.67, 1e10
	TOKEN_STRING       // 'hello'

	TOKEN_MINUS     // -
	TOKEN_STAR      // *
	TOKEN_EQ        // =
	TOKEN_NE        // != or <>
	TOKEN_LT        // <
	TOKEN_GT        // >
	TOKEN_LE        // <=
	TOKEN_GE        // >=
	TOKEN_DOT       // .
	TOKEN_COMMA     // ,
	TOKEN_SEMICOLON // ;
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )

	// TOKEN_AND and below are keywords (alphabetical).
	TOKEN_AND
	TOKEN_AS
	TOKEN_FALSE
	TOKEN_FROM
	TOKEN_IS
	TOKEN_LIMIT
	TOKEN_NOT
	TOKEN_NULL
	TOKEN_OR
	TOKEN_SELECT
	TOKEN_TRUE
	TOKEN_WHERE
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:          "EOF",
	TOKEN_ILLEGAL:      "ILLEGAL",
	TOKEN_IDENT:        "IDENT",
	TOKEN_QUOTED_IDENT: "QUOTED_IDENT",
	TOKEN_NUMBER:       "NUMBER",
	TOKEN_STRING:       "STRING",
	TOKEN_MINUS:        "-",
	TOKEN_STAR:         "*",
	TOKEN_EQ:           "=",
	TOKEN_NE:           "!=",
	TOKEN_LT:           "<",
	TOKEN_GT:           ">",
	TOKEN_LE:           "<=",
	TOKEN_GE:           ">=",
	TOKEN_DOT:          ".",
	TOKEN_COMMA:        ",",
	TOKEN_SEMICOLON:    ";",
	TOKEN_LPAREN:       "(",
	TOKEN_RPAREN:       ")",
	TOKEN_AND:          "AND",
	TOKEN_AS:           "AS",
	TOKEN_FALSE:        "FALSE",
	TOKEN_FROM:         "FROM",
	TOKEN_IS:           "IS",
	TOKEN_LIMIT:        "LIMIT",
	TOKEN_NOT:          "NOT",
	TOKEN_NULL:         "NULL",
	TOKEN_OR:           "OR",
	TOKEN_SELECT:       "SELECT",
	TOKEN_TRUE:         "TRUE",
	TOKEN_WHERE:        "WHERE",
}

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", int(t))
}

var keywords = map[string]TokenType{
	"and":    TOKEN_AND,
	"as":     TOKEN_AS,
	"false":  TOKEN_FALSE,
	"from":   TOKEN_FROM,
	"is":     TOKEN_IS,
	"limit":  TOKEN_LIMIT,
	"not":    TOKEN_NOT,
	"null":   TOKEN_NULL,
	"or":     TOKEN_OR,
	"select": TOKEN_SELECT,
	"true":   TOKEN_TRUE,
	"where":  TOKEN_WHERE,
}

// lookupKeyword returns the keyword token type for a lowercased identifier,
// or TOKEN_IDENT.
func lookupKeyword(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TOKEN_IDENT
}

// Token is a lexical token with its byte offset in the input.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

// isComparison reports whether t is a comparison operator.
func (t TokenType) isComparison() bool {
	switch t {
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE:
		return true
	}
	return false
}
