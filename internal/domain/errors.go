// Package domain defines core types, interfaces, and errors for the object gateway.
package domain

import "fmt"

// NotFoundError indicates the requested bucket or object does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// FetchError indicates the storage backend failed for a reason other than
// a missing object. The backend error is kept as the cause.
type FetchError struct {
	Key   ObjectKey
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Key, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// ParseError indicates a malformed select expression.
type ParseError struct {
	Message string
	Pos     int // byte offset into the expression, -1 when unknown
}

func (e *ParseError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Message)
	}
	return "parse error: " + e.Message
}

// FormatError indicates object bytes are not a valid columnar file.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string { return e.Message }

// SchemaError indicates the columnar file carries a schema the engine cannot serve,
// such as a nested column or an ambiguous column name.
type SchemaError struct {
	Message string
}

func (e *SchemaError) Error() string { return e.Message }

// EvaluationError indicates a query that parsed but cannot be bound to the data,
// typically a reference to a column that does not exist.
type EvaluationError struct {
	Message string
}

func (e *EvaluationError) Error() string { return e.Message }

// ValidationError indicates an invalid request envelope.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotImplementedError indicates an operation outside the read-only surface.
type NotImplementedError struct {
	Message string
}

func (e *NotImplementedError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrFetch wraps a backend failure for key.
func ErrFetch(key ObjectKey, cause error) *FetchError {
	return &FetchError{Key: key, Cause: cause}
}

// ErrParse creates a ParseError at pos with a formatted message.
func ErrParse(pos int, format string, args ...interface{}) *ParseError {
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// ErrFormat creates a FormatError with a formatted message.
func ErrFormat(format string, args ...interface{}) *FormatError {
	return &FormatError{Message: fmt.Sprintf(format, args...)}
}

// ErrSchema creates a SchemaError with a formatted message.
func ErrSchema(format string, args ...interface{}) *SchemaError {
	return &SchemaError{Message: fmt.Sprintf(format, args...)}
}

// ErrEvaluation creates an EvaluationError with a formatted message.
func ErrEvaluation(format string, args ...interface{}) *EvaluationError {
	return &EvaluationError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotImplemented creates a NotImplementedError with a formatted message.
func ErrNotImplemented(format string, args ...interface{}) *NotImplementedError {
	return &NotImplementedError{Message: fmt.Sprintf(format, args...)}
}
