// Package dbmserr defines the shared error taxonomy raised by every stage of
// the pipeline: lexer, parser, validator, catalog/storage, and executor.
// Every concrete type embeds base so callers can catch broadly with the
// DbmsError interface or narrowly with errors.As against a specific type.
package dbmserr

import "fmt"

// DbmsError is the marker interface implemented by every error type in this
// package. A caller that wants "any engine error" checks for this interface;
// a caller that wants one specific kind uses errors.As on the concrete type.
type DbmsError interface {
	error
	dbmsError()
}

type base struct{}

func (base) dbmsError() {}

// LexError reports an unrecognized character in the input byte stream.
type LexError struct {
	base
	Line, Col int
	Char      byte
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %d:%d: unrecognized character %q", e.Line, e.Col, e.Char)
}

// NewLexError builds a LexError for the given position and offending byte.
func NewLexError(line, col int, ch byte) *LexError {
	return &LexError{Line: line, Col: col, Char: ch}
}

// ParseError reports a token stream that does not match the grammar.
type ParseError struct {
	base
	Line, Col int
	Token     string
	Message   string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Message)
	}
	return fmt.Sprintf("parse error at %d:%d: %s (found %q)", e.Line, e.Col, e.Message, e.Token)
}

// NewParseError builds a ParseError describing the offending token.
func NewParseError(line, col int, token, message string) *ParseError {
	return &ParseError{Line: line, Col: col, Token: token, Message: message}
}

// ValidationError reports a structurally well-formed statement that is
// semantically wrong against the catalog.
type ValidationError struct {
	base
	Entity  string
	Name    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("validation error in %s: %s", e.Entity, e.Message)
	}
	return fmt.Sprintf("validation error in %s %q: %s", e.Entity, e.Name, e.Message)
}

// NewValidationError builds a ValidationError for the named entity.
func NewValidationError(entity, name, message string) *ValidationError {
	return &ValidationError{Entity: entity, Name: name, Message: message}
}

// SchemaError reports a DDL operation that cannot be applied, e.g. a foreign
// key naming a table that does not exist, or a DROP TABLE blocked by a
// referencing table.
type SchemaError struct {
	base
	Message string
}

func (e *SchemaError) Error() string { return fmt.Sprintf("schema error: %s", e.Message) }

// NewSchemaError builds a SchemaError with the given message.
func NewSchemaError(format string, args ...any) *SchemaError {
	return &SchemaError{Message: fmt.Sprintf(format, args...)}
}

// StorageError reports a record or index file that is missing or unreadable
// when the executor expected it to be present.
type StorageError struct {
	base
	Table   string
	Message string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error on table %q: %s", e.Table, e.Message)
}

// NewStorageError builds a StorageError for the given table.
func NewStorageError(table, format string, args ...any) *StorageError {
	return &StorageError{Table: table, Message: fmt.Sprintf(format, args...)}
}

// IndexError reports an index operation that cannot complete.
type IndexError struct {
	base
	Table, Column string
	Message       string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index error on %s.%s: %s", e.Table, e.Column, e.Message)
}

// NewIndexError builds an IndexError for the given table/column pair.
func NewIndexError(table, column, format string, args ...any) *IndexError {
	return &IndexError{Table: table, Column: column, Message: fmt.Sprintf(format, args...)}
}

// ExecutionError reports a constraint violated at statement-execution time:
// duplicate primary key, missing foreign-key target, a type mismatch in a
// value, or a referential-integrity violation on DELETE.
type ExecutionError struct {
	base
	Message string
}

func (e *ExecutionError) Error() string { return fmt.Sprintf("execution error: %s", e.Message) }

// NewExecutionError builds an ExecutionError with the given message.
func NewExecutionError(format string, args ...any) *ExecutionError {
	return &ExecutionError{Message: fmt.Sprintf(format, args...)}
}
