// Package ioerr defines the typed error surface shared by the parser,
// translators, driver registry and backend drivers.
//
// Every fallible operation in fragio returns an *Error (possibly wrapped)
// whose Code identifies the failure class. Callers branch on the code with
// Is or CodeOf rather than on message text.
package ioerr

import (
	"errors"
	"fmt"
)

// Code categorizes an I/O server error.
type Code string

const (
	// NullParameter indicates a required input was empty or nil.
	NullParameter Code = "NULL_PARAMETER"

	// InvalidServerName indicates a driver identifier not of the form TYPE:SUBTYPE.
	InvalidServerName Code = "INVALID_SERVER_NAME"

	// DriverNotFound indicates no driver is registered for the requested type.
	DriverNotFound Code = "DRIVER_NOT_FOUND"

	// ParseError indicates malformed submission text (unbalanced quotes, doubled separators).
	ParseError Code = "PARSE_ERROR"

	// InvalidParameter indicates mismatched multi-value counts, bad operand
	// counts or an unknown operation tag.
	InvalidParameter Code = "INVALID_PARAMETER"

	// MissingArgument indicates an argument required by the operation is absent.
	MissingArgument Code = "MISSING_ARGUMENT"

	// UnknownKeyword indicates a macro name absent from the dialect's table.
	UnknownKeyword Code = "UNKNOWN_KEYWORD"

	// ConnectionError indicates the backend could not be reached or rejected a session change.
	ConnectionError Code = "CONNECTION_ERROR"

	// QueryExecutionError indicates the backend failed to execute a statement.
	QueryExecutionError Code = "QUERY_EXECUTION_ERROR"

	// BufferOverflow indicates a composed statement exceeded the maximum length.
	BufferOverflow Code = "BUFFER_OVERFLOW"

	// MemoryError indicates a resource could not be allocated.
	MemoryError Code = "MEMORY_ERROR"
)

// Codes lists every code in declaration order.
var Codes = []Code{
	NullParameter,
	InvalidServerName,
	DriverNotFound,
	ParseError,
	InvalidParameter,
	MissingArgument,
	UnknownKeyword,
	ConnectionError,
	QueryExecutionError,
	BufferOverflow,
	MemoryError,
}

// Error is the concrete error type returned across fragio.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Err is the underlying native error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error carrying a native cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Valid reports whether code is a member of the taxonomy.
func Valid(code Code) bool {
	for _, c := range Codes {
		if c == code {
			return true
		}
	}
	return false
}
