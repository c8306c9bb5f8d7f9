package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/fragio/internal/ioerr"
)

// Process exit statuses of failed commands.
const (
	ExitFailure      = 1 // a query or scenario failed
	ExitCommandError = 2 // the command could not run: flags, config, driver lookup
)

// ErrCodeGeneric labels errors that carry no I/O error code.
const ErrCodeGeneric = "ERROR"

// ExitError carries the process exit status of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error

	// Reported marks an error the formatter already printed.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process status. Errors without one are
// ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ErrorCode returns the I/O error code carried by err, or ErrCodeGeneric.
func ErrorCode(err error) string {
	if code := ioerr.CodeOf(err); code != "" {
		return string(code)
	}
	return ErrCodeGeneric
}

// CLIResponse is the JSON envelope of every command result.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OutputFormatter writes command results. Verbose diagnostics go to Log so
// they never interleave with a JSON result on Writer.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Log     io.Writer
	Verbose bool
}

// Success writes data in an "ok" envelope. Commands render text output
// themselves.
func (f *OutputFormatter) Success(data any) error {
	return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
}

// Fail prints err under its I/O error code and returns it as a reported
// ExitError with exitCode.
func (f *OutputFormatter) Fail(exitCode int, message string, err error) error {
	code, text := ErrorCode(err), fmt.Sprintf("%s: %v", message, err)
	if f.Format == "json" {
		resp := CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: text}}
		if encErr := json.NewEncoder(f.Writer).Encode(resp); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, text)
	}
	return &ExitError{Code: exitCode, Message: message, Err: err, Reported: true}
}

// VerboseLog writes one line to Log when Verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose && f.Log != nil {
		fmt.Fprintf(f.Log, format+"\n", args...)
	}
}
