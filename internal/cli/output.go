package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/botloom/botloom/internal/flow"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // domain rejection (conflict, blocked delete, findings)
	ExitCommandError = 2 // command error (bad paths, unreadable database)
)

// ExitError carries a specific process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Non-ExitErrors map
// to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Error code constants, unified across all commands.
const (
	ErrCodeGeneric           = "E001" // generic/unknown error
	ErrCodeValidation        = "E002" // malformed input or trigger clash
	ErrCodeConflict          = "E003" // stale version token
	ErrCodeReferenceConflict = "E004" // delete blocked by live references
	ErrCodeNotFound          = "E005" // unknown or deleted interaction
	ErrCodeCompileFailed     = "E006" // definition file did not compile
	ErrCodeIO                = "E007" // file or database access
)

// classifyError maps a domain error to its CLI error code.
func classifyError(err error) string {
	switch {
	case flow.IsValidation(err):
		return ErrCodeValidation
	case flow.IsConflict(err):
		return ErrCodeConflict
	case flow.IsReferenceConflict(err):
		return ErrCodeReferenceConflict
	case flow.IsNotFound(err):
		return ErrCodeNotFound
	default:
		return ErrCodeGeneric
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostic output; defaults to Writer
	Verbose   bool
}

// CLIResponse is the standard JSON response envelope.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError is the error structure for JSON responses.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Successf outputs a formatted text line, or the given data as JSON.
func (f *OutputFormatter) Successf(data interface{}, format string, args ...interface{}) error {
	if f.Format == "json" {
		return f.Success(data)
	}
	fmt.Fprintf(f.Writer, format+"\n", args...)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a diagnostic line only in verbose mode. When the
// format is JSON the line goes to ErrWriter so it cannot corrupt the
// JSON stream.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// reportDomainError prints a domain rejection and converts it to an
// ExitError so the process exits with the rejection code.
func reportDomainError(f *OutputFormatter, err error) error {
	code := classifyError(err)

	var details interface{}
	var refConflict *flow.ReferenceConflictError
	if errors.As(err, &refConflict) {
		details = refConflict.Refs
	}
	var conflict *flow.ConflictError
	if errors.As(err, &conflict) {
		details = map[string]int64{"expected": conflict.Expected, "actual": conflict.Actual}
	}

	_ = f.Error(code, err.Error(), details)
	return WrapExitError(ExitFailure, code, err)
}
