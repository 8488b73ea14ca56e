package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit codes.
const (
	ExitSuccess      = 0 // every requested chain verified
	ExitFailure      = 1 // a chain is broken or ends at an untrusted hash
	ExitCommandError = 2 // bad flags or config, unreadable database or fixture
)

// Codes carried in CLIError.Code.
const (
	ErrCodeGeneric      = "E001"
	ErrCodeConfig       = "E002"
	ErrCodeNotFound     = "E005" // database or fixture file missing
	ErrCodeNoTables     = "E006"
	ErrCodeVerifyFailed = "E201"
)

// ExitError carries the process exit code out of a command's RunE.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that carry no
// *ExitError count as ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	default:
		return ExitFailure
	}
}

// CLIResponse is the envelope of every --format json document.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" | "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError is the error half of CLIResponse. Verify puts its per-table
// reports in Details.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// OutputFormatter writes command results to Writer and diagnostics to
// ErrWriter, which falls back to Writer when unset.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Success writes data. Text output is fmt.Fprintln, so result types
// render themselves through String.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes an error. Text output shows details only when verbose.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes a diagnostic line when verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}
