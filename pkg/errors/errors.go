// Package errors provides structured error handling for ontoforge.
// It implements errors with codes, context, and stack traces.
package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// Code identifies an error class for programmatic handling.
type Code string

const (
	// Input errors (1xx)
	CodeFileNotFound  Code = "E101"
	CodeInvalidFormat Code = "E102"
	CodeEmptyDataset  Code = "E103"
	CodeBadHeader     Code = "E104"
	CodeEncodingError Code = "E105"
	CodeFetchFailed   Code = "E106"

	// Processing errors (2xx)
	CodeParseFailed     Code = "E201"
	CodeNormalizeFailed Code = "E202"
	CodeProfileFailed   Code = "E203"
	CodeEnrichFailed    Code = "E204"

	// Output errors (3xx)
	CodeWriteFailed  Code = "E301"
	CodeExportFailed Code = "E302"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"
	CodeTimeout         Code = "E402"
	CodeStorageBackend  Code = "E403"

	// Model errors (5xx)
	CodeModelCorrupt      Code = "E501"
	CodeModelIncompatible Code = "E502"
	CodeEnsembleMissing   Code = "E503"

	// Unknown
	CodeUnknown Code = "E999"
)

// Error is the base error type for all ontoforge errors.
type Error struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on error code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new coded error.
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// captureStack captures the current stack trace.
func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns a formatted stack trace.
func (e *Error) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		sb.WriteString(fmt.Sprintf("  at %s\n    %s:%d\n", f.Function, f.File, f.Line))
	}
	return sb.String()
}

// --- Convenience constructors ---

// FileNotFound creates a file not found error.
func FileNotFound(path string) *Error {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// ParseFailure creates a parsing error with location.
func ParseFailure(format string, row int, err error) *Error {
	return Wrap(err, CodeParseFailed, "parse error").
		WithContext("format", format).
		WithContext("row", row)
}

// ModelCorrupt signals an unreadable persisted classifier payload.
func ModelCorrupt(path string, err error) *Error {
	return Wrap(err, CodeModelCorrupt, "persisted model payload is corrupt").
		WithContext("path", path)
}

// EnsembleMissing signals a trained model whose ensemble payload cannot be
// restored. This is fatal: silently downgrading to the heuristic regime would
// break reproducibility.
func EnsembleMissing(path string) *Error {
	return New(CodeEnsembleMissing, "model declares trained ensemble but payload is missing or unusable").
		WithContext("path", path)
}
