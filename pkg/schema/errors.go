package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeBinding           = "BINDING_ERROR"
	ErrCodeType              = "TYPE_ERROR"
	ErrCodeRange             = "RANGE_ERROR"
	ErrCodeFormat            = "FORMAT_ERROR"
	ErrCodeUnresolved        = "UNRESOLVED_REFERENCE"
	ErrCodeSinkWrite         = "SINK_WRITE_ERROR"
	ErrCodeUnknownExtension  = "UNKNOWN_EXTENSION"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeExecution         = "EXECUTION_ERROR"
)

// EngineError is the structured error type for all render failures.
type EngineError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Extension string         `json:"extension,omitempty"`
	Line      int            `json:"line,omitempty"`
	Column    int            `json:"column,omitempty"`
	Cause     error          `json:"-"`
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Extension != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Code, e.Extension, e.Message)
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d, column %d)", e.Line, e.Column)
	}
	return msg
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// NewError creates a new EngineError.
func NewError(code, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

// NewErrorf creates a new EngineError with a formatted message.
func NewErrorf(code, format string, args ...any) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithExtension attaches the filter/function/test name to the error.
func (e *EngineError) WithExtension(name string) *EngineError {
	e.Extension = name
	return e
}

// WithPosition attaches a source position supplied by the parser.
func (e *EngineError) WithPosition(line, column int) *EngineError {
	e.Line = line
	e.Column = column
	return e
}

// WithCause attaches an underlying cause.
func (e *EngineError) WithCause(err error) *EngineError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *EngineError) WithDetails(details map[string]any) *EngineError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first EngineError in err's chain, or "".
func CodeOf(err error) string {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
