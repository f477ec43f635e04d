// Package errors provides structured error handling for nebulaframe.
//
// Every failure of an engine operation is an *Error carrying one of the
// ErrorType kinds below. Structural kinds (invalid path, column count
// mismatch, row count invariant violation) abort the call; type mismatches
// and missing converters are recoverable by registering a fallback converter
// and retrying. Non-fatal mismatches are collected as Warning values.
package errors

import (
	"errors"
	"runtime"

	stringpool "github.com/ajitpratap0/nebulaframe/pkg/strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInvalidPath is returned when a column path resolves through a
	// non-group column or a missing segment.
	ErrorTypeInvalidPath ErrorType = "invalid_path"
	// ErrorTypeTypeMismatch is returned when a value is read at the wrong type.
	ErrorTypeTypeMismatch ErrorType = "type_mismatch"
	// ErrorTypeColumnCountMismatch is returned when join key pairs diverge
	// after group expansion.
	ErrorTypeColumnCountMismatch ErrorType = "column_count_mismatch"
	// ErrorTypeRowCountInvariant is returned when a nested table holds more
	// rows than its computed explode multiplicity.
	ErrorTypeRowCountInvariant ErrorType = "row_count_invariant_violation"
	// ErrorTypeAmbiguousJSONShape marks a JSON array whose placeholder columns
	// could not be reconciled.
	ErrorTypeAmbiguousJSONShape ErrorType = "ambiguous_json_shape"
	// ErrorTypeConverterNotFound is returned when no conversion rule applies.
	ErrorTypeConverterNotFound ErrorType = "type_converter_not_found"
	// ErrorTypeSchemaMismatch marks widening/narrowing/nullability mismatches
	// reported by the columnar bridge.
	ErrorTypeSchemaMismatch ErrorType = "schema_mismatch"
	// ErrorTypeValidation represents invalid arguments or table construction
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeParse represents malformed input documents
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return stringpool.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return stringpool.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: stringpool.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsRecoverable reports whether the caller can retry the call after
// registering a fallback parser or converter.
func IsRecoverable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeTypeMismatch, ErrorTypeConverterNotFound:
		return true
	default:
		return false
	}
}

// IsType checks if the error, or any error it wraps, is of the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
