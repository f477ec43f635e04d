// Package errors provides examples of structured error handling in nebulaframe.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
)

// Example demonstrates basic error creation with context details.
func Example() {
	err := errors.New(errors.ErrorTypeInvalidPath, "column a.b not found").
		WithDetail("path", "a.b").
		WithDetail("segment", "b")

	fmt.Println(err.Error())

	// Output:
	// invalid_path: column a.b not found
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeFile, "failed to read frame document").
		WithDetail("file", "data.json")

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}
	fmt.Println(err)

	// Output:
	// This is a file error
	// file: failed to read frame document: unexpected EOF
}

// ExampleIsRecoverable shows which error kinds can be retried with a
// fallback converter.
func ExampleIsRecoverable() {
	mismatch := errors.New(errors.ErrorTypeTypeMismatch, "expected int64, got string")
	missing := errors.New(errors.ErrorTypeConverterNotFound, "no converter from string to bool")
	structural := errors.New(errors.ErrorTypeRowCountInvariant, "nested table has 3 rows, multiplicity 2")

	fmt.Println(errors.IsRecoverable(mismatch))
	fmt.Println(errors.IsRecoverable(missing))
	fmt.Println(errors.IsRecoverable(structural))
	fmt.Println(errors.IsRecoverable(io.EOF))

	// Output:
	// true
	// true
	// false
	// false
}

// ExampleWarning shows how warnings are collected and promoted to errors.
func ExampleWarning() {
	var ws errors.Warnings
	ws.Add(errors.ErrorTypeSchemaMismatch, "extra", "column dropped while narrowing")
	ws.Add(errors.ErrorTypeAmbiguousJSONShape, "", "placeholder fallback")

	for _, w := range ws.List() {
		fmt.Println(w)
	}
	fmt.Println(ws.List()[0].AsError())

	// Output:
	// schema_mismatch: extra: column dropped while narrowing
	// ambiguous_json_shape: placeholder fallback
	// schema_mismatch: column dropped while narrowing
}
