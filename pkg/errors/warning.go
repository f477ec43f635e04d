package errors

import (
	stringpool "github.com/ajitpratap0/nebulaframe/pkg/strings"
)

// Warning records a non-fatal mismatch that an operation resolved on its own,
// such as a column dropped while narrowing to a target schema.
type Warning struct {
	Type    ErrorType
	Path    string
	Message string
}

func (w Warning) String() string {
	if w.Path == "" {
		return stringpool.Sprintf("%s: %s", w.Type, w.Message)
	}
	return stringpool.Sprintf("%s: %s: %s", w.Type, w.Path, w.Message)
}

// AsError converts the warning into an *Error, used when a strict mode turns
// warnings into failures.
func (w Warning) AsError() *Error {
	err := New(w.Type, w.Message)
	if w.Path != "" {
		err = err.WithDetail("path", w.Path)
	}
	return err
}

// Warnings accumulates warnings in the order they were raised.
type Warnings struct {
	items []Warning
}

// Add appends a warning.
func (ws *Warnings) Add(errType ErrorType, path, message string) {
	ws.items = append(ws.items, Warning{Type: errType, Path: path, Message: message})
}

// List returns the collected warnings.
func (ws *Warnings) List() []Warning {
	if ws == nil {
		return nil
	}
	return ws.items
}

// Len returns the number of collected warnings.
func (ws *Warnings) Len() int {
	if ws == nil {
		return 0
	}
	return len(ws.items)
}
