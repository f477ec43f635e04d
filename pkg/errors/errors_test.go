package errors

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesStack(t *testing.T) {
	err := New(ErrorTypeValidation, "bad input")

	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestNewCapturesStack")
	assert.Equal(t, "validation: bad input", err.Error())
}

func TestNewf(t *testing.T) {
	err := Newf(ErrorTypeInvalidPath, "column %q not found", "a.b")
	assert.Equal(t, `invalid_path: column "a.b" not found`, err.Error())
}

func TestWrapPreservesStackAndCause(t *testing.T) {
	inner := New(ErrorTypeTypeMismatch, "expected int64")
	outer := Wrap(inner, ErrorTypeInternal, "converting column")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, stderrors.Is(outer, inner))
	assert.True(t, IsType(outer, ErrorTypeInternal))
	assert.True(t, IsType(outer, ErrorTypeTypeMismatch))
	assert.False(t, IsType(outer, ErrorTypeFile))
	assert.False(t, IsRecoverable(outer))

	assert.Nil(t, Wrap(nil, ErrorTypeFile, "nothing"))

	wrapped := Wrap(io.EOF, ErrorTypeFile, "reading")
	assert.ErrorIs(t, wrapped, io.EOF)
	assert.NotEmpty(t, wrapped.Stack)
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeColumnCountMismatch, "key pairs diverge").
		WithDetail("left", 2).
		WithDetail("right", 3)

	assert.Equal(t, 2, err.Details["left"])
	assert.Equal(t, 3, err.Details["right"])
}

func TestWarnings(t *testing.T) {
	var ws *Warnings
	assert.Equal(t, 0, ws.Len())
	assert.Nil(t, ws.List())

	ws = &Warnings{}
	ws.Add(ErrorTypeSchemaMismatch, "a", "dropped")
	require.Equal(t, 1, ws.Len())

	w := ws.List()[0]
	assert.Equal(t, "schema_mismatch: a: dropped", w.String())
	assert.Equal(t, "a", w.AsError().Details["path"])
}
