package convert

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

func valuesAt(t *testing.T, tbl *frame.Table, path string) (*frame.ValueColumn, []any) {
	t.Helper()
	c, err := tbl.Resolve(frame.ParsePath(path))
	require.NoError(t, err)
	vc, ok := c.(*frame.ValueColumn)
	require.True(t, ok)
	return vc, vc.Values()
}

func TestConvertDefaults(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   []any
		to   frame.ColumnType
		want []any
	}{
		{"string to int", []any{"1", nil, " 42 "}, frame.TypeInt, []any{int64(1), nil, int64(42)}},
		{"string to float", []any{"1.5", "NaN"}, frame.TypeFloat, []any{1.5, math.NaN()}},
		{"string to number", []any{"1", "2.5"}, frame.TypeNumber, []any{int64(1), 2.5}},
		{"string to bool", []any{"true", "false"}, frame.TypeBool, []any{true, false}},
		{"string to timestamp", []any{"2024-03-01T12:00:00Z"}, frame.TypeTimestamp, []any{ts}},
		{"string to decimal", []any{"1.10"}, frame.TypeDecimal, []any{decimal.RequireFromString("1.10")}},
		{"int to float", []any{int64(3)}, frame.TypeFloat, []any{3.0}},
		{"float to int", []any{4.0}, frame.TypeInt, []any{int64(4)}},
		{"number to string", []any{int64(1), 2.5}, frame.TypeString, []any{"1", "2.5"}},
		{"bool to int", []any{true, false}, frame.TypeInt, []any{int64(1), int64(0)}},
		{"scalar to list", []any{"a", nil}, frame.TypeList, []any{[]any{"a"}, nil}},
		{"anything to any", []any{"a", int64(1)}, frame.TypeAny, []any{"a", int64(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := frame.MustNewTable(frame.NewValueColumn("v", tt.in, frame.InferType(tt.in)))
			out, err := Convert(tbl, frame.PathOf("v"), tt.to, nil)
			require.NoError(t, err)
			vc, got := valuesAt(t, out, "v")
			assert.Equal(t, tt.to, vc.Type())
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.True(t, frame.Equal(tt.want[i], got[i]), "row %d: %v != %v", i, tt.want[i], got[i])
			}
		})
	}
}

func TestConvertFailures(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.InferColumn("s", "x", "1"),
		frame.InferColumn("f", 1.5, 2.0),
		frame.NewGroupColumn("g", frame.MustNewTable(frame.InferColumn("a", 1, 2))),
	)

	_, err := Convert(tbl, frame.PathOf("s"), frame.TypeInt, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))
	assert.True(t, errors.IsRecoverable(err))

	_, err = Convert(tbl, frame.PathOf("f"), frame.TypeInt, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))

	_, err = Convert(tbl, frame.PathOf("f"), frame.TypeBytes, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConverterNotFound))

	_, err = Convert(tbl, frame.PathOf("g"), frame.TypeString, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConverterNotFound))

	_, err = Convert(tbl, frame.PathOf("missing"), frame.TypeString, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidPath))
}

func TestConvertCustomRegistry(t *testing.T) {
	reg := NewRegistry()
	tbl := frame.MustNewTable(frame.InferColumn("s", "yes", "no", "maybe"))

	_, err := Convert(tbl, frame.PathOf("s"), frame.TypeBool, reg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConverterNotFound))

	reg.Register(frame.TypeString, frame.TypeBool, func(v any) (any, error) {
		switch v {
		case "yes":
			return true, nil
		case "no":
			return false, nil
		}
		return nil, assert.AnError
	})
	_, err = Convert(tbl, frame.PathOf("s"), frame.TypeBool, reg)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))

	reg.RegisterFallback(frame.TypeString, frame.TypeBool, func(any) (any, error) { return nil, nil })
	out, err := Convert(tbl, frame.PathOf("s"), frame.TypeBool, reg)
	require.NoError(t, err)
	_, got := valuesAt(t, out, "s")
	assert.Equal(t, []any{true, false, nil}, got)

	fn, ok := reg.Lookup(frame.TypeString, frame.TypeBool)
	require.True(t, ok)
	v, err := fn("yes")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestParse(t *testing.T) {
	orders := frame.NewFrameColumn("orders", []*frame.Table{
		frame.MustNewTable(frame.InferColumn("qty", "1", "2")),
		nil,
	})
	tbl := frame.MustNewTable(
		frame.InferColumn("id", "1", "2"),
		frame.InferColumn("score", "1", "2.5"),
		frame.InferColumn("ok", "true", nil),
		frame.InferColumn("name", "ann", "bob"),
		frame.NewGroupColumn("meta", frame.MustNewTable(frame.InferColumn("at", "2024-01-02", "2024-01-03"))),
		orders,
	)

	out, err := Parse(tbl, nil, nil)
	require.NoError(t, err)

	tests := []struct {
		path string
		want frame.ColumnType
	}{
		{"id", frame.TypeInt},
		{"score", frame.TypeFloat},
		{"ok", frame.TypeBool},
		{"name", frame.TypeString},
		{"meta.at", frame.TypeTimestamp},
	}
	for _, tt := range tests {
		vc, _ := valuesAt(t, out, tt.path)
		assert.Equal(t, tt.want, vc.Type(), tt.path)
	}

	c, err := out.Resolve(frame.PathOf("orders"))
	require.NoError(t, err)
	cell := c.(*frame.FrameColumn).Cell(0)
	vc, got := valuesAt(t, cell, "qty")
	assert.Equal(t, frame.TypeInt, vc.Type())
	assert.Equal(t, []any{int64(1), int64(2)}, got)
	assert.Nil(t, c.(*frame.FrameColumn).Cell(1))
}

func TestParseSelectedOnly(t *testing.T) {
	tbl := frame.MustNewTable(frame.InferColumn("a", "1"), frame.InferColumn("b", "2"))
	out, err := Parse(tbl, frame.Cols("a"), nil)
	require.NoError(t, err)
	a, _ := valuesAt(t, out, "a")
	b, _ := valuesAt(t, out, "b")
	assert.Equal(t, frame.TypeInt, a.Type())
	assert.Equal(t, frame.TypeString, b.Type())
}
