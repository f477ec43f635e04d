package explode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

func TestImplodeValues(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.InferColumn("k", "a", "b", "a", "a"),
		frame.InferColumn("v", 1, 2, nil, 3),
	)

	out, err := Implode(tbl, frame.Cols("v"), ImplodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, values(t, out, "k"))
	assert.Equal(t, []any{[]any{int64(1), nil, int64(3)}, []any{int64(2)}}, values(t, out, "v"))

	dropped, err := Implode(tbl, frame.Cols("v"), ImplodeOptions{DropNulls: true})
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{int64(1), int64(3)}, []any{int64(2)}}, values(t, dropped, "v"))
}

func TestImplodeInvertsExplode(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.InferColumn("a", 1, 2),
		frame.InferColumn("b", []any{10, 20}, []any{30}),
	)
	exploded, err := Explode(tbl, frame.Cols("b"), Options{DropEmpty: true})
	require.NoError(t, err)

	back, err := Implode(exploded, frame.Cols("b"), ImplodeOptions{})
	require.NoError(t, err)
	assert.True(t, tbl.Equal(back))
}

func TestImplodeGroupBecomesFrame(t *testing.T) {
	g := frame.MustNewTable(frame.InferColumn("x", 1, 2, 3), frame.InferColumn("y", "p", "q", "r"))
	tbl := frame.MustNewTable(frame.InferColumn("k", 1, 1, 2), frame.NewGroupColumn("g", g))

	out, err := Implode(tbl, frame.Cols("g"), ImplodeOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, out.NumRows())

	c, _ := out.Get(frame.Path{"g"})
	fc, ok := c.(*frame.FrameColumn)
	require.True(t, ok)
	assert.Equal(t, 2, fc.Cell(0).NumRows())
	assert.Equal(t, 1, fc.Cell(1).NumRows())

	exploded, err := Explode(out, frame.Cols("g"), Options{DropEmpty: true})
	require.NoError(t, err)
	assert.True(t, tbl.Equal(exploded))
}

func TestImplodeFramesConcatenate(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.InferColumn("k", "a", "a"),
		frame.NewFrameColumn("f", []*frame.Table{
			frame.MustNewTable(frame.InferColumn("v", 1)),
			frame.MustNewTable(frame.InferColumn("v", 2, 3)),
		}),
	)
	out, err := Implode(tbl, frame.Cols("f"), ImplodeOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRows())
	c, _ := out.Get(frame.Path{"f"})
	assert.Equal(t, 3, c.(*frame.FrameColumn).Cell(0).NumRows())
}
