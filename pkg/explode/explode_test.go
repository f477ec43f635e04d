package explode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

func values(t *testing.T, tbl *frame.Table, path string) []any {
	t.Helper()
	c, err := tbl.Resolve(frame.ParsePath(path))
	require.NoError(t, err)
	vc, ok := c.(*frame.ValueColumn)
	require.True(t, ok, "%s is not a value column", path)
	return vc.Values()
}

func sub(cols ...frame.Column) *frame.Table {
	return frame.MustNewTable(cols...)
}

func TestExplodeFrameScenario(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.InferColumn("a", 1, 2),
		frame.NewFrameColumn("b", []*frame.Table{
			sub(frame.InferColumn("b", 10, 20)),
			sub(frame.InferColumn("b", 30)),
		}),
	)

	out, err := Explode(tbl, frame.Cols("b"), Options{DropEmpty: true, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	require.Equal(t, 3, out.NumRows())
	assert.Equal(t, []any{int64(1), int64(1), int64(2)}, values(t, out, "a"))
	assert.Equal(t, []any{int64(10), int64(20), int64(30)}, values(t, out, "b.b"))
}

func TestExplodeListScenario(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.InferColumn("a", 1, 2),
		frame.InferColumn("b", []any{10, 20}, []any{30}),
	)
	out, err := Explode(tbl, frame.Cols("b"), Options{DropEmpty: true})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(1), int64(2)}, values(t, out, "a"))
	assert.Equal(t, []any{int64(10), int64(20), int64(30)}, values(t, out, "b"))

	b, _ := out.Get(frame.Path{"b"})
	assert.Equal(t, frame.TypeInt, b.(*frame.ValueColumn).Type())
}

func TestExplodeMultipleColumnsPads(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.InferColumn("id", "x", "y"),
		frame.InferColumn("l1", []any{1, 2, 3}, []any{}),
		frame.InferColumn("l2", []any{"a"}, nil),
	)

	kept, err := Explode(tbl, frame.Cols("l1", "l2"), Options{DropEmpty: false})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "x", "x", "y"}, values(t, kept, "id"))
	assert.Equal(t, []any{int64(1), int64(2), int64(3), nil}, values(t, kept, "l1"))
	assert.Equal(t, []any{"a", nil, nil, nil}, values(t, kept, "l2"))

	dropped, err := Explode(tbl, frame.Cols("l1", "l2"), Options{DropEmpty: true})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "x", "x"}, values(t, dropped, "id"))
}

func TestMultiplicitySumsToRowCount(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.InferColumn("l", []any{1, 2}, nil, []any{}, []any{4, 5, 6}),
		frame.InferColumn("s", 1, 2, 3, 4),
	)
	for _, dropEmpty := range []bool{true, false} {
		paths := []frame.Path{{"l"}, {"s"}}
		mult, err := Multiplicity(tbl, paths, dropEmpty)
		require.NoError(t, err)

		out, err := Explode(tbl, frame.Paths(paths...), Options{DropEmpty: dropEmpty})
		require.NoError(t, err)

		sum := 0
		for _, m := range mult {
			sum += m
		}
		assert.Equal(t, sum, out.NumRows())
	}

	mult, err := Multiplicity(tbl, []frame.Path{{"l"}}, true)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 0, 3}, mult)
}

func TestMultiplicityOfNullCells(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.InferColumn("s", nil, 2, nil),
		frame.NewValueColumn("l", []any{nil, nil, nil}, frame.TypeList),
		frame.InferColumn("m", nil, []any{7, 8}, 3),
	)
	tests := []struct {
		path string
		want []int
	}{
		{"s", []int{1, 1, 1}},
		{"l", []int{0, 0, 0}},
		{"m", []int{0, 2, 1}},
	}
	for _, tt := range tests {
		mult, err := Multiplicity(tbl, []frame.Path{{tt.path}}, true)
		require.NoError(t, err)
		assert.Equal(t, tt.want, mult, tt.path)
	}
}

func TestExplodeWithoutCollectionsIsNoop(t *testing.T) {
	tbl := frame.MustNewTable(frame.InferColumn("a", 1, 2), frame.InferColumn("b", "x", "y"))
	out, err := Explode(tbl, frame.Cols("b"), Options{DropEmpty: true})
	require.NoError(t, err)
	assert.True(t, tbl.Equal(out))

	out, err = Explode(tbl, nil, Options{})
	require.NoError(t, err)
	assert.True(t, tbl.Equal(out))
}

func TestExplodeGroupSelectsLeaves(t *testing.T) {
	g := frame.MustNewTable(
		frame.InferColumn("tags", []any{"a", "b"}, []any{"c"}),
		frame.InferColumn("n", 1, 2),
	)
	tbl := frame.MustNewTable(frame.InferColumn("id", 1, 2), frame.NewGroupColumn("g", g))

	out, err := Explode(tbl, frame.Cols("g"), Options{DropEmpty: true})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, values(t, out, "g.tags"))
	assert.Equal(t, []any{int64(1), nil, int64(2)}, values(t, out, "g.n"), "scalars in selected columns are padded")
	assert.Equal(t, []any{int64(1), int64(1), int64(2)}, values(t, out, "id"))
}

func TestExplodeNullFrameCell(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.InferColumn("a", 1, 2),
		frame.NewFrameColumn("f", []*frame.Table{sub(frame.InferColumn("v", "x")), nil}),
	)
	out, err := Explode(tbl, frame.Cols("f"), Options{DropEmpty: false})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", nil}, values(t, out, "f.v"))

	out, err = Explode(tbl, frame.Cols("f"), Options{DropEmpty: true})
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, values(t, out, "f.v"))
}

func TestExplodeRowCountInvariant(t *testing.T) {
	frames := frame.NewFrameColumn("f", []*frame.Table{sub(frame.InferColumn("v", 1, 2, 3))})
	tbl := frame.MustNewTable(frames)

	// A table cannot be made to violate the invariant through Explode's own
	// multiplicity, so the check is exercised on explodeFrame directly.
	_, err := explodeFrame(frames, frame.Path{"f"}, []int{2}, 2)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRowCountInvariant))

	out, err := Explode(tbl, frame.Cols("f"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, out.NumRows())
}

func TestExplodeInvalidPath(t *testing.T) {
	tbl := frame.MustNewTable(frame.InferColumn("a", 1))
	_, err := Explode(tbl, frame.Cols("zzz"), Options{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidPath))
}
