package join

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

func scenario() (*frame.Table, *frame.Table) {
	l := frame.MustNewTable(frame.InferColumn("k", 1, 2), frame.InferColumn("x", "p", "q"))
	r := frame.MustNewTable(frame.InferColumn("k", 2, 3), frame.InferColumn("y", "r", "s"))
	return l, r
}

func TestInnerJoinScenario(t *testing.T) {
	l, r := scenario()
	out, err := JoinWith(l, r, Options{Type: Inner, Keys: On("k"), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	assert.Equal(t, []string{"k", "x", "y"}, out.ColumnNames())
	assert.Equal(t, []any{int64(2)}, values(t, out, "k"))
	assert.Equal(t, []any{"q"}, values(t, out, "x"))
	assert.Equal(t, []any{"r"}, values(t, out, "y"))
}

func TestJoinTypes(t *testing.T) {
	l, r := scenario()
	tests := []struct {
		typ   Type
		names []string
		k     []any
		x     []any
		y     []any
	}{
		{Left, []string{"k", "x", "y"}, []any{int64(1), int64(2)}, []any{"p", "q"}, []any{nil, "r"}},
		{Right, []string{"k", "x", "y"}, []any{int64(2), int64(3)}, []any{"q", nil}, []any{"r", "s"}},
		{Full, []string{"k", "x", "y"}, []any{int64(1), int64(2), int64(3)}, []any{"p", "q", nil}, []any{nil, "r", "s"}},
		{Exclude, []string{"k", "x"}, []any{int64(1)}, []any{"p"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			out, err := Join(l, r, On("k"), tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.names, out.ColumnNames())
			assert.Equal(t, tt.k, values(t, out, "k"))
			assert.Equal(t, tt.x, values(t, out, "x"))
			if tt.y != nil {
				assert.Equal(t, tt.y, values(t, out, "y"))
			}
		})
	}
}

func TestJoinOrderingAndCardinality(t *testing.T) {
	l := frame.MustNewTable(frame.InferColumn("k", "a", "b", "a", "c"), frame.InferColumn("li", 0, 1, 2, 3))
	r := frame.MustNewTable(frame.InferColumn("k", "z", "a", "b", "a"), frame.InferColumn("ri", 0, 1, 2, 3))

	inner, err := Join(l, r, On("k"), Inner)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0), int64(0), int64(1), int64(2), int64(2)}, values(t, inner, "li"))
	assert.Equal(t, []any{int64(1), int64(3), int64(2), int64(1), int64(3)}, values(t, inner, "ri"))

	left, err := Join(l, r, On("k"), Left)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, left.NumRows(), inner.NumRows())
	assert.Equal(t, inner.NumRows()+1, left.NumRows(), "one unmatched left row")

	exclude, err := Join(l, r, On("k"), Exclude)
	require.NoError(t, err)
	assert.Equal(t, l.NumRows(), exclude.NumRows()+3, "three left rows have a match")

	full, err := Join(l, r, On("k"), Full)
	require.NoError(t, err)
	assert.Equal(t, "z", values(t, full, "k")[full.NumRows()-1], "unmatched right rows come last")
}

func TestLeftJoinEmptyRight(t *testing.T) {
	l, _ := scenario()
	r := frame.MustNewTable(
		frame.NewValueColumn("k", nil, frame.TypeInt),
		frame.NewValueColumn("y", nil, frame.TypeString),
	)
	out, err := Join(l, r, On("k"), Left)
	require.NoError(t, err)
	assert.Equal(t, l.NumRows(), out.NumRows())
	assert.Equal(t, []any{nil, nil}, values(t, out, "y"))
	y, _ := out.Get(frame.Path{"y"})
	assert.True(t, y.(*frame.ValueColumn).Nullable())
}

func TestNullKeysMatch(t *testing.T) {
	l := frame.MustNewTable(frame.InferColumn("k", nil, 1))
	r := frame.MustNewTable(frame.InferColumn("k", nil), frame.InferColumn("v", "null-match"))
	out, err := Join(l, r, On("k"), Inner)
	require.NoError(t, err)
	assert.Equal(t, []any{"null-match"}, values(t, out, "v"))
}

func TestNameCollisionGetsSuffix(t *testing.T) {
	l := frame.MustNewTable(frame.InferColumn("k", 1), frame.InferColumn("v", "l"), frame.InferColumn("v1", "l1"))
	r := frame.MustNewTable(frame.InferColumn("k", 1), frame.InferColumn("v", "r"))
	out, err := Join(l, r, On("k"), Inner)
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "v", "v1", "v2"}, out.ColumnNames())
	assert.Equal(t, []any{"r"}, values(t, out, "v2"))
}

func TestDifferentKeyNames(t *testing.T) {
	l := frame.MustNewTable(frame.InferColumn("id", 1, 2))
	r := frame.MustNewTable(frame.InferColumn("ref", 2, 5), frame.InferColumn("v", "a", "b"))
	out, err := Join(l, r, []KeyPair{Pair("id", "ref")}, Full)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "v"}, out.ColumnNames())
	assert.Equal(t, []any{int64(1), int64(2), int64(5)}, values(t, out, "id"))
}

func groupTable(t *testing.T, cols ...frame.Column) *frame.Table {
	t.Helper()
	tbl, err := frame.NewTable(cols...)
	require.NoError(t, err)
	return tbl
}

func TestGroupKeyExpansion(t *testing.T) {
	l := groupTable(t,
		frame.NewGroupColumn("name", groupTable(t,
			frame.InferColumn("first", "ann", "bob"),
			frame.InferColumn("last", "lee", "ray"),
		)),
		frame.InferColumn("age", 30, 40),
	)
	r := groupTable(t,
		frame.NewGroupColumn("who", groupTable(t,
			frame.InferColumn("last", "ray", "lee"),
			frame.InferColumn("first", "bob", "zed"),
		)),
		frame.InferColumn("city", "oslo", "rome"),
	)

	out, err := Join(l, r, []KeyPair{Pair("name", "who")}, Inner)
	require.NoError(t, err)
	assert.Equal(t, []any{"bob"}, values(t, out, "name.first"))
	assert.Equal(t, []any{"oslo"}, values(t, out, "city"))
	assert.False(t, out.Has(frame.Path{"who"}), "right key group is consumed")
}

func TestNestedKeyKeepsRightColumnsInPlace(t *testing.T) {
	l := groupTable(t,
		frame.NewGroupColumn("g", groupTable(t,
			frame.InferColumn("k", 1, 2),
			frame.InferColumn("z", "a", "b"),
		)),
		frame.InferColumn("x", "p", "q"),
	)
	r := groupTable(t,
		frame.NewGroupColumn("g", groupTable(t,
			frame.InferColumn("k", 2, 3),
			frame.InferColumn("w", "u", "v"),
		)),
		frame.InferColumn("y", "r", "s"),
	)

	out, err := Join(l, r, On("g.k"), Full)
	require.NoError(t, err)
	assert.Equal(t, []string{"g", "x", "y"}, out.ColumnNames())
	g, err := out.Resolve(frame.Path{"g"})
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "z", "w"}, g.(*frame.GroupColumn).Table().ColumnNames())
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, values(t, out, "g.k"))
	assert.Equal(t, []any{"a", "b", nil}, values(t, out, "g.z"))
	assert.Equal(t, []any{nil, "u", "v"}, values(t, out, "g.w"))
	assert.Equal(t, []any{nil, "r", "s"}, values(t, out, "y"))
}

func TestNestedNameCollisionGetsSuffix(t *testing.T) {
	l := groupTable(t, frame.NewGroupColumn("g", groupTable(t,
		frame.InferColumn("k", 1), frame.InferColumn("v", "l"))))
	r := groupTable(t, frame.NewGroupColumn("g", groupTable(t,
		frame.InferColumn("k", 1), frame.InferColumn("v", "r"))))

	out, err := Join(l, r, On("g.k"), Inner)
	require.NoError(t, err)
	assert.Equal(t, []string{"g"}, out.ColumnNames())
	assert.Equal(t, []any{"l"}, values(t, out, "g.v"))
	assert.Equal(t, []any{"r"}, values(t, out, "g.v1"))
}

func TestSharedLeftKeyFilledOnce(t *testing.T) {
	l := groupTable(t, frame.InferColumn("x", "q"))
	r := groupTable(t,
		frame.InferColumn("y", "r", "s"),
		frame.NewGroupColumn("g", groupTable(t, frame.InferColumn("w", "c", "d"))),
	)

	out, err := Join(l, r, []KeyPair{Pair("x", "y"), Pair("x", "g.w")}, Right)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out.ColumnNames())
	assert.Equal(t, []any{"r", "s"}, values(t, out, "x"))
}

func TestGroupKeyMismatch(t *testing.T) {
	l := groupTable(t, frame.NewGroupColumn("g", groupTable(t,
		frame.InferColumn("a", 1), frame.InferColumn("b", 2))))
	r := groupTable(t, frame.NewGroupColumn("g", groupTable(t, frame.InferColumn("a", 1))))
	renamed := groupTable(t, frame.NewGroupColumn("g", groupTable(t,
		frame.InferColumn("a", 1), frame.InferColumn("c", 2))))
	flat := groupTable(t, frame.InferColumn("g", 1))

	for name, right := range map[string]*frame.Table{"count": r, "names": renamed, "kind": flat} {
		t.Run(name, func(t *testing.T) {
			_, err := Join(l, right, On("g"), Inner)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeColumnCountMismatch))
		})
	}
}

func TestJoinErrors(t *testing.T) {
	l, r := scenario()
	_, err := Join(l, r, On("missing"), Inner)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidPath))

	_, err = Join(l, r, nil, Inner)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestParseType(t *testing.T) {
	for _, typ := range []Type{Inner, Left, Right, Full, Exclude} {
		got, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := ParseType("cross")
	assert.Error(t, err)
}
