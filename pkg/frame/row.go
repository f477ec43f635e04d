package frame

import (
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
)

// Row is a view of one row of a table. It is a value type and cheap to copy.
type Row struct {
	table *Table
	index int
}

func (r Row) Index() int       { return r.index }
func (r Row) Table() *Table    { return r.table }
func (r Row) Valid() bool      { return r.table != nil && r.index >= 0 && r.index < r.table.nrow }
func (r Row) Key() string      { return Key(r) }
func (r Row) Equal(o Row) bool { return Key(r) == Key(o) }

// Get reads the top-level column name of the owning table.
func (r Row) Get(name string) (any, error) {
	return r.At(Path{name})
}

// At reads the column at path of the owning table. Groups read as a nested
// Row and frame cells as their sub-table.
func (r Row) At(path Path) (any, error) {
	col, err := r.table.Resolve(path)
	if err != nil {
		return nil, err
	}
	return valueAt(col, r.index)
}

// Values returns the top-level cell values in column order.
func (r Row) Values() []any {
	out := make([]any, len(r.table.columns))
	for i, c := range r.table.columns {
		out[i] = CellValue(c, r.index)
	}
	return out
}

func valueAt(col Column, i int) (any, error) {
	if i < 0 || i >= col.Len() {
		return nil, errors.Newf(errors.ErrorTypeInvalidPath,
			"row index %d out of range for column %q with %d rows", i, col.Name(), col.Len())
	}
	switch c := col.(type) {
	case *ValueColumn:
		return c.values[i], nil
	case *GroupColumn:
		return c.table.Row(i), nil
	case *FrameColumn:
		return c.Table(i), nil
	}
	return nil, errors.Newf(errors.ErrorTypeInternal, "unknown column kind %s", col.Kind())
}

// ColumnRef references a column by the path it was created under and by
// the column object itself. The two usually agree; they diverge when the
// reference was taken from a different table than the row being read.
type ColumnRef struct {
	Path   Path
	Column Column
	// Type is the expected value type; TypeAny accepts anything.
	Type ColumnType
}

// RefOf creates a reference to the column at path of t.
func RefOf(t *Table, path Path) (ColumnRef, error) {
	col, err := t.Resolve(path)
	if err != nil {
		return ColumnRef{}, err
	}
	return NewRef(path, col), nil
}

// NewRef creates a reference from a path and a column.
func NewRef(path Path, col Column) ColumnRef {
	ref := ColumnRef{Path: path, Column: col}
	if vc, ok := col.(*ValueColumn); ok {
		ref.Type = vc.typ
	}
	return ref
}

// Resolution tells which lookup produced a value in Row.Resolve.
type Resolution int

const (
	// ByTable means the path was resolved against the row's own table.
	ByTable Resolution = iota
	// ByReference means the referenced column object was read directly.
	ByReference
)

func (r Resolution) String() string {
	if r == ByReference {
		return "reference"
	}
	return "table"
}

// Ref reads ref at this row. See Resolve.
func (r Row) Ref(ref ColumnRef) (any, error) {
	v, _, err := r.Resolve(ref)
	return v, err
}

// Resolve reads ref at this row. The path is first resolved against the
// row's own table and that value wins whenever it resolves. If it fails
// structurally (missing column, row out of range, kind or type mismatch)
// the referenced column is read directly instead. When both fail the
// table error is returned.
func (r Row) Resolve(ref ColumnRef) (any, Resolution, error) {
	v, errTable := r.byTable(ref)
	if errTable == nil {
		return v, ByTable, nil
	}
	if ref.Column != nil {
		if v, err := valueAt(ref.Column, r.index); err == nil {
			return v, ByReference, nil
		}
	}
	return nil, ByTable, errTable
}

func (r Row) byTable(ref ColumnRef) (any, error) {
	col, err := r.table.Resolve(ref.Path)
	if err != nil {
		return nil, err
	}
	if ref.Column != nil && ref.Column.Kind() != col.Kind() {
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
			"column %q is a %s column, reference expects %s", ref.Path, col.Kind(), ref.Column.Kind())
	}
	if vc, ok := col.(*ValueColumn); ok && !ref.Type.Accepts(vc.typ) && vc.typ != TypeAny {
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
			"column %q has type %s, reference expects %s", ref.Path, vc.typ, ref.Type)
	}
	return valueAt(col, r.index)
}

// ValueAs reads row i of col as T. A null reads as the zero value of T.
func ValueAs[T any](col Column, i int) (T, error) {
	var zero T
	v, err := valueAt(col, i)
	if err != nil {
		return zero, err
	}
	return as[T](v, col.Name())
}

// Get reads the column at path of row r as T. A null reads as the zero
// value of T.
func Get[T any](r Row, path Path) (T, error) {
	var zero T
	v, err := r.At(path)
	if err != nil {
		return zero, err
	}
	return as[T](v, path.String())
}

func as[T any](v any, where string) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.Newf(errors.ErrorTypeTypeMismatch, "value of %q is %T, not %T", where, v, zero).
			WithDetail("path", where)
	}
	return t, nil
}
