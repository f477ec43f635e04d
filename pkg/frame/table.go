package frame

import (
	"iter"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
)

// Table is an immutable ordered set of uniquely named columns sharing one
// row count. Every operation returns a new table.
type Table struct {
	columns []Column
	index   map[string]int
	nrow    int
}

// NewTable builds a table from columns. The row count is taken from the
// first column; a table without columns has zero rows.
func NewTable(cols ...Column) (*Table, error) {
	nrow := 0
	if len(cols) > 0 {
		nrow = cols[0].Len()
	}
	return NewTableWithRows(nrow, cols...)
}

// NewTableWithRows builds a table with an explicit row count, which is
// what gives a column-less table its rows.
func NewTableWithRows(nrow int, cols ...Column) (*Table, error) {
	return newTable(nrow, append([]Column(nil), cols...))
}

// MustNewTable is NewTable that panics on error. Intended for literals in
// tests and examples.
func MustNewTable(cols ...Column) *Table {
	t, err := NewTable(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with nrow rows and no columns.
func Empty(nrow int) *Table {
	return &Table{index: map[string]int{}, nrow: nrow}
}

func newTable(nrow int, cols []Column) (*Table, error) {
	if nrow < 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "negative row count %d", nrow)
	}
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if c == nil {
			return nil, errors.Newf(errors.ErrorTypeValidation, "column %d is nil", i)
		}
		if _, dup := index[c.Name()]; dup {
			return nil, errors.Newf(errors.ErrorTypeValidation, "duplicate column name %q", c.Name()).
				WithDetail("column", c.Name())
		}
		if c.Len() != nrow {
			return nil, errors.Newf(errors.ErrorTypeValidation,
				"column %q has %d rows, table has %d", c.Name(), c.Len(), nrow).
				WithDetail("column", c.Name())
		}
		index[c.Name()] = i
	}
	return &Table{columns: cols, index: index, nrow: nrow}, nil
}

// mustTable is for callers that have already established the invariants.
func mustTable(nrow int, cols []Column) *Table {
	t, err := newTable(nrow, cols)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) NumRows() int    { return t.nrow }
func (t *Table) NumColumns() int { return len(t.columns) }

// Columns returns the top-level columns in order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// Column returns the i-th top-level column.
func (t *Table) Column(i int) Column { return t.columns[i] }

// ColumnNames lists top-level column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name()
	}
	return names
}

// IndexOf returns the position of a top-level column.
func (t *Table) IndexOf(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Resolve walks path through group columns.
func (t *Table) Resolve(path Path) (Column, error) {
	if len(path) == 0 {
		return nil, errors.New(errors.ErrorTypeInvalidPath, "empty column path")
	}
	cur := t
	for depth, name := range path {
		i, ok := cur.index[name]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeInvalidPath, "column %q not found", path[:depth+1].String()).
				WithDetail("path", path.String())
		}
		col := cur.columns[i]
		if depth == len(path)-1 {
			return col, nil
		}
		g, ok := col.(*GroupColumn)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeInvalidPath,
				"path %q descends through %s column %q", path.String(), col.Kind(), name).
				WithDetail("path", path.String())
		}
		cur = g.table
	}
	panic("unreachable")
}

// Get is Resolve without the error.
func (t *Table) Get(path Path) (Column, bool) {
	c, err := t.Resolve(path)
	return c, err == nil
}

// Has reports whether path resolves.
func (t *Table) Has(path Path) bool {
	_, ok := t.Get(path)
	return ok
}

// All yields every column path depth-first, groups before their children.
func (t *Table) All() iter.Seq2[Path, Column] {
	return func(yield func(Path, Column) bool) {
		t.walk(nil, yield)
	}
}

func (t *Table) walk(prefix Path, yield func(Path, Column) bool) bool {
	for _, c := range t.columns {
		p := prefix.Child(c.Name())
		if !yield(p, c) {
			return false
		}
		if g, ok := c.(*GroupColumn); ok {
			if !g.table.walk(p, yield) {
				return false
			}
		}
	}
	return true
}

// Paths lists every column path depth-first. With leaves set, group
// columns themselves are skipped.
func (t *Table) Paths(leaves bool) []Path {
	var out []Path
	for p, c := range t.All() {
		if leaves && c.Kind() == KindGroup {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Row returns the row facade for index i.
func (t *Table) Row(i int) Row {
	return Row{table: t, index: i}
}

// Rows iterates the row facades in order.
func (t *Table) Rows() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i := 0; i < t.nrow; i++ {
			if !yield(i, t.Row(i)) {
				return
			}
		}
	}
}

// Gather builds a table from the rows at indices; -1 yields a null row.
func (t *Table) Gather(indices []int) *Table {
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Gather(indices)
	}
	return mustTable(len(indices), cols)
}

// Slice returns rows [start, end), clamped to the table.
func (t *Table) Slice(start, end int) *Table {
	start = max(0, min(start, t.nrow))
	end = max(start, min(end, t.nrow))
	indices := make([]int, end-start)
	for i := range indices {
		indices[i] = start + i
	}
	return t.Gather(indices)
}

// Take returns the first n rows.
func (t *Table) Take(n int) *Table {
	return t.Slice(0, n)
}

// Equal compares column names, kinds and cell values recursively.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	return Key(t) == Key(other)
}

// withColumns swaps the column list, keeping the row count.
func (t *Table) withColumns(cols []Column) (*Table, error) {
	return newTable(t.nrow, cols)
}

// edit rebuilds the table along parent, applying fn to the column list of
// the group at parent. Missing groups are created when create is set.
func (t *Table) edit(parent Path, create bool, fn func([]Column) ([]Column, error)) (*Table, error) {
	if len(parent) == 0 {
		cols, err := fn(append([]Column(nil), t.columns...))
		if err != nil {
			return nil, err
		}
		return t.withColumns(cols)
	}

	name := parent[0]
	i, ok := t.index[name]
	var sub *Table
	switch {
	case ok:
		g, isGroup := t.columns[i].(*GroupColumn)
		if !isGroup {
			return nil, errors.Newf(errors.ErrorTypeInvalidPath,
				"%q is a %s column, not a group", name, t.columns[i].Kind()).WithDetail("path", parent.String())
		}
		sub = g.table
	case create:
		sub = Empty(t.nrow)
	default:
		return nil, errors.Newf(errors.ErrorTypeInvalidPath, "group %q not found", name).
			WithDetail("path", parent.String())
	}

	updated, err := sub.edit(parent[1:], create, fn)
	if err != nil {
		return nil, err
	}
	group := &GroupColumn{name: name, table: updated}
	cols := append([]Column(nil), t.columns...)
	if ok {
		cols[i] = group
	} else {
		cols = append(cols, group)
	}
	return t.withColumns(cols)
}

// InsertAt places col under the group at parent at position pos. A pos
// outside the column list appends. Missing parent groups are created.
func (t *Table) InsertAt(parent Path, pos int, col Column) (*Table, error) {
	return t.edit(parent, true, func(cols []Column) ([]Column, error) {
		if pos < 0 || pos > len(cols) {
			pos = len(cols)
		}
		out := make([]Column, 0, len(cols)+1)
		out = append(out, cols[:pos]...)
		out = append(out, col)
		return append(out, cols[pos:]...), nil
	})
}

// Add appends col under the group at parent.
func (t *Table) Add(parent Path, col Column) (*Table, error) {
	return t.InsertAt(parent, -1, col)
}

// Replace swaps the column at path for col, keeping its position.
func (t *Table) Replace(path Path, col Column) (*Table, error) {
	if _, err := t.Resolve(path); err != nil {
		return nil, err
	}
	return t.edit(path.Parent(), false, func(cols []Column) ([]Column, error) {
		for i, c := range cols {
			if c.Name() == path.Name() {
				cols[i] = col
				break
			}
		}
		return cols, nil
	})
}

// Rename changes the name of the column at path.
func (t *Table) Rename(path Path, name string) (*Table, error) {
	c, err := t.Resolve(path)
	if err != nil {
		return nil, err
	}
	return t.Replace(path, c.Rename(name))
}

// Remove drops the columns at paths. Groups left without columns are
// dropped as well.
func (t *Table) Remove(paths ...Path) (*Table, error) {
	out := t
	for _, p := range paths {
		if _, err := out.Resolve(p); err != nil {
			return nil, err
		}
		var err error
		out, err = out.remove(p)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *Table) remove(p Path) (*Table, error) {
	out, err := t.edit(p.Parent(), false, func(cols []Column) ([]Column, error) {
		kept := cols[:0]
		for _, c := range cols {
			if c.Name() != p.Name() {
				kept = append(kept, c)
			}
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}
	parent := p.Parent()
	if len(parent) == 0 {
		return out, nil
	}
	if g, ok := out.Get(parent); ok && g.(*GroupColumn).table.NumColumns() == 0 {
		return out.remove(parent)
	}
	return out, nil
}

// Select keeps only the columns at paths, nesting them under their
// original groups in selection order.
func (t *Table) Select(paths ...Path) (*Table, error) {
	out := Empty(t.nrow)
	for _, p := range paths {
		c, err := t.Resolve(p)
		if err != nil {
			return nil, err
		}
		if out.Has(p) {
			continue
		}
		out, err = out.Add(p.Parent(), c)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
