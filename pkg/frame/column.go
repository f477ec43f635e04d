package frame

import "sync"

// Column is one of *ValueColumn, *GroupColumn or *FrameColumn. The set is
// closed; consumers switch on Kind or on the concrete type.
type Column interface {
	Name() string
	Kind() Kind
	// Len is the number of rows at this column's level.
	Len() int
	// Rename returns a copy of the column under a new name.
	Rename(name string) Column
	// Gather builds a column from the rows at indices; -1 yields a null row.
	Gather(indices []int) Column

	sealed()
}

// ValueColumn holds one atomic value per row. Nil is null.
type ValueColumn struct {
	name   string
	typ    ColumnType
	values []any
}

// NewValueColumn creates a value column. Values are normalized; the row
// count is only checked when the column is attached to a table.
func NewValueColumn(name string, values []any, typ ColumnType) *ValueColumn {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = Normalize(v)
	}
	return &ValueColumn{name: name, typ: typ, values: out}
}

// InferColumn creates a value column whose type is inferred from values.
func InferColumn(name string, values ...any) *ValueColumn {
	c := NewValueColumn(name, values, TypeAny)
	c.typ = InferType(c.values)
	return c
}

// newValueColumn adopts values without copying. Callers must not write to
// values afterwards.
func newValueColumn(name string, values []any, typ ColumnType) *ValueColumn {
	return &ValueColumn{name: name, typ: typ, values: values}
}

func (c *ValueColumn) Name() string     { return c.name }
func (c *ValueColumn) Kind() Kind       { return KindValue }
func (c *ValueColumn) Len() int         { return len(c.values) }
func (c *ValueColumn) Type() ColumnType { return c.typ }
func (c *ValueColumn) sealed()          {}

// Value returns the value at row i.
func (c *ValueColumn) Value(i int) any { return c.values[i] }

// Values exposes the backing slice. It must be treated as read-only.
func (c *ValueColumn) Values() []any { return c.values }

// Nullable reports whether any row is null.
func (c *ValueColumn) Nullable() bool {
	for _, v := range c.values {
		if v == nil {
			return true
		}
	}
	return false
}

func (c *ValueColumn) Rename(name string) Column {
	return &ValueColumn{name: name, typ: c.typ, values: c.values}
}

func (c *ValueColumn) Gather(indices []int) Column {
	out := make([]any, len(indices))
	for i, idx := range indices {
		if idx >= 0 {
			out[i] = c.values[idx]
		}
	}
	return newValueColumn(c.name, out, c.typ)
}

// GroupColumn embeds a table with the same row count as its owner.
type GroupColumn struct {
	name  string
	table *Table
}

// NewGroupColumn wraps t as a group column.
func NewGroupColumn(name string, t *Table) *GroupColumn {
	if t == nil {
		t = Empty(0)
	}
	return &GroupColumn{name: name, table: t}
}

func (c *GroupColumn) Name() string  { return c.name }
func (c *GroupColumn) Kind() Kind    { return KindGroup }
func (c *GroupColumn) Len() int      { return c.table.NumRows() }
func (c *GroupColumn) Table() *Table { return c.table }
func (c *GroupColumn) sealed()       {}

func (c *GroupColumn) Rename(name string) Column {
	return &GroupColumn{name: name, table: c.table}
}

func (c *GroupColumn) Gather(indices []int) Column {
	return &GroupColumn{name: c.name, table: c.table.Gather(indices)}
}

// FrameColumn holds an independent sub-table per row. A nil cell is null
// and reads as an empty table of the column schema.
type FrameColumn struct {
	name   string
	tables []*Table

	schemaOnce sync.Once
	schema     *Schema
}

// NewFrameColumn creates a frame column over tables.
func NewFrameColumn(name string, tables []*Table) *FrameColumn {
	return &FrameColumn{name: name, tables: append([]*Table(nil), tables...)}
}

// NewFrameColumnWithSchema creates a frame column whose schema is fixed
// rather than derived from its cells.
func NewFrameColumnWithSchema(name string, tables []*Table, schema *Schema) *FrameColumn {
	c := NewFrameColumn(name, tables)
	if schema != nil {
		c.schemaOnce.Do(func() { c.schema = schema })
	}
	return c
}

func newFrameColumn(name string, tables []*Table, schema *Schema) *FrameColumn {
	c := &FrameColumn{name: name, tables: tables}
	if schema != nil {
		c.schemaOnce.Do(func() { c.schema = schema })
	}
	return c
}

func (c *FrameColumn) Name() string { return c.name }
func (c *FrameColumn) Kind() Kind   { return KindFrame }
func (c *FrameColumn) Len() int     { return len(c.tables) }
func (c *FrameColumn) sealed()      {}

// Cell returns the raw sub-table at row i, nil when null.
func (c *FrameColumn) Cell(i int) *Table { return c.tables[i] }

// Cells exposes the backing slice. It must be treated as read-only.
func (c *FrameColumn) Cells() []*Table { return c.tables }

// Table returns the sub-table at row i, substituting an empty table of the
// column schema for a null cell.
func (c *FrameColumn) Table(i int) *Table {
	if t := c.tables[i]; t != nil {
		return t
	}
	return c.Schema().EmptyTable()
}

// Schema is the union of the cell schemas, computed once.
func (c *FrameColumn) Schema() *Schema {
	c.schemaOnce.Do(func() {
		var s *Schema
		for _, t := range c.tables {
			if t == nil {
				continue
			}
			if s == nil {
				s = t.Schema()
				continue
			}
			s = s.Union(t.Schema())
		}
		if s == nil {
			s = &Schema{}
		}
		c.schema = s
	})
	return c.schema
}

// Nullable reports whether any cell is null.
func (c *FrameColumn) Nullable() bool {
	for _, t := range c.tables {
		if t == nil {
			return true
		}
	}
	return false
}

func (c *FrameColumn) Rename(name string) Column {
	return newFrameColumn(name, c.tables, c.Schema())
}

func (c *FrameColumn) Gather(indices []int) Column {
	out := make([]*Table, len(indices))
	for i, idx := range indices {
		if idx >= 0 {
			out[i] = c.tables[idx]
		}
	}
	return newFrameColumn(c.name, out, c.Schema())
}
