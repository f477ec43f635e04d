package frame

import (
	stringpool "github.com/ajitpratap0/nebulaframe/pkg/strings"
)

// Schema describes the columns of a table, recursively.
type Schema struct {
	Columns []ColumnSchema
}

// ColumnSchema describes one column. Children is set for group and frame
// columns.
type ColumnSchema struct {
	Name     string
	Kind     Kind
	Type     ColumnType
	Nullable bool
	Children *Schema
}

// Schema describes t. Frame column schemas are memoized by their columns.
func (t *Table) Schema() *Schema {
	s := &Schema{Columns: make([]ColumnSchema, len(t.columns))}
	for i, c := range t.columns {
		s.Columns[i] = SchemaOf(c)
	}
	return s
}

// SchemaOf describes a single column.
func SchemaOf(c Column) ColumnSchema {
	switch col := c.(type) {
	case *ValueColumn:
		return ColumnSchema{Name: col.name, Kind: KindValue, Type: col.typ, Nullable: col.Nullable()}
	case *GroupColumn:
		return ColumnSchema{Name: col.name, Kind: KindGroup, Children: col.table.Schema()}
	case *FrameColumn:
		return ColumnSchema{Name: col.name, Kind: KindFrame, Nullable: col.Nullable(), Children: col.Schema()}
	}
	return ColumnSchema{Name: c.Name(), Kind: c.Kind()}
}

// Lookup finds a top-level column by name.
func (s *Schema) Lookup(name string) (ColumnSchema, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// Names lists the top-level column names.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Union merges two schemas by column name, keeping s's order and appending
// columns only present in other. Columns missing on one side become
// nullable.
func (s *Schema) Union(other *Schema) *Schema {
	if other == nil {
		return s
	}
	out := &Schema{}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		seen[c.Name] = true
		if o, ok := other.Lookup(c.Name); ok {
			out.Columns = append(out.Columns, mergeColumnSchema(c, o))
			continue
		}
		c.Nullable = true
		out.Columns = append(out.Columns, c)
	}
	for _, o := range other.Columns {
		if seen[o.Name] {
			continue
		}
		o.Nullable = true
		out.Columns = append(out.Columns, o)
	}
	return out
}

func mergeColumnSchema(a, b ColumnSchema) ColumnSchema {
	out := a
	out.Nullable = a.Nullable || b.Nullable
	if a.Kind != b.Kind {
		out.Kind = KindValue
		out.Type = TypeAny
		out.Children = nil
		return out
	}
	if a.Kind == KindValue {
		out.Type = MergeTypes(a.Type, b.Type)
		return out
	}
	if a.Children != nil {
		out.Children = a.Children.Union(b.Children)
	} else {
		out.Children = b.Children
	}
	return out
}

// EmptyTable builds a zero-row table with this schema.
func (s *Schema) EmptyTable() *Table {
	return s.NullTable(0)
}

// NullTable builds an n-row table with this schema where every cell is null.
func (s *Schema) NullTable(n int) *Table {
	if s == nil {
		return Empty(n)
	}
	cols := make([]Column, len(s.Columns))
	for i, cs := range s.Columns {
		cols[i] = NullColumn(cs, n)
	}
	return mustTable(n, cols)
}

// NullColumn builds an n-row column of nulls shaped like cs.
func NullColumn(cs ColumnSchema, n int) Column {
	switch cs.Kind {
	case KindGroup:
		return &GroupColumn{name: cs.Name, table: cs.Children.NullTable(n)}
	case KindFrame:
		children := cs.Children
		if children == nil {
			children = &Schema{}
		}
		return newFrameColumn(cs.Name, make([]*Table, n), children)
	default:
		return newValueColumn(cs.Name, make([]any, n), cs.Type)
	}
}

// Equal compares names, kinds and types recursively. Nullability is ignored.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for i, a := range s.Columns {
		b := other.Columns[i]
		if a.Name != b.Name || a.Kind != b.Kind || a.Type != b.Type {
			return false
		}
		if a.Kind != KindValue && !a.Children.Equal(b.Children) {
			if !(a.Children.isEmpty() && b.Children.isEmpty()) {
				return false
			}
		}
	}
	return true
}

func (s *Schema) isEmpty() bool {
	return s == nil || len(s.Columns) == 0
}

// String renders the schema as an indented tree, one column per line.
// Nullable columns carry a trailing '?'.
func (s *Schema) String() string {
	b := stringpool.GetBuilder(stringpool.Small)
	defer stringpool.PutBuilder(b, stringpool.Small)
	s.write(b, 0)
	return b.String()
}

func (s *Schema) write(b *stringpool.Builder, depth int) {
	if s == nil {
		return
	}
	for _, c := range s.Columns {
		for i := 0; i < depth; i++ {
			b.WriteString("  ")
		}
		b.WriteString(c.Name)
		b.WriteString(": ")
		switch c.Kind {
		case KindValue:
			b.WriteString(c.Type.String())
		default:
			b.WriteString(c.Kind.String())
		}
		if c.Nullable {
			_ = b.WriteByte('?')
		}
		_ = b.WriteByte('\n')
		if c.Kind != KindValue {
			c.Children.write(b, depth+1)
		}
	}
}
