package frame

import (
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
)

// Concat stacks tables vertically. Columns are matched by name in order of
// first appearance; a column missing from a table is filled with nulls.
func Concat(tables ...*Table) (*Table, error) {
	var nonNil []*Table
	for _, t := range tables {
		if t != nil {
			nonNil = append(nonNil, t)
		}
	}
	switch len(nonNil) {
	case 0:
		return Empty(0), nil
	case 1:
		return nonNil[0], nil
	}

	total := 0
	var order []string
	seen := map[string]bool{}
	for _, t := range nonNil {
		total += t.nrow
		for _, c := range t.columns {
			if !seen[c.Name()] {
				seen[c.Name()] = true
				order = append(order, c.Name())
			}
		}
	}

	cols := make([]Column, 0, len(order))
	for _, name := range order {
		parts := make([]Column, len(nonNil))
		for i, t := range nonNil {
			if idx, ok := t.index[name]; ok {
				parts[i] = t.columns[idx]
			}
		}
		col, err := concatColumn(name, parts, nonNil)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return newTable(total, cols)
}

// concatColumn joins the pieces of one column. A nil part stands for a
// table that lacks the column.
func concatColumn(name string, parts []Column, tables []*Table) (Column, error) {
	var shape *ColumnSchema
	for _, p := range parts {
		if p == nil {
			continue
		}
		cs := SchemaOf(p)
		if shape == nil {
			shape = &cs
			continue
		}
		if cs.Kind != shape.Kind {
			return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
				"cannot concatenate %s and %s columns named %q", shape.Kind, cs.Kind, name).
				WithDetail("path", name)
		}
		merged := mergeColumnSchema(*shape, cs)
		shape = &merged
	}
	for i, p := range parts {
		if p == nil {
			parts[i] = NullColumn(*shape, tables[i].nrow)
		}
	}

	switch shape.Kind {
	case KindGroup:
		subs := make([]*Table, len(parts))
		for i, p := range parts {
			subs[i] = p.(*GroupColumn).table
		}
		t, err := Concat(subs...)
		if err != nil {
			return nil, err
		}
		return &GroupColumn{name: name, table: t}, nil
	case KindFrame:
		var cells []*Table
		for _, p := range parts {
			cells = append(cells, p.(*FrameColumn).tables...)
		}
		return newFrameColumn(name, cells, shape.Children), nil
	default:
		var values []any
		typ, typed := shape.Type, false
		for _, p := range parts {
			vc := p.(*ValueColumn)
			values = append(values, vc.values...)
			if hasValue(vc.values) {
				if !typed {
					typ, typed = vc.typ, true
				} else {
					typ = MergeTypes(typ, vc.typ)
				}
			}
		}
		return newValueColumn(name, values, typ), nil
	}
}

func hasValue(values []any) bool {
	for _, v := range values {
		if v != nil {
			return true
		}
	}
	return false
}
