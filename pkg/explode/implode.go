package explode

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	"github.com/ajitpratap0/nebulaframe/pkg/logger"
)

// ImplodeOptions configures Implode.
type ImplodeOptions struct {
	// DropNulls leaves null values (and all-null group rows) out of the
	// collected collections.
	DropNulls bool
	Logger    *zap.Logger
}

// Implode collapses rows that agree on every unselected column into one
// row, in order of first appearance. Selected value columns become list
// columns, selected groups become frame columns of the collapsed rows and
// selected frame columns concatenate their sub-tables.
func Implode(t *frame.Table, sel frame.Selector, opts ImplodeOptions) (*frame.Table, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}

	targets, err := sel.Select(t)
	if err != nil {
		return nil, err
	}

	var keyCols []frame.Column
	for p, c := range t.All() {
		if c.Kind() == frame.KindGroup || underAny(p, targets) {
			continue
		}
		keyCols = append(keyCols, c)
	}

	groups := groupRows(t.NumRows(), keyCols)
	first := make([]int, len(groups))
	for i, g := range groups {
		first[i] = g[0]
	}
	out := t.Gather(first)

	for _, p := range targets {
		c, err := t.Resolve(p)
		if err != nil {
			return nil, err
		}
		collected, err := collect(c, groups, opts.DropNulls)
		if err != nil {
			return nil, err
		}
		if out, err = out.Replace(p, collected); err != nil {
			return nil, err
		}
	}

	log.Debug("implode finished",
		zap.Int("columns", len(targets)),
		zap.Int("input_rows", t.NumRows()),
		zap.Int("output_rows", out.NumRows()))
	return out, nil
}

func underAny(p frame.Path, targets []frame.Path) bool {
	for _, t := range targets {
		if p.HasPrefix(t) {
			return true
		}
	}
	return false
}

// groupRows buckets row indices by the values of keyCols, keeping buckets
// and their members in first-appearance order.
func groupRows(nrow int, keyCols []frame.Column) [][]int {
	var groups [][]int
	index := make(map[string]int)
	values := make([]any, len(keyCols))
	for r := 0; r < nrow; r++ {
		for i, c := range keyCols {
			values[i] = frame.CellValue(c, r)
		}
		k := frame.Key(values...)
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], r)
	}
	return groups
}

func collect(c frame.Column, groups [][]int, dropNulls bool) (frame.Column, error) {
	switch col := c.(type) {
	case *frame.ValueColumn:
		lists := make([]any, len(groups))
		for i, g := range groups {
			list := make([]any, 0, len(g))
			for _, r := range g {
				v := col.Value(r)
				if v == nil && dropNulls {
					continue
				}
				list = append(list, v)
			}
			lists[i] = list
		}
		return frame.NewValueColumn(col.Name(), lists, frame.TypeList), nil

	case *frame.GroupColumn:
		cells := make([]*frame.Table, len(groups))
		for i, g := range groups {
			rows := g
			if dropNulls {
				rows = nonNullRows(col.Table(), g)
			}
			cells[i] = col.Table().Gather(rows)
		}
		return frame.NewFrameColumnWithSchema(col.Name(), cells, col.Table().Schema()), nil

	case *frame.FrameColumn:
		cells := make([]*frame.Table, len(groups))
		for i, g := range groups {
			parts := make([]*frame.Table, 0, len(g))
			for _, r := range g {
				if cell := col.Cell(r); cell != nil {
					parts = append(parts, cell)
				}
			}
			if len(parts) == 0 {
				if !dropNulls {
					cells[i] = col.Schema().EmptyTable()
				}
				continue
			}
			merged, err := frame.Concat(parts...)
			if err != nil {
				return nil, err
			}
			cells[i] = merged
		}
		return frame.NewFrameColumnWithSchema(col.Name(), cells, col.Schema()), nil
	}
	return c, nil
}

func nonNullRows(t *frame.Table, rows []int) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		if !allNull(t.Row(r)) {
			out = append(out, r)
		}
	}
	return out
}

func allNull(r frame.Row) bool {
	for _, c := range r.Table().All() {
		if c.Kind() != frame.KindGroup && frame.CellValue(c, r.Index()) != nil {
			return false
		}
	}
	return true
}
