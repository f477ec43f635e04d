// Package explode converts between collection cells and rows: Explode
// spreads list values and nested tables over several rows, Implode
// collects them back.
package explode

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	"github.com/ajitpratap0/nebulaframe/pkg/logger"
)

// Options configures Explode.
type Options struct {
	// DropEmpty removes rows whose selected collections are all empty.
	// Otherwise such rows are kept once with nulls.
	DropEmpty bool
	Logger    *zap.Logger
}

// Explode unrolls the selected list and frame columns. Each source row
// expands to its multiplicity; unselected values are repeated, selected
// collections are padded with nulls and frame columns become groups.
func Explode(t *frame.Table, sel frame.Selector, opts Options) (*frame.Table, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}

	paths, err := sel.Select(t)
	if err != nil {
		return nil, err
	}
	paths, err = frame.ExpandLeaves(t, paths)
	if err != nil {
		return nil, err
	}

	mult, err := Multiplicity(t, paths, opts.DropEmpty)
	if err != nil {
		return nil, err
	}

	targets := make(map[string]bool, len(paths))
	for _, p := range paths {
		targets[p.String()] = true
	}

	total := 0
	repeat := make([]int, 0, t.NumRows())
	for i, m := range mult {
		total += m
		for j := 0; j < m; j++ {
			repeat = append(repeat, i)
		}
	}

	out, err := explodeTable(t, nil, targets, mult, repeat)
	if err != nil {
		return nil, err
	}

	log.Debug("explode finished",
		zap.Int("columns", len(paths)),
		zap.Int("input_rows", t.NumRows()),
		zap.Int("output_rows", total),
		zap.Bool("drop_empty", opts.DropEmpty))
	return out, nil
}

// Multiplicity computes how many rows each source row expands into: the
// maximum over the columns at paths of the nested table row count, the
// list length, or 1 for anything else. Null collections count as 0. Unless
// dropEmpty is set, 0 is raised to 1.
func Multiplicity(t *frame.Table, paths []frame.Path, dropEmpty bool) ([]int, error) {
	mult := make([]int, t.NumRows())
	if len(paths) == 0 {
		for i := range mult {
			mult[i] = 1
		}
		return mult, nil
	}

	for _, p := range paths {
		c, err := t.Resolve(p)
		if err != nil {
			return nil, err
		}
		nullCount := 1
		if vc, ok := c.(*frame.ValueColumn); ok && isCollection(vc) {
			nullCount = 0
		}
		for i := range mult {
			if n := cellCount(c, i, nullCount); n > mult[i] {
				mult[i] = n
			}
		}
	}
	if !dropEmpty {
		for i, m := range mult {
			if m == 0 {
				mult[i] = 1
			}
		}
	}
	return mult, nil
}

// cellCount is the multiplicity of row i of c. A null value cell counts as
// nullCount.
func cellCount(c frame.Column, i, nullCount int) int {
	switch col := c.(type) {
	case *frame.FrameColumn:
		if cell := col.Cell(i); cell != nil {
			return cell.NumRows()
		}
		return 0
	case *frame.ValueColumn:
		switch v := col.Value(i).(type) {
		case []any:
			return len(v)
		case nil:
			return nullCount
		default:
			return 1
		}
	case *frame.GroupColumn:
		// Groups are expanded to their leaves before counting.
		return 1
	}
	return 1
}

// isCollection reports whether a value column holds lists, in which case a
// null counts as an empty list.
func isCollection(c *frame.ValueColumn) bool {
	if c.Type() == frame.TypeList {
		return true
	}
	for _, v := range c.Values() {
		if _, ok := v.([]any); ok {
			return true
		}
	}
	return false
}

func explodeTable(t *frame.Table, prefix frame.Path, targets map[string]bool, mult, repeat []int) (*frame.Table, error) {
	cols := make([]frame.Column, 0, t.NumColumns())
	for _, c := range t.Columns() {
		path := prefix.Child(c.Name())
		var (
			out frame.Column
			err error
		)
		switch col := c.(type) {
		case *frame.GroupColumn:
			var sub *frame.Table
			sub, err = explodeTable(col.Table(), path, targets, mult, repeat)
			if err == nil {
				out = frame.NewGroupColumn(col.Name(), sub)
			}
		case *frame.ValueColumn:
			if targets[path.String()] {
				out = explodeValues(col, mult, len(repeat))
			} else {
				out = col.Gather(repeat)
			}
		case *frame.FrameColumn:
			if targets[path.String()] {
				out, err = explodeFrame(col, path, mult, len(repeat))
			} else {
				out = col.Gather(repeat)
			}
		}
		if err != nil {
			return nil, err
		}
		cols = append(cols, out)
	}
	return frame.NewTableWithRows(len(repeat), cols...)
}

func explodeValues(c *frame.ValueColumn, mult []int, total int) frame.Column {
	out := make([]any, 0, total)
	for i, m := range mult {
		var elems []any
		switch v := c.Value(i).(type) {
		case []any:
			elems = v
		case nil:
		default:
			elems = []any{v}
		}
		for j := 0; j < m; j++ {
			if j < len(elems) {
				out = append(out, elems[j])
			} else {
				out = append(out, nil)
			}
		}
	}
	typ := c.Type()
	if isCollection(c) {
		typ = frame.InferType(out)
	}
	return frame.NewValueColumn(c.Name(), out, typ)
}

func explodeFrame(c *frame.FrameColumn, path frame.Path, mult []int, total int) (frame.Column, error) {
	padded := make([]*frame.Table, 0, len(mult))
	for i, m := range mult {
		cell := c.Table(i)
		if cell.NumRows() > m {
			return nil, errors.Newf(errors.ErrorTypeRowCountInvariant,
				"nested table at %q row %d has %d rows, more than its multiplicity %d",
				path, i, cell.NumRows(), m).
				WithDetail("path", path.String()).
				WithDetail("row", i)
		}
		indices := make([]int, m)
		for j := range indices {
			if j < cell.NumRows() {
				indices[j] = j
			} else {
				indices[j] = -1
			}
		}
		padded = append(padded, cell.Gather(indices))
	}

	var group *frame.Table
	if len(padded) == 0 {
		group = c.Schema().EmptyTable()
	} else {
		var err error
		if group, err = frame.Concat(padded...); err != nil {
			return nil, err
		}
	}
	if group.NumRows() != total {
		return nil, errors.Newf(errors.ErrorTypeInternal,
			"exploded %q to %d rows, expected %d", path, group.NumRows(), total)
	}
	return frame.NewGroupColumn(c.Name(), group), nil
}
