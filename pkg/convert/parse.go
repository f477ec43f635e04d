package convert

import (
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

// parseOrder lists the candidate types tried for string columns, narrowest
// first.
var parseOrder = []frame.ColumnType{
	frame.TypeInt,
	frame.TypeFloat,
	frame.TypeBool,
	frame.TypeTimestamp,
}

// Parse re-types the selected string columns to the narrowest type every
// non-null value parses as. Columns with no candidate stay strings. Frame
// columns are parsed cell by cell. A nil selector parses every leaf.
func Parse(t *frame.Table, sel frame.Selector, reg *Registry) (*frame.Table, error) {
	if reg == nil {
		reg = defaultRegistry()
	}
	if sel == nil {
		sel = frame.Leaves()
	}
	paths, err := sel.Select(t)
	if err != nil {
		return nil, err
	}
	paths, err = frame.ExpandLeaves(t, paths)
	if err != nil {
		return nil, err
	}

	out := t
	for _, p := range paths {
		c, err := out.Resolve(p)
		if err != nil {
			return nil, err
		}
		var parsed frame.Column
		switch col := c.(type) {
		case *frame.ValueColumn:
			parsed = parseColumn(col, reg)
		case *frame.FrameColumn:
			parsed, err = parseFrame(col, reg)
			if err != nil {
				return nil, err
			}
		}
		if parsed == nil || parsed == c {
			continue
		}
		if out, err = out.Replace(p, parsed); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parseColumn(c *frame.ValueColumn, reg *Registry) frame.Column {
	if !isStringColumn(c) {
		return c
	}
	for _, to := range parseOrder {
		if conv, err := Column(c, to, reg); err == nil {
			return conv
		}
	}
	return c
}

// isStringColumn also admits Any columns whose non-null values are all
// strings, as produced by decoding columns that are entirely null but one.
func isStringColumn(c *frame.ValueColumn) bool {
	switch c.Type() {
	case frame.TypeString:
		return true
	case frame.TypeAny:
		seen := false
		for _, v := range c.Values() {
			if v == nil {
				continue
			}
			if _, ok := v.(string); !ok {
				return false
			}
			seen = true
		}
		return seen
	default:
		return false
	}
}

func parseFrame(c *frame.FrameColumn, reg *Registry) (frame.Column, error) {
	cells := c.Cells()
	out := make([]*frame.Table, len(cells))
	changed := false
	for i, cell := range cells {
		if cell == nil {
			continue
		}
		p, err := Parse(cell, nil, reg)
		if err != nil {
			return nil, err
		}
		out[i] = p
		changed = changed || p != cell
	}
	if !changed {
		return c, nil
	}
	return frame.NewFrameColumn(c.Name(), out), nil
}
