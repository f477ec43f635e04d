package convert

import (
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

// Convert re-types the value column at path to the target type. A nil
// registry uses the built-in rules.
//
// Values already acceptable to the target are kept as is. Any other value
// without a rule yields ErrorTypeConverterNotFound; a value its rule rejects
// yields ErrorTypeTypeMismatch unless a fallback for the pair accepts it.
func Convert(t *frame.Table, path frame.Path, to frame.ColumnType, reg *Registry) (*frame.Table, error) {
	if reg == nil {
		reg = defaultRegistry()
	}
	c, err := t.Resolve(path)
	if err != nil {
		return nil, err
	}
	vc, ok := c.(*frame.ValueColumn)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConverterNotFound,
			"no conversion from %s column %q to %s", c.Kind(), path, to).
			WithDetail("path", path.String())
	}
	col, err := Column(vc, to, reg)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.WithDetail("path", path.String())
		}
		return nil, err
	}
	return t.Replace(path, col)
}

// Column converts a single value column.
func Column(c *frame.ValueColumn, to frame.ColumnType, reg *Registry) (*frame.ValueColumn, error) {
	if reg == nil {
		reg = defaultRegistry()
	}
	if c.Type() == to {
		return c, nil
	}
	values := c.Values()
	out := make([]any, len(values))
	for i, v := range values {
		cv, err := convertValue(v, to, reg)
		if err != nil {
			return nil, err
		}
		out[i] = cv
	}
	return frame.NewValueColumn(c.Name(), out, to), nil
}

// Value converts a single value with the same rules as Column.
func Value(v any, to frame.ColumnType, reg *Registry) (any, error) {
	if reg == nil {
		reg = defaultRegistry()
	}
	return convertValue(v, to, reg)
}

func convertValue(v any, to frame.ColumnType, reg *Registry) (any, error) {
	if v == nil {
		return nil, nil
	}
	from := frame.TypeOf(v)
	if to.Accepts(from) {
		return v, nil
	}
	fn, ok := reg.Lookup(from, to)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConverterNotFound, "no conversion from %s to %s", from, to)
	}
	out, err := fn(v)
	if err == nil {
		return out, nil
	}
	if fb, ok := reg.fallback(from, to); ok {
		if out, fbErr := fb(v); fbErr == nil {
			return out, nil
		}
	}
	return nil, errors.Wrap(err, errors.ErrorTypeTypeMismatch, "cannot convert "+from.String()+" value to "+to.String())
}
