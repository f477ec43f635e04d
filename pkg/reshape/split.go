// Package reshape splits one column into several and merges several
// columns into one.
package reshape

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/explode"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	"github.com/ajitpratap0/nebulaframe/pkg/logger"
	stringpool "github.com/ajitpratap0/nebulaframe/pkg/strings"
)

// SplitFunc decomposes one cell value into a sequence. Returning nil marks
// the cell as null.
type SplitFunc func(v any) ([]any, error)

// Namer generates the column name for the n-th (1-based) part of source
// when no explicit name was given.
type Namer func(source string, n int) string

// DefaultNamer names extra parts <source><n>.
func DefaultNamer(source string, n int) string {
	return source + strconv.Itoa(n)
}

// Splitter is the builder returned by Split.
type Splitter struct {
	table *frame.Table
	sel   frame.Selector
	fn    SplitFunc
	trim  bool
	log   *zap.Logger
}

// Split starts splitting the selected value columns. Without By or With,
// list values pass through and other values become one-element lists.
func Split(t *frame.Table, sel frame.Selector) *Splitter {
	return &Splitter{table: t, sel: sel, fn: passThrough, log: logger.Get()}
}

func passThrough(v any) ([]any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return x, nil
	default:
		return []any{x}, nil
	}
}

// By splits the string form of each value on any of delims (default ",").
func (s *Splitter) By(delims ...string) *Splitter {
	s.fn = func(v any) ([]any, error) {
		if v == nil {
			return nil, nil
		}
		parts := stringpool.SplitAny(stringpool.ValueToString(v), delims...)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	}
	return s
}

// With uses fn to decompose each value.
func (s *Splitter) With(fn SplitFunc) *Splitter {
	s.fn = fn
	return s
}

// Trim strips surrounding whitespace from string parts.
func (s *Splitter) Trim() *Splitter {
	s.trim = true
	return s
}

// WithLogger overrides the logger.
func (s *Splitter) WithLogger(l *zap.Logger) *Splitter {
	s.log = l
	return s
}

type splitColumn struct {
	path  frame.Path
	parts [][]any
	width int
}

func (s *Splitter) run() ([]splitColumn, error) {
	paths, err := s.sel.Select(s.table)
	if err != nil {
		return nil, err
	}
	out := make([]splitColumn, 0, len(paths))
	for _, p := range paths {
		c, err := s.table.Resolve(p)
		if err != nil {
			return nil, err
		}
		vc, ok := c.(*frame.ValueColumn)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeTypeMismatch, "cannot split %s column %q", c.Kind(), p).
				WithDetail("path", p.String())
		}
		sc := splitColumn{path: p, parts: make([][]any, vc.Len())}
		for i, v := range vc.Values() {
			parts, err := s.fn(v)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeTypeMismatch, "split function failed").
					WithDetail("path", p.String()).
					WithDetail("row", i)
			}
			if s.trim {
				for j, part := range parts {
					if str, ok := part.(string); ok {
						parts[j] = strings.TrimSpace(str)
					}
				}
			}
			if parts != nil {
				parts = frame.Normalize(parts).([]any)
			}
			sc.parts[i] = parts
			sc.width = max(sc.width, len(parts))
		}
		out = append(out, sc)
	}
	return out, nil
}

// Inward stores each sequence back in place as a list value.
func (s *Splitter) Inward() (*frame.Table, error) {
	cols, err := s.run()
	if err != nil {
		return nil, err
	}
	out := s.table
	for _, sc := range cols {
		values := make([]any, len(sc.parts))
		for i, p := range sc.parts {
			if p != nil {
				values[i] = p
			}
		}
		col := frame.NewValueColumn(sc.path.Name(), values, frame.TypeList)
		if out, err = out.Replace(sc.path, col); err != nil {
			return nil, err
		}
	}
	s.log.Debug("split inward", zap.Int("columns", len(cols)), zap.Int("rows", out.NumRows()))
	return out, nil
}

// Into replaces each source with sibling columns named by names. Parts
// beyond the given names are named by DefaultNamer; short sequences are
// padded with nulls.
func (s *Splitter) Into(names ...string) (*frame.Table, error) {
	return s.IntoWithNamer(names, DefaultNamer)
}

// IntoWithNamer is Into with a custom namer for extra parts. Names are
// consumed across sources in selection order; the last source also takes
// any names left over. Every source yields at least one part column.
func (s *Splitter) IntoWithNamer(names []string, namer Namer) (*frame.Table, error) {
	cols, err := s.run()
	if err != nil {
		return nil, err
	}
	if namer == nil {
		namer = DefaultNamer
	}

	out := s.table
	offset := 0
	for k, sc := range cols {
		// An all-null source still leaves one null part behind.
		width := max(sc.width, 1)
		if k == len(cols)-1 {
			width = max(width, len(names)-offset)
		}
		parent := sc.path.Parent()
		pos, err := position(out, sc.path)
		if err != nil {
			return nil, err
		}
		for j := 0; j < width; j++ {
			name := namer(sc.path.Name(), j+1)
			if offset < len(names) {
				name = names[offset]
				offset++
			}
			values := make([]any, len(sc.parts))
			for i, p := range sc.parts {
				if j < len(p) {
					values[i] = p[j]
				}
			}
			col := frame.NewValueColumn(name, values, frame.InferType(values))
			// Insert before the source so a part may reuse the source name
			// once it is removed.
			if out, err = out.InsertAt(parent, pos+j, col.Rename(tempName(name))); err != nil {
				return nil, err
			}
		}
		if out, err = out.Remove(sc.path); err != nil {
			return nil, err
		}
		for j := 0; j < width; j++ {
			c := columnAt(out, parent, pos+j)
			if out, err = out.Rename(parent.Child(c.Name()), strings.TrimPrefix(c.Name(), tempPrefix)); err != nil {
				return nil, err
			}
		}
	}
	s.log.Debug("split into columns", zap.Int("sources", len(cols)), zap.Int("names", len(names)))
	return out, nil
}

// IntoRows stores each sequence in place and explodes it into rows.
func (s *Splitter) IntoRows(dropEmpty bool) (*frame.Table, error) {
	paths, err := s.sel.Select(s.table)
	if err != nil {
		return nil, err
	}
	inward, err := s.Inward()
	if err != nil {
		return nil, err
	}
	return explode.Explode(inward, frame.Paths(paths...), explode.Options{DropEmpty: dropEmpty, Logger: s.log})
}

const tempPrefix = "\x00reshape:"

func tempName(name string) string { return tempPrefix + name }

// position is the index of the column at path within its parent.
func position(t *frame.Table, path frame.Path) (int, error) {
	parent := t
	if len(path) > 1 {
		c, err := t.Resolve(path.Parent())
		if err != nil {
			return 0, err
		}
		parent = c.(*frame.GroupColumn).Table()
	}
	i, ok := parent.IndexOf(path.Name())
	if !ok {
		return 0, errors.Newf(errors.ErrorTypeInvalidPath, "column %q not found", path).WithDetail("path", path.String())
	}
	return i, nil
}

func columnAt(t *frame.Table, parent frame.Path, i int) frame.Column {
	if len(parent) == 0 {
		return t.Column(i)
	}
	c, _ := t.Resolve(parent)
	return c.(*frame.GroupColumn).Table().Column(i)
}
