package frame

import (
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
)

// Selector picks a set of column paths from a table.
type Selector func(*Table) ([]Path, error)

// Select runs s against t. A nil selector selects nothing.
func (s Selector) Select(t *Table) ([]Path, error) {
	if s == nil {
		return nil, nil
	}
	return s(t)
}

// Cols selects columns by dot-rendered path. Every name must resolve.
func Cols(names ...string) Selector {
	paths := make([]Path, len(names))
	for i, n := range names {
		paths[i] = ParsePath(n)
	}
	return Paths(paths...)
}

// Paths selects the given paths. Every path must resolve.
func Paths(paths ...Path) Selector {
	return func(t *Table) ([]Path, error) {
		for _, p := range paths {
			if _, err := t.Resolve(p); err != nil {
				return nil, err
			}
		}
		return dedupe(paths), nil
	}
}

// All selects the top-level columns.
func All() Selector {
	return func(t *Table) ([]Path, error) {
		out := make([]Path, len(t.columns))
		for i, c := range t.columns {
			out[i] = Path{c.Name()}
		}
		return out, nil
	}
}

// Leaves selects every non-group column at any depth.
func Leaves() Selector {
	return func(t *Table) ([]Path, error) {
		return t.Paths(true), nil
	}
}

// ByKind selects every column of kind k at any depth.
func ByKind(k Kind) Selector {
	return Filter(func(_ Path, c Column) bool { return c.Kind() == k })
}

// Filter selects every column at any depth accepted by pred.
func Filter(pred func(Path, Column) bool) Selector {
	return func(t *Table) ([]Path, error) {
		var out []Path
		for p, c := range t.All() {
			if pred(p, c) {
				out = append(out, p)
			}
		}
		return out, nil
	}
}

// Children selects the direct children of the group at path.
func Children(path Path) Selector {
	return func(t *Table) ([]Path, error) {
		c, err := t.Resolve(path)
		if err != nil {
			return nil, err
		}
		g, ok := c.(*GroupColumn)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeInvalidPath, "%q is a %s column, not a group", path, c.Kind())
		}
		out := make([]Path, 0, g.table.NumColumns())
		for _, child := range g.table.columns {
			out = append(out, path.Child(child.Name()))
		}
		return out, nil
	}
}

// Union concatenates selections, dropping repeated paths.
func Union(sels ...Selector) Selector {
	return func(t *Table) ([]Path, error) {
		var out []Path
		for _, s := range sels {
			paths, err := s.Select(t)
			if err != nil {
				return nil, err
			}
			out = append(out, paths...)
		}
		return dedupe(out), nil
	}
}

// Except removes from base every path selected by exclude or nested under
// one of them.
func Except(base, exclude Selector) Selector {
	return func(t *Table) ([]Path, error) {
		paths, err := base.Select(t)
		if err != nil {
			return nil, err
		}
		drop, err := exclude.Select(t)
		if err != nil {
			return nil, err
		}
		var out []Path
	next:
		for _, p := range paths {
			for _, d := range drop {
				if p.HasPrefix(d) {
					continue next
				}
			}
			out = append(out, p)
		}
		return out, nil
	}
}

// ExpandLeaves replaces every group path with the paths of its non-group
// descendants.
func ExpandLeaves(t *Table, paths []Path) ([]Path, error) {
	var out []Path
	for _, p := range paths {
		c, err := t.Resolve(p)
		if err != nil {
			return nil, err
		}
		g, ok := c.(*GroupColumn)
		if !ok {
			out = append(out, p)
			continue
		}
		for _, sub := range g.table.Paths(true) {
			out = append(out, p.Join(sub))
		}
	}
	return dedupe(out), nil
}

func dedupe(paths []Path) []Path {
	seen := make(map[string]bool, len(paths))
	out := make([]Path, 0, len(paths))
	for _, p := range paths {
		k := p.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}
