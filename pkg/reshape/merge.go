package reshape

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/explode"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	"github.com/ajitpratap0/nebulaframe/pkg/logger"
	stringpool "github.com/ajitpratap0/nebulaframe/pkg/strings"
)

// MergeFunc reduces the per-row sequence of source values to one value.
type MergeFunc func(values []any) (any, error)

// Merger is the builder returned by Merge.
type Merger struct {
	table   *frame.Table
	sel     frame.Selector
	fn      MergeFunc
	typ     frame.ColumnType
	infer   bool
	notNull bool
	log     *zap.Logger
}

// Merge starts merging the selected columns. Without By or With the
// per-row values are kept as a list.
func Merge(t *frame.Table, sel frame.Selector) *Merger {
	return &Merger{
		table: t,
		sel:   sel,
		fn:    func(values []any) (any, error) { return values, nil },
		typ:   frame.TypeList,
		log:   logger.Get(),
	}
}

// By joins the string forms of the values with sep.
func (m *Merger) By(sep string) *Merger {
	opts := stringpool.DefaultJoinOptions()
	opts.Separator = sep
	return m.ByOptions(opts)
}

// ByOptions joins the string forms of the values as described by opts.
func (m *Merger) ByOptions(opts stringpool.JoinOptions) *Merger {
	m.fn = func(values []any) (any, error) {
		return stringpool.JoinValues(values, opts), nil
	}
	m.typ, m.infer = frame.TypeString, false
	return m
}

// With reduces the values with fn. The result type is inferred.
func (m *Merger) With(fn MergeFunc) *Merger {
	m.fn = fn
	m.infer = true
	return m
}

// NotNull drops nulls before reducing.
func (m *Merger) NotNull() *Merger {
	m.notNull = true
	return m
}

// WithLogger overrides the logger.
func (m *Merger) WithLogger(l *zap.Logger) *Merger {
	m.log = l
	return m
}

// Into merges into a column at the dot-rendered path target.
func (m *Merger) Into(target string) (*frame.Table, error) {
	return m.IntoPath(frame.ParsePath(target))
}

// IntoPath removes the sources and attaches the merged column at target.
// When the first source shares target's parent the result takes that
// source's position; otherwise it is appended, creating groups as needed.
func (m *Merger) IntoPath(target frame.Path) (*frame.Table, error) {
	if len(target) == 0 {
		return nil, errors.New(errors.ErrorTypeInvalidPath, "merge target path is empty")
	}
	paths, err := m.sel.Select(m.table)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "merge requires at least one source column")
	}
	if m.table.Has(target) && !containsPath(paths, target) {
		return nil, errors.Newf(errors.ErrorTypeValidation, "merge target %q already exists", target).
			WithDetail("path", target.String())
	}

	sources := make([]frame.Column, len(paths))
	for i, p := range paths {
		if sources[i], err = m.table.Resolve(p); err != nil {
			return nil, err
		}
	}

	nrow := m.table.NumRows()
	merged := make([]any, nrow)
	row := make([]any, 0, len(sources))
	for r := 0; r < nrow; r++ {
		row = row[:0]
		for _, c := range sources {
			v := frame.CellValue(c, r)
			if v == nil && m.notNull {
				continue
			}
			row = append(row, v)
		}
		v, err := m.fn(append([]any(nil), row...))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeTypeMismatch, "merge function failed").
				WithDetail("path", target.String()).
				WithDetail("row", r)
		}
		merged[r] = v
	}

	col := frame.NewValueColumn(tempName(target.Name()), merged, m.typ)
	if m.infer {
		col = frame.NewValueColumn(col.Name(), col.Values(), frame.InferType(col.Values()))
	}

	pos := -1
	if paths[0].Parent().Equal(target.Parent()) {
		if pos, err = position(m.table, paths[0]); err != nil {
			return nil, err
		}
	}

	out, err := m.table.InsertAt(target.Parent(), pos, col)
	if err != nil {
		return nil, err
	}
	if out, err = out.Remove(paths...); err != nil {
		return nil, err
	}
	if out, err = out.Rename(target.Parent().Child(col.Name()), target.Name()); err != nil {
		return nil, err
	}

	m.log.Debug("merge finished",
		zap.Int("sources", len(paths)),
		zap.String("target", target.String()),
		zap.Int("rows", nrow))
	return out, nil
}

func containsPath(paths []frame.Path, p frame.Path) bool {
	for _, q := range paths {
		if q.Equal(p) {
			return true
		}
	}
	return false
}

// MergeRows collapses rows that agree on every unselected column,
// collecting the selected columns. It is explode.Implode.
func MergeRows(t *frame.Table, sel frame.Selector, dropNulls bool) (*frame.Table, error) {
	return explode.Implode(t, sel, explode.ImplodeOptions{DropNulls: dropNulls})
}
