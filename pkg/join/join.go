// Package join implements multi-key hash joins over frame tables, including
// keys that address whole nested groups.
package join

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	"github.com/ajitpratap0/nebulaframe/pkg/logger"
)

// Type selects which unmatched rows survive a join.
type Type int

const (
	// Inner keeps matched pairs only.
	Inner Type = iota
	// Left also keeps unmatched left rows with null right columns.
	Left
	// Right also keeps unmatched right rows with null left columns.
	Right
	// Full is Left and Right combined.
	Full
	// Exclude keeps only unmatched left rows and adds no right columns.
	Exclude
)

var typeNames = map[Type]string{
	Inner:   "inner",
	Left:    "left",
	Right:   "right",
	Full:    "full",
	Exclude: "exclude",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseType maps a join type name to its Type.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return Inner, errors.Newf(errors.ErrorTypeValidation, "unknown join type %q", s)
}

func (t Type) keepsUnmatchedLeft() bool  { return t == Left || t == Full || t == Exclude }
func (t Type) keepsUnmatchedRight() bool { return t == Right || t == Full }

// KeyPair matches a left column with a right column.
type KeyPair struct {
	Left  frame.Path
	Right frame.Path
}

// On builds key pairs for columns with the same dot-rendered path on both
// sides.
func On(names ...string) []KeyPair {
	keys := make([]KeyPair, len(names))
	for i, n := range names {
		p := frame.ParsePath(n)
		keys[i] = KeyPair{Left: p, Right: p}
	}
	return keys
}

// Pair builds a key pair from two dot-rendered paths.
func Pair(left, right string) KeyPair {
	return KeyPair{Left: frame.ParsePath(left), Right: frame.ParsePath(right)}
}

// Options configures JoinWith.
type Options struct {
	Type   Type
	Keys   []KeyPair
	Logger *zap.Logger
}

// Join joins left and right on keys.
func Join(left, right *frame.Table, keys []KeyPair, typ Type) (*frame.Table, error) {
	return JoinWith(left, right, Options{Type: typ, Keys: keys})
}

// JoinWith joins left and right as described by opts. Output rows are
// left-row-major with matches in right order; unmatched right rows follow
// all left-derived rows in right order. Output columns are the left columns
// followed by the non-key right columns.
func JoinWith(left, right *frame.Table, opts Options) (*frame.Table, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}
	if len(opts.Keys) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "join requires at least one key")
	}

	keys, err := expandKeys(left, right, opts.Keys)
	if err != nil {
		return nil, err
	}

	leftKeys, err := keyColumns(left, keys, func(k KeyPair) frame.Path { return k.Left })
	if err != nil {
		return nil, err
	}
	rightKeys, err := keyColumns(right, keys, func(k KeyPair) frame.Path { return k.Right })
	if err != nil {
		return nil, err
	}

	buckets := make(map[string][]int, right.NumRows())
	for r := 0; r < right.NumRows(); r++ {
		k := tupleKey(rightKeys, r)
		buckets[k] = append(buckets[k], r)
	}

	var leftIdx, rightIdx []int
	matchedRight := make([]bool, right.NumRows())
	for l := 0; l < left.NumRows(); l++ {
		matches := buckets[tupleKey(leftKeys, l)]
		if len(matches) == 0 {
			if opts.Type.keepsUnmatchedLeft() {
				leftIdx = append(leftIdx, l)
				rightIdx = append(rightIdx, -1)
			}
			continue
		}
		if opts.Type == Exclude {
			continue
		}
		for _, r := range matches {
			leftIdx = append(leftIdx, l)
			rightIdx = append(rightIdx, r)
			matchedRight[r] = true
		}
	}
	if opts.Type.keepsUnmatchedRight() {
		for r, matched := range matchedRight {
			if !matched {
				leftIdx = append(leftIdx, -1)
				rightIdx = append(rightIdx, r)
			}
		}
	}

	out := left.Gather(leftIdx)
	if opts.Type != Exclude {
		out, err = attachRight(out, right, keys, rightKeys, leftIdx, rightIdx)
		if err != nil {
			return nil, err
		}
	}

	log.Debug("join finished",
		zap.String("type", opts.Type.String()),
		zap.Int("key_columns", len(keys)),
		zap.Int("left_rows", left.NumRows()),
		zap.Int("right_rows", right.NumRows()),
		zap.Int("output_rows", out.NumRows()))
	return out, nil
}

func keyColumns(t *frame.Table, keys []KeyPair, side func(KeyPair) frame.Path) ([]frame.Column, error) {
	cols := make([]frame.Column, len(keys))
	for i, k := range keys {
		c, err := t.Resolve(side(k))
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

func tupleKey(cols []frame.Column, row int) string {
	values := make([]any, len(cols))
	for i, c := range cols {
		values[i] = frame.CellValue(c, row)
	}
	return frame.Key(values...)
}

// attachRight fills key columns of right-only rows from the right side and
// adds the non-key right columns under their own paths.
func attachRight(out, right *frame.Table, keys []KeyPair, rightKeys []frame.Column, leftIdx, rightIdx []int) (*frame.Table, error) {
	var err error
	hasRightOnly := false
	for _, l := range leftIdx {
		if l < 0 {
			hasRightOnly = true
			break
		}
	}
	if hasRightOnly {
		// A left column shared by several pairs takes its value from the first.
		filled := make(map[string]bool, len(keys))
		for i, k := range keys {
			if filled[k.Left.String()] {
				continue
			}
			filled[k.Left.String()] = true
			lc, err := out.Resolve(k.Left)
			if err != nil {
				return nil, err
			}
			merged, err := coalesce(lc, rightKeys[i].Gather(rightIdx), leftIdx)
			if err != nil {
				return nil, err
			}
			if out, err = out.Replace(k.Left, merged); err != nil {
				return nil, err
			}
		}
	}

	rightPaths := make([]frame.Path, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k.Right.String()] {
			seen[k.Right.String()] = true
			rightPaths = append(rightPaths, k.Right)
		}
	}
	rest, err := right.Remove(rightPaths...)
	if err != nil {
		return nil, err
	}
	return addColumns(out, nil, out.ColumnNames(), rest.Gather(rightIdx).Columns())
}

// addColumns adds cols under parent. A group whose path is also a group in
// out is merged into it column by column; other name collisions get a
// numeric suffix.
func addColumns(out *frame.Table, parent frame.Path, names []string, cols []frame.Column) (*frame.Table, error) {
	taken := make(map[string]bool, len(names)+len(cols))
	for _, name := range names {
		taken[name] = true
	}
	var err error
	for _, c := range cols {
		path := parent.Child(c.Name())
		if rg, ok := c.(*frame.GroupColumn); ok {
			if existing, found := out.Get(path); found {
				if lg, ok := existing.(*frame.GroupColumn); ok {
					if out, err = addColumns(out, path, lg.Table().ColumnNames(), rg.Table().Columns()); err != nil {
						return nil, err
					}
					continue
				}
			}
		}
		name := uniqueName(c.Name(), taken)
		taken[name] = true
		if name != c.Name() {
			c = c.Rename(name)
		}
		if out, err = out.Add(parent, c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// coalesce takes rows of fromLeft except where leftIdx is -1, which come
// from fromRight.
func coalesce(fromLeft, fromRight frame.Column, leftIdx []int) (frame.Column, error) {
	switch lc := fromLeft.(type) {
	case *frame.ValueColumn:
		rc, ok := fromRight.(*frame.ValueColumn)
		if !ok {
			break
		}
		values := append([]any(nil), lc.Values()...)
		typ := lc.Type()
		for i, l := range leftIdx {
			if l < 0 {
				values[i] = rc.Value(i)
			}
		}
		if rc.Type() != typ {
			typ = frame.MergeTypes(typ, rc.Type())
		}
		return frame.NewValueColumn(lc.Name(), values, typ), nil
	case *frame.FrameColumn:
		rc, ok := fromRight.(*frame.FrameColumn)
		if !ok {
			break
		}
		cells := append([]*frame.Table(nil), lc.Cells()...)
		for i, l := range leftIdx {
			if l < 0 {
				cells[i] = rc.Cell(i)
			}
		}
		return frame.NewFrameColumn(lc.Name(), cells), nil
	}
	return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
		"key column %q is a %s column on the left and a %s column on the right",
		fromLeft.Name(), fromLeft.Kind(), fromRight.Kind())
}

func uniqueName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for n := 1; ; n++ {
		candidate := name + strconv.Itoa(n)
		if !taken[candidate] {
			return candidate
		}
	}
}
