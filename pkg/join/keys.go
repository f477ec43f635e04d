package join

import (
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

// expandKeys resolves every key pair and replaces pairs of group columns
// with pairs of their leaf columns, matched by path relative to the group.
func expandKeys(left, right *frame.Table, keys []KeyPair) ([]KeyPair, error) {
	var out []KeyPair
	for _, k := range keys {
		lc, err := left.Resolve(k.Left)
		if err != nil {
			return nil, err
		}
		rc, err := right.Resolve(k.Right)
		if err != nil {
			return nil, err
		}
		lg, leftGroup := lc.(*frame.GroupColumn)
		rg, rightGroup := rc.(*frame.GroupColumn)
		switch {
		case !leftGroup && !rightGroup:
			out = append(out, k)
		case leftGroup && rightGroup:
			pairs, err := matchGroups(k, lg.Table(), rg.Table())
			if err != nil {
				return nil, err
			}
			out = append(out, pairs...)
		default:
			return nil, errors.Newf(errors.ErrorTypeColumnCountMismatch,
				"key %q is a %s column on the left but %q is a %s column on the right",
				k.Left, lc.Kind(), k.Right, rc.Kind()).
				WithDetail("left", k.Left.String()).
				WithDetail("right", k.Right.String())
		}
	}
	return out, nil
}

func matchGroups(k KeyPair, left, right *frame.Table) ([]KeyPair, error) {
	leftLeaves := left.Paths(true)
	rightLeaves := right.Paths(true)
	if len(leftLeaves) != len(rightLeaves) {
		return nil, errors.Newf(errors.ErrorTypeColumnCountMismatch,
			"group key %q has %d columns on the left and %d on the right",
			k.Left, len(leftLeaves), len(rightLeaves)).
			WithDetail("left", k.Left.String()).
			WithDetail("right", k.Right.String())
	}

	pairs := make([]KeyPair, 0, len(leftLeaves))
	for _, lp := range leftLeaves {
		rp, ok := findRelative(rightLeaves, lp)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeColumnCountMismatch,
				"group key %q has no column matching %q on the right", k.Right, lp).
				WithDetail("left", k.Left.Join(lp).String()).
				WithDetail("right", k.Right.String())
		}
		pairs = append(pairs, KeyPair{Left: k.Left.Join(lp), Right: k.Right.Join(rp)})
	}
	return pairs, nil
}

func findRelative(candidates []frame.Path, suffix frame.Path) (frame.Path, bool) {
	for _, c := range candidates {
		if c.Equal(suffix) {
			return c, true
		}
	}
	return nil, false
}
