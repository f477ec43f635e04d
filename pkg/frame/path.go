package frame

import "strings"

// Path addresses a column by descending through group columns. A path of
// length one names a top-level column.
type Path []string

// PathOf builds a path from its segments.
func PathOf(names ...string) Path {
	return Path(names)
}

// ParsePath splits a dot-rendered path.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return Path(strings.Split(s, "."))
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Name is the last segment.
func (p Path) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent drops the last segment. The parent of a top-level path is empty.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// Child returns a new path with name appended.
func (p Path) Child(name string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = name
	return out
}

func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is an ancestor of (or equal to) p.
func (p Path) HasPrefix(prefix Path) bool {
	return len(prefix) <= len(p) && p[:len(prefix)].Equal(prefix)
}

// TrimPrefix removes prefix from p. p must have the prefix.
func (p Path) TrimPrefix(prefix Path) Path {
	if !p.HasPrefix(prefix) {
		return p
	}
	return append(Path(nil), p[len(prefix):]...)
}

// Join concatenates p and rest.
func (p Path) Join(rest Path) Path {
	out := make(Path, 0, len(p)+len(rest))
	out = append(out, p...)
	return append(out, rest...)
}
