package pack

import (
	"fmt"
	"slices"
	"strings"
)

// Path locates an entry inside a container as ordered folder segments.
// The on-disk form joins segments with backslashes; keeping them split in
// the API means callers never deal with separator direction.
type Path []string

// ParsePath splits s into a Path. Both backslashes and forward slashes
// separate segments, and empty segments are dropped, so `db\units\data`
// and "db/units/data" parse the same.
func ParsePath(s string) Path {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\\' || r == '/'
	})
	if len(fields) == 0 {
		return nil
	}
	return Path(fields)
}

// String renders the on-disk form: segments joined with backslashes.
func (p Path) String() string {
	return strings.Join(p, `\`)
}

// Name returns the final segment, or "" for an empty path.
func (p Path) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns the path without its final segment.
func (p Path) Parent() Path {
	if len(p) < 2 {
		return nil
	}
	return p[:len(p)-1]
}

// Equal reports whether p and q name the same entry. Comparison is
// case-sensitive, matching lookup.
func (p Path) Equal(q Path) bool {
	return slices.Equal(p, q)
}

// HasPrefix reports whether p sits under the folder named by prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return slices.Equal(p[:len(prefix)], prefix)
}

// sortKey is the save-order collation key: the joined path folded to
// lower case, so "aa" < "Ab" < "ac".
func (p Path) sortKey() string {
	return strings.ToLower(p.String())
}

// clone returns an independent copy of p.
func (p Path) clone() Path {
	return slices.Clone(p)
}

// validate rejects paths the index cannot store: empty paths, empty
// segments, and segments holding a NUL or a separator.
func (p Path) validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, seg := range p {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, p.String())
		}
		if strings.ContainsAny(seg, "\\/\x00") {
			return fmt.Errorf("%w: segment %q", ErrInvalidPath, seg)
		}
	}
	return nil
}
