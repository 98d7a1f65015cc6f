package shardspec

import (
	"fmt"
	"sort"
	"strings"
)

// Assignment maps one array axis (or one named dimension) onto mesh axes.
// An empty Assignment leaves the axis unassigned (replicated); one name
// shards it over that mesh axis; several names split it jointly over all of
// them, major to minor in listed order.
type Assignment []string

// Unassigned returns the empty Assignment.
func Unassigned() Assignment { return nil }

// Axis shards over a single mesh axis.
func Axis(name string) Assignment { return Assignment{name} }

// Axes splits jointly over several mesh axes.
func Axes(names ...string) Assignment { return append(Assignment(nil), names...) }

// IsUnassigned reports whether the axis is replicated.
func (a Assignment) IsUnassigned() bool { return len(a) == 0 }

// Equal reports element-wise equality.
func (a Assignment) Equal(b Assignment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (a Assignment) clone() Assignment {
	if len(a) == 0 {
		return nil
	}
	return append(Assignment(nil), a...)
}

func (a Assignment) String() string {
	switch len(a) {
	case 0:
		return "None"
	case 1:
		return a[0]
	default:
		return "(" + strings.Join(a, ", ") + ")"
	}
}

// ParseAssignment decodes a loosely typed assignment as produced by
// YAML/JSON/TOML decoders: nil or "" (unassigned), a string, or a list of
// strings.
func ParseAssignment(v any) (Assignment, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		return Axis(t), nil
	case []string:
		return parseNames(t)
	case []any:
		names := make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: tuple element %d is %T, want string", ErrInvalidAssignment, i, e)
			}
			names[i] = s
		}
		return parseNames(names)
	default:
		return nil, fmt.Errorf("%w: got %T, want null, string or list of strings", ErrInvalidAssignment, v)
	}
}

func parseNames(names []string) (Assignment, error) {
	for i, n := range names {
		if n == "" {
			return nil, fmt.Errorf("%w: tuple element %d is empty", ErrInvalidAssignment, i)
		}
	}
	return Axes(names...), nil
}

// PositionalSpec addresses plain arrays by axis position: entry i applies
// to array axis i.
type PositionalSpec []Assignment

// Rank is the number of array axes the spec describes.
func (s PositionalSpec) Rank() int { return len(s) }

func (s PositionalSpec) clone() PositionalSpec {
	out := make(PositionalSpec, len(s))
	for i, a := range s {
		out[i] = a.clone()
	}
	return out
}

func (s PositionalSpec) String() string {
	parts := make([]string, len(s))
	for i, a := range s {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// LabeledSpec addresses labeled arrays by dimension name. Dimensions that are
// not listed are unassigned.
type LabeledSpec map[string]Assignment

// Resolve returns the assignment for each dim, in the given order.
func (s LabeledSpec) Resolve(dims []string) []Assignment {
	out := make([]Assignment, len(dims))
	for i, d := range dims {
		out[i] = s[d].clone()
	}
	return out
}

// Dims returns the spec's dimension names sorted.
func (s LabeledSpec) Dims() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (s LabeledSpec) clone() LabeledSpec {
	out := make(LabeledSpec, len(s))
	for d, a := range s {
		out[d] = a.clone()
	}
	return out
}

func (s LabeledSpec) String() string {
	dims := s.Dims()
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = d + ": " + s[d].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
