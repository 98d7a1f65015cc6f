package shardspec

import (
	"fmt"
	"reflect"
	"sort"
)

// LeafKind tells how a leaf is addressed.
type LeafKind int

const (
	LeafPlain   LeafKind = iota // Addressed by axis position.
	LeafLabeled                 // Addressed by dimension name.
)

func (k LeafKind) String() string {
	if k == LeafLabeled {
		return "labeled"
	}
	return "plain"
}

// leaf is one classified array-bearing value found in a tree. Leaves are
// numbered in walk order; rebuild relies on visiting them in the same order.
type leaf struct {
	ref   PathRef
	path  string
	kind  LeafKind
	shape []int
	dims  []string
}

// collectLeaves walks tree depth-first (map keys sorted) and classifies
// every leaf. Containers are map[string]any and []any; nil values are
// skipped; Field is checked before Array. A nil pointer behind Field or
// Array is an unsupported leaf.
func collectLeaves(tree any) ([]leaf, Issues) {
	var (
		leaves []leaf
		iss    Issues
	)
	var visit func(v any, p PathRef)
	visit = func(v any, p PathRef) {
		switch t := v.(type) {
		case nil:
		case map[string]any:
			for _, k := range sortedKeys(t) {
				visit(t[k], p.Field(k))
			}
		case []any:
			for i, c := range t {
				visit(c, p.Index(i))
			}
		case Field:
			if isNilPointer(t) {
				iss = AppendIssues(iss, p.Issue(CodeUnsupportedLeaf, fmt.Sprintf("nil %T leaf", v), "type", fmt.Sprintf("%T", v)))
				return
			}
			data := t.Data()
			if data == nil || isNilPointer(data) {
				iss = AppendIssues(iss, p.Issue(CodeUnsupportedLeaf, "labeled leaf has no data"))
				return
			}
			leaves = append(leaves, leaf{
				ref:   p,
				path:  p.Pointer(),
				kind:  LeafLabeled,
				shape: append([]int(nil), data.Shape()...),
				dims:  append([]string(nil), t.Dims()...),
			})
		case Array:
			if isNilPointer(t) {
				iss = AppendIssues(iss, p.Issue(CodeUnsupportedLeaf, fmt.Sprintf("nil %T leaf", v), "type", fmt.Sprintf("%T", v)))
				return
			}
			leaves = append(leaves, leaf{
				ref:   p,
				path:  p.Pointer(),
				kind:  LeafPlain,
				shape: append([]int(nil), t.Shape()...),
			})
		default:
			iss = AppendIssues(iss, p.Issue(CodeUnsupportedLeaf, fmt.Sprintf("unsupported leaf type %T", v), "type", fmt.Sprintf("%T", v)))
		}
	}
	visit(tree, Root())
	return leaves, iss
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// plainRanks returns the distinct ranks of the plain leaves, sorted.
func plainRanks(leaves []leaf) []int {
	set := map[int]struct{}{}
	for _, l := range leaves {
		if l.kind == LeafPlain {
			set[len(l.shape)] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}
