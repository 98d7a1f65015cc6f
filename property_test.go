package shardspec_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/reoring/shardspec"
	"github.com/reoring/shardspec/array"
)

var meshAxes = []string{"z", "x", "y"}

// drawAssignments draws a positional spec of the given rank that uses each
// mesh axis at most once.
func drawAssignments(rt *rapid.T, rank int) []shardspec.Assignment {
	perm := rapid.Permutation(meshAxes).Draw(rt, "perm")
	out := make([]shardspec.Assignment, rank)
	for _, axis := range perm {
		slot := rapid.IntRange(-1, rank-1).Draw(rt, "slot")
		if slot >= 0 {
			out[slot] = append(out[slot], axis)
		}
	}
	return out
}

func drawTree(rt *rapid.T, rank int, depth int) any {
	kind := rapid.IntRange(0, 3).Draw(rt, "kind")
	if depth == 0 {
		kind = rapid.IntRange(0, 1).Draw(rt, "leafKind")
	}
	switch kind {
	case 0:
		shape := make([]int, rank)
		for i := range shape {
			shape[i] = 8 * rapid.IntRange(1, 3).Draw(rt, "dim")
		}
		return array.Ones(shape...)
	case 1:
		dims := rapid.SampledFrom([][]string{{"level", "lon"}, {"lat"}, {"layer", "lon", "lat"}}).Draw(rt, "dims")
		shape := make([]int, len(dims))
		for i := range shape {
			shape[i] = 8
		}
		return array.MustWrap(array.Ones(shape...), dims...)
	case 2:
		n := rapid.IntRange(0, 3).Draw(rt, "n")
		m := make(map[string]any, n)
		for i := 0; i < n; i++ {
			m[fmt.Sprintf("k%d", i)] = drawTree(rt, rank, depth-1)
		}
		return m
	default:
		n := rapid.IntRange(0, 3).Draw(rt, "n")
		s := make([]any, n)
		for i := range s {
			s[i] = drawTree(rt, rank, depth-1)
		}
		return s
	}
}

// TestProperty_ValidSpecsRegister checks that specs using each mesh axis at
// most once register, and that injecting a duplicate or unknown axis fails
// with the matching error.
func TestProperty_ValidSpecsRegister(t *testing.T) {
	m := mesh222(t)
	rapid.Check(t, func(rt *rapid.T) {
		rank := rapid.IntRange(1, 4).Draw(rt, "rank")
		spec := shardspec.PositionalSpec(drawAssignments(rt, rank))
		if _, err := shardspec.NewRegistry(m, map[string]ps{"p": spec}, nil); err != nil {
			rt.Fatalf("valid spec %s rejected: %v", spec, err)
		}

		i := rapid.IntRange(0, rank-1).Draw(rt, "mutate")
		bad := append(ps(nil), spec...)
		bad[i] = append(append(shardspec.Assignment(nil), bad[i]...), "unknown")
		if _, err := shardspec.NewRegistry(m, map[string]ps{"p": bad}, nil); !errors.Is(err, shardspec.ErrUnknownAxis) {
			rt.Fatalf("spec %s: expected ErrUnknownAxis, got %v", bad, err)
		}

		dup := append(ps(nil), spec...)
		dup = append(dup, axes(meshAxes...), ax(rapid.SampledFrom(meshAxes).Draw(rt, "dup")))
		if _, err := shardspec.NewRegistry(m, map[string]ps{"p": dup}, nil); !errors.Is(err, shardspec.ErrDuplicateAxis) {
			rt.Fatalf("spec %s: expected ErrDuplicateAxis, got %v", dup, err)
		}
	})
}

// drawLabeled draws a labeled spec whose tuples are each free of repeats.
// Different dims may share axes.
func drawLabeled(rt *rapid.T) shardspec.LabeledSpec {
	dims := rapid.SliceOfNDistinct(rapid.SampledFrom([]string{"level", "layer", "lon", "lat"}), 1, 4, rapid.ID[string]).Draw(rt, "dims")
	spec := make(shardspec.LabeledSpec, len(dims))
	for _, d := range dims {
		perm := rapid.Permutation(meshAxes).Draw(rt, "perm_"+d)
		n := rapid.IntRange(0, len(perm)).Draw(rt, "n_"+d)
		spec[d] = append(shardspec.Assignment(nil), perm[:n]...)
	}
	return spec
}

// TestProperty_LabeledSpecsRegister checks that labeled specs register
// whenever every tuple is free of repeats, and that repeating an axis inside
// one tuple fails with ErrDuplicateAxis at that dim.
func TestProperty_LabeledSpecsRegister(t *testing.T) {
	m := mesh222(t)
	rapid.Check(t, func(rt *rapid.T) {
		spec := drawLabeled(rt)
		if _, err := shardspec.NewRegistry(m, nil, map[string]ls{"p": spec}); err != nil {
			rt.Fatalf("valid spec %s rejected: %v", spec, err)
		}

		dims := spec.Dims()
		d := rapid.SampledFrom(dims).Draw(rt, "mutate")
		axis := rapid.SampledFrom(meshAxes).Draw(rt, "axis")
		bad := make(ls, len(spec))
		for k, v := range spec {
			bad[k] = append(shardspec.Assignment(nil), v...)
		}
		bad[d] = append(bad[d], axis, axis)
		_, err := shardspec.NewRegistry(m, nil, map[string]ls{"p": bad})
		if !errors.Is(err, shardspec.ErrDuplicateAxis) {
			rt.Fatalf("spec %s: expected ErrDuplicateAxis, got %v", bad, err)
		}
		iss, _ := shardspec.AsIssues(err)
		if len(iss) != 1 || iss[0].Path != "/field_partitions/p/"+d {
			rt.Fatalf("spec %s: expected one issue at dim %s, got %v", bad, d, iss)
		}
	})
}

// TestProperty_IdentityWithoutMesh checks that any tree comes back unchanged
// when no mesh is configured.
func TestProperty_IdentityWithoutMesh(t *testing.T) {
	m, _ := shardspec.NewMesh(nil)
	reg, err := shardspec.NewRegistry(m, nil, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	calls := 0
	ap := shardspec.NewApplier(reg, shardspec.ConstrainerFunc(func(ctx context.Context, a shardspec.Array, s shardspec.NamedSharding) (shardspec.Array, error) {
		calls++
		return a, nil
	}))
	rapid.Check(t, func(rt *rapid.T) {
		rank := rapid.IntRange(0, 3).Draw(rt, "rank")
		tree := drawTree(rt, rank, 3)
		out, err := ap.Apply(context.Background(), tree, "p")
		if err != nil {
			rt.Fatalf("err: %v", err)
		}
		if fmt.Sprintf("%p", out) != fmt.Sprintf("%p", tree) {
			rt.Fatalf("tree changed: %v -> %v", tree, out)
		}
		if calls != 0 {
			rt.Fatalf("primitive called %d times", calls)
		}
	})
}

// TestProperty_PositionalOrderPreserved checks that axis i of every plain
// leaf receives entry i of the spec.
func TestProperty_PositionalOrderPreserved(t *testing.T) {
	m := mesh222(t)
	rapid.Check(t, func(rt *rapid.T) {
		rank := rapid.IntRange(1, 4).Draw(rt, "rank")
		spec := shardspec.PositionalSpec(drawAssignments(rt, rank))
		reg, err := shardspec.NewRegistry(m, map[string]ps{"p": spec}, nil)
		if err != nil {
			rt.Fatalf("registry: %v", err)
		}
		ap := shardspec.NewApplier(reg, array.Constrainer{})
		n := rapid.IntRange(1, 4).Draw(rt, "leaves")
		tree := make([]any, n)
		for i := range tree {
			shape := make([]int, rank)
			for j := range shape {
				shape[j] = 8 * rapid.IntRange(1, 2).Draw(rt, "dim")
			}
			tree[i] = array.Ones(shape...)
		}
		first, err := ap.Plan(tree, "p")
		if err != nil {
			rt.Fatalf("plan: %v", err)
		}
		second, _ := ap.Plan(tree, "p")
		for i, lp := range first.Leaves {
			for j := range spec {
				if !lp.Sharding.Spec[j].Equal(spec[j]) {
					rt.Fatalf("leaf %s axis %d: got %s want %s", lp.Path, j, lp.Sharding.Spec[j], spec[j])
				}
				if !second.Leaves[i].Sharding.Spec[j].Equal(lp.Sharding.Spec[j]) {
					rt.Fatalf("plan is not deterministic for %s", lp.Path)
				}
			}
		}
	})
}
