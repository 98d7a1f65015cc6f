package shardspec

import (
	"context"
	"fmt"
	"strings"
)

// Array is a plain multi-dimensional array, addressed by axis position.
type Array interface {
	Shape() []int
}

// Field is a labeled array: an Array plus one dimension name per axis.
type Field interface {
	Dims() []string
	Data() Array
	// WithData rewraps a constrained array under the same dimension names.
	WithData(Array) Field
}

// NamedSharding is the resolved per-axis mesh assignment handed to the
// runtime for one leaf.
type NamedSharding struct {
	Mesh *Mesh
	Spec []Assignment
}

// NumShards is the number of distinct pieces the array is split into.
func (s NamedSharding) NumShards() int {
	n := 1
	for _, a := range s.Spec {
		for _, axis := range a {
			n *= s.Mesh.SizeOf(axis)
		}
	}
	return n
}

// IsReplicated reports whether no axis is split.
func (s NamedSharding) IsReplicated() bool {
	for _, a := range s.Spec {
		if !a.IsUnassigned() {
			return false
		}
	}
	return true
}

// ShardShape returns the per-device block shape for an array of the given
// shape. Each dimension is divided by the product of its assigned mesh axis
// sizes and must divide evenly.
func (s NamedSharding) ShardShape(shape []int) ([]int, error) {
	if len(shape) != len(s.Spec) {
		return nil, fmt.Errorf("%w: sharding %s has rank %d, array shape %v has rank %d",
			ErrRankMismatch, s, len(s.Spec), shape, len(shape))
	}
	out := make([]int, len(shape))
	for i, dim := range shape {
		split := 1
		for _, axis := range s.Spec[i] {
			split *= s.Mesh.SizeOf(axis)
		}
		if split == 0 || dim%split != 0 {
			return nil, fmt.Errorf("shardspec: dimension %d of size %d is not divisible by %d (%s)", i, dim, split, s.Spec[i])
		}
		out[i] = dim / split
	}
	return out, nil
}

func (s NamedSharding) String() string {
	parts := make([]string, len(s.Spec))
	for i, a := range s.Spec {
		parts[i] = a.String()
	}
	return "PartitionSpec(" + strings.Join(parts, ", ") + ")"
}

// Constrainer is the runtime primitive that enforces a sharding on an array.
type Constrainer interface {
	Constrain(ctx context.Context, a Array, s NamedSharding) (Array, error)
}

// ConstrainerFunc adapts a function to Constrainer.
type ConstrainerFunc func(ctx context.Context, a Array, s NamedSharding) (Array, error)

// Constrain calls f.
func (f ConstrainerFunc) Constrain(ctx context.Context, a Array, s NamedSharding) (Array, error) {
	return f(ctx, a, s)
}
