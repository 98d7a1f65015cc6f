// Package array is an in-process reference runtime for shardspec: a dense
// host array, a labeled field wrapper and a Constrainer that records the
// sharding it was given after checking it is realizable.
package array

import (
	"context"
	"fmt"

	"github.com/reoring/shardspec"
)

// Dense is a row-major float64 array. A constrained Dense carries the
// sharding it was laid out with.
type Dense struct {
	shape    []int
	data     []float64
	sharding *shardspec.NamedSharding
}

// New returns a zero-filled array of the given shape.
func New(shape ...int) *Dense {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Dense{shape: append([]int(nil), shape...), data: make([]float64, n)}
}

// Ones returns an array of the given shape filled with 1.
func Ones(shape ...int) *Dense {
	a := New(shape...)
	for i := range a.data {
		a.data[i] = 1
	}
	return a
}

// Arange returns a rank-1 array holding 0..n-1.
func Arange(n int) *Dense {
	a := New(n)
	for i := range a.data {
		a.data[i] = float64(i)
	}
	return a
}

// Shape returns the array shape.
func (a *Dense) Shape() []int { return append([]int(nil), a.shape...) }

// Rank is the number of axes.
func (a *Dense) Rank() int { return len(a.shape) }

// Data returns the backing values.
func (a *Dense) Data() []float64 { return a.data }

// Sharding returns the layout recorded by Constrainer, if any.
func (a *Dense) Sharding() (shardspec.NamedSharding, bool) {
	if a.sharding == nil {
		return shardspec.NamedSharding{}, false
	}
	return *a.sharding, true
}

// ShardShape is the per-device block shape under the recorded sharding, or
// the full shape when the array was never constrained.
func (a *Dense) ShardShape() ([]int, error) {
	if a.sharding == nil {
		return a.Shape(), nil
	}
	return a.sharding.ShardShape(a.shape)
}

// Constrainer lays Dense arrays out according to a NamedSharding. Other
// Array implementations are rejected.
type Constrainer struct{}

// Constrain implements shardspec.Constrainer. It returns a new Dense sharing
// the input's values and carrying s.
func (Constrainer) Constrain(ctx context.Context, a shardspec.Array, s shardspec.NamedSharding) (shardspec.Array, error) {
	d, ok := a.(*Dense)
	if !ok {
		return nil, fmt.Errorf("array: cannot constrain %T", a)
	}
	if _, err := s.ShardShape(d.shape); err != nil {
		return nil, err
	}
	sharding := shardspec.NamedSharding{Mesh: s.Mesh, Spec: append([]shardspec.Assignment(nil), s.Spec...)}
	return &Dense{shape: d.shape, data: d.data, sharding: &sharding}, nil
}
