package array

import (
	"fmt"
	"strings"

	"github.com/reoring/shardspec"
)

// Field labels each axis of an array with a dimension name.
type Field struct {
	data shardspec.Array
	dims []string
}

// Wrap labels data with dims, one per axis.
func Wrap(data shardspec.Array, dims ...string) (*Field, error) {
	if len(dims) != len(data.Shape()) {
		return nil, fmt.Errorf("array: %d dims %v for data of shape %v", len(dims), dims, data.Shape())
	}
	seen := map[string]bool{}
	for _, d := range dims {
		if seen[d] {
			return nil, fmt.Errorf("array: dimension %q repeated in %v", d, dims)
		}
		seen[d] = true
	}
	return &Field{data: data, dims: append([]string(nil), dims...)}, nil
}

// MustWrap is Wrap that panics on error; for tests and fixtures.
func MustWrap(data shardspec.Array, dims ...string) *Field {
	f, err := Wrap(data, dims...)
	if err != nil {
		panic(err)
	}
	return f
}

// Dims returns the dimension names in axis order.
func (f *Field) Dims() []string { return append([]string(nil), f.dims...) }

// Data returns the underlying array.
func (f *Field) Data() shardspec.Array { return f.data }

// WithData returns a Field with the same dims over data.
func (f *Field) WithData(data shardspec.Array) shardspec.Field {
	return &Field{data: data, dims: f.dims}
}

// Dense returns the data as *Dense when it is one.
func (f *Field) Dense() (*Dense, bool) {
	d, ok := f.data.(*Dense)
	return d, ok
}

func (f *Field) String() string {
	return fmt.Sprintf("Field(%s: %v)", strings.Join(f.dims, ", "), f.data.Shape())
}
