package shardspec

import (
	"fmt"
	"sort"
)

// Registry holds the named partition specs for plain arrays and labeled
// arrays. The two namespaces are independent: the same name may appear in
// both and is resolved by leaf kind at apply time. A Registry is immutable
// and safe for concurrent use.
type Registry struct {
	mesh   *Mesh
	arrays map[string]PositionalSpec
	fields map[string]LabeledSpec
}

// NewRegistry validates every spec against mesh and returns the registry.
//
// A spec is rejected when it references an axis the mesh does not declare
// (CodeUnknownAxis) or books one mesh axis twice (CodeDuplicateAxis). A
// positional spec may use each axis once across all of its entries. A
// labeled spec only has to keep each tuple free of repeats: a leaf resolves
// just the dims it carries, so {level: (z, x), layer: z} is valid. On an
// unconfigured mesh the unknown-axis check is skipped so single-host runs
// can reuse a layout.
func NewRegistry(mesh *Mesh, arrayPartitions map[string]PositionalSpec, fieldPartitions map[string]LabeledSpec, opts ...RegistryOpt) (*Registry, error) {
	var opt RegistryOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if mesh == nil {
		mesh = &Mesh{index: map[string]int{}}
	}
	r := &Registry{
		mesh:   mesh,
		arrays: make(map[string]PositionalSpec, len(arrayPartitions)),
		fields: make(map[string]LabeledSpec, len(fieldPartitions)),
	}

	var iss Issues
	for _, name := range sortedKeys(arrayPartitions) {
		spec := arrayPartitions[name]
		p := Root().Field("array_partitions").Field(name)
		entries := make([]specEntry, len(spec))
		for i, a := range spec {
			entries[i] = specEntry{path: p.Index(i), a: a}
		}
		iss = AppendIssues(iss, checkEntries(mesh, name, entries, false)...)
		if opt.FailFast && len(iss) > 0 {
			return nil, iss[:1]
		}
		r.arrays[name] = spec.clone()
	}
	for _, name := range sortedKeys(fieldPartitions) {
		spec := fieldPartitions[name]
		p := Root().Field("field_partitions").Field(name)
		dims := spec.Dims()
		entries := make([]specEntry, len(dims))
		for i, d := range dims {
			entries[i] = specEntry{path: p.Field(d), a: spec[d]}
		}
		iss = AppendIssues(iss, checkEntries(mesh, name, entries, true)...)
		if opt.FailFast && len(iss) > 0 {
			return nil, iss[:1]
		}
		r.fields[name] = spec.clone()
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return r, nil
}

type specEntry struct {
	path PathRef
	a    Assignment
}

// checkEntries reports unknown and double-booked axes of one spec. With
// perEntry set, duplicates are only looked for inside each tuple.
func checkEntries(mesh *Mesh, partition string, entries []specEntry, perEntry bool) Issues {
	var iss Issues
	seen := map[string]bool{}
	reported := map[string]bool{}
	for _, e := range entries {
		if perEntry {
			seen = map[string]bool{}
			reported = map[string]bool{}
		}
		for _, axis := range e.a {
			if axis == "" {
				iss = AppendIssues(iss, e.path.Issue(CodeInvalidAssignment,
					fmt.Sprintf("partition %q has an empty mesh axis name", partition), "partition", partition))
				continue
			}
			if mesh.Configured() && !mesh.Contains(axis) {
				iss = AppendIssues(iss, e.path.Issue(CodeUnknownAxis,
					fmt.Sprintf("partition %q uses axes not in mesh %v: %s", partition, mesh.AxisNames(), axis),
					"partition", partition, "axis", axis))
			}
			if seen[axis] && !reported[axis] {
				reported[axis] = true
				iss = AppendIssues(iss, e.path.Issue(CodeDuplicateAxis,
					fmt.Sprintf("encountered duplicate mesh axis %q in partition %q", axis, partition),
					"partition", partition, "axis", axis))
			}
			seen[axis] = true
		}
	}
	return iss
}

// Mesh returns the mesh the registry was validated against.
func (r *Registry) Mesh() *Mesh { return r.mesh }

// Positional returns a copy of the named plain-array spec.
func (r *Registry) Positional(name string) (PositionalSpec, bool) {
	s, ok := r.arrays[name]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// Labeled returns a copy of the named labeled-array spec.
func (r *Registry) Labeled(name string) (LabeledSpec, bool) {
	s, ok := r.fields[name]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// ArrayPartitionNames lists the plain-array partition names, sorted.
func (r *Registry) ArrayPartitionNames() []string { return sortedKeys(r.arrays) }

// FieldPartitionNames lists the labeled-array partition names, sorted.
func (r *Registry) FieldPartitionNames() []string { return sortedKeys(r.fields) }

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
