package shardspec_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/shardspec"
)

type (
	ps = shardspec.PositionalSpec
	ls = shardspec.LabeledSpec
)

var (
	none = shardspec.Unassigned()
	ax   = shardspec.Axis
	axes = shardspec.Axes
)

func TestNewRegistry_Valid(t *testing.T) {
	m := mesh222(t)
	arrays := map[string]ps{
		"vertical":   {axes("z", "x", "y"), none, none},
		"horizontal": {none, axes("z", "x"), ax("y")},
	}
	fields := map[string]ls{
		"vertical":   {"level": axes("z", "x", "y"), "layer": ax("z")},
		"horizontal": {"lon": axes("z", "x"), "lat": ax("y")},
	}
	reg, err := shardspec.NewRegistry(m, arrays, fields)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if diff := cmp.Diff([]string{"horizontal", "vertical"}, reg.ArrayPartitionNames()); diff != "" {
		t.Fatalf("array names (-want +got):\n%s", diff)
	}
	got, ok := reg.Labeled("vertical")
	if !ok {
		t.Fatalf("expected field partition vertical")
	}
	if diff := cmp.Diff(fields["vertical"], got); diff != "" {
		t.Fatalf("labeled (-want +got):\n%s", diff)
	}
	if _, ok := reg.Positional("missing"); ok {
		t.Fatalf("unexpected partition")
	}
}

func TestNewRegistry_SpecsAreCopied(t *testing.T) {
	m := mesh222(t)
	arrays := map[string]ps{"vertical": {axes("z", "x", "y"), none, none}}
	reg, err := shardspec.NewRegistry(m, arrays, nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	arrays["vertical"][0][0] = "B"
	arrays["other"] = ps{ax("z")}
	got, _ := reg.Positional("vertical")
	if got[0][0] != "z" {
		t.Fatalf("registry shares storage with caller: %v", got)
	}
	got[1] = ax("x")
	again, _ := reg.Positional("vertical")
	if !again[1].IsUnassigned() {
		t.Fatalf("registry shares storage with readers: %v", again)
	}
	if len(reg.ArrayPartitionNames()) != 1 {
		t.Fatalf("registry picked up a late partition")
	}
}

func TestNewRegistry_UnknownAxis(t *testing.T) {
	m := mesh222(t)
	cases := map[string]struct {
		arrays map[string]ps
		fields map[string]ls
		path   string
	}{
		"array": {arrays: map[string]ps{"unknownB": {axes("B", "x", "y"), none, ax("z")}}, path: "/array_partitions/unknownB/0"},
		"field": {fields: map[string]ls{"unknownB": {"level": axes("B", "x", "y")}}, path: "/field_partitions/unknownB/level"},
	}
	for name, c := range cases {
		_, err := shardspec.NewRegistry(m, c.arrays, c.fields)
		if !errors.Is(err, shardspec.ErrUnknownAxis) {
			t.Fatalf("%s: expected ErrUnknownAxis, got %v", name, err)
		}
		iss, _ := shardspec.AsIssues(err)
		if len(iss) != 1 || iss[0].Path != c.path {
			t.Fatalf("%s: expected one issue at %s, got %v", name, c.path, iss)
		}
		if iss[0].Params["axis"] != "B" || iss[0].Params["partition"] != "unknownB" {
			t.Fatalf("%s: issue must name spec and axis, got %v", name, iss[0].Params)
		}
	}
}

func TestNewRegistry_DuplicateAxis(t *testing.T) {
	m := mesh222(t)
	cases := map[string]struct {
		arrays map[string]ps
		fields map[string]ls
	}{
		"array_within_tuple": {arrays: map[string]ps{"p": {axes("x", "x", "y"), none, ax("z")}}},
		"array_across_axes":  {arrays: map[string]ps{"p": {ax("x"), axes("z", "x")}}},
		"field_within_tuple": {fields: map[string]ls{"p": {"level": axes("z", "z", "x")}}},
	}
	for name, c := range cases {
		_, err := shardspec.NewRegistry(m, c.arrays, c.fields)
		if !errors.Is(err, shardspec.ErrDuplicateAxis) {
			t.Fatalf("%s: expected ErrDuplicateAxis, got %v", name, err)
		}
		if errors.Is(err, shardspec.ErrUnknownAxis) {
			t.Fatalf("%s: unexpected unknown axis: %v", name, err)
		}
	}
}

func TestNewRegistry_LabeledSpecMayReuseAxisAcrossDims(t *testing.T) {
	m := mesh222(t)
	fields := map[string]ls{
		"vertical": {"level": axes("z", "x", "y"), "layer": ax("z")},
		"both":     {"a": ax("x"), "b": ax("x"), "c": axes("y", "x")},
	}
	reg, err := shardspec.NewRegistry(m, nil, fields)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if diff := cmp.Diff([]string{"both", "vertical"}, reg.FieldPartitionNames()); diff != "" {
		t.Fatalf("field names (-want +got):\n%s", diff)
	}

	_, err = shardspec.NewRegistry(m, nil, map[string]ls{"p": {"layer": ax("z"), "level": axes("x", "z", "x")}})
	iss, ok := shardspec.AsIssues(err)
	if !ok || len(iss) != 1 || iss[0].Code != shardspec.CodeDuplicateAxis {
		t.Fatalf("expected one duplicate_axis issue, got %v", err)
	}
	if iss[0].Path != "/field_partitions/p/level" || iss[0].Params["axis"] != "x" {
		t.Fatalf("duplicate must point at the repeating tuple, got %+v", iss[0])
	}
}

func TestNewRegistry_CollectVsFailFast(t *testing.T) {
	m := mesh222(t)
	arrays := map[string]ps{
		"a": {axes("B", "x")},
		"b": {axes("y", "y")},
	}
	_, err := shardspec.NewRegistry(m, arrays, nil)
	iss, ok := shardspec.AsIssues(err)
	if !ok || len(iss) != 2 {
		t.Fatalf("expected two issues in collect mode, got %v", err)
	}
	if iss[0].Code != shardspec.CodeUnknownAxis || iss[1].Code != shardspec.CodeDuplicateAxis {
		t.Fatalf("expected issues in partition order, got %v", iss)
	}

	_, err = shardspec.NewRegistry(m, arrays, nil, shardspec.RegistryOpt{FailFast: true})
	iss, ok = shardspec.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("expected a single fail-fast issue, got %v", err)
	}
}

func TestNewRegistry_UnconfiguredMeshSkipsUnknownAxis(t *testing.T) {
	m, _ := shardspec.NewMesh(nil)
	if _, err := shardspec.NewRegistry(m, map[string]ps{"vertical": {axes("z", "x", "y"), none}}, nil); err != nil {
		t.Fatalf("unexpected error on unconfigured mesh: %v", err)
	}
	if _, err := shardspec.NewRegistry(nil, nil, map[string]ls{"p": {"a": axes("z", "z")}}); !errors.Is(err, shardspec.ErrDuplicateAxis) {
		t.Fatalf("duplicates must still be rejected, got %v", err)
	}
}

func TestNewRegistry_EmptyAxisName(t *testing.T) {
	m := mesh222(t)
	_, err := shardspec.NewRegistry(m, map[string]ps{"p": {shardspec.Assignment{""}}}, nil)
	if !errors.Is(err, shardspec.ErrInvalidAssignment) {
		t.Fatalf("expected ErrInvalidAssignment, got %v", err)
	}
}
