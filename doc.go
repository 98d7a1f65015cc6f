package shardspec

// Package shardspec derives and validates how arrays are laid out over a
// named device mesh:
//
// - Mesh: the named device grid (axis names and sizes), possibly unconfigured
// - Registry: named partition specs for plain arrays (by axis position) and
//   labeled arrays (by dimension name), validated once against the Mesh
// - Applier: walks nested map[string]any / []any trees, resolves the sharding
//   of every leaf and hands it to a runtime Constrainer
// - A stable error model via Issues (JSON Pointer, code, message) with
//   sentinel causes for errors.Is
//
// Design policy:
// - Validation is eager: configuration mistakes fail NewMesh/NewRegistry, and
//   Apply validates the whole tree before any leaf is constrained.
// - Mesh, Registry and Applier are immutable and safe to share.
// - File loading lives under layout/, the reference runtime under array/ and
//   the CLI under cmd/shardspec.
//
// Typical usage:
//
//  mesh, err := shardspec.NewMesh(&shardspec.MeshConfig{AxisNames: []string{"z", "x"}, Shape: []int{2, 4}})
//  reg, err := shardspec.NewRegistry(mesh, map[string]shardspec.PositionalSpec{
//      "vertical": {shardspec.Axes("z", "x"), nil},
//  }, nil)
//  out, err := shardspec.NewApplier(reg, runtime).Apply(ctx, tree, "vertical")
//
