package shardspec

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LeafPlan is the resolved constraint for one leaf.
type LeafPlan struct {
	Path     string // JSON Pointer of the leaf inside the tree.
	Kind     LeafKind
	Shape    []int
	Dims     []string // Labeled leaves only.
	Sharding NamedSharding
}

// Plan is the outcome of the validation pass of Apply.
type Plan struct {
	Partition string
	// Identity is set when the mesh is unconfigured; Apply then returns the
	// tree unchanged.
	Identity bool
	// Leaves are in walk order: map keys sorted, slices by index.
	Leaves []LeafPlan
}

// Applier applies named partitions to trees of plain and labeled arrays.
// It holds no mutable state and may be shared across goroutines.
type Applier struct {
	reg     *Registry
	c       Constrainer
	log     *zap.Logger
	metrics *Metrics
}

// NewApplier binds a registry to the runtime primitive.
func NewApplier(reg *Registry, c Constrainer, opts ...ApplierOpt) *Applier {
	var opt ApplierOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	return &Applier{reg: reg, c: c, log: opt.Logger, metrics: opt.Metrics}
}

// Registry returns the registry the applier resolves partitions from.
func (a *Applier) Registry() *Registry { return a.reg }

// Plan validates tree against the named partition and resolves the sharding
// of every leaf without calling the primitive.
//
// All plain leaves must share one rank, also on an unconfigured mesh. With a
// configured mesh the partition must exist in each namespace the tree's leaf
// kinds need, and a positional spec must match the plain leaves' rank.
func (a *Applier) Plan(tree any, partition string) (*Plan, error) {
	leaves, iss := collectLeaves(tree)
	if len(iss) > 0 {
		return nil, iss
	}

	var firstPlain, firstLabeled *leaf
	for i := range leaves {
		switch {
		case leaves[i].kind == LeafPlain && firstPlain == nil:
			firstPlain = &leaves[i]
		case leaves[i].kind == LeafLabeled && firstLabeled == nil:
			firstLabeled = &leaves[i]
		}
	}
	ranks := plainRanks(leaves)
	if len(ranks) > 1 {
		return nil, AppendIssues(nil, Root().Issue(CodeRankMismatch,
			fmt.Sprintf("all arrays in the tree must have the same rank, got ranks %v", ranks),
			"ranks", ranks))
	}

	plan := &Plan{Partition: partition}
	mesh := a.reg.Mesh()
	if !mesh.Configured() {
		plan.Identity = true
		return plan, nil
	}

	var positional PositionalSpec
	if firstPlain != nil {
		p := firstPlain.ref
		spec, ok := a.reg.arrays[partition]
		switch {
		case !ok:
			iss = AppendIssues(iss, p.Issue(CodeUnknownPartition,
				fmt.Sprintf("no array partition named %q (have %v)", partition, a.reg.ArrayPartitionNames()),
				"partition", partition))
		case spec.Rank() != ranks[0]:
			iss = AppendIssues(iss, p.Issue(CodeRankMismatch,
				fmt.Sprintf("array partition %q has rank %d, arrays in the tree have rank %d", partition, spec.Rank(), ranks[0]),
				"partition", partition, "spec_rank", spec.Rank(), "rank", ranks[0]))
		default:
			positional = spec
		}
	}
	var labeled LabeledSpec
	if firstLabeled != nil {
		spec, ok := a.reg.fields[partition]
		if !ok {
			iss = AppendIssues(iss, firstLabeled.ref.Issue(CodeUnknownPartition,
				fmt.Sprintf("no field partition named %q (have %v)", partition, a.reg.FieldPartitionNames()),
				"partition", partition))
		}
		labeled = spec
	}

	for _, l := range leaves {
		lp := LeafPlan{Path: l.path, Kind: l.kind, Shape: l.shape, Dims: l.dims}
		switch l.kind {
		case LeafPlain:
			if positional == nil {
				continue
			}
			lp.Sharding = NamedSharding{Mesh: mesh, Spec: positional.clone()}
		case LeafLabeled:
			if len(l.dims) != len(l.shape) {
				iss = AppendIssues(iss, l.ref.Issue(CodeRankMismatch,
					fmt.Sprintf("field has %d dims %v for data of rank %d", len(l.dims), l.dims, len(l.shape)),
					"dims", l.dims, "rank", len(l.shape)))
				continue
			}
			if labeled == nil {
				continue
			}
			lp.Sharding = NamedSharding{Mesh: mesh, Spec: labeled.Resolve(l.dims)}
		}
		plan.Leaves = append(plan.Leaves, lp)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return plan, nil
}

// Apply constrains every leaf of tree with the named partition and returns
// a tree of the same shape. Validation of the whole tree completes before
// the primitive is called for any leaf; the input tree is never mutated.
func (a *Applier) Apply(ctx context.Context, tree any, partition string) (any, error) {
	start := time.Now()
	defer func() { a.metrics.observeDuration(partition, time.Since(start).Seconds()) }()

	plan, err := a.Plan(tree, partition)
	if err != nil {
		iss := toIssues("/", err)
		a.metrics.observeFailure(partition, iss)
		a.log.Debug("partition rejected", zap.String("partition", partition), zap.Error(iss))
		return nil, iss
	}
	if plan.Identity {
		a.log.Debug("mesh not configured, leaving tree unchanged", zap.String("partition", partition))
		return tree, nil
	}
	a.log.Debug("applying partition",
		zap.String("partition", partition),
		zap.Int("leaves", len(plan.Leaves)),
		zap.Stringer("mesh", a.reg.Mesh()))

	w := &walker{a: a, ctx: ctx, plans: plan.Leaves, partition: partition}
	out, err := w.rebuild(tree)
	if err != nil {
		iss := toIssues("/", err)
		a.metrics.observeFailure(partition, iss)
		return nil, iss
	}
	return out, nil
}

// walker rebuilds a validated tree, pairing the n-th leaf it meets with
// plans[n]. It visits containers in the same order as collectLeaves.
type walker struct {
	a         *Applier
	ctx       context.Context
	plans     []LeafPlan
	next      int
	partition string
}

func (w *walker) rebuild(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for _, k := range sortedKeys(t) {
			c, err := w.rebuild(t[k])
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			c, err := w.rebuild(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case Field:
		res, err := w.constrain(t.Data())
		if err != nil {
			return nil, err
		}
		return t.WithData(res), nil
	case Array:
		return w.constrain(t)
	default:
		// collectLeaves rejects everything else before we get here.
		return v, nil
	}
}

func (w *walker) constrain(arr Array) (Array, error) {
	if w.next >= len(w.plans) {
		return nil, fmt.Errorf("tree changed during apply: more than %d leaves", len(w.plans))
	}
	lp := &w.plans[w.next]
	w.next++
	if err := w.ctx.Err(); err != nil {
		return nil, err
	}
	res, err := w.a.c.Constrain(w.ctx, arr, lp.Sharding)
	if err != nil {
		return nil, AppendIssues(nil, Issue{
			Path:    lp.Path,
			Code:    CodeConstraintFailed,
			Message: err.Error(),
			Cause:   err,
			Params:  map[string]any{"partition": w.partition, "sharding": lp.Sharding.String()},
		})
	}
	w.a.metrics.observeLeaf(w.partition, lp.Kind)
	w.a.log.Debug("constrained leaf",
		zap.String("path", lp.Path),
		zap.Stringer("kind", lp.Kind),
		zap.Stringer("sharding", lp.Sharding))
	return res, nil
}
