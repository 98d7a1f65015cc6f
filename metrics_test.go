package shardspec_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/reoring/shardspec"
	"github.com/reoring/shardspec/array"
)

func TestApplier_MetricsAndLogs(t *testing.T) {
	reg, err := shardspec.NewRegistry(mesh222(t),
		map[string]ps{"vertical": {axes("z", "x", "y"), none}},
		map[string]ls{"vertical": {"level": ax("z")}},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	promReg := prometheus.NewRegistry()
	metrics, err := shardspec.NewMetrics(promReg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	core, logs := observer.New(zapcore.DebugLevel)
	ap := shardspec.NewApplier(reg, array.Constrainer{}, shardspec.ApplierOpt{Logger: zap.New(core), Metrics: metrics})

	tree := map[string]any{
		"a": array.Ones(16, 7),
		"b": array.MustWrap(array.Ones(16, 7), "level", "y"),
	}
	if _, err := ap.Apply(context.Background(), tree, "vertical"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := ap.Apply(context.Background(), tree, "missing"); err == nil {
		t.Fatalf("expected unknown partition")
	}

	if _, err := shardspec.NewMetrics(promReg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	count, err := testutil.GatherAndCount(promReg, "shardspec_constrained_leaves_total")
	if err != nil || count != 2 {
		t.Fatalf("expected 2 leaf series, got %d (%v)", count, err)
	}
	count, err = testutil.GatherAndCount(promReg, "shardspec_apply_failures_total")
	if err != nil || count != 1 {
		t.Fatalf("expected 1 failure series, got %d (%v)", count, err)
	}
	if n := logs.FilterMessage("constrained leaf").Len(); n != 2 {
		t.Fatalf("expected 2 leaf log entries, got %d", n)
	}
	if n := logs.FilterMessage("partition rejected").Len(); n != 1 {
		t.Fatalf("expected 1 rejection log entry, got %d", n)
	}
}
