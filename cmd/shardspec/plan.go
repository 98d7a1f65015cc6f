package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reoring/shardspec"
	"github.com/reoring/shardspec/array"
)

type planReport struct {
	Partition  string   `json:"partition"`
	Shape      []int    `json:"shape"`
	Dims       []string `json:"dims,omitempty"`
	Spec       []string `json:"spec"`
	ShardShape []int    `json:"shard_shape"`
	Shards     int      `json:"shards"`
}

func newPlanCmd(a *app) *cobra.Command {
	var (
		partition string
		shapeCSV  string
		dimsCSV   string
	)
	cmd := &cobra.Command{
		Use:   "plan [layout]",
		Short: "Show how one array or field would be sharded by a partition",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shape, err := parseShape(shapeCSV)
			if err != nil {
				return err
			}
			reg, err := a.openRegistry(args)
			if err != nil {
				return err
			}
			var leaf any = array.New(shape...)
			var dims []string
			if dimsCSV != "" {
				dims = splitCSV(dimsCSV)
				if leaf, err = array.Wrap(array.New(shape...), dims...); err != nil {
					return err
				}
			}

			ap := shardspec.NewApplier(reg, array.Constrainer{}, shardspec.ApplierOpt{Logger: a.log})
			plan, err := ap.Plan(leaf, partition)
			if err != nil {
				return err
			}
			// Run the reference runtime too so divisibility problems surface.
			if _, err := ap.Apply(context.Background(), leaf, partition); err != nil {
				return err
			}

			rep := planReport{Partition: partition, Shape: shape, Dims: dims, ShardShape: shape, Shards: 1}
			if plan.Identity {
				rep.Spec = make([]string, len(shape))
				for i := range rep.Spec {
					rep.Spec[i] = shardspec.Unassigned().String()
				}
			} else {
				lp := plan.Leaves[0]
				for _, as := range lp.Sharding.Spec {
					rep.Spec = append(rep.Spec, as.String())
				}
				if rep.ShardShape, err = lp.Sharding.ShardShape(shape); err != nil {
					return err
				}
				rep.Shards = lp.Sharding.NumShards()
			}
			if a.jsonOutput() {
				enc := j.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			w := cmd.OutOrStdout()
			if plan.Identity {
				fmt.Fprintln(w, "mesh not configured: replicated")
			}
			for i, n := range shape {
				label := strconv.Itoa(i)
				if i < len(dims) {
					label = dims[i]
				}
				fmt.Fprintf(w, "%-8s %6d -> %-6d %s\n", label, n, rep.ShardShape[i], rep.Spec[i])
			}
			fmt.Fprintf(w, "shards: %d\n", rep.Shards)
			return nil
		},
	}
	cmd.Flags().StringVarP(&partition, "partition", "p", "", "partition name")
	cmd.Flags().StringVar(&shapeCSV, "shape", "", "comma-separated array shape, e.g. 16,8,14")
	cmd.Flags().StringVar(&dimsCSV, "dims", "", "comma-separated dimension names; plans a labeled field")
	_ = cmd.MarkFlagRequired("partition")
	_ = cmd.MarkFlagRequired("shape")
	return cmd
}

func parseShape(s string) ([]int, error) {
	parts := splitCSV(s)
	shape := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid --shape %q: %q is not a dimension size", s, p)
		}
		shape[i] = n
	}
	return shape, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
