package main

import (
	"fmt"
	"io"

	j "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reoring/shardspec"
)

type validateReport struct {
	Mesh            []shardspec.AxisSize `json:"mesh"`
	Devices         int                  `json:"devices"`
	ArrayPartitions map[string]string    `json:"array_partitions"`
	FieldPartitions map[string]string    `json:"field_partitions"`
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [layout]",
		Short: "Check a layout against its mesh and list its partitions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.openRegistry(args)
			if err != nil {
				return err
			}
			rep := validateReport{
				Mesh:            reg.Mesh().Shape(),
				Devices:         reg.Mesh().DeviceCount(),
				ArrayPartitions: map[string]string{},
				FieldPartitions: map[string]string{},
			}
			for _, name := range reg.ArrayPartitionNames() {
				s, _ := reg.Positional(name)
				rep.ArrayPartitions[name] = s.String()
			}
			for _, name := range reg.FieldPartitionNames() {
				s, _ := reg.Labeled(name)
				rep.FieldPartitions[name] = s.String()
			}
			if a.jsonOutput() {
				enc := j.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			writeValidateText(cmd.OutOrStdout(), reg, rep)
			return nil
		},
	}
}

func writeValidateText(w io.Writer, reg *shardspec.Registry, rep validateReport) {
	fmt.Fprintf(w, "%s, %d devices\n", reg.Mesh(), rep.Devices)
	for _, name := range reg.ArrayPartitionNames() {
		fmt.Fprintf(w, "array %-16s %s\n", name, rep.ArrayPartitions[name])
	}
	for _, name := range reg.FieldPartitionNames() {
		fmt.Fprintf(w, "field %-16s %s\n", name, rep.FieldPartitions[name])
	}
	fmt.Fprintln(w, "ok")
}
