package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/reoring/shardspec"
	"github.com/reoring/shardspec/layout"
)

// app carries per-invocation settings resolved from flags and SHARDSPEC_* env.
type app struct {
	v   *viper.Viper
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	cmd := &cobra.Command{
		Use:           "shardspec",
		Short:         "Validate device-mesh partition layouts and preview shardings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(a.v.GetString("log-level"))
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	cmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringP("layout", "l", "", "layout file (.yaml, .json or .toml)")
	cmd.PersistentFlags().StringP("output", "o", "text", "output format (text or json)")
	_ = a.v.BindPFlags(cmd.PersistentFlags())
	a.v.SetEnvPrefix("shardspec")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	cmd.AddCommand(newValidateCmd(a), newPlanCmd(a))
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// layoutPath takes the positional argument when given, else --layout.
func (a *app) layoutPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if p := a.v.GetString("layout"); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("no layout file given (pass it as an argument, --layout or SHARDSPEC_LAYOUT)")
}

func (a *app) openRegistry(args []string) (*shardspec.Registry, error) {
	path, err := a.layoutPath(args)
	if err != nil {
		return nil, err
	}
	a.log.Debug("loading layout", zap.String("path", path))
	reg, err := layout.Open(path)
	if err != nil {
		return nil, err
	}
	a.log.Info("layout loaded",
		zap.String("path", path),
		zap.Stringer("mesh", reg.Mesh()),
		zap.Int("array_partitions", len(reg.ArrayPartitionNames())),
		zap.Int("field_partitions", len(reg.FieldPartitionNames())))
	return reg, nil
}

func (a *app) jsonOutput() bool { return a.v.GetString("output") == "json" }
