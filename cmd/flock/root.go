package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"flockcore/internal/config"
	"flockcore/internal/core"
	"flockcore/internal/infra/cache"
	"flockcore/internal/infra/docstore"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	trace      bool
	cfg        *config.Config
	log        *zap.Logger
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "flock",
		Short:         "Poultry breeding, lineage and marketplace tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Logging, a.stderr)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "flockcore.yaml", "path to the YAML config file")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "write repository trace spans to stderr as JSON")

	root.AddCommand(
		newServeCmd(a),
		newFowlCmd(a),
		newTreeCmd(a),
		newRecommendCmd(a),
		newAnalyticsCmd(a),
		newSyncCmd(a),
		newConfigCmd(a),
	)
	return root
}

func newLogger(cfg config.LoggingConfig, sink io.Writer) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encoder := zapcore.NewJSONEncoder(encCfg)
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}
	zc := zapcore.NewCore(encoder, zapcore.AddSync(sink), level)
	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(zc, opts...).Named("flock"), nil
}

// openRepository opens the configured stores and returns the repository with
// a cleanup that closes both.
func (a *app) openRepository(ctx context.Context, extra ...core.Option) (*core.FowlRepository, func(), error) {
	remote, closeRemote, err := docstore.Open(ctx, a.cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	local, err := cache.Open(ctx, a.cfg.Storage, a.log)
	if err != nil {
		_ = closeRemote()
		return nil, nil, err
	}
	opts := []core.Option{core.WithLogger(a.log)}
	if a.trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(a.stderr)))
	}
	repo := core.NewFowlRepository(remote, local, append(opts, extra...)...)
	cleanup := func() {
		if err := errors.Join(local.Close(), closeRemote()); err != nil {
			a.log.Warn("close stores", zap.Error(err))
		}
	}
	return repo, cleanup, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
