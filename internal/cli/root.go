// Package cli is the reviewrag command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"reviewrag/internal/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.AppConfig
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "reviewrag",
		Short:         "Answer product questions from customer reviews",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (default ./config.yaml, then ~/.config/reviewrag/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newChunkCmd(opts),
		newEmbedCmd(opts),
		newIndexCmd(opts),
		newBuildCmd(opts),
		newAskCmd(opts),
		newTUICmd(opts),
		newEvalCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

func (o *rootOptions) load(ctx context.Context) error {
	var (
		cfg  *config.AppConfig
		path = o.configPath
		err  error
	)
	if path == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	logger.Init(cfg.Log.File, cfg.Log.Level, cfg.Log.FileCount, cfg.Log.FileSize, cfg.Log.KeepDays, cfg.Log.Console)
	logutil.GetLogger(ctx).Debug("config loaded", zap.String("config", path))
	o.cfg = cfg
	return nil
}

// Execute runs the command line against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
