package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaos-io/depth2layer/config"
	"github.com/chaos-io/depth2layer/util"
)

// 构建信息，由 -ldflags "-X" 注入
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	mode       string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "depth2layer",
	Short:   "Split images into depth layers for parallax scenes",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.New(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if mode != "" {
			cfg.Server.Mode = mode
		}

		logger, err = util.NewLogger(cfg.Server.Mode)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file (defaults are used when it does not exist)")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "", "run mode: debug | release | test (overrides server.mode)")
}
