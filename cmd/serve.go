package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaos-io/depth2layer/server"
	"github.com/chaos-io/depth2layer/texture"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if servePort != "" {
			cfg.Server.Port = servePort
		}
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen address, e.g. :8000 (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()

	logger.Info("starting depth2layer server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	sceneCache, closeCache := newCache(ctx, cfg.Redis, logger)
	defer closeCache()

	svc, err := newService(cfg, "", server.TexturesRoute, sceneCache, logger)
	if err != nil {
		return err
	}

	textureDir := ""
	if cfg.Texture.Enabled {
		textureDir = cfg.Texture.Dir
		if cfg.Texture.MaxAge > 0 {
			janitor := texture.NewJanitor(textureDir, cfg.Texture.MaxAge, logger)
			if err := janitor.Start(cfg.Texture.SweepSpec); err != nil {
				return err
			}
			defer janitor.Stop()
		}
	}

	gin.SetMode(cfg.Server.Mode)
	srv := server.New(cfg.Server, textureDir, svc, server.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}, logger)
	return srv.Run(ctx)
}
