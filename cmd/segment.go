package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaos-io/depth2layer/scene"
	"github.com/chaos-io/depth2layer/util"
)

type segmentOptions struct {
	OutDir   string
	JSONPath string
	DepthOut string
	Mock     bool
}

var segmentOpts segmentOptions

var segmentCmd = &cobra.Command{
	Use:   "segment <image_path|url>",
	Short: "Split one image into depth layers and write their textures",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runSegment(cmd.Context(), args[0], segmentOpts)
	},
}

func init() {
	segmentCmd.Flags().StringVarP(&segmentOpts.OutDir, "out", "o", "./output", "directory for layer textures")
	segmentCmd.Flags().StringVar(&segmentOpts.JSONPath, "json", "", "write the scene as JSON to this file (- for stdout)")
	segmentCmd.Flags().StringVar(&segmentOpts.DepthOut, "depth-out", "", "also save the depth map as a grayscale PNG")
	segmentCmd.Flags().BoolVar(&segmentOpts.Mock, "mock", false, "skip depth estimation and emit demo layers")
	rootCmd.AddCommand(segmentCmd)
}

func runSegment(ctx context.Context, input string, opts segmentOptions) error {
	img, err := util.LoadImage(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	svc, err := newService(cfg, opts.OutDir, "", scene.NopCache{}, logger)
	if err != nil {
		return err
	}

	sc, err := svc.ProcessImage(ctx, img, scene.Options{
		Mock:         opts.Mock,
		IncludeDepth: opts.DepthOut != "",
	})
	if err != nil {
		return err
	}

	if opts.DepthOut != "" && sc.DepthMap != nil {
		if err := util.SaveImage(opts.DepthOut, sc.DepthMap.Gray()); err != nil {
			return fmt.Errorf("failed to save depth map: %w", err)
		}
		logger.Info("depth map saved", zap.String("path", opts.DepthOut))
		sc.DepthMap = nil
	}

	if opts.JSONPath != "" {
		return writeJSON(opts.JSONPath, sc)
	}
	printLayers(os.Stdout, sc.Layers)
	return nil
}
