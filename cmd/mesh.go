package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaos-io/depth2layer/mesh"
	"github.com/chaos-io/depth2layer/scene"
	"github.com/chaos-io/depth2layer/util"
)

type meshOptions struct {
	OutDir string
	Relief bool
	Mock   bool
	Model  mesh.Options
}

var meshOpts = meshOptions{Model: mesh.DefaultOptions()}

var meshCmd = &cobra.Command{
	Use:   "mesh <image_path|url>",
	Short: "Export the depth layers of an image as STL reliefs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runMesh(cmd.Context(), args[0], meshOpts)
	},
}

func init() {
	f := meshCmd.Flags()
	f.StringVarP(&meshOpts.OutDir, "out", "o", "./output", "output directory")
	f.BoolVar(&meshOpts.Relief, "relief", true, "also write a single closed relief of the whole image")
	f.BoolVar(&meshOpts.Mock, "mock", false, "use the demo layers and a radial depth map")
	f.Float64Var(&meshOpts.Model.ModelWidth, "width", meshOpts.Model.ModelWidth, "model width in mm")
	f.Float64Var(&meshOpts.Model.Thickness, "thickness", meshOpts.Model.Thickness, "relief height in mm")
	f.Float64Var(&meshOpts.Model.BaseThickness, "base", meshOpts.Model.BaseThickness, "base thickness in mm")
	f.Float64Var(&meshOpts.Model.LayerGap, "gap", meshOpts.Model.LayerGap, "Z gap between layers in mm")
	rootCmd.AddCommand(meshCmd)
}

func runMesh(ctx context.Context, input string, opts meshOptions) error {
	img, err := util.LoadImage(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	svc, err := newService(cfg, filepath.Join(opts.OutDir, "textures"), "", scene.NopCache{}, logger)
	if err != nil {
		return err
	}
	sc, err := svc.ProcessImage(ctx, img, scene.Options{Mock: opts.Mock, IncludeDepth: true})
	if err != nil {
		return err
	}

	if err := util.SaveImage(filepath.Join(opts.OutDir, "depth_map.png"), sc.DepthMap.Gray()); err != nil {
		return err
	}

	files, err := mesh.WriteSceneSTL(opts.OutDir, sc.DepthMap, sc.Layers, opts.Model)
	if err != nil {
		return err
	}

	if opts.Relief {
		path := filepath.Join(opts.OutDir, "relief.stl")
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		_, err = mesh.WriteReliefSTL(f, sc.DepthMap, opts.Model)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to write relief: %w", err)
		}
		files = append(files, path)
	}

	logger.Info("mesh exported", zap.Strings("files", files))
	printLayers(os.Stdout, sc.Layers)
	return nil
}
