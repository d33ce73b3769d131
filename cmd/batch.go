package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chaos-io/depth2layer/scene"
	"github.com/chaos-io/depth2layer/util"
)

type batchOptions struct {
	OutDir string
	Jobs   int
	Mock   bool
}

var batchOpts batchOptions

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Segment every image in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runBatch(cmd.Context(), args[0], batchOpts)
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchOpts.OutDir, "out", "o", "./output", "directory for textures and scene JSON")
	batchCmd.Flags().IntVarP(&batchOpts.Jobs, "jobs", "j", runtime.NumCPU(), "number of images processed in parallel")
	batchCmd.Flags().BoolVar(&batchOpts.Mock, "mock", false, "skip depth estimation and emit demo layers")
	rootCmd.AddCommand(batchCmd)
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && util.IsImageFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

func runBatch(ctx context.Context, dir string, opts batchOptions) error {
	paths, err := listImages(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "no images found in", dir)
		return nil
	}
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}

	cfg.Server.MaxConcurrent = opts.Jobs
	svc, err := newService(cfg, filepath.Join(opts.OutDir, "textures"), "", scene.NopCache{}, logger)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Segmenting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	var (
		mu   sync.Mutex
		errs error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := segmentFile(ctx, svc, path, opts)
			if err != nil {
				logger.Warn("failed to segment image", zap.String("path", path), zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
				mu.Unlock()
			}
			_ = bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	_ = bar.Finish()

	if failed := len(multierr.Errors(errs)); failed > 0 {
		return fmt.Errorf("%d of %d images failed: %w", failed, len(paths), errs)
	}
	return nil
}

func segmentFile(ctx context.Context, svc *scene.Service, path string, opts batchOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	img, err := util.DecodeImage(data)
	if err != nil {
		return err
	}

	sc, err := svc.ProcessImage(ctx, img, scene.Options{Mock: opts.Mock})
	if err != nil {
		return err
	}
	sc.MD5 = util.BytesMD5(data)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".json"
	return writeJSON(filepath.Join(opts.OutDir, name), sc)
}
