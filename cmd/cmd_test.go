package cmd

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chaos-io/depth2layer/config"
	"github.com/chaos-io/depth2layer/depth"
	"github.com/chaos-io/depth2layer/scene"
	"github.com/chaos-io/depth2layer/util"
)

func setup(t *testing.T) {
	t.Helper()
	cfg = config.Default()
	cfg.Depth.Providers = []string{"luminance"}
	logger = zaptest.NewLogger(t)
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(10 * x), G: uint8(10 * y), B: 40, A: 255})
		}
	}
	require.NoError(t, util.SaveImage(path, img))
}

func TestNewEstimator(t *testing.T) {
	setup(t)

	tests := []struct {
		providers []string
		want      any
	}{
		{[]string{"luminance"}, &depth.LuminanceEstimator{}},
		{[]string{"remote"}, &depth.RemoteEstimator{}},
		{[]string{"mock"}, &depth.MockEstimator{}},
		{[]string{"remote", "luminance"}, &depth.FallbackEstimator{}},
	}
	for _, tt := range tests {
		c := cfg.Depth
		c.Providers = tt.providers
		assert.IsType(t, tt.want, newEstimator(c, logger), tt.providers)
	}
}

func TestNewService_TexturesDisabled(t *testing.T) {
	setup(t)
	cfg.Texture.Enabled = false

	svc, err := newService(cfg, t.TempDir(), "", scene.NopCache{}, logger)
	require.NoError(t, err)

	src := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	sc, err := svc.ProcessImage(context.Background(), src, scene.Options{})
	require.NoError(t, err)
	for _, l := range sc.Layers {
		assert.Nil(t, l.Texture)
	}
}

func TestNewService_BadConfig(t *testing.T) {
	setup(t)
	cfg.Texture.Background = "not-a-color"
	_, err := newService(cfg, t.TempDir(), "", scene.NopCache{}, logger)
	assert.Error(t, err)

	setup(t)
	cfg.Layer.Policy = "kmeans"
	_, err = newService(cfg, t.TempDir(), "", scene.NopCache{}, logger)
	assert.Error(t, err)
}

func TestNewCache_Disabled(t *testing.T) {
	setup(t)
	c, closeFn := newCache(context.Background(), cfg.Redis, logger)
	defer closeFn()
	assert.IsType(t, scene.NopCache{}, c)
}

func TestRunBatch(t *testing.T) {
	setup(t)
	in := t.TempDir()
	out := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"), 12, 8)
	writePNG(t, filepath.Join(in, "b.png"), 9, 9)
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "broken.png"), []byte("nope"), 0o644))

	err := runBatch(context.Background(), in, batchOptions{OutDir: out, Jobs: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 images failed")
	assert.Contains(t, err.Error(), "broken.png")

	for _, name := range []string{"a", "b"} {
		data, err := os.ReadFile(filepath.Join(out, name+".json"))
		require.NoError(t, err)

		var sc scene.Scene
		require.NoError(t, json.Unmarshal(data, &sc))
		assert.NotEmpty(t, sc.MD5)
		assert.NotEmpty(t, sc.Layers)
		for _, l := range sc.Layers {
			require.NotNil(t, l.Texture)
			assert.FileExists(t, *l.Texture)
		}
	}
	assert.NoFileExists(t, filepath.Join(out, "notes.json"))
}

func TestRunSegment(t *testing.T) {
	setup(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "in.png")
	writePNG(t, input, 16, 10)

	opts := segmentOptions{
		OutDir:   filepath.Join(dir, "textures"),
		JSONPath: filepath.Join(dir, "scene.json"),
		DepthOut: filepath.Join(dir, "depth.png"),
	}
	require.NoError(t, runSegment(context.Background(), input, opts))

	depthImg, err := util.OpenImage(opts.DepthOut)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 10), depthImg.Bounds())

	data, err := os.ReadFile(opts.JSONPath)
	require.NoError(t, err)
	var sc scene.Scene
	require.NoError(t, json.Unmarshal(data, &sc))
	assert.Nil(t, sc.DepthMap)
	assert.NotEmpty(t, sc.Layers)
}

func TestRunMesh_Mock(t *testing.T) {
	setup(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "in.png")
	writePNG(t, input, 12, 12)

	opts := meshOptions{OutDir: filepath.Join(dir, "out"), Relief: true, Mock: true, Model: meshOpts.Model}
	require.NoError(t, runMesh(context.Background(), input, opts))

	for _, name := range []string{"foreground.stl", "midground.stl", "background.stl", "relief.stl", "depth_map.png"} {
		assert.FileExists(t, filepath.Join(opts.OutDir, name))
	}
}

func TestMockCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "mock.json")
	rootCmd.SetArgs([]string{"mock", "--width", "8", "--height", "8", "-o", out, "--config", filepath.Join(t.TempDir(), "none.yaml"), "--mode", "test"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var got scene.LayersData
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 8, got.Width)
	require.Len(t, got.Layers, 3)
	assert.Equal(t, "foreground_mock", got.Layers[0].ID)
}
