package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/depth2layer/layer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: ":9000"
  mode: release
redis:
  enabled: true
  ttl: 1h
depth:
  providers: [luminance]
  detail_level: 0.5
layer:
  names: [near, far]
  cuts: [0.5]
  policy: percentile
texture:
  background: "#ff8000"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, int64(10*1024*1024), cfg.Server.MaxUploadSize)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"luminance"}, cfg.Depth.Providers)
	assert.InDelta(t, 0.5, cfg.Depth.DetailLevel, 1e-9)
	assert.Equal(t, 1024, cfg.Depth.MaxSize)
	assert.Equal(t, []string{"near", "far"}, cfg.Layer.Names)
	assert.Equal(t, "@every 30m", cfg.Texture.SweepSpec)

	th, err := cfg.Layer.Thresholds()
	require.NoError(t, err)
	assert.IsType(t, layer.PercentilePolicy{}, th.Policy)

	bg, err := cfg.Texture.BackgroundColor()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 128, A: 255}, bg)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \":9000\"\n")
	t.Setenv("DEPTH2LAYER_SERVER_PORT", ":7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"cuts mismatch", "layer:\n  names: [a, b, c]\n  cuts: [0.5]\n"},
		{"unknown provider", "depth:\n  providers: [midas]\n"},
		{"bad yaml", "server: [\n"},
		{"unknown mode", "server:\n  mode: verbose\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestNew_MissingFileUsesDefault(t *testing.T) {
	cfg, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())

	th, err := cfg.Layer.Thresholds()
	require.NoError(t, err)
	assert.Equal(t, layer.DefaultThresholds().Names, th.Names)
	assert.Equal(t, layer.DefaultThresholds().Cuts, th.Cuts)
}

func TestBuilders_Errors(t *testing.T) {
	_, err := LayerConfig{Names: []string{"a"}, Policy: "kmeans"}.Thresholds()
	assert.Error(t, err)

	_, err = LayerConfig{Names: []string{"a", "b"}, Cuts: []float64{0.8, 0.2}, Policy: "fixed"}.Thresholds()
	assert.ErrorIs(t, err, layer.ErrInvalidInput)

	_, err = TextureConfig{Background: "blue"}.BackgroundColor()
	assert.Error(t, err)

	bg, err := TextureConfig{}.BackgroundColor()
	require.NoError(t, err)
	assert.Equal(t, color.Black, bg)
}
