package mesh

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/depth2layer/depth"
	"github.com/chaos-io/depth2layer/layer"
)

func grid(t *testing.T) *depth.Map {
	t.Helper()
	dm, err := depth.FromRows([][]float64{
		{0, 0, 1},
		{0, 0, 1},
		{1, 1, 1},
	})
	require.NoError(t, err)
	return dm
}

func TestWriteReliefSTL(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteReliefSTL(&buf, grid(t), DefaultOptions())
	require.NoError(t, err)

	// 顶面+底面 4*(w-1)*(h-1)，四周 4*(w-1)+4*(h-1)
	assert.Equal(t, 32, n)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "solid relief_model\n"))
	assert.True(t, strings.HasSuffix(out, "endsolid relief_model\n"))
	assert.Equal(t, n, strings.Count(out, "facet normal"))
	assert.Contains(t, out, "vertex 0.000000 33.333333 5.000000", "nearest pixel at full thickness")
	assert.Contains(t, out, "-2.000000", "base below zero")
}

func TestWriteReliefSTL_TooSmall(t *testing.T) {
	dm, err := depth.FromRows([][]float64{{0, 1}})
	require.NoError(t, err)
	_, err = WriteReliefSTL(&bytes.Buffer{}, dm, DefaultOptions())
	assert.ErrorIs(t, err, depth.ErrInvalidMap)
}

func TestWriteLayerSTL(t *testing.T) {
	dm := grid(t)
	s, err := layer.NewSegmenter(layer.DefaultThresholds(), nil)
	require.NoError(t, err)
	res, err := s.SegmentMap(dm, nil)
	require.NoError(t, err)
	require.Len(t, res.Layers, 2)

	var buf bytes.Buffer
	n, err := WriteLayerSTL(&buf, "foreground", dm, res.Layers[0].Mask, 0, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "only the top-left cell is fully inside the foreground")
	assert.True(t, strings.HasPrefix(buf.String(), "solid foreground\n"))

	full := layer.NewMask(3, 3)
	for i := range full.Bits {
		full.Bits[i] = true
	}
	n, err = WriteLayerSTL(&bytes.Buffer{}, "all", dm, full, 0, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	_, err = WriteLayerSTL(&bytes.Buffer{}, "bad", dm, layer.NewMask(2, 2), 0, DefaultOptions())
	assert.ErrorIs(t, err, layer.ErrInvalidInput)
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteLayerSTL_WriteError(t *testing.T) {
	dm := grid(t)
	full := layer.NewMask(3, 3)
	for i := range full.Bits {
		full.Bits[i] = true
	}
	_, err := WriteLayerSTL(failWriter{}, "all", dm, full, 0, DefaultOptions())
	assert.EqualError(t, err, "disk full")
}

func TestWriteSceneSTL(t *testing.T) {
	layers, err := layer.Mock(16, 16)
	require.NoError(t, err)
	dm := depth.Radial(16, 16, 0, 0)

	dir := filepath.Join(t.TempDir(), "stl")
	paths, err := WriteSceneSTL(dir, dm, layers, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, paths, len(layers))

	for i, p := range paths {
		assert.Equal(t, layers[i].Name+".stl", filepath.Base(p))
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Contains(t, string(data), "endsolid "+layers[i].Name)
	}
}
