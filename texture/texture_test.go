package texture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chaos-io/depth2layer/depth"
	"github.com/chaos-io/depth2layer/layer"
	"github.com/chaos-io/depth2layer/util"
)

func jobs(t *testing.T) (*layer.Result, *image.NRGBA) {
	t.Helper()
	dm := depth.NewMap(4, 2)
	copy(dm.Data, []float64{0, 0, 0.5, 0.5, 1, 1, 1, 1})
	dm.MinDepth, dm.MaxDepth = 0, 1

	src := image.NewNRGBA(dm.Bounds())
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+3] = 200, 255
	}

	s, err := layer.NewSegmenter(layer.DefaultThresholds(), nil)
	require.NoError(t, err)
	res, err := s.SegmentMap(dm, src)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 3)
	return res, src
}

func TestFileStore_Put(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "textures")
	store, err := NewFileStore(dir, "PNG")
	require.NoError(t, err)

	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	ref, err := store.Put(context.Background(), layer.Foreground, img)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(ref))
	assert.True(t, strings.HasPrefix(filepath.Base(ref), "foreground_"))
	assert.Equal(t, ".png", filepath.Ext(ref))

	back, err := util.OpenImage(ref)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), back.Bounds())

	other, err := store.Put(context.Background(), layer.Foreground, img)
	require.NoError(t, err)
	assert.NotEqual(t, ref, other)
}

func TestFileStore_BaseURL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "textures")
	store, err := NewFileStore(dir, "png")
	require.NoError(t, err)
	store.BaseURL = "/textures/"

	ref, err := store.Put(context.Background(), layer.Midground, image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, "/textures/midground_"), ref)
	assert.NotContains(t, strings.TrimPrefix(ref, "/textures/"), "/")
	assert.NotContains(t, ref, dir)
	assert.FileExists(t, filepath.Join(dir, path.Base(ref)))
}

func TestNewFileStore_Format(t *testing.T) {
	s, err := NewFileStore("x", "jpeg")
	require.NoError(t, err)
	assert.Equal(t, "jpg", s.Format)

	s, err = NewFileStore("x", "")
	require.NoError(t, err)
	assert.Equal(t, "png", s.Format)

	_, err = NewFileStore("x", "tiff")
	assert.Error(t, err)
}

func TestFileStore_PutFailure(t *testing.T) {
	// 目录位置已被普通文件占用
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store, err := NewFileStore(blocker, "png")
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "foreground", image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	assert.Error(t, err)
}

type flakyStore struct {
	inner Store
	fail  string
}

func (f *flakyStore) Put(ctx context.Context, name string, img image.Image) (string, error) {
	if name == f.fail {
		return "", errors.New("disk full")
	}
	return f.inner.Put(ctx, name, img)
}

func TestWriter_Write(t *testing.T) {
	res, _ := jobs(t)
	fs, err := NewFileStore(t.TempDir(), "png")
	require.NoError(t, err)

	w := NewWriter(&flakyStore{inner: fs, fail: layer.Midground}, color.Black, zaptest.NewLogger(t))
	refs := w.Write(context.Background(), res.Jobs)
	require.Len(t, refs, 2)

	layers := res.WithTextures(refs)
	require.NotNil(t, layers[0].Texture)
	assert.Nil(t, layers[1].Texture, "failed texture degrades to nil")
	require.NotNil(t, layers[2].Texture)
	assert.Equal(t, res.Layers[1].Bounds, layers[1].Bounds)

	img, err := util.OpenImage(*layers[0].Texture)
	require.NoError(t, err)
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(200)*0x101, r, "foreground pixel kept")
	r, _, _, _ = img.At(3, 1).RGBA()
	assert.Zero(t, r, "background pixel blacked out")
}

func TestWriter_Canceled(t *testing.T) {
	res, _ := jobs(t)
	fs, err := NewFileStore(t.TempDir(), "png")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	refs := NewWriter(fs, nil, nil).Write(ctx, res.Jobs)
	assert.Empty(t, refs)
}

func TestWriter_NilStore(t *testing.T) {
	res, _ := jobs(t)
	assert.Empty(t, NewWriter(nil, nil, nil).Write(context.Background(), res.Jobs))
}

func TestJanitor_Sweep(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "foreground_old.png")
	fresh := filepath.Join(dir, "foreground_new.png")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))

	now := time.Now()
	require.NoError(t, os.Chtimes(old, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))

	j := NewJanitor(dir, time.Hour, zaptest.NewLogger(t))
	j.now = func() time.Time { return now }
	assert.Equal(t, 1, j.Sweep())

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)

	assert.Equal(t, 0, NewJanitor(filepath.Join(dir, "missing"), time.Hour, nil).Sweep())
}

func TestJanitor_StartStop(t *testing.T) {
	j := NewJanitor(t.TempDir(), time.Hour, nil)
	assert.Error(t, j.Start("not a cron expression"))

	j = NewJanitor(t.TempDir(), time.Hour, nil)
	require.NoError(t, j.Start("@every 1h"))
	j.Stop()
}
