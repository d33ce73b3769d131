package texture

import (
	"context"
	"fmt"
	"image/color"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/chaos-io/depth2layer/layer"
)

// Writer 执行分层器产出的纹理任务，单个分层失败只记录日志
type Writer struct {
	store      Store
	background color.Color
	logger     *zap.Logger
}

func NewWriter(store Store, background color.Color, logger *zap.Logger) *Writer {
	if background == nil {
		background = color.Black
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, background: background, logger: logger}
}

// Write 返回 layerID → 纹理引用，失败的分层不在结果中
func (w *Writer) Write(ctx context.Context, jobs []layer.TextureJob) map[string]string {
	refs := make(map[string]string, len(jobs))
	if w == nil || w.store == nil {
		return refs
	}

	var errs error
	for _, job := range jobs {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.LayerID, ctx.Err()))
			continue
		}

		ref, err := w.store.Put(ctx, job.LayerName, job.Render(w.background))
		if err != nil {
			w.logger.Warn("failed to save layer texture",
				zap.String("layer", job.LayerID),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.LayerID, err))
			continue
		}
		refs[job.LayerID] = ref
	}

	if errs != nil {
		w.logger.Warn("texture persistence incomplete",
			zap.Int("saved", len(refs)),
			zap.Int("failed", len(multierr.Errors(errs))),
			zap.Error(errs))
	}
	return refs
}
