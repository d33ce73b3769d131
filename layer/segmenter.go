package layer

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/chaos-io/depth2layer/depth"
)

// Segmenter 深度分层器，无内部状态，可并发使用
type Segmenter struct {
	thresholds Thresholds
	logger     *zap.Logger
	newID      func(name string) string
}

func NewSegmenter(thresholds Thresholds, logger *zap.Logger) (*Segmenter, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Segmenter{
		thresholds: thresholds,
		logger:     logger,
		newID:      NewID,
	}, nil
}

// NewID 生成 {name}_{ksuid} 形式的分层 id
func NewID(name string) string {
	return name + "_" + ksuid.New().String()
}

// Result 分层结果以及待执行的纹理写入任务。
// 分层计算本身不做任何 IO，纹理由 texture.Writer 负责落盘。
type Result struct {
	Layers []Layer
	Jobs   []TextureJob
}

// WithTextures 返回附上纹理引用的分层副本；refs 中没有的分层纹理为 nil
func (r *Result) WithTextures(refs map[string]string) []Layer {
	out := make([]Layer, len(r.Layers))
	for i, l := range r.Layers {
		if ref, ok := refs[l.ID]; ok {
			l.Texture = &ref
		}
		out[i] = l
	}
	return out
}

// TextureJob 单个分层的纹理提取任务
type TextureJob struct {
	LayerID   string
	LayerName string
	mask      *Mask
	src       image.Image
}

// Render 提取该分层的像素，其余像素填充为 bg
func (j TextureJob) Render(bg color.Color) *image.NRGBA {
	return Extract(j.src, j.mask, bg)
}

// SegmentMap 使用深度图自带的 MinDepth/MaxDepth 分层
func (s *Segmenter) SegmentMap(dm *depth.Map, src image.Image) (*Result, error) {
	if dm == nil {
		return nil, fmt.Errorf("%w: nil depth map", ErrInvalidInput)
	}
	return s.Segment(dm, dm.MinDepth, dm.MaxDepth, src)
}

// Segment 把每个像素划入且只划入一个分层：
//
//	v <= t1        → 第 0 层（前景）
//	t1 < v <= t2   → 第 1 层（中景）
//	v > t2         → 最后一层（背景）
//
// 恰好落在分界点上的像素归入更近的一层。NaN 不满足任何比较，归入最后一层。
// 没有像素的分层不出现在结果中。src 可为 nil，非 nil 时必须与深度图同尺寸。
func (s *Segmenter) Segment(dm *depth.Map, minDepth, maxDepth float64, src image.Image) (*Result, error) {
	if err := validateInput(dm, minDepth, maxDepth, src); err != nil {
		return nil, err
	}

	th := s.thresholds
	cuts := th.policy().CutPoints(dm.Data, minDepth, maxDepth, th.Cuts)

	masks := make([]*Mask, len(th.Names))
	for i := range masks {
		masks[i] = NewMask(dm.Width, dm.Height)
	}
	counts := make([]int, len(th.Names))
	for i, v := range dm.Data {
		band := classify(v, cuts)
		masks[band].Bits[i] = true
		counts[band]++
	}

	res := &Result{}
	for band, name := range th.Names {
		if counts[band] == 0 {
			continue
		}
		l := Layer{
			ID:         s.newID(name),
			Name:       name,
			Mask:       masks[band],
			DepthRange: bandRange(band, cuts, minDepth, maxDepth),
			Bounds:     masks[band].Bounds(),
		}
		res.Layers = append(res.Layers, l)

		if src != nil {
			res.Jobs = append(res.Jobs, TextureJob{
				LayerID:   l.ID,
				LayerName: name,
				mask:      l.Mask,
				src:       src,
			})
		}
	}

	s.logger.Debug("depth map segmented",
		zap.Int("width", dm.Width),
		zap.Int("height", dm.Height),
		zap.Float64s("cuts", cuts),
		zap.Ints("counts", counts),
		zap.Int("layers", len(res.Layers)))

	return res, nil
}

func validateInput(dm *depth.Map, minDepth, maxDepth float64, src image.Image) error {
	if dm.Empty() {
		return fmt.Errorf("%w: empty depth map", ErrInvalidInput)
	}
	if len(dm.Data) != dm.Width*dm.Height {
		return fmt.Errorf("%w: %d depth values for %dx%d map", ErrInvalidInput, len(dm.Data), dm.Width, dm.Height)
	}
	if minDepth > maxDepth {
		return fmt.Errorf("%w: minDepth %v > maxDepth %v", ErrInvalidInput, minDepth, maxDepth)
	}
	if !finite(minDepth) || !finite(maxDepth) || !finite(maxDepth-minDepth) {
		return fmt.Errorf("%w: depth range [%v, %v] is not finite", ErrInvalidInput, minDepth, maxDepth)
	}
	if src != nil {
		b := src.Bounds()
		if b.Dx() != dm.Width || b.Dy() != dm.Height {
			return fmt.Errorf("%w: image is %dx%d, depth map is %dx%d",
				ErrInvalidInput, b.Dx(), b.Dy(), dm.Width, dm.Height)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// classify 返回 v 所属分层的下标
func classify(v float64, cuts []float64) int {
	for i, c := range cuts {
		if v <= c {
			return i
		}
	}
	return len(cuts)
}

func bandRange(band int, cuts []float64, minDepth, maxDepth float64) DepthRange {
	r := DepthRange{Lower: minDepth, Upper: maxDepth}
	if band > 0 {
		r.Lower = cuts[band-1]
	}
	if band < len(cuts) {
		r.Upper = cuts[band]
	}
	return r
}
