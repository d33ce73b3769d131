package depth

import (
	"context"
	"image"
	"math"

	"golang.org/x/image/draw"
)

const baseSize = 320.0

// LuminanceEstimator 不依赖模型的启发式深度：灰度 + gamma + 缩放 + 高斯模糊。
// 亮处视为近处，Invert 时反过来。
type LuminanceEstimator struct {
	DetailLevel float64
	Invert      bool
}

func NewLuminanceEstimator(detailLevel float64, invert bool) *LuminanceEstimator {
	if detailLevel <= 0 {
		detailLevel = 1
	}
	return &LuminanceEstimator{DetailLevel: detailLevel, Invert: invert}
}

func (e *LuminanceEstimator) Estimate(ctx context.Context, img image.Image) (*Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, ErrInvalidMap
	}

	// 灰度化 + gamma 校正
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bb, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			val := math.Pow((0.299*float64(r)+0.587*float64(g)+0.114*float64(bb))/65535.0, 1.5) * 255
			gray.Pix[y*gray.Stride+x] = uint8(val)
		}
	}

	// 在工作分辨率上模糊，再缩放回原尺寸，保证与原图逐像素对齐
	base := math.Max(1, baseSize*e.DetailLevel)
	ratio := math.Min(1, math.Min(base/float64(w), base/float64(h)))
	nw, nh := max(1, int(float64(w)*ratio)), max(1, int(float64(h)*ratio))

	work := image.NewGray(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(work, work.Bounds(), gray, gray.Bounds(), draw.Src, nil)
	work = gaussianBlur(work)

	out := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(out, out.Bounds(), work, work.Bounds(), draw.Src, nil)

	if e.Invert {
		for i, v := range out.Pix {
			out.Pix[i] = 255 - v
		}
	}

	m := FromGray(out)
	m.Normalize()
	return m, nil
}

// gaussianBlur 3x3 高斯卷积，边缘像素按边界截断
func gaussianBlur(src *image.Gray) *image.Gray {
	k := [3][3]int{
		{1, 2, 1},
		{2, 4, 2},
		{1, 2, 1},
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewGray(src.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum, weight := 0, 0
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					sx, sy := x+kx, y+ky
					if sx < 0 || sy < 0 || sx >= w || sy >= h {
						continue
					}
					kw := k[ky+1][kx+1]
					sum += int(src.Pix[sy*src.Stride+sx]) * kw
					weight += kw
				}
			}
			dst.Pix[y*dst.Stride+x] = uint8(sum / weight)
		}
	}
	return dst
}
