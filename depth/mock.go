package depth

import (
	"context"
	"image"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// MockEstimator 开发用深度图：离中心越远越深，可叠加高斯噪声
type MockEstimator struct {
	Noise float64
	Seed  uint64
}

func (e *MockEstimator) Estimate(ctx context.Context, img image.Image) (*Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	return Radial(b.Dx(), b.Dy(), e.Noise, e.Seed), nil
}

// Radial 生成径向渐变深度图，noise 为噪声标准差，结果裁剪到 [0,1]
func Radial(width, height int, noise float64, seed uint64) *Map {
	m := NewMap(width, height)
	if m.Empty() {
		return m
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fx, fy := linspace(x, width), linspace(y, height)
			m.Set(x, y, math.Hypot(fx-0.5, fy-0.5))
		}
	}
	m.Normalize()

	if noise > 0 {
		n := distuv.Normal{Mu: 0, Sigma: noise, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
		for i, v := range m.Data {
			m.Data[i] = math.Max(0, math.Min(1, v+n.Rand()))
		}
		m.MinDepth, m.MaxDepth = m.Range()
	}
	return m
}

// linspace 把索引 i 映射到 [0,1] 上 n 个等分点
func linspace(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}
