package depth

import (
	"context"
	"image"
)

// Estimator 深度估计：给定图片，返回与图片同尺寸的稠密深度图
type Estimator interface {
	Estimate(ctx context.Context, img image.Image) (*Map, error)
}

type EstimatorFunc func(ctx context.Context, img image.Image) (*Map, error)

func (f EstimatorFunc) Estimate(ctx context.Context, img image.Image) (*Map, error) {
	return f(ctx, img)
}
