package depth

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrNoEstimator = errors.New("no depth estimator configured")

type Named struct {
	Name      string
	Estimator Estimator
}

// FallbackEstimator 按顺序尝试多个估计器，返回第一个成功的结果
type FallbackEstimator struct {
	chain  []Named
	logger *zap.Logger
}

func NewFallbackEstimator(logger *zap.Logger, chain ...Named) *FallbackEstimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackEstimator{chain: chain, logger: logger}
}

func (f *FallbackEstimator) Estimate(ctx context.Context, img image.Image) (*Map, error) {
	if len(f.chain) == 0 {
		return nil, ErrNoEstimator
	}

	var errs error
	for i, n := range f.chain {
		m, err := n.Estimator.Estimate(ctx, img)
		if err == nil {
			if i > 0 {
				f.logger.Info("depth estimated by fallback", zap.String("estimator", n.Name))
			}
			return m, nil
		}
		f.logger.Warn("depth estimator failed", zap.String("estimator", n.Name), zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", n.Name, err))

		if ctx.Err() != nil {
			break
		}
	}
	return nil, errs
}
