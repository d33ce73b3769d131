package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chaos-io/depth2layer/cache"
	"github.com/chaos-io/depth2layer/config"
	"github.com/chaos-io/depth2layer/depth"
	"github.com/chaos-io/depth2layer/layer"
	"github.com/chaos-io/depth2layer/scene"
	"github.com/chaos-io/depth2layer/texture"
)

// newEstimator 按 depth.providers 的顺序组装估计器链
func newEstimator(c config.DepthConfig, logger *zap.Logger) depth.Estimator {
	var chain []depth.Named
	for _, p := range c.Providers {
		switch p {
		case "remote":
			chain = append(chain, depth.Named{Name: p, Estimator: depth.NewRemoteEstimator(c.ModelURL, c.Model, c.Timeout)})
		case "luminance":
			chain = append(chain, depth.Named{Name: p, Estimator: depth.NewLuminanceEstimator(c.DetailLevel, c.Invert)})
		case "mock":
			chain = append(chain, depth.Named{Name: p, Estimator: &depth.MockEstimator{Noise: c.MockNoise, Seed: uint64(time.Now().UnixNano())}})
		}
	}
	if len(chain) == 1 {
		return chain[0].Estimator
	}
	return depth.NewFallbackEstimator(logger, chain...)
}

// newWriter 纹理关闭时返回 nil，Writer 对 nil 安全。
// baseURL 为空时纹理引用是本地路径。
func newWriter(c config.TextureConfig, dir, baseURL string, logger *zap.Logger) (*texture.Writer, error) {
	if !c.Enabled {
		return nil, nil
	}
	store, err := texture.NewFileStore(dir, c.Format)
	if err != nil {
		return nil, err
	}
	store.BaseURL = baseURL
	bg, err := c.BackgroundColor()
	if err != nil {
		return nil, err
	}
	return texture.NewWriter(store, bg, logger), nil
}

// newService textureDir 覆盖配置中的纹理目录，为空时使用配置；textureURL 非空时纹理引用为该前缀下的 URL
func newService(c *config.Config, textureDir, textureURL string, sceneCache scene.Cache, logger *zap.Logger) (*scene.Service, error) {
	th, err := c.Layer.Thresholds()
	if err != nil {
		return nil, err
	}
	seg, err := layer.NewSegmenter(th, logger)
	if err != nil {
		return nil, err
	}

	if textureDir == "" {
		textureDir = c.Texture.Dir
	}
	writer, err := newWriter(c.Texture, textureDir, textureURL, logger)
	if err != nil {
		return nil, fmt.Errorf("texture: %w", err)
	}

	return scene.NewService(scene.Config{
		MaxSize:       c.Depth.MaxSize,
		MaxConcurrent: c.Server.MaxConcurrent,
		QueueTimeout:  c.Server.QueueTimeout,
	}, newEstimator(c.Depth, logger), seg, writer, sceneCache, logger), nil
}

// newCache redis 不可用时退化为不缓存
func newCache(ctx context.Context, c config.RedisConfig, logger *zap.Logger) (scene.Cache, func()) {
	if !c.Enabled {
		return scene.NopCache{}, func() {}
	}

	rc := cache.NewRedisCache(&c, logger)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		logger.Warn("redis connection failed, cache disabled", zap.Error(err))
		_ = rc.Close()
		return scene.NopCache{}, func() {}
	}

	logger.Info("redis connected successfully", zap.String("addr", c.Addr))
	return rc, func() { _ = rc.Close() }
}
