package scene

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/chaos-io/depth2layer/depth"
	"github.com/chaos-io/depth2layer/layer"
	"github.com/chaos-io/depth2layer/texture"
	"github.com/chaos-io/depth2layer/util"
)

var (
	ErrNotFound = errors.New("scene not found")
	ErrBusy     = errors.New("processing queue is full, try again later")
)

type Options struct {
	// Mock 跳过深度估计，返回固定的同心圆分层
	Mock bool
	// IncludeDepth 在结果中附带深度图
	IncludeDepth bool
}

func (o Options) cacheKey(md5 string) string {
	key := md5
	if o.Mock {
		key += ":mock"
	}
	if o.IncludeDepth {
		key += ":depth"
	}
	return key
}

type Config struct {
	MaxSize       int
	MaxConcurrent int
	QueueTimeout  time.Duration
}

// Service 组装完整的处理流程：解码 → 预处理 → 深度估计 → 分层 → 纹理 → 缓存
type Service struct {
	estimator    depth.Estimator
	segmenter    *layer.Segmenter
	writer       *texture.Writer
	cache        Cache
	maxSize      int
	semaphore    chan struct{}
	queueTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(cfg Config, estimator depth.Estimator, segmenter *layer.Segmenter, writer *texture.Writer, cache Cache, logger *zap.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = depth.DefaultMaxSize
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = 30 * time.Second
	}
	return &Service{
		estimator:    estimator,
		segmenter:    segmenter,
		writer:       writer,
		cache:        cache,
		maxSize:      cfg.MaxSize,
		semaphore:    make(chan struct{}, cfg.MaxConcurrent),
		queueTimeout: cfg.QueueTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Process 处理一张上传的图片
func (s *Service) Process(ctx context.Context, data []byte, opts Options) (*Scene, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", layer.ErrInvalidInput)
	}

	md5 := util.BytesMD5(data)
	key := opts.cacheKey(md5)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("failed to get cache", zap.String("cache_key", key), zap.Error(err))
	}
	if cached != nil {
		s.logger.Info("cache hit", zap.String("cache_key", key))
		return cached, nil
	}

	img, err := util.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", layer.ErrInvalidInput, err)
	}

	sc, err := s.ProcessImage(ctx, img, opts)
	if err != nil {
		return nil, err
	}
	sc.MD5 = md5

	if err := s.cache.Set(ctx, key, sc); err != nil {
		s.logger.Warn("failed to set cache", zap.String("cache_key", key), zap.Error(err))
	}
	return sc, nil
}

// ProcessImage 处理已解码的图片，不读写缓存
func (s *Service) ProcessImage(ctx context.Context, img image.Image, opts Options) (*Scene, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", layer.ErrInvalidInput)
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	defer util.Trace(s.logger, "scene processed")()

	src := depth.Preprocess(img, s.maxSize)
	b := src.Bounds()
	s.logger.Info("processing image",
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()),
		zap.Bool("mock", opts.Mock))

	if opts.Mock {
		return s.mockScene(b.Dx(), b.Dy(), opts)
	}
	return s.estimateScene(ctx, src, opts)
}

func (s *Service) estimateScene(ctx context.Context, src image.Image, opts Options) (*Scene, error) {
	if s.estimator == nil {
		return nil, depth.ErrNoEstimator
	}

	dm, err := s.estimator.Estimate(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("estimate depth: %w", err)
	}

	res, err := s.segmenter.SegmentMap(dm, src)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	refs := s.writer.Write(ctx, res.Jobs)

	sc := s.newScene(dm.Width, dm.Height, StatusCompleted)
	sc.Layers = res.WithTextures(refs)
	if opts.IncludeDepth {
		sc.DepthMap = dm
	}
	return sc, nil
}

func (s *Service) mockScene(width, height int, opts Options) (*Scene, error) {
	layers, err := layer.Mock(width, height)
	if err != nil {
		return nil, err
	}

	sc := s.newScene(width, height, StatusMock)
	sc.Layers = layers
	if opts.IncludeDepth {
		sc.DepthMap = depth.Radial(width, height, 0, 0)
	}
	return sc, nil
}

func (s *Service) newScene(width, height int, status string) *Scene {
	return &Scene{
		ID:        ksuid.New().String(),
		Width:     width,
		Height:    height,
		Status:    status,
		CreatedAt: s.now().UTC(),
	}
}

// Get 按图片 MD5 查询已处理的场景
func (s *Service) Get(ctx context.Context, md5 string) (*Scene, error) {
	if md5 == "" {
		return nil, fmt.Errorf("%w: md5 is empty", layer.ErrInvalidInput)
	}
	sc, err := s.cache.Get(ctx, md5)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, ErrNotFound
	}
	return sc, nil
}

// Segment 对调用方提供的深度图分层，不生成纹理
func (s *Service) Segment(ctx context.Context, dm *depth.Map) (*LayersData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := s.segmenter.SegmentMap(dm, nil)
	if err != nil {
		return nil, err
	}
	return &LayersData{Width: dm.Width, Height: dm.Height, Layers: res.Layers}, nil
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, s.queueTimeout)
	defer cancel()

	select {
	case s.semaphore <- struct{}{}:
		return func() { <-s.semaphore }, nil
	case <-ctx.Done():
		return nil, ErrBusy
	}
}
