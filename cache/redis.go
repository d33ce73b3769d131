package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chaos-io/depth2layer/config"
	"github.com/chaos-io/depth2layer/scene"
)

const keyPrefix = "scene:"

// RedisCache 以 JSON 保存场景结果
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(cfg *config.RedisConfig, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get 缓存未命中时返回 nil, nil
func (c *RedisCache) Get(ctx context.Context, key string) (*scene.Scene, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var sc scene.Scene
	if err := json.Unmarshal(data, &sc); err != nil {
		c.logger.Error("failed to unmarshal scene",
			zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return &sc, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, sc *scene.Scene) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
