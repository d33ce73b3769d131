package scene

import "context"

// Cache 场景缓存，未命中时返回 nil, nil
type Cache interface {
	Get(ctx context.Context, key string) (*Scene, error)
	Set(ctx context.Context, key string, s *Scene) error
}

type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Scene, error) { return nil, nil }

func (NopCache) Set(context.Context, string, *Scene) error { return nil }
