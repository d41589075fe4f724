package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rizkyfp/go-storefront/internal/redisx"
)

// CachedRepo serves popular listing queries from Redis. Cache failures
// degrade to the database; they are logged, never surfaced.
type CachedRepo struct {
	Repo  *Repo
	Redis *redis.Client
	Log   *zap.Logger
}

func (c *CachedRepo) Get(ctx context.Context, id string) (*Product, error) {
	return c.Repo.Get(ctx, id)
}

func (c *CachedRepo) IncrementViews(ctx context.Context, id string) error {
	return c.Repo.IncrementViews(ctx, id)
}

func (c *CachedRepo) List(ctx context.Context, f Filter) ([]Product, error) {
	serialized, _ := json.Marshal(f)
	key := fmt.Sprintf(redisx.KeyProductsQuery, serialized)
	return c.cached(ctx, key, func() ([]Product, error) {
		return c.Repo.List(ctx, f)
	})
}

func (c *CachedRepo) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	key := fmt.Sprintf(redisx.KeyProductsCategory, category)
	return c.cached(ctx, key, func() ([]Product, error) {
		return c.Repo.List(ctx, Filter{Category: category})
	})
}

func (c *CachedRepo) cached(ctx context.Context, key string, load func() ([]Product, error)) ([]Product, error) {
	if raw, err := c.Redis.Get(ctx, key).Result(); err == nil {
		var ps []Product
		if err := json.Unmarshal([]byte(raw), &ps); err == nil {
			return ps, nil
		}
		c.Log.Warn("dropping corrupt cache entry", zap.String("key", key))
		_ = c.Redis.Del(ctx, key).Err()
	}

	ps, err := load()
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(ps); err == nil {
		if err := c.Redis.Set(ctx, key, raw, redisx.TTLProductCache).Err(); err != nil {
			c.Log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return ps, nil
}
