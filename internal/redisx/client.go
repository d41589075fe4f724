package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// ProductInvalidator hangs the invalidation helper off a client so callers
// can depend on a narrow interface.
type ProductInvalidator struct{ RDB *redis.Client }

func (p ProductInvalidator) InvalidateProducts(ctx context.Context) error {
	return InvalidateProducts(ctx, p.RDB)
}

// InvalidateProducts drops every cached product listing (filtered queries and
// category views). Called after any stock- or price-affecting mutation so
// subsequent reads observe fresh quantities.
func InvalidateProducts(ctx context.Context, rdb *redis.Client) error {
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, PrefixProducts+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
