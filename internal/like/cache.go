package like

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MalikAqeelArshad/blog-crud/internal/logs"
	"github.com/MalikAqeelArshad/blog-crud/internal/metrics"
)

// CountCache garde le nombre de likes par post.
// Set est réservé aux écritures (compteur recalculé), Fill aux lectures : il ne remplit qu'une clé absente.
type CountCache interface {
	Get(ctx context.Context, postID uint) (int64, bool)
	Set(ctx context.Context, postID uint, count int64)
	Fill(ctx context.Context, postID uint, count int64)
	Invalidate(ctx context.Context, postID uint)
}

type NopCache struct{}

func (NopCache) Get(context.Context, uint) (int64, bool) { return 0, false }
func (NopCache) Set(context.Context, uint, int64)        {}
func (NopCache) Fill(context.Context, uint, int64)       {}
func (NopCache) Invalidate(context.Context, uint)        {}

type RedisCountCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCountCache(rdb *redis.Client, ttl time.Duration) *RedisCountCache {
	return &RedisCountCache{rdb: rdb, ttl: ttl}
}

func likeKey(postID uint) string { return fmt.Sprintf("blog:likes:%d", postID) }

func (c *RedisCountCache) Get(ctx context.Context, postID uint) (int64, bool) {
	n, err := c.rdb.Get(ctx, likeKey(postID)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logs.LogJSON("WARN", "Like cache read error", map[string]interface{}{
				"error":  err.Error(),
				"postID": postID,
			})
		}
		metrics.LikeCacheLookups.WithLabelValues("miss").Inc()
		return 0, false
	}
	metrics.LikeCacheLookups.WithLabelValues("hit").Inc()
	return n, true
}

func (c *RedisCountCache) Set(ctx context.Context, postID uint, count int64) {
	if err := c.rdb.Set(ctx, likeKey(postID), count, c.ttl).Err(); err != nil {
		logs.LogJSON("WARN", "Like cache write error", map[string]interface{}{
			"error":  err.Error(),
			"postID": postID,
		})
	}
}

func (c *RedisCountCache) Fill(ctx context.Context, postID uint, count int64) {
	if err := c.rdb.SetNX(ctx, likeKey(postID), count, c.ttl).Err(); err != nil {
		logs.LogJSON("WARN", "Like cache fill error", map[string]interface{}{
			"error":  err.Error(),
			"postID": postID,
		})
	}
}

func (c *RedisCountCache) Invalidate(ctx context.Context, postID uint) {
	if err := c.rdb.Del(ctx, likeKey(postID)).Err(); err != nil {
		logs.LogJSON("WARN", "Like cache invalidation error", map[string]interface{}{
			"error":  err.Error(),
			"postID": postID,
		})
	}
}
