// internal/dispatcher/cache.go
package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/pkg/redis"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyCache stores transaction snapshots keyed by the caller's
// idempotency key. A nil cache disables idempotent replay.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) (*models.Transaction, bool)
	Set(ctx context.Context, key string, tx *models.Transaction)
}

// RedisCache keeps idempotency snapshots in Redis for 24 hours.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.Transaction, bool) {
	data, err := c.client.Get(ctx, "idempotency:"+key)
	if err != nil {
		return nil, false
	}

	var tx models.Transaction
	if err := json.Unmarshal([]byte(data), &tx); err != nil {
		c.logger.Warn("discarding corrupt idempotency snapshot", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &tx, true
}

func (c *RedisCache) Set(ctx context.Context, key string, tx *models.Transaction) {
	data, err := json.Marshal(tx)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, "idempotency:"+key, data, idempotencyTTL); err != nil {
		c.logger.Warn("failed to cache idempotency snapshot", zap.String("key", key), zap.Error(err))
	}
}
