// internal/service/inventory/infrastructure/stock_cache.go
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pkgredis "github.com/edidiesky/marketplace-api-sub001/internal/pkg/redis"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
)

// RedisStockCache keeps short-lived JSON copies of ledger entries. Two
// key shapes exist: the single item and the store-level listing; both
// are dropped on any mutation of the item.
type RedisStockCache struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func NewRedisStockCache(client *pkgredis.Client, ttl time.Duration) *RedisStockCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisStockCache{client: client, ttl: ttl}
}

func itemKey(storeID, productID string) string {
	return fmt.Sprintf("stock:%s:%s", storeID, productID)
}

func storeKey(storeID string) string {
	return fmt.Sprintf("stock:%s", storeID)
}

// Get returns (nil, nil) on a miss.
func (c *RedisStockCache) Get(ctx context.Context, productID, storeID string) (*domain.StockRecord, error) {
	data, err := c.client.GetClient().Get(ctx, itemKey(storeID, productID)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("stock cache get: %w", err)
	}
	var record domain.StockRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("stock cache decode: %w", err)
	}
	return &record, nil
}

func (c *RedisStockCache) Set(ctx context.Context, record *domain.StockRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("stock cache encode: %w", err)
	}
	if err := c.client.GetClient().Set(ctx, itemKey(record.StoreID, record.ProductID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("stock cache set: %w", err)
	}
	return nil
}

func (c *RedisStockCache) Invalidate(ctx context.Context, productID, storeID string) error {
	pipe := c.client.GetClient().Pipeline()
	pipe.Del(ctx, itemKey(storeID, productID))
	pipe.Del(ctx, storeKey(storeID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stock cache invalidate: %w", err)
	}
	return nil
}
