package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/orbs-network/twap-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// optimisticTTL expires locally created orders that the indexer never
// confirms, e.g. after a chain reorg drops the creation transaction.
const optimisticTTL = 24 * time.Hour

// OptimisticCache implements domain.OptimisticCache using one Redis hash per
// chain. Orders the indexer has not ingested yet are stored at key
// "twap:optimistic:{chainID}" with the order id as the field name and the
// JSON-serialized order as the value.
type OptimisticCache struct {
	rdb *redis.Client
}

// NewOptimisticCache creates an OptimisticCache backed by the given Client.
func NewOptimisticCache(c *Client) *OptimisticCache {
	return &OptimisticCache{rdb: c.Underlying()}
}

func optimisticKey(chainID int64) string {
	return "twap:optimistic:" + strconv.FormatInt(chainID, 10)
}

// Put stores a locally created order. Writing the same order id twice
// overwrites the previous entry.
func (oc *OptimisticCache) Put(ctx context.Context, chainID int64, order domain.HistoryOrder) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("redis: marshal optimistic order %d: %w", order.ID, err)
	}

	key := optimisticKey(chainID)
	field := strconv.FormatInt(order.ID, 10)

	pipe := oc.rdb.TxPipeline()
	pipe.HSet(ctx, key, field, data)
	pipe.Expire(ctx, key, optimisticTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: put optimistic order %d: %w", order.ID, err)
	}
	return nil
}

// List returns all pending orders for a chain. A missing key yields an empty
// slice, not an error.
func (oc *OptimisticCache) List(ctx context.Context, chainID int64) ([]domain.HistoryOrder, error) {
	vals, err := oc.rdb.HGetAll(ctx, optimisticKey(chainID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list optimistic orders chain %d: %w", chainID, err)
	}

	orders := make([]domain.HistoryOrder, 0, len(vals))
	for field, raw := range vals {
		var order domain.HistoryOrder
		if err := json.Unmarshal([]byte(raw), &order); err != nil {
			return nil, fmt.Errorf("redis: unmarshal optimistic order %s: %w", field, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// Delete removes a pending order once the indexer has confirmed it. Deleting
// an absent order id is a no-op.
func (oc *OptimisticCache) Delete(ctx context.Context, chainID, orderID int64) error {
	key := optimisticKey(chainID)
	field := strconv.FormatInt(orderID, 10)
	if err := oc.rdb.HDel(ctx, key, field).Err(); err != nil {
		return fmt.Errorf("redis: delete optimistic order %d: %w", orderID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.OptimisticCache = (*OptimisticCache)(nil)
