// Package redisstore backs the inventory-facing counters with Redis:
// per-SKU sold totals and the stock ledger the order lifecycle locks
// and deducts against.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"orderlife/domain/stock"
)

const realSalesKeyPrefix = "orderlife:real_sales:"

// setIfHigherScript raises the counter only when the candidate beats
// the stored value. Running it server-side keeps the compare-and-set
// atomic against concurrent IncrBy calls.
var setIfHigherScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '-1')
local candidate = tonumber(ARGV[1])
if candidate > current then
  redis.call('SET', KEYS[1], ARGV[1])
  return 1
end
return 0
`)

// RealSalesStore is the Redis-backed per-SKU sold counter.
type RealSalesStore struct {
	client *redis.Client
}

// NewRealSalesStore wires the store.
func NewRealSalesStore(client *redis.Client) *RealSalesStore {
	return &RealSalesStore{client: client}
}

func realSalesKey(skuID string) string {
	return realSalesKeyPrefix + skuID
}

// SetIfHigher publishes a recomputed total unless the counter already
// moved past it.
func (s *RealSalesStore) SetIfHigher(ctx context.Context, skuID string, total int64) (bool, error) {
	raised, err := setIfHigherScript.Run(ctx, s.client, []string{realSalesKey(skuID)}, total).Int()
	if err != nil {
		return false, fmt.Errorf("set real sales for sku %s: %w", skuID, err)
	}
	return raised == 1, nil
}

// IncrBy bumps the counter as purchases commit.
func (s *RealSalesStore) IncrBy(ctx context.Context, skuID string, delta int64) (int64, error) {
	val, err := s.client.IncrBy(ctx, realSalesKey(skuID), delta).Result()
	if err != nil {
		return 0, fmt.Errorf("incr real sales for sku %s: %w", skuID, err)
	}
	return val, nil
}

// Get reads one counter; a missing key reads as zero.
func (s *RealSalesStore) Get(ctx context.Context, skuID string) (int64, error) {
	val, err := s.client.Get(ctx, realSalesKey(skuID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get real sales for sku %s: %w", skuID, err)
	}
	return val, nil
}

var _ stock.RealSalesStore = (*RealSalesStore)(nil)
