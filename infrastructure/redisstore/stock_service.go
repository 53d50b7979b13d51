package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"orderlife/domain/stock"
)

const (
	stockKeyPrefix    = "orderlife:stock:"
	lockKeyPrefix     = "orderlife:stock_lock:"
	releasedKeyPrefix = "orderlife:stock_released:"

	// releasedMarkerTTL bounds how long the once-only release marker
	// survives. Far longer than any cancel event could be replayed.
	releasedMarkerTTL = 30 * 24 * time.Hour
)

// lockScript reserves quantities only if every SKU has enough free
// stock, so a multi-line order locks all-or-nothing.
var lockScript = redis.NewScript(`
for i = 1, #KEYS do
  local available = tonumber(redis.call('GET', KEYS[i]) or '0')
  if available < tonumber(ARGV[i]) then
    return i
  end
end
for i = 1, #KEYS do
  redis.call('DECRBY', KEYS[i], ARGV[i])
end
return 0
`)

// StockService is the Redis-backed inventory ledger.
type StockService struct {
	client *redis.Client
}

// NewStockService wires the service.
func NewStockService(client *redis.Client) *StockService {
	return &StockService{client: client}
}

func stockKey(skuID string) string { return stockKeyPrefix + skuID }

// LockStock reserves quantities for an order. Fails whole if any SKU
// lacks stock.
func (s *StockService) LockStock(ctx context.Context, orderID string, items []stock.Item) error {
	if len(items) == 0 {
		return nil
	}
	keys := make([]string, len(items))
	args := make([]interface{}, len(items))
	for i, item := range items {
		keys[i] = stockKey(item.SKUID)
		args[i] = item.Quantity
	}
	short, err := lockScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("lock stock for order %s: %w", orderID, err)
	}
	if short != 0 {
		return fmt.Errorf("insufficient stock for sku %s", items[short-1].SKUID)
	}
	if err := s.client.HSet(ctx, lockKeyPrefix+orderID, lockFields(items)).Err(); err != nil {
		return fmt.Errorf("record stock lock for order %s: %w", orderID, err)
	}
	return nil
}

// ReleaseStock returns locked quantities, exactly once per order. The
// recorded lock ledger is authoritative: no lock record means nothing
// was reserved (the lock failed, or a payment already consumed it), so
// the call is a no-op. A replayed cancel event finds the released
// marker and does nothing.
func (s *StockService) ReleaseStock(ctx context.Context, orderID string, _ []stock.Item) error {
	locked, err := s.client.HGetAll(ctx, lockKeyPrefix+orderID).Result()
	if err != nil {
		return fmt.Errorf("read stock lock for order %s: %w", orderID, err)
	}
	if len(locked) == 0 {
		return nil
	}
	first, err := s.client.SetNX(ctx, releasedKeyPrefix+orderID, 1, releasedMarkerTTL).Result()
	if err != nil {
		return fmt.Errorf("mark stock released for order %s: %w", orderID, err)
	}
	if !first {
		return nil
	}
	pipe := s.client.TxPipeline()
	for skuID, qty := range locked {
		pipe.IncrBy(ctx, stockKey(skuID), parseQuantity(qty))
	}
	pipe.Del(ctx, lockKeyPrefix+orderID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("release stock for order %s: %w", orderID, err)
	}
	return nil
}

// DeductStock converts the order's locked quantities into sold ones.
// The lock already removed them from the free pool, so the ledger only
// drops the lock record.
func (s *StockService) DeductStock(ctx context.Context, orderID string, items []stock.Item) error {
	if err := s.client.Del(ctx, lockKeyPrefix+orderID).Err(); err != nil {
		return fmt.Errorf("deduct stock for order %s: %w", orderID, err)
	}
	return nil
}

// IncreaseRealSales bumps the public sold counters.
func (s *StockService) IncreaseRealSales(ctx context.Context, items []stock.Item) error {
	pipe := s.client.TxPipeline()
	for _, item := range items {
		pipe.IncrBy(ctx, realSalesKey(item.SKUID), int64(item.Quantity))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increase real sales: %w", err)
	}
	return nil
}

func lockFields(items []stock.Item) map[string]interface{} {
	fields := make(map[string]interface{}, len(items))
	for _, item := range items {
		fields[item.SKUID] = item.Quantity
	}
	return fields
}

func parseQuantity(s string) int64 {
	qty, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return qty
}

var _ stock.Service = (*StockService)(nil)
