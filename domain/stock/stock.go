// Package stock defines the inventory operations the order lifecycle
// drives. The implementations live in infrastructure; the lifecycle
// only ever talks to this interface through event subscribers.
package stock

import "context"

// Item is one SKU-quantity pair affected by an order operation.
type Item struct {
	SKUID    string
	Quantity int
}

// Service mutates inventory in reaction to order lifecycle events.
type Service interface {
	// LockStock reserves quantities when an order is created. Locked
	// stock is invisible to other buyers but not yet sold.
	LockStock(ctx context.Context, orderID string, items []Item) error

	// ReleaseStock returns previously locked quantities, once per
	// order, when the order is cancelled.
	ReleaseStock(ctx context.Context, orderID string, items []Item) error

	// DeductStock converts locked quantities into sold ones on
	// payment.
	DeductStock(ctx context.Context, orderID string, items []Item) error

	// IncreaseRealSales bumps the per-SKU sold counters shown on
	// product pages.
	IncreaseRealSales(ctx context.Context, items []Item) error
}

// RealSalesStore holds the per-SKU sold counters. SetIfHigher only
// ever raises a counter; concurrent purchases racing the sync job must
// not lower what they already published.
type RealSalesStore interface {
	SetIfHigher(ctx context.Context, skuID string, total int64) (bool, error)
	IncrBy(ctx context.Context, skuID string, delta int64) (int64, error)
	Get(ctx context.Context, skuID string) (int64, error)
}
