package order

import (
	"context"
	"time"
)

// Repository abstracts order persistence. Save applies an optimistic
// version guard: persisting an order whose stored version moved on
// returns an error matching ErrConcurrentModification.
type Repository interface {
	// NextIdentity reserves a new aggregate identity.
	NextIdentity() string

	// Save inserts a new order or updates an existing one under the
	// version guard. On success the aggregate's version has been
	// incremented.
	Save(ctx context.Context, o *Order) error

	// FindByID loads one order with its line items, price components
	// and payment record.
	FindByID(ctx context.Context, id string) (*Order, error)

	// FindBySerial loads one order by its human-facing serial.
	FindBySerial(ctx context.Context, serial string) (*Order, error)

	// FindEligibleForCancel returns unpaid orders whose auto-cancel
	// deadline passed before now, ordered by deadline ascending. The
	// query runs live: callers re-query between batches instead of
	// snapshotting, and offset skips rows still eligible after an
	// earlier pass.
	FindEligibleForCancel(ctx context.Context, now time.Time, offset, limit int) ([]*Order, error)

	// CountEligibleForCancel counts what FindEligibleForCancel would
	// return at offset zero.
	CountEligibleForCancel(ctx context.Context, now time.Time) (int64, error)

	// ForEachEligibleReceiptExpiry streams orders whose receipt
	// deadline passed before now, invoking fn per order. fn errors are
	// the caller's to aggregate; iteration stops only on ctx or query
	// failure.
	ForEachEligibleReceiptExpiry(ctx context.Context, now time.Time, batchSize int, fn func(*Order) error) error

	// ClearSession drops session-level caches between sweep batches so
	// long-running jobs see fresh rows.
	ClearSession()
}

// SKUSales is one SKU's committed sales quantity, aggregated over
// orders that reached a sold state.
type SKUSales struct {
	SKUID    string
	Quantity int64
}

// SalesQuery answers read-side sales questions the sync job needs.
type SalesQuery interface {
	// RealSalesBySKU aggregates sold quantities per SKU across paid
	// and later-stage orders.
	RealSalesBySKU(ctx context.Context) ([]SKUSales, error)
}
