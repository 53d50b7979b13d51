// Package credit defines the loyalty-points operations the order
// lifecycle drives through its event subscribers.
package credit

import (
	"context"

	"orderlife/domain/shared"
)

// Service mutates a user's credit balance.
type Service interface {
	// Balance returns the user's current points balance.
	Balance(ctx context.Context, userID string) (int64, error)

	// Deduct spends points against an order, for example when points
	// part-fund a purchase. Insufficient balance is an error and, from
	// a Before-subscriber, grounds for a veto.
	Deduct(ctx context.Context, userID, orderID string, points int64) error

	// Refund returns points for a refunded amount.
	Refund(ctx context.Context, userID, orderID string, amount shared.Money) error
}
