// Package subscriber holds the side-effect handlers wired onto the
// event bus. Registration order is part of the contract: dispatch runs
// handlers in the order RegisterAll subscribes them, and for vetoable
// events the last writer of the rollback flag wins.
package subscriber

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"orderlife/domain/order"
	"orderlife/domain/shared"
	"orderlife/domain/stock"
	"orderlife/pkg/logger"
)

// StockSubscriber keeps inventory in step with the order lifecycle:
// lock on create, deduct on payment, release on cancel.
type StockSubscriber struct {
	stocks stock.Service
}

// NewStockSubscriber wires the subscriber.
func NewStockSubscriber(stocks stock.Service) *StockSubscriber {
	return &StockSubscriber{stocks: stocks}
}

func (s *StockSubscriber) Name() string { return "stock" }

func (s *StockSubscriber) Handle(event shared.DomainEvent) error {
	ctx := context.Background()
	switch e := event.(type) {
	case *order.BeforeOrderCreatedEvent:
		return s.lockOnCreate(ctx, e)
	case *order.OrderCreationDiscardedEvent:
		return s.releaseOnDiscard(ctx, e)
	case *order.OrderPaidEvent:
		return s.deductOnPaid(ctx, e)
	case *order.AfterOrderCancelEvent:
		return s.releaseOnCancel(ctx, e)
	default:
		return nil
	}
}

// lockOnCreate reserves stock for the unpersisted order. A failed
// reservation vetoes the creation instead of erroring: the order
// simply must not come into existence.
func (s *StockSubscriber) lockOnCreate(ctx context.Context, e *order.BeforeOrderCreatedEvent) error {
	o := e.Order()
	if err := s.stocks.LockStock(ctx, o.ID(), items(o)); err != nil {
		logger.Warn("stock lock failed, vetoing order creation",
			zap.String("order_id", o.ID()), zap.Error(err))
		e.SetRollback(true, fmt.Sprintf("insufficient stock: %v", err))
	}
	return nil
}

// releaseOnDiscard returns stock locked during the Before phase for an
// order that will never be persisted. The stock service releases from
// its own lock ledger, so the call is harmless when the lock itself
// was what vetoed the creation.
func (s *StockSubscriber) releaseOnDiscard(ctx context.Context, e *order.OrderCreationDiscardedEvent) error {
	o := e.Order()
	if err := s.stocks.ReleaseStock(ctx, o.ID(), items(o)); err != nil {
		return fmt.Errorf("release stock for discarded order %s: %w", o.ID(), err)
	}
	return nil
}

func (s *StockSubscriber) deductOnPaid(ctx context.Context, e *order.OrderPaidEvent) error {
	o := e.Order()
	if err := s.stocks.DeductStock(ctx, o.ID(), items(o)); err != nil {
		return fmt.Errorf("deduct stock for order %s: %w", o.ID(), err)
	}
	if err := s.stocks.IncreaseRealSales(ctx, items(o)); err != nil {
		return fmt.Errorf("increase real sales for order %s: %w", o.ID(), err)
	}
	return nil
}

// releaseOnCancel returns the locked quantities. The stock service is
// keyed by order id, so a replayed cancel event releases nothing the
// second time.
func (s *StockSubscriber) releaseOnCancel(ctx context.Context, e *order.AfterOrderCancelEvent) error {
	o := e.Order()
	if err := s.stocks.ReleaseStock(ctx, o.ID(), items(o)); err != nil {
		return fmt.Errorf("release stock for order %s: %w", o.ID(), err)
	}
	return nil
}

func items(o *order.Order) []stock.Item {
	var out []stock.Item
	for _, p := range o.Products() {
		out = append(out, stock.Item{SKUID: p.SKUID(), Quantity: p.Quantity()})
	}
	return out
}

var _ shared.EventHandler = (*StockSubscriber)(nil)
