package subscriber

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"orderlife/domain/credit"
	"orderlife/domain/order"
	"orderlife/domain/shared"
	"orderlife/pkg/logger"
)

// CreditSubscriber coordinates loyalty points with the lifecycle: it
// verifies the balance before an order comes into existence, spends
// the points when the order is paid, and returns them on refund. The
// Before phase never deducts; an order cancelled unpaid must leave
// the buyer's balance untouched.
type CreditSubscriber struct {
	credits credit.Service
}

// NewCreditSubscriber wires the subscriber.
func NewCreditSubscriber(credits credit.Service) *CreditSubscriber {
	return &CreditSubscriber{credits: credits}
}

func (s *CreditSubscriber) Name() string { return "credit" }

func (s *CreditSubscriber) Handle(event shared.DomainEvent) error {
	ctx := context.Background()
	switch e := event.(type) {
	case *order.BeforeOrderCreatedEvent:
		return s.verifyOnCreate(ctx, e)
	case *order.OrderPaidEvent:
		return s.deductOnPaid(ctx, e)
	case *order.AfterPriceRefundEvent:
		return s.refundPoints(ctx, e)
	default:
		return nil
	}
}

// verifyOnCreate checks that the requested points are covered. An
// insufficient balance vetoes the creation; the actual deduction
// waits for payment.
func (s *CreditSubscriber) verifyOnCreate(ctx context.Context, e *order.BeforeOrderCreatedEvent) error {
	o := e.Order()
	points := o.CreditPoints()
	if points <= 0 {
		return nil
	}
	balance, err := s.credits.Balance(ctx, o.UserID())
	if err != nil {
		return fmt.Errorf("read credit balance for user %s: %w", o.UserID(), err)
	}
	if balance < points {
		logger.Warn("insufficient credit balance, vetoing order creation",
			zap.String("order_id", o.ID()),
			zap.Int64("points", points),
			zap.Int64("balance", balance))
		e.SetRollback(true, fmt.Sprintf("insufficient credit balance: have %d, need %d", balance, points))
	}
	return nil
}

func (s *CreditSubscriber) deductOnPaid(ctx context.Context, e *order.OrderPaidEvent) error {
	o := e.Order()
	points := o.CreditPoints()
	if points <= 0 {
		return nil
	}
	if err := s.credits.Deduct(ctx, o.UserID(), o.ID(), points); err != nil {
		return fmt.Errorf("deduct %d credit points for order %s: %w", points, o.ID(), err)
	}
	return nil
}

func (s *CreditSubscriber) refundPoints(ctx context.Context, e *order.AfterPriceRefundEvent) error {
	o := e.Order()
	if !o.HasOwner() {
		return nil
	}
	if err := s.credits.Refund(ctx, o.UserID(), o.ID(), e.Amount()); err != nil {
		return fmt.Errorf("refund credit for order %s: %w", o.ID(), err)
	}
	return nil
}

var _ shared.EventHandler = (*CreditSubscriber)(nil)
