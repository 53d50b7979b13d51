package subscriber

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"orderlife/domain/order"
	"orderlife/domain/shared"
	"orderlife/pkg/logger"
)

// Notifier delivers a user-facing message. Implementations live in
// infrastructure; tests use an in-memory recorder.
type Notifier interface {
	Notify(ctx context.Context, receiverID, subject, body string) error
}

// NotificationSubscriber tells the affected user what happened to
// their order. Ownerless orders are skipped: expiry of a legacy import
// has nobody to tell.
type NotificationSubscriber struct {
	notifier Notifier
}

// NewNotificationSubscriber wires the subscriber.
func NewNotificationSubscriber(notifier Notifier) *NotificationSubscriber {
	return &NotificationSubscriber{notifier: notifier}
}

func (s *NotificationSubscriber) Name() string { return "notification" }

func (s *NotificationSubscriber) Handle(event shared.DomainEvent) error {
	carrier, ok := event.(interface {
		Order() *order.Order
		ReceiverID() string
	})
	if !ok {
		return nil
	}
	o := carrier.Order()
	receiver := carrier.ReceiverID()
	if receiver == "" {
		logger.Debug("skipping notification for ownerless order",
			zap.String("order_id", o.ID()),
			zap.String("event", event.EventName()))
		return nil
	}

	subject, body := render(event.EventName(), o)
	if err := s.notifier.Notify(context.Background(), receiver, subject, body); err != nil {
		return fmt.Errorf("notify %s for order %s: %w", receiver, o.ID(), err)
	}
	return nil
}

func render(eventName string, o *order.Order) (subject, body string) {
	switch eventName {
	case order.EventAfterOrderCancel:
		return "Order cancelled",
			fmt.Sprintf("Order %s has been cancelled: %s", o.Serial(), o.CancelReason())
	case order.EventOrderReceived:
		return "Order received",
			fmt.Sprintf("Order %s has been marked as received.", o.Serial())
	case order.EventAutoExpireOrderState:
		return "Order expired",
			fmt.Sprintf("Order %s expired because receipt was never confirmed.", o.Serial())
	case order.EventSupplierOrderReceived:
		return "Order accepted",
			fmt.Sprintf("Order %s has been accepted by the supplier.", o.Serial())
	case order.EventSupplierExpireAcceptOrder:
		return "Order expired",
			fmt.Sprintf("Order %s expired while waiting for fulfilment.", o.Serial())
	case order.EventAfterPriceRefund:
		return "Refund issued",
			fmt.Sprintf("A refund has been issued for order %s.", o.Serial())
	default:
		return "Order update", fmt.Sprintf("Order %s was updated.", o.Serial())
	}
}

var _ shared.EventHandler = (*NotificationSubscriber)(nil)
