package subscriber

import (
	"context"
	"fmt"

	"orderlife/domain/order"
	"orderlife/domain/shared"
)

// TrackLogSubscriber appends one audit row per committed lifecycle
// event. It listens to every After-event; Before-events never reach an
// audit trail because nothing has happened yet.
type TrackLogSubscriber struct {
	logs order.TrackLogRepository
}

// NewTrackLogSubscriber wires the subscriber.
func NewTrackLogSubscriber(logs order.TrackLogRepository) *TrackLogSubscriber {
	return &TrackLogSubscriber{logs: logs}
}

func (s *TrackLogSubscriber) Name() string { return "track-log" }

// AfterEventNames lists the events an audit row is written for.
func AfterEventNames() []string {
	return []string{
		order.EventAfterOrderCreated,
		order.EventOrderPaid,
		order.EventOrderReceived,
		order.EventAfterOrderCancel,
		order.EventAutoExpireOrderState,
		order.EventSupplierOrderReceived,
		order.EventSupplierExpireAcceptOrder,
		order.EventAfterPriceRefund,
	}
}

func (s *TrackLogSubscriber) Handle(event shared.DomainEvent) error {
	carrier, ok := event.(interface{ Order() *order.Order })
	if !ok {
		return nil
	}
	o := carrier.Order()

	actorID := o.UserID()
	if sender, ok := event.(interface{ SenderID() string }); ok && sender.SenderID() != "" {
		actorID = sender.SenderID()
	}

	remark := ""
	if e, ok := event.(*order.AfterOrderCancelEvent); ok {
		remark = e.Reason()
	}

	row := order.NewTrackLog(o.ID(), actorID, event.EventName(),
		o.PreviousState(), o.State(), remark)
	if err := s.logs.Append(context.Background(), row); err != nil {
		return fmt.Errorf("append track log for order %s: %w", o.ID(), err)
	}
	return nil
}

var _ shared.EventHandler = (*TrackLogSubscriber)(nil)
