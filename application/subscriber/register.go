package subscriber

import (
	"orderlife/domain/order"
	"orderlife/domain/shared"
)

// RegisterAll subscribes every side-effect handler in the canonical
// order: stock, credit, track-log, notification. Dispatch order and
// veto precedence both follow from this ordering, so it must not be
// rearranged without considering both.
func RegisterAll(bus shared.EventPublisher, stocks *StockSubscriber, credits *CreditSubscriber, logs *TrackLogSubscriber, notes *NotificationSubscriber) error {
	for _, name := range []string{
		order.EventBeforeOrderCreated,
		order.EventOrderCreationDiscarded,
		order.EventOrderPaid,
		order.EventAfterOrderCancel,
	} {
		if err := bus.Subscribe(name, stocks); err != nil {
			return err
		}
	}

	for _, name := range []string{
		order.EventBeforeOrderCreated,
		order.EventOrderPaid,
		order.EventAfterPriceRefund,
	} {
		if err := bus.Subscribe(name, credits); err != nil {
			return err
		}
	}

	for _, name := range AfterEventNames() {
		if err := bus.Subscribe(name, logs); err != nil {
			return err
		}
	}

	for _, name := range []string{
		order.EventAfterOrderCancel,
		order.EventOrderReceived,
		order.EventAutoExpireOrderState,
		order.EventSupplierOrderReceived,
		order.EventSupplierExpireAcceptOrder,
		order.EventAfterPriceRefund,
	} {
		if err := bus.Subscribe(name, notes); err != nil {
			return err
		}
	}
	return nil
}
