package order

import (
	"time"

	"orderlife/domain/shared"
)

// Lifecycle event names. Dispatch is synchronous and in registration
// order; Before-events are the only veto point.
const (
	EventBeforeOrderCreated        = "order.before_created"
	EventAfterOrderCreated         = "order.created"
	EventOrderPaid                 = "order.paid"
	EventOrderReceived             = "order.received"
	EventAfterOrderCancel          = "order.cancelled"
	EventAutoExpireOrderState      = "order.auto_expired"
	EventSupplierOrderReceived     = "order.supplier_received"
	EventSupplierExpireAcceptOrder = "order.supplier_accept_expired"
	EventBeforePriceRefund         = "order.before_price_refund"
	EventAfterPriceRefund          = "order.price_refunded"
	EventOrderCreationDiscarded    = "order.creation_discarded"
)

// baseEvent carries what every lifecycle event shares: the order
// reference and the occurrence time.
type baseEvent struct {
	order      *Order
	occurredOn time.Time
}

func (e *baseEvent) OccurredOn() time.Time  { return e.occurredOn }
func (e *baseEvent) GetAggregateID() string { return e.order.ID() }
func (e *baseEvent) Order() *Order          { return e.order }

// interactionEvent additionally carries the initiating identity and
// the identity the reaction (notification) is addressed to.
type interactionEvent struct {
	baseEvent
	senderID   string
	receiverID string
}

func (e *interactionEvent) SenderID() string   { return e.senderID }
func (e *interactionEvent) ReceiverID() string { return e.receiverID }

// BeforeOrderCreatedEvent runs before the order is persisted. It is
// vetoable and carries the raw parameter set the order was built from,
// so subscribers can inspect it before commit.
type BeforeOrderCreatedEvent struct {
	baseEvent
	shared.VetoFlag
	params map[string]any
}

// NewBeforeOrderCreatedEvent wraps the unpersisted order and its raw
// creation parameters.
func NewBeforeOrderCreatedEvent(o *Order, params map[string]any) *BeforeOrderCreatedEvent {
	return &BeforeOrderCreatedEvent{
		baseEvent: baseEvent{order: o, occurredOn: time.Now()},
		params:    params,
	}
}

func (e *BeforeOrderCreatedEvent) EventName() string      { return EventBeforeOrderCreated }
func (e *BeforeOrderCreatedEvent) Params() map[string]any { return e.params }

// AfterOrderCreatedEvent announces a committed order.
type AfterOrderCreatedEvent struct {
	baseEvent
	params map[string]any
}

func NewAfterOrderCreatedEvent(o *Order, params map[string]any) *AfterOrderCreatedEvent {
	return &AfterOrderCreatedEvent{
		baseEvent: baseEvent{order: o, occurredOn: time.Now()},
		params:    params,
	}
}

func (e *AfterOrderCreatedEvent) EventName() string      { return EventAfterOrderCreated }
func (e *AfterOrderCreatedEvent) Params() map[string]any { return e.params }

// OrderCreationDiscardedEvent announces that an order published on
// BeforeOrderCreated will never be persisted, either because a
// subscriber vetoed it or because the persist failed. Subscribers
// that reserved resources during the Before phase compensate here.
type OrderCreationDiscardedEvent struct {
	baseEvent
	reason string
}

func NewOrderCreationDiscardedEvent(o *Order, reason string) *OrderCreationDiscardedEvent {
	return &OrderCreationDiscardedEvent{
		baseEvent: baseEvent{order: o, occurredOn: time.Now()},
		reason:    reason,
	}
}

func (e *OrderCreationDiscardedEvent) EventName() string { return EventOrderCreationDiscarded }
func (e *OrderCreationDiscardedEvent) Reason() string    { return e.reason }

// OrderPaidEvent announces a committed payment.
type OrderPaidEvent struct {
	baseEvent
	tradeNo string
	amount  shared.Money
}

func NewOrderPaidEvent(o *Order, tradeNo string, amount shared.Money) *OrderPaidEvent {
	return &OrderPaidEvent{
		baseEvent: baseEvent{order: o, occurredOn: time.Now()},
		tradeNo:   tradeNo,
		amount:    amount,
	}
}

func (e *OrderPaidEvent) EventName() string    { return EventOrderPaid }
func (e *OrderPaidEvent) TradeNo() string      { return e.tradeNo }
func (e *OrderPaidEvent) Amount() shared.Money { return e.amount }

// OrderReceivedEvent announces a confirmed receipt.
type OrderReceivedEvent struct {
	interactionEvent
}

func NewOrderReceivedEvent(o *Order, senderID, receiverID string) *OrderReceivedEvent {
	return &OrderReceivedEvent{
		interactionEvent: interactionEvent{
			baseEvent:  baseEvent{order: o, occurredOn: time.Now()},
			senderID:   senderID,
			receiverID: receiverID,
		},
	}
}

func (e *OrderReceivedEvent) EventName() string { return EventOrderReceived }

// AfterOrderCancelEvent announces a committed cancellation. Stock
// locked against the order's line items is released exactly once by
// the stock subscriber reacting to this event.
type AfterOrderCancelEvent struct {
	interactionEvent
	reason string
}

func NewAfterOrderCancelEvent(o *Order, senderID, receiverID, reason string) *AfterOrderCancelEvent {
	return &AfterOrderCancelEvent{
		interactionEvent: interactionEvent{
			baseEvent:  baseEvent{order: o, occurredOn: time.Now()},
			senderID:   senderID,
			receiverID: receiverID,
		},
		reason: reason,
	}
}

func (e *AfterOrderCancelEvent) EventName() string { return EventAfterOrderCancel }
func (e *AfterOrderCancelEvent) Reason() string    { return e.reason }

// AutoExpireOrderStateEvent announces that the receipt-timeout sweep
// expired the order; dispatched only when the order has an owner.
type AutoExpireOrderStateEvent struct {
	interactionEvent
}

func NewAutoExpireOrderStateEvent(o *Order, senderID, receiverID string) *AutoExpireOrderStateEvent {
	return &AutoExpireOrderStateEvent{
		interactionEvent: interactionEvent{
			baseEvent:  baseEvent{order: o, occurredOn: time.Now()},
			senderID:   senderID,
			receiverID: receiverID,
		},
	}
}

func (e *AutoExpireOrderStateEvent) EventName() string { return EventAutoExpireOrderState }

// SupplierOrderReceivedEvent announces that the supplier accepted the
// order for fulfilment.
type SupplierOrderReceivedEvent struct {
	interactionEvent
}

func NewSupplierOrderReceivedEvent(o *Order, senderID, receiverID string) *SupplierOrderReceivedEvent {
	return &SupplierOrderReceivedEvent{
		interactionEvent: interactionEvent{
			baseEvent:  baseEvent{order: o, occurredOn: time.Now()},
			senderID:   senderID,
			receiverID: receiverID,
		},
	}
}

func (e *SupplierOrderReceivedEvent) EventName() string { return EventSupplierOrderReceived }

// SupplierExpireAcceptOrderEvent announces that an accepted order sat
// unfulfilled past its acceptance window.
type SupplierExpireAcceptOrderEvent struct {
	interactionEvent
}

func NewSupplierExpireAcceptOrderEvent(o *Order, senderID, receiverID string) *SupplierExpireAcceptOrderEvent {
	return &SupplierExpireAcceptOrderEvent{
		interactionEvent: interactionEvent{
			baseEvent:  baseEvent{order: o, occurredOn: time.Now()},
			senderID:   senderID,
			receiverID: receiverID,
		},
	}
}

func (e *SupplierExpireAcceptOrderEvent) EventName() string { return EventSupplierExpireAcceptOrder }

// BeforePriceRefundEvent runs before refund flags are persisted. It is
// vetoable and carries the components about to be refunded.
type BeforePriceRefundEvent struct {
	baseEvent
	shared.VetoFlag
	components []Price
}

func NewBeforePriceRefundEvent(o *Order, components []Price) *BeforePriceRefundEvent {
	return &BeforePriceRefundEvent{
		baseEvent:  baseEvent{order: o, occurredOn: time.Now()},
		components: components,
	}
}

func (e *BeforePriceRefundEvent) EventName() string   { return EventBeforePriceRefund }
func (e *BeforePriceRefundEvent) Components() []Price { return e.components }

// AfterPriceRefundEvent announces a committed refund. The credit
// subscriber reacting to it credits points back.
type AfterPriceRefundEvent struct {
	interactionEvent
	amount shared.Money
}

func NewAfterPriceRefundEvent(o *Order, senderID, receiverID string, amount shared.Money) *AfterPriceRefundEvent {
	return &AfterPriceRefundEvent{
		interactionEvent: interactionEvent{
			baseEvent:  baseEvent{order: o, occurredOn: time.Now()},
			senderID:   senderID,
			receiverID: receiverID,
		},
		amount: amount,
	}
}

func (e *AfterPriceRefundEvent) EventName() string    { return EventAfterPriceRefund }
func (e *AfterPriceRefundEvent) Amount() shared.Money { return e.amount }
