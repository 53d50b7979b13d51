package orderapp

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"orderlife/domain/order"
	"orderlife/domain/shared"
	"orderlife/pkg/logger"
)

// LifecycleService drives order state transitions. Every operation
// follows the same shape: load (or build) the aggregate, run the
// vetoable Before-event if the operation has one, apply the transition,
// persist under the optimistic version guard, then dispatch the After
// events the aggregate recorded.
//
// After-event subscriber failures come back wrapped in
// shared.ErrSubscriberFailed with the committed state untouched;
// callers must not treat them as a rollback.
type LifecycleService struct {
	repo order.Repository
	bus  shared.EventPublisher
	uow  shared.UnitOfWorkFactory
}

// NewLifecycleService wires the service. uow may be nil; without it,
// saves run in the repository's own transaction.
func NewLifecycleService(repo order.Repository, bus shared.EventPublisher, uow shared.UnitOfWorkFactory) *LifecycleService {
	return &LifecycleService{repo: repo, bus: bus, uow: uow}
}

// save persists the aggregate, under a unit of work when one is
// configured.
func (s *LifecycleService) save(ctx context.Context, o *order.Order) error {
	if s.uow == nil {
		return s.repo.Save(ctx, o)
	}
	return s.uow.New().Execute(ctx, func(txCtx context.Context) error {
		return s.repo.Save(txCtx, o)
	})
}

// CreateOrder builds a new order in INIT. The Before-event runs
// against the unpersisted aggregate; a veto discards it entirely and a
// Before-subscriber failure aborts the operation before persist.
func (s *LifecycleService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error) {
	o, err := order.NewOrder(cmd.UserID, cmd.Products, cmd.Prices, cmd.AutoCancelAt, cmd.Params)
	if err != nil {
		return nil, err
	}

	before := order.NewBeforeOrderCreatedEvent(o, cmd.Params)
	if err := s.bus.Publish(before); err != nil {
		logger.Warn("before-create subscriber failed, aborting",
			zap.String("order_id", o.ID()), zap.Error(err))
		s.discardCreation(o, "before-create subscriber failed")
		return nil, err
	}
	if before.RollbackRequested() {
		logger.Info("order creation vetoed",
			zap.String("order_id", o.ID()),
			zap.String("reason", before.RollbackReason()))
		s.discardCreation(o, before.RollbackReason())
		return &CreateOrderResult{Vetoed: true, VetoReason: before.RollbackReason()}, nil
	}

	if err := s.save(ctx, o); err != nil {
		s.discardCreation(o, "persist failed")
		return nil, err
	}
	err = s.publishPulled(o)
	return &CreateOrderResult{Order: ToOrderDTO(o)}, err
}

// discardCreation tells Before-subscribers the order they saw will
// never exist, so resources reserved during the Before phase can be
// returned. Compensation is best effort: a failing handler is logged,
// not propagated.
func (s *LifecycleService) discardCreation(o *order.Order, reason string) {
	if err := s.bus.Publish(order.NewOrderCreationDiscardedEvent(o, reason)); err != nil {
		logger.Error("creation-discard compensation failed",
			zap.String("order_id", o.ID()), zap.Error(err))
	}
}

// ChangeProductQuantity adjusts a line item on an order that has not
// been paid yet; once stock is deducted the quantity is locked.
func (s *LifecycleService) ChangeProductQuantity(ctx context.Context, orderID, skuID string, quantity int) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.ChangeProductQuantity(skuID, quantity)
	})
}

// CancelOrder cancels an order on behalf of an actor. Legal only from
// INIT or PAYING; anything else returns order.ErrIllegalTransition
// with nothing persisted and nothing dispatched.
func (s *LifecycleService) CancelOrder(ctx context.Context, orderID, actorID, reason string) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.Cancel(actorID, reason)
	})
}

// CancelOrderForTimeout is CancelOrder with the sweep's timeout-marker
// reason derived from the order's own deadline.
func (s *LifecycleService) CancelOrderForTimeout(ctx context.Context, orderID, actorID string) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.CancelForTimeout(actorID)
	})
}

// MarkPaid records a completed payment and arms the receipt deadline.
func (s *LifecycleService) MarkPaid(ctx context.Context, orderID, tradeNo string, amount shared.Money, paidAt, receiveDeadline time.Time) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.MarkPaid(tradeNo, amount, paidAt, receiveDeadline)
	})
}

// MarkShipped records full shipment.
func (s *LifecycleService) MarkShipped(ctx context.Context, orderID string) (*OrderDTO, error) {
	return s.transition(ctx, orderID, (*order.Order).MarkShipped)
}

// MarkPartShipped records partial shipment.
func (s *LifecycleService) MarkPartShipped(ctx context.Context, orderID string) (*OrderDTO, error) {
	return s.transition(ctx, orderID, (*order.Order).MarkPartShipped)
}

// MarkReceived confirms receipt by the given actor.
func (s *LifecycleService) MarkReceived(ctx context.Context, orderID, actorID string) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.MarkReceived(actorID)
	})
}

// MarkExpired expires an order on behalf of the system actor. The
// aggregate applies no source-state guard here; the caller selects
// eligible orders and the optimistic lock arbitrates races.
func (s *LifecycleService) MarkExpired(ctx context.Context, orderID, actorID string) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		o.MarkExpired(actorID)
		return nil
	})
}

// SubmitForAudit routes an order to supplier review.
func (s *LifecycleService) SubmitForAudit(ctx context.Context, orderID string) (*OrderDTO, error) {
	return s.transition(ctx, orderID, (*order.Order).SubmitForAudit)
}

// AcceptBySupplier records the supplier taking the order.
func (s *LifecycleService) AcceptBySupplier(ctx context.Context, orderID, supplierID string) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.AcceptBySupplier(supplierID)
	})
}

// RejectBySupplier records the supplier declining the order.
func (s *LifecycleService) RejectBySupplier(ctx context.Context, orderID, supplierID string) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.RejectBySupplier(supplierID)
	})
}

// ExpireSupplierAccept expires an accepted order the supplier never
// fulfilled.
func (s *LifecycleService) ExpireSupplierAccept(ctx context.Context, orderID, actorID string) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.ExpireSupplierAccept(actorID)
	})
}

// RefundPrices refunds every paid, refundable, not-yet-refunded price
// component. The Before-event runs against the loaded aggregate with
// the components about to be refunded; a veto leaves everything as it
// was.
func (s *LifecycleService) RefundPrices(ctx context.Context, orderID, actorID string) (*RefundResult, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	components := o.RefundablePrices()
	if len(components) == 0 {
		return nil, order.NewOrderValidationError(order.ErrNothingToRefund,
			"order "+orderID+" has no refundable price component")
	}

	before := order.NewBeforePriceRefundEvent(o, components)
	if err := s.bus.Publish(before); err != nil {
		logger.Warn("before-refund subscriber failed, aborting",
			zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}
	if before.RollbackRequested() {
		logger.Info("refund vetoed",
			zap.String("order_id", orderID),
			zap.String("reason", before.RollbackReason()))
		return &RefundResult{Vetoed: true, VetoReason: before.RollbackReason()}, nil
	}

	amount, err := o.RefundableAmount()
	if err != nil {
		return nil, err
	}
	if err := o.MarkPricesRefunded(actorID); err != nil {
		return nil, err
	}
	if err := s.save(ctx, o); err != nil {
		return nil, err
	}
	err = s.publishPulled(o)
	return &RefundResult{
		Order:          ToOrderDTO(o),
		RefundedAmount: amount.Amount(),
		Currency:       amount.Currency(),
	}, err
}

// GetOrder loads an order by id.
func (s *LifecycleService) GetOrder(ctx context.Context, orderID string) (*OrderDTO, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(o), nil
}

// GetOrderBySerial loads an order by its human-facing serial.
func (s *LifecycleService) GetOrderBySerial(ctx context.Context, serial string) (*OrderDTO, error) {
	o, err := s.repo.FindBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(o), nil
}

// transition is the load/mutate/save/dispatch spine shared by every
// non-vetoable operation.
func (s *LifecycleService) transition(ctx context.Context, orderID string, mutate func(*order.Order) error) (*OrderDTO, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := mutate(o); err != nil {
		return nil, err
	}
	if err := s.save(ctx, o); err != nil {
		return nil, err
	}
	err = s.publishPulled(o)
	return ToOrderDTO(o), err
}

// publishPulled dispatches the After events the aggregate recorded
// during a now-committed mutation. Failures are logged and surfaced,
// but a non-nil return here never means the transition was undone.
func (s *LifecycleService) publishPulled(o *order.Order) error {
	var firstErr error
	for _, event := range o.PullEvents() {
		if err := s.bus.Publish(event); err != nil {
			logger.Error("after-event subscriber failed",
				zap.String("order_id", o.ID()),
				zap.String("event", event.EventName()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// IsSubscriberFailure reports whether err is a committed-state
// subscriber failure rather than a rejected or rolled-back operation.
func IsSubscriberFailure(err error) bool {
	return errors.Is(err, shared.ErrSubscriberFailed)
}
