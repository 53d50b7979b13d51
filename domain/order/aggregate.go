package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"orderlife/domain/shared"
)

// Order is the aggregate root for the purchase lifecycle. All state
// mutation goes through its methods so the transition table in
// state.go is the single gate; repositories rebuild it through
// ReconstructionDTO and never touch the fields directly.
type Order struct {
	id                string
	serial            string
	userID            string
	state             State
	previousState     State
	cancelReason      string
	autoCancelTime    *time.Time
	expireReceiveTime *time.Time
	totalAmount       shared.Money
	creditPoints      int64
	lockVersion       int
	products          []Product
	prices            []Price
	payOrder          *PayOrder
	createdAt         time.Time
	updatedAt         time.Time

	events []shared.DomainEvent
	isNew  bool
}

var _ shared.AggregateRoot = (*Order)(nil)

// TimeoutCancelReason is the marker the expiry sweep embeds in the
// cancel reason together with the deadline that was missed.
const TimeoutCancelReason = "timeout"

// ParamCreditPoints is the creation-parameter key naming how many
// loyalty points the buyer wants to spend on the order. The points are
// only verified at creation; the deduction happens on payment.
const ParamCreditPoints = "credit_points"

func creditPointsFromParams(params map[string]any) (int64, error) {
	switch v := params[ParamCreditPoints].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, NewOrderValidationError(ErrInvalidCreditPoints,
			fmt.Sprintf("%s must be an integer, got %T", ParamCreditPoints, v))
	}
}

// GenerateSerial produces a human-facing order serial: a millisecond
// timestamp prefix keeps serials roughly sortable, the UUID fragment
// keeps them unique under concurrency.
func GenerateSerial() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("SO%d%s", time.Now().UnixMilli(), suffix)
}

// NewOrder creates an order in StateInit. The auto-cancel deadline is
// fixed at creation; the receipt deadline is only set once the order
// is paid. params is the raw creation parameter set: recognized keys
// (ParamCreditPoints) are parsed onto the aggregate, and the whole map
// rides on the creation events for subscribers to inspect.
func NewOrder(userID string, products []ProductRequest, prices []PriceRequest, autoCancelAt time.Time, params map[string]any) (*Order, error) {
	if userID == "" {
		return nil, shared.NewValidationError("order", "userID", "user id is required")
	}
	if len(products) == 0 {
		return nil, NewOrderValidationError(ErrEmptyOrderProducts, "order must contain at least one product")
	}

	points, err := creditPointsFromParams(params)
	if err != nil {
		return nil, err
	}
	if points < 0 {
		return nil, NewOrderValidationError(ErrInvalidCreditPoints,
			fmt.Sprintf("%s must not be negative, got %d", ParamCreditPoints, points))
	}

	now := time.Now()
	o := &Order{
		id:             uuid.NewString(),
		serial:         GenerateSerial(),
		userID:         userID,
		state:          StateInit,
		autoCancelTime: &autoCancelAt,
		creditPoints:   points,
		createdAt:      now,
		updatedAt:      now,
		isNew:          true,
	}

	var total shared.Money
	for _, req := range products {
		if req.Quantity <= 0 {
			return nil, NewOrderValidationError(ErrInvalidQuantity,
				fmt.Sprintf("sku %s: quantity must be positive, got %d", req.SKUID, req.Quantity))
		}
		p := newProduct(req)
		line, err := p.unitPrice.Multiply(int64(req.Quantity))
		if err != nil {
			return nil, err
		}
		if p.source == SourceNormal {
			total, err = total.Add(line)
			if err != nil {
				return nil, err
			}
		}
		o.products = append(o.products, p)
	}
	for _, req := range prices {
		o.prices = append(o.prices, newPrice(req))
	}
	o.totalAmount = total

	o.recordEvent(NewAfterOrderCreatedEvent(o, params))
	return o, nil
}

func (o *Order) ID() string                    { return o.id }
func (o *Order) Serial() string                { return o.serial }
func (o *Order) UserID() string                { return o.userID }
func (o *Order) State() State                  { return o.state }
func (o *Order) PreviousState() State          { return o.previousState }
func (o *Order) CancelReason() string          { return o.cancelReason }
func (o *Order) AutoCancelTime() *time.Time    { return o.autoCancelTime }
func (o *Order) ExpireReceiveTime() *time.Time { return o.expireReceiveTime }
func (o *Order) TotalAmount() shared.Money     { return o.totalAmount }
func (o *Order) CreditPoints() int64           { return o.creditPoints }
func (o *Order) Version() int                  { return o.lockVersion }
func (o *Order) Products() []Product           { return o.products }
func (o *Order) Prices() []Price               { return o.prices }
func (o *Order) PayOrder() *PayOrder           { return o.payOrder }
func (o *Order) CreatedAt() time.Time          { return o.createdAt }
func (o *Order) UpdatedAt() time.Time          { return o.updatedAt }
func (o *Order) IsNew() bool                   { return o.isNew }

// HasOwner reports whether the order is attributed to a user. Sweeps
// can encounter ownerless rows imported from legacy systems; those
// still transition but emit no user-facing events.
func (o *Order) HasOwner() bool { return o.userID != "" }

// Cancel moves the order to StateCanceled. Legal only before payment
// completes, i.e. from StateInit or StatePaying.
func (o *Order) Cancel(actorID, reason string) error {
	if !o.state.CanCancel() {
		return NewIllegalTransitionError(o.state, StateCanceled)
	}
	o.transitionTo(StateCanceled)
	o.cancelReason = reason
	o.recordEvent(NewAfterOrderCancelEvent(o, actorID, o.userID, reason))
	return nil
}

// CancelForTimeout is the sweep variant of Cancel: the reason embeds
// the deadline that was missed so support can distinguish automatic
// cancellations from user-initiated ones.
func (o *Order) CancelForTimeout(actorID string) error {
	deadline := "unknown"
	if o.autoCancelTime != nil {
		deadline = o.autoCancelTime.Format(time.RFC3339)
	}
	return o.Cancel(actorID, fmt.Sprintf("%s: auto-cancel deadline %s passed", TimeoutCancelReason, deadline))
}

// MarkPaid records the completed payment and arms the receipt
// deadline. Legal from StateInit (one-shot payment) or StatePaying.
func (o *Order) MarkPaid(tradeNo string, amount shared.Money, paidAt, receiveDeadline time.Time) error {
	if !o.state.CanTransitionTo(StatePaid) {
		return NewIllegalTransitionError(o.state, StatePaid)
	}
	o.transitionTo(StatePaid)
	o.payOrder = newPayOrder(tradeNo, amount, paidAt)
	o.expireReceiveTime = &receiveDeadline
	for i := range o.prices {
		o.prices[i].markPaid()
	}
	for i := range o.products {
		o.products[i].markStockDeducted()
	}
	o.recordEvent(NewOrderPaidEvent(o, tradeNo, amount))
	return nil
}

// MarkShipped records full shipment.
func (o *Order) MarkShipped() error {
	if !o.state.CanTransitionTo(StateShipped) {
		return NewIllegalTransitionError(o.state, StateShipped)
	}
	o.transitionTo(StateShipped)
	return nil
}

// MarkPartShipped records that a subset of the line items shipped.
func (o *Order) MarkPartShipped() error {
	if !o.state.CanTransitionTo(StatePartShipped) {
		return NewIllegalTransitionError(o.state, StatePartShipped)
	}
	o.transitionTo(StatePartShipped)
	return nil
}

// MarkReceived confirms receipt, either by the buyer or by the receipt
// sweep acting as the system identity.
func (o *Order) MarkReceived(actorID string) error {
	if !o.state.CanTransitionTo(StateReceived) {
		return NewIllegalTransitionError(o.state, StateReceived)
	}
	o.transitionTo(StateReceived)
	o.recordEvent(NewOrderReceivedEvent(o, actorID, o.userID))
	return nil
}

// MarkExpired moves the order to StateExpired without consulting the
// transition table. Callers are expected to have selected eligible
// orders themselves; the optimistic lock on save is the only guard.
func (o *Order) MarkExpired(actorID string) {
	o.transitionTo(StateExpired)
	if o.HasOwner() {
		o.recordEvent(NewAutoExpireOrderStateEvent(o, actorID, o.userID))
	}
}

// SubmitForAudit routes the order to supplier review.
func (o *Order) SubmitForAudit() error {
	if !o.state.CanTransitionTo(StateAuditing) {
		return NewIllegalTransitionError(o.state, StateAuditing)
	}
	o.transitionTo(StateAuditing)
	return nil
}

// AcceptBySupplier records the supplier taking the order.
func (o *Order) AcceptBySupplier(supplierID string) error {
	if !o.state.CanTransitionTo(StateAcceptOrder) {
		return NewIllegalTransitionError(o.state, StateAcceptOrder)
	}
	o.transitionTo(StateAcceptOrder)
	o.recordEvent(NewSupplierOrderReceivedEvent(o, supplierID, o.userID))
	return nil
}

// RejectBySupplier records the supplier declining the order.
func (o *Order) RejectBySupplier(supplierID string) error {
	if !o.state.CanTransitionTo(StateRejectOrder) {
		return NewIllegalTransitionError(o.state, StateRejectOrder)
	}
	o.transitionTo(StateRejectOrder)
	return nil
}

// ExpireSupplierAccept expires an accepted order the supplier never
// fulfilled.
func (o *Order) ExpireSupplierAccept(actorID string) error {
	if !o.state.CanTransitionTo(StateExpired) {
		return NewIllegalTransitionError(o.state, StateExpired)
	}
	o.transitionTo(StateExpired)
	o.recordEvent(NewSupplierExpireAcceptOrderEvent(o, actorID, o.userID))
	return nil
}

// ChangeProductQuantity adjusts a line item's quantity. Legal only
// while no stock has been deducted against the line, i.e. before
// payment; the order total is recomputed from the surviving lines.
func (o *Order) ChangeProductQuantity(skuID string, quantity int) error {
	for i := range o.products {
		if o.products[i].skuID != skuID {
			continue
		}
		if err := o.products[i].setQuantity(quantity); err != nil {
			return err
		}
		return o.recomputeTotal()
	}
	return NewOrderValidationError(ErrUnknownProduct, "sku "+skuID+" is not on the order")
}

func (o *Order) recomputeTotal() error {
	var total shared.Money
	for _, p := range o.products {
		if p.source != SourceNormal {
			continue
		}
		line, err := p.unitPrice.Multiply(int64(p.quantity))
		if err != nil {
			return err
		}
		total, err = total.Add(line)
		if err != nil {
			return err
		}
	}
	o.totalAmount = total
	o.touch()
	return nil
}

// RefundablePrices returns the price components that have been paid
// and not yet refunded.
func (o *Order) RefundablePrices() []Price {
	var out []Price
	for _, p := range o.prices {
		if p.refundable() {
			out = append(out, p)
		}
	}
	return out
}

// RefundableAmount sums the refundable components.
func (o *Order) RefundableAmount() (shared.Money, error) {
	var total shared.Money
	var err error
	for _, p := range o.RefundablePrices() {
		total, err = total.Add(p.Amount())
		if err != nil {
			return shared.Money{}, err
		}
	}
	return total, nil
}

// MarkPricesRefunded flags every refundable component as refunded and
// records the refund event.
func (o *Order) MarkPricesRefunded(actorID string) error {
	amount, err := o.RefundableAmount()
	if err != nil {
		return err
	}
	if amount.Amount() == 0 {
		return NewOrderValidationError(ErrNothingToRefund, "no paid, unrefunded price components")
	}
	for i := range o.prices {
		if o.prices[i].refundable() {
			o.prices[i].markRefunded()
		}
	}
	o.touch()
	o.recordEvent(NewAfterPriceRefundEvent(o, actorID, o.userID, amount))
	return nil
}

// IncrementVersionForSave bumps the optimistic-lock version. The
// repository calls it once per successful persist; the previous value
// is what the version-guarded UPDATE matches against.
func (o *Order) IncrementVersionForSave() {
	o.lockVersion++
	o.isNew = false
}

// ClearNewFlag marks the aggregate as persisted. The repository calls
// it after a successful insert.
func (o *Order) ClearNewFlag() {
	o.isNew = false
}

// RecordEvent lets the application layer attach an event constructed
// outside the aggregate, such as a vetoed Before-event's After twin.
func (o *Order) RecordEvent(event shared.DomainEvent) {
	o.recordEvent(event)
}

// PullEvents returns the recorded events and clears the buffer.
func (o *Order) PullEvents() []shared.DomainEvent {
	events := o.events
	o.events = nil
	return events
}

func (o *Order) recordEvent(event shared.DomainEvent) {
	o.events = append(o.events, event)
}

func (o *Order) transitionTo(target State) {
	o.previousState = o.state
	o.state = target
	o.touch()
}

func (o *Order) touch() {
	o.updatedAt = time.Now()
}

// ReconstructionDTO carries the persisted shape of an order between
// the persistence layer and the domain without exposing the fields
// for general mutation.
type ReconstructionDTO struct {
	ID                string
	Serial            string
	UserID            string
	State             string
	CancelReason      string
	AutoCancelTime    *time.Time
	ExpireReceiveTime *time.Time
	TotalAmount       int64
	Currency          string
	CreditPoints      int64
	LockVersion       int
	Products          []ProductReconstructionDTO
	Prices            []PriceReconstructionDTO
	PayOrder          *PayOrderReconstructionDTO
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RebuildFromDTO rehydrates an order from storage. It trusts the DTO:
// state and amounts were validated when first written.
func RebuildFromDTO(dto ReconstructionDTO) (*Order, error) {
	state := State(dto.State)
	if !state.IsValid() {
		return nil, shared.NewValidationError("order", "state",
			fmt.Sprintf("unknown persisted state %q", dto.State))
	}
	total, err := shared.NewMoney(dto.TotalAmount, dto.Currency)
	if err != nil {
		return nil, err
	}

	o := &Order{
		id:                dto.ID,
		serial:            dto.Serial,
		userID:            dto.UserID,
		state:             state,
		cancelReason:      dto.CancelReason,
		autoCancelTime:    dto.AutoCancelTime,
		expireReceiveTime: dto.ExpireReceiveTime,
		totalAmount:       total,
		creditPoints:      dto.CreditPoints,
		lockVersion:       dto.LockVersion,
		createdAt:         dto.CreatedAt,
		updatedAt:         dto.UpdatedAt,
	}
	for _, pd := range dto.Products {
		o.products = append(o.products, RebuildProductFromDTO(pd))
	}
	for _, pd := range dto.Prices {
		o.prices = append(o.prices, RebuildPriceFromDTO(pd))
	}
	if dto.PayOrder != nil {
		o.payOrder = RebuildPayOrderFromDTO(*dto.PayOrder)
	}
	return o, nil
}

// ToReconstructionDTO is the inverse of RebuildFromDTO, used by the
// repository when mapping to persistence objects.
func (o *Order) ToReconstructionDTO() ReconstructionDTO {
	dto := ReconstructionDTO{
		ID:                o.id,
		Serial:            o.serial,
		UserID:            o.userID,
		State:             string(o.state),
		CancelReason:      o.cancelReason,
		AutoCancelTime:    o.autoCancelTime,
		ExpireReceiveTime: o.expireReceiveTime,
		TotalAmount:       o.totalAmount.Amount(),
		Currency:          o.totalAmount.Currency(),
		CreditPoints:      o.creditPoints,
		LockVersion:       o.lockVersion,
		CreatedAt:         o.createdAt,
		UpdatedAt:         o.updatedAt,
	}
	for _, p := range o.products {
		dto.Products = append(dto.Products, p.ToReconstructionDTO())
	}
	for _, p := range o.prices {
		dto.Prices = append(dto.Prices, p.ToReconstructionDTO())
	}
	if o.payOrder != nil {
		pd := o.payOrder.ToReconstructionDTO()
		dto.PayOrder = &pd
	}
	return dto
}
