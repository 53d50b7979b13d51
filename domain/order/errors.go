/*
Package order - order domain error definitions.

Design:
1. Sentinel errors support errors.Is() classification.
2. Constructors capture the call stack at creation (skip=3 drops
   runtime.Callers, CaptureStack and the constructor itself).
3. No transport-layer concepts; sweep jobs and callers classify purely
   via errors.Is.
*/
package order

import (
	"errors"

	"orderlife/domain/shared"
)

var (
	// ErrOrderNotFound order not found
	ErrOrderNotFound = errors.New("order not found")

	// ErrIllegalTransition the attempted transition is not legal from
	// the order's current state. The operation aborts with no
	// persistence and no event dispatch.
	ErrIllegalTransition = errors.New("illegal order state transition")

	// ErrConcurrentModification the optimistic version check failed on
	// persist; another writer committed first. Callers retry or count
	// the order as a per-item failure.
	ErrConcurrentModification = errors.New("order was modified by another transaction")

	// ErrEmptyOrderProducts an order needs at least one line item.
	ErrEmptyOrderProducts = errors.New("order must have at least one product")

	// ErrInvalidQuantity line item quantity must be positive.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidCreditPoints the credit_points creation parameter is
	// not a non-negative integer.
	ErrInvalidCreditPoints = errors.New("credit points must be a non-negative integer")

	// ErrUnknownProduct the named SKU is not a line item of the order.
	ErrUnknownProduct = errors.New("order has no such product")

	// ErrQuantityLocked line item quantity is immutable once stock has
	// been deducted against it.
	ErrQuantityLocked = errors.New("quantity is locked after stock deduction")

	// ErrNothingToRefund no paid, refundable, not-yet-refunded price
	// component exists on the order.
	ErrNothingToRefund = errors.New("order has no refundable price component")

	// ErrDuplicateSerial serial numbers are unique and immutable.
	ErrDuplicateSerial = errors.New("order serial number already exists")
)

// NewOrderNotFoundError creates an order-not-found error with stack.
func NewOrderNotFoundError(orderID string) error {
	return &orderDomainError{
		sentinel: ErrOrderNotFound,
		message:  "order not found: " + orderID,
		stack:    shared.CaptureStack(3),
	}
}

// NewIllegalTransitionError creates an illegal-transition error naming
// both ends of the rejected edge.
func NewIllegalTransitionError(current State, target State) error {
	return &orderDomainError{
		sentinel: ErrIllegalTransition,
		message:  "cannot transition from " + string(current) + " to " + string(target),
		stack:    shared.CaptureStack(3),
	}
}

// NewConcurrentModificationError creates a version-conflict error.
func NewConcurrentModificationError(orderID string) error {
	return &orderDomainError{
		sentinel: ErrConcurrentModification,
		message:  "order " + orderID + " was modified by another transaction, please retry",
		stack:    shared.CaptureStack(3),
	}
}

// NewOrderValidationError wraps a validation sentinel with detail.
func NewOrderValidationError(sentinel error, message string) error {
	return &orderDomainError{
		sentinel: sentinel,
		message:  message,
		stack:    shared.CaptureStack(3),
	}
}

// NewDuplicateSerialError creates a duplicate-serial error.
func NewDuplicateSerialError(serial string) error {
	return &orderDomainError{
		sentinel: ErrDuplicateSerial,
		message:  "order serial number already exists: " + serial,
		stack:    shared.CaptureStack(3),
	}
}

// orderDomainError carries a sentinel, message and construction stack.
type orderDomainError struct {
	sentinel error
	message  string
	stack    []uintptr
}

func (e *orderDomainError) Error() string {
	return e.message
}

func (e *orderDomainError) Unwrap() error {
	return e.sentinel
}

// Stack implements shared.Stacker.
func (e *orderDomainError) Stack() []string {
	return shared.FormatStack(e.stack)
}
