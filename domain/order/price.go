package order

import (
	"github.com/google/uuid"

	"orderlife/domain/shared"
)

// PriceKind tags a price component.
type PriceKind string

const (
	PriceKindSale     PriceKind = "sale"
	PriceKindShipping PriceKind = "shipping"
	PriceKindTax      PriceKind = "tax"
)

// Price is one priced component of an order (sale price, shipping,
// tax). An order holds zero or more; refund computation must only ever
// see components with canRefund set.
type Price struct {
	id        string
	kind      PriceKind
	amount    shared.Money
	paid      bool
	refunded  bool
	canRefund bool
}

func newPrice(req PriceRequest) Price {
	return Price{
		id:        uuid.NewString(),
		kind:      req.Kind,
		amount:    req.Amount,
		canRefund: req.CanRefund,
	}
}

func (p Price) ID() string           { return p.id }
func (p Price) Kind() PriceKind      { return p.kind }
func (p Price) Amount() shared.Money { return p.amount }
func (p Price) Paid() bool           { return p.paid }
func (p Price) Refunded() bool       { return p.refunded }
func (p Price) CanRefund() bool      { return p.canRefund }

func (p *Price) markPaid()     { p.paid = true }
func (p *Price) markRefunded() { p.refunded = true }

// refundable reports whether the component participates in refund
// computation right now.
func (p Price) refundable() bool {
	return p.paid && p.canRefund && !p.refunded
}

// PriceRequest is the creation-time shape of a price component.
type PriceRequest struct {
	Kind      PriceKind
	Amount    shared.Money
	CanRefund bool
}

// PriceReconstructionDTO rebuilds a Price from storage.
// Repository-layer use only.
type PriceReconstructionDTO struct {
	ID        string
	Kind      PriceKind
	Amount    shared.Money
	Paid      bool
	Refunded  bool
	CanRefund bool
}

// RebuildPriceFromDTO reconstructs a price component. Repository-layer use only.
func RebuildPriceFromDTO(dto PriceReconstructionDTO) Price {
	return Price{
		id:        dto.ID,
		kind:      dto.Kind,
		amount:    dto.Amount,
		paid:      dto.Paid,
		refunded:  dto.Refunded,
		canRefund: dto.CanRefund,
	}
}

// ToReconstructionDTO is the inverse of RebuildPriceFromDTO.
func (p Price) ToReconstructionDTO() PriceReconstructionDTO {
	return PriceReconstructionDTO{
		ID:        p.id,
		Kind:      p.kind,
		Amount:    p.amount,
		Paid:      p.paid,
		Refunded:  p.refunded,
		CanRefund: p.canRefund,
	}
}
