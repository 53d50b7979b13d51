package order

import (
	"time"

	"orderlife/domain/shared"
)

// PayOrder records a successful payment against an order; at most one
// exists per order and its presence implies the order has passed
// through PAID at least once.
//
// The Order side of the association is authoritative. Resolving an
// order from a payment trade number is a repository lookup, not a
// mutable back-reference.
type PayOrder struct {
	tradeNo string // external payment-gateway reference, unique
	amount  shared.Money
	paidAt  time.Time
}

func newPayOrder(tradeNo string, amount shared.Money, paidAt time.Time) *PayOrder {
	return &PayOrder{tradeNo: tradeNo, amount: amount, paidAt: paidAt}
}

func (p PayOrder) TradeNo() string      { return p.tradeNo }
func (p PayOrder) Amount() shared.Money { return p.amount }
func (p PayOrder) PaidAt() time.Time    { return p.paidAt }

// PayOrderReconstructionDTO rebuilds a PayOrder from storage.
// Repository-layer use only.
type PayOrderReconstructionDTO struct {
	TradeNo string
	Amount  shared.Money
	PaidAt  time.Time
}

// RebuildPayOrderFromDTO reconstructs a payment record. Repository-layer use only.
func RebuildPayOrderFromDTO(dto PayOrderReconstructionDTO) *PayOrder {
	return &PayOrder{
		tradeNo: dto.TradeNo,
		amount:  dto.Amount,
		paidAt:  dto.PaidAt,
	}
}

// ToReconstructionDTO is the inverse of RebuildPayOrderFromDTO.
func (p PayOrder) ToReconstructionDTO() PayOrderReconstructionDTO {
	return PayOrderReconstructionDTO{
		TradeNo: p.tradeNo,
		Amount:  p.amount,
		PaidAt:  p.paidAt,
	}
}
