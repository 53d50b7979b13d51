// Package orderapp hosts the lifecycle application service: the layer
// that loads aggregates, runs the Before/After event contract around
// their transitions, and persists the outcome.
package orderapp

import (
	"time"

	"orderlife/domain/order"
)

// CreateOrderCommand is the input to CreateOrder.
type CreateOrderCommand struct {
	UserID       string
	Products     []order.ProductRequest
	Prices       []order.PriceRequest
	AutoCancelAt time.Time

	// Params is the raw parameter set forwarded on the Before-event so
	// subscribers can inspect what the order is being built from.
	Params map[string]any
}

// OrderDTO is the read-side shape of an order.
type OrderDTO struct {
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
	Products          []ProductDTO
	PayTradeNo        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProductDTO is the read-side shape of a line item.
type ProductDTO struct {
	ID        string
	SKUID     string
	Quantity  int
	UnitPrice int64
	Source    string
}

// CreateOrderResult reports the outcome of CreateOrder. A veto is a
// normal result, not a fault: Order is nil, Vetoed is true, and
// nothing was persisted.
type CreateOrderResult struct {
	Order      *OrderDTO
	Vetoed     bool
	VetoReason string
}

// RefundResult reports the outcome of RefundPrices, with the same veto
// shape as CreateOrderResult.
type RefundResult struct {
	Order          *OrderDTO
	RefundedAmount int64
	Currency       string
	Vetoed         bool
	VetoReason     string
}

// ToOrderDTO maps an aggregate to its read-side shape.
func ToOrderDTO(o *order.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:                o.ID(),
		Serial:            o.Serial(),
		UserID:            o.UserID(),
		State:             string(o.State()),
		CancelReason:      o.CancelReason(),
		AutoCancelTime:    o.AutoCancelTime(),
		ExpireReceiveTime: o.ExpireReceiveTime(),
		TotalAmount:       o.TotalAmount().Amount(),
		Currency:          o.TotalAmount().Currency(),
		CreditPoints:      o.CreditPoints(),
		CreatedAt:         o.CreatedAt(),
		UpdatedAt:         o.UpdatedAt(),
	}
	for _, p := range o.Products() {
		dto.Products = append(dto.Products, ProductDTO{
			ID:        p.ID(),
			SKUID:     p.SKUID(),
			Quantity:  p.Quantity(),
			UnitPrice: p.UnitPrice().Amount(),
			Source:    string(p.Source()),
		})
	}
	if po := o.PayOrder(); po != nil {
		dto.PayTradeNo = po.TradeNo()
	}
	return dto
}
