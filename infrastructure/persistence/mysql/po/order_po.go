package po

import (
	"time"

	"orderlife/domain/order"
	"orderlife/domain/shared"
)

// OrderPO Order persistence object
// Note: Only used for database mapping, does not contain any business logic
// Defining GORM associations is prohibited here
type OrderPO struct {
	ID                string     `gorm:"primaryKey;size:64"`
	Serial            string     `gorm:"size:64;uniqueIndex;not null"`
	UserID            string     `gorm:"size:64;index"` // Only store ID, no association with User
	State             string     `gorm:"size:32;not null;index:idx_state_cancel,priority:1"`
	CancelReason      string     `gorm:"size:255"`
	AutoCancelTime    *time.Time `gorm:"index:idx_state_cancel,priority:2"`
	ExpireReceiveTime *time.Time `gorm:"index"`
	TotalAmount       int64      `gorm:"not null"`
	TotalCurrency     string     `gorm:"size:3;not null"`
	CreditPoints      int64      `gorm:"not null;default:0"`
	LockVersion       int        `gorm:"default:0"`
	CreatedAt         time.Time  `gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime"`
}

// TableName Specify table name
func (OrderPO) TableName() string {
	return "orders"
}

// OrderProductPO Order line item persistence object
type OrderProductPO struct {
	ID            string `gorm:"primaryKey;size:128"`
	OrderID       string `gorm:"size:64;index;not null"` // Only store ID, no GORM association
	SKUID         string `gorm:"column:sku_id;size:64;not null;index"`
	Quantity      int    `gorm:"not null"`
	UnitPrice     int64  `gorm:"not null"`
	UnitCurrency  string `gorm:"size:3;not null"`
	Source        string `gorm:"size:20;not null"`
	Valid         bool   `gorm:"default:true"`
	StockDeducted bool   `gorm:"default:false"`
}

// TableName Specify table name
func (OrderProductPO) TableName() string {
	return "order_products"
}

// OrderPricePO Price component persistence object
type OrderPricePO struct {
	ID        string `gorm:"primaryKey;size:128"`
	OrderID   string `gorm:"size:64;index;not null"`
	Kind      string `gorm:"size:20;not null"`
	Amount    int64  `gorm:"not null"`
	Currency  string `gorm:"size:3;not null"`
	Paid      bool   `gorm:"default:false"`
	Refunded  bool   `gorm:"default:false"`
	CanRefund bool   `gorm:"default:false"`
}

// TableName Specify table name
func (OrderPricePO) TableName() string {
	return "order_prices"
}

// PayOrderPO Payment record persistence object
type PayOrderPO struct {
	ID       string    `gorm:"primaryKey;size:128"`
	OrderID  string    `gorm:"size:64;uniqueIndex;not null"`
	TradeNo  string    `gorm:"size:128;uniqueIndex;not null"`
	Amount   int64     `gorm:"not null"`
	Currency string    `gorm:"size:3;not null"`
	PaidAt   time.Time `gorm:"not null"`
}

// TableName Specify table name
func (PayOrderPO) TableName() string {
	return "pay_orders"
}

// FromOrderDomain Convert domain model to persistence objects
func FromOrderDomain(o *order.Order) (*OrderPO, []OrderProductPO, []OrderPricePO, *PayOrderPO) {
	dto := o.ToReconstructionDTO()

	orderPO := &OrderPO{
		ID:                dto.ID,
		Serial:            dto.Serial,
		UserID:            dto.UserID,
		State:             dto.State,
		CancelReason:      dto.CancelReason,
		AutoCancelTime:    dto.AutoCancelTime,
		ExpireReceiveTime: dto.ExpireReceiveTime,
		TotalAmount:       dto.TotalAmount,
		TotalCurrency:     dto.Currency,
		CreditPoints:      dto.CreditPoints,
		LockVersion:       dto.LockVersion,
		CreatedAt:         dto.CreatedAt,
		UpdatedAt:         dto.UpdatedAt,
	}

	productPOs := make([]OrderProductPO, len(dto.Products))
	for i, p := range dto.Products {
		productPOs[i] = OrderProductPO{
			ID:            p.ID, // Use domain object's ID for consistency
			OrderID:       dto.ID,
			SKUID:         p.SKUID,
			Quantity:      p.Quantity,
			UnitPrice:     p.UnitPrice.Amount(),
			UnitCurrency:  p.UnitPrice.Currency(),
			Source:        string(p.Source),
			Valid:         p.Valid,
			StockDeducted: p.StockDeducted,
		}
	}

	pricePOs := make([]OrderPricePO, len(dto.Prices))
	for i, p := range dto.Prices {
		pricePOs[i] = OrderPricePO{
			ID:        p.ID,
			OrderID:   dto.ID,
			Kind:      string(p.Kind),
			Amount:    p.Amount.Amount(),
			Currency:  p.Amount.Currency(),
			Paid:      p.Paid,
			Refunded:  p.Refunded,
			CanRefund: p.CanRefund,
		}
	}

	var payPO *PayOrderPO
	if dto.PayOrder != nil {
		payPO = &PayOrderPO{
			ID:       dto.ID + ":" + dto.PayOrder.TradeNo,
			OrderID:  dto.ID,
			TradeNo:  dto.PayOrder.TradeNo,
			Amount:   dto.PayOrder.Amount.Amount(),
			Currency: dto.PayOrder.Amount.Currency(),
			PaidAt:   dto.PayOrder.PaidAt,
		}
	}

	return orderPO, productPOs, pricePOs, payPO
}

// ToDomain Convert persistence objects to domain model
func (po *OrderPO) ToDomain(productPOs []OrderProductPO, pricePOs []OrderPricePO, payPO *PayOrderPO) (*order.Order, error) {
	dto := order.ReconstructionDTO{
		ID:                po.ID,
		Serial:            po.Serial,
		UserID:            po.UserID,
		State:             po.State,
		CancelReason:      po.CancelReason,
		AutoCancelTime:    po.AutoCancelTime,
		ExpireReceiveTime: po.ExpireReceiveTime,
		TotalAmount:       po.TotalAmount,
		Currency:          po.TotalCurrency,
		CreditPoints:      po.CreditPoints,
		LockVersion:       po.LockVersion,
		CreatedAt:         po.CreatedAt,
		UpdatedAt:         po.UpdatedAt,
	}

	for _, p := range productPOs {
		unitPrice, err := shared.NewMoney(p.UnitPrice, p.UnitCurrency)
		if err != nil {
			return nil, err
		}
		dto.Products = append(dto.Products, order.ProductReconstructionDTO{
			ID:            p.ID,
			SKUID:         p.SKUID,
			Quantity:      p.Quantity,
			UnitPrice:     unitPrice,
			Source:        order.ProductSource(p.Source),
			Valid:         p.Valid,
			StockDeducted: p.StockDeducted,
		})
	}

	for _, p := range pricePOs {
		amount, err := shared.NewMoney(p.Amount, p.Currency)
		if err != nil {
			return nil, err
		}
		dto.Prices = append(dto.Prices, order.PriceReconstructionDTO{
			ID:        p.ID,
			Kind:      order.PriceKind(p.Kind),
			Amount:    amount,
			Paid:      p.Paid,
			Refunded:  p.Refunded,
			CanRefund: p.CanRefund,
		})
	}

	if payPO != nil {
		amount, err := shared.NewMoney(payPO.Amount, payPO.Currency)
		if err != nil {
			return nil, err
		}
		dto.PayOrder = &order.PayOrderReconstructionDTO{
			TradeNo: payPO.TradeNo,
			Amount:  amount,
			PaidAt:  payPO.PaidAt,
		}
	}

	return order.RebuildFromDTO(dto)
}
