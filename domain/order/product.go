package order

import (
	"github.com/google/uuid"

	"orderlife/domain/shared"
)

// ProductSource tags where a line item came from.
type ProductSource string

const (
	SourceNormal       ProductSource = "normal"
	SourceCouponGift   ProductSource = "coupon_gift"
	SourceCouponRedeem ProductSource = "coupon_redeem"
)

// Product is a line item inside the Order aggregate. It has no global
// identity of its own and is reachable only through the order.
type Product struct {
	id            string
	skuID         string
	quantity      int
	unitPrice     shared.Money
	source        ProductSource
	valid         bool
	stockDeducted bool
}

func newProduct(req ProductRequest) Product {
	source := req.Source
	if source == "" {
		source = SourceNormal
	}
	return Product{
		id:        uuid.NewString(),
		skuID:     req.SKUID,
		quantity:  req.Quantity,
		unitPrice: req.UnitPrice,
		source:    source,
		valid:     true,
	}
}

func (p Product) ID() string              { return p.id }
func (p Product) SKUID() string           { return p.skuID }
func (p Product) Quantity() int           { return p.quantity }
func (p Product) UnitPrice() shared.Money { return p.unitPrice }
func (p Product) Source() ProductSource   { return p.source }
func (p Product) Valid() bool             { return p.valid }
func (p Product) StockDeducted() bool     { return p.stockDeducted }

// markStockDeducted freezes the quantity; see ErrQuantityLocked.
func (p *Product) markStockDeducted() { p.stockDeducted = true }

// setQuantity changes the ordered quantity. Rejected once stock has
// been deducted against the line.
func (p *Product) setQuantity(quantity int) error {
	if quantity <= 0 {
		return NewOrderValidationError(ErrInvalidQuantity, "quantity must be positive")
	}
	if p.stockDeducted {
		return NewOrderValidationError(ErrQuantityLocked, "sku "+p.skuID+": stock already deducted")
	}
	p.quantity = quantity
	return nil
}

// ProductRequest is the creation-time shape of a line item.
type ProductRequest struct {
	SKUID     string
	Quantity  int
	UnitPrice shared.Money
	Source    ProductSource
}

// ProductReconstructionDTO rebuilds a Product from storage.
// Repository-layer use only.
type ProductReconstructionDTO struct {
	ID            string
	SKUID         string
	Quantity      int
	UnitPrice     shared.Money
	Source        ProductSource
	Valid         bool
	StockDeducted bool
}

// RebuildProductFromDTO reconstructs a line item. Repository-layer use only.
func RebuildProductFromDTO(dto ProductReconstructionDTO) Product {
	return Product{
		id:            dto.ID,
		skuID:         dto.SKUID,
		quantity:      dto.Quantity,
		unitPrice:     dto.UnitPrice,
		source:        dto.Source,
		valid:         dto.Valid,
		stockDeducted: dto.StockDeducted,
	}
}

// ToReconstructionDTO is the inverse of RebuildProductFromDTO.
func (p Product) ToReconstructionDTO() ProductReconstructionDTO {
	return ProductReconstructionDTO{
		ID:            p.id,
		SKUID:         p.skuID,
		Quantity:      p.quantity,
		UnitPrice:     p.unitPrice,
		Source:        p.source,
		Valid:         p.valid,
		StockDeducted: p.stockDeducted,
	}
}
