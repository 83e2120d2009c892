package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog entry. Products without variants carry their own
// price and stock; otherwise the variants do.
type Product struct {
	events
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	SKU           string    `json:"sku"`
	Description   string    `json:"description"`
	Price         Money     `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	IsActive      bool      `json:"is_active"`
	// Version guards concurrent stock updates at the persistence boundary.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductVariant is the stock-bearing purchasable unit. StockQuantity is
// never negative; the guarded mutations below are the only way to change it.
type ProductVariant struct {
	events
	ID            uuid.UUID         `json:"id"`
	ProductID     uuid.UUID         `json:"product_id"`
	SKU           string            `json:"sku"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Price         Money             `json:"price"`
	StockQuantity int               `json:"stock_quantity"`
	IsActive      bool              `json:"is_active"`
	Version       int64             `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (v *ProductVariant) AddStock(quantity int) error {
	if quantity <= 0 {
		return ErrNegativeStockQuantity
	}
	old := v.StockQuantity
	v.StockQuantity += quantity
	v.UpdatedAt = time.Now()
	v.record(ProductVariantStockChanged{VariantID: v.ID, OldQuantity: old, NewQuantity: v.StockQuantity})
	return nil
}

// RemoveStock decrements available stock. The decrement IS the reservation:
// there is no separate reserve/confirm phase, so a caller that fails after
// removing stock must compensate with AddStock.
func (v *ProductVariant) RemoveStock(quantity int) error {
	if quantity <= 0 {
		return ErrNegativeStockQuantity
	}
	if quantity > v.StockQuantity {
		return ErrInsufficientStock
	}
	old := v.StockQuantity
	v.StockQuantity -= quantity
	v.UpdatedAt = time.Now()
	v.record(ProductVariantStockChanged{VariantID: v.ID, OldQuantity: old, NewQuantity: v.StockQuantity})
	return nil
}

// SetStockQuantity is an absolute correction used by admin flows, never by
// checkout.
func (v *ProductVariant) SetStockQuantity(quantity int) error {
	if quantity < 0 {
		return ErrNegativeStockQuantity
	}
	old := v.StockQuantity
	v.StockQuantity = quantity
	v.UpdatedAt = time.Now()
	v.record(ProductVariantStockChanged{VariantID: v.ID, OldQuantity: old, NewQuantity: quantity})
	return nil
}

func (p *Product) AddStock(quantity int) error {
	if quantity <= 0 {
		return ErrNegativeStockQuantity
	}
	old := p.StockQuantity
	p.StockQuantity += quantity
	p.UpdatedAt = time.Now()
	p.record(ProductStockChanged{ProductID: p.ID, OldQuantity: old, NewQuantity: p.StockQuantity})
	return nil
}

func (p *Product) RemoveStock(quantity int) error {
	if quantity <= 0 {
		return ErrNegativeStockQuantity
	}
	if quantity > p.StockQuantity {
		return ErrInsufficientStock
	}
	old := p.StockQuantity
	p.StockQuantity -= quantity
	p.UpdatedAt = time.Now()
	p.record(ProductStockChanged{ProductID: p.ID, OldQuantity: old, NewQuantity: p.StockQuantity})
	return nil
}

func (p *Product) SetStockQuantity(quantity int) error {
	if quantity < 0 {
		return ErrNegativeStockQuantity
	}
	old := p.StockQuantity
	p.StockQuantity = quantity
	p.UpdatedAt = time.Now()
	p.record(ProductStockChanged{ProductID: p.ID, OldQuantity: old, NewQuantity: quantity})
	return nil
}
