package domain

import "github.com/shopspring/decimal"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed_amount"
)

var hundred = decimal.NewFromInt(100)

// Discount is either a percentage (0-100) or a fixed amount (>= 0).
type Discount struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

func NewPercentageDiscount(value decimal.Decimal) (Discount, error) {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return Discount{}, ErrInvalidDiscountPercentage
	}
	return Discount{Type: DiscountPercentage, Value: value}, nil
}

func NewFixedAmountDiscount(value decimal.Decimal) (Discount, error) {
	if value.IsNegative() {
		return Discount{}, ErrNegativeDiscount
	}
	return Discount{Type: DiscountFixed, Value: value}, nil
}

// CalculateDiscount returns the amount taken off base. A fixed discount is
// clamped to the base amount so a discount can never exceed what it applies to.
func (d Discount) CalculateDiscount(base Money) Money {
	switch d.Type {
	case DiscountPercentage:
		return Money{Amount: base.Amount.Mul(d.Value).Div(hundred), Currency: base.Currency}
	case DiscountFixed:
		if d.Value.GreaterThan(base.Amount) {
			return Money{Amount: base.Amount, Currency: base.Currency}
		}
		return Money{Amount: d.Value, Currency: base.Currency}
	default:
		return Zero(base.Currency)
	}
}

// ApplyDiscount returns base minus the calculated discount.
func (d Discount) ApplyDiscount(base Money) Money {
	discounted := base.Amount.Sub(d.CalculateDiscount(base).Amount)
	return Money{Amount: discounted, Currency: base.Currency}
}
