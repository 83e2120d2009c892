package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
	"github.com/jessetechgeek/shopilent-sub006/internal/service"
)

// StaticQuoter applies a flat tax rate and shipping fee. Used when no
// external pricing service is configured.
type StaticQuoter struct {
	TaxRate      decimal.Decimal
	ShippingFlat decimal.Decimal
}

func NewStaticQuoter(taxRate, shippingFlat string) (*StaticQuoter, error) {
	rate, err := decimal.NewFromString(taxRate)
	if err != nil {
		return nil, err
	}
	flat, err := decimal.NewFromString(shippingFlat)
	if err != nil {
		return nil, err
	}
	return &StaticQuoter{TaxRate: rate, ShippingFlat: flat}, nil
}

func (q *StaticQuoter) Quote(_ context.Context, req service.PricingRequest) (*service.PricingQuote, error) {
	tax := domain.Money{
		Amount:   req.Subtotal.Amount.Mul(q.TaxRate).Round(2),
		Currency: req.Subtotal.Currency,
	}
	shipping := domain.Money{
		Amount:   q.ShippingFlat,
		Currency: req.Subtotal.Currency,
	}
	return &service.PricingQuote{Tax: tax, ShippingCost: shipping}, nil
}
