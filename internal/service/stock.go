package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
	"github.com/jessetechgeek/shopilent-sub006/internal/repository"
)

// stockConflictRetries bounds how often a stock write is retried after an
// optimistic concurrency conflict before the operation fails.
const stockConflictRetries = 3

// checkoutLine is one cart item resolved against the live catalog. Stock
// and price come from the variant when the line names one, otherwise from
// the product itself.
type checkoutLine struct {
	item    domain.CartItem
	product *domain.Product
	variant *domain.ProductVariant
}

func (l *checkoutLine) available() int {
	if l.variant != nil {
		return l.variant.StockQuantity
	}
	return l.product.StockQuantity
}

func (l *checkoutLine) unitPrice() domain.Money {
	if l.variant != nil {
		return l.variant.Price
	}
	return l.product.Price
}

func (l *checkoutLine) sku() string {
	if l.variant != nil {
		return l.variant.SKU
	}
	return l.product.SKU
}

func (l *checkoutLine) stockID() uuid.UUID {
	if l.variant != nil {
		return l.variant.ID
	}
	return l.product.ID
}

func (l *checkoutLine) removeStock(n int) error {
	if l.variant != nil {
		return l.variant.RemoveStock(n)
	}
	return l.product.RemoveStock(n)
}

func (l *checkoutLine) addStock(n int) error {
	if l.variant != nil {
		return l.variant.AddStock(n)
	}
	return l.product.AddStock(n)
}

func (l *checkoutLine) saveStock(ctx context.Context, catalog repository.CatalogRepository) error {
	if l.variant != nil {
		return catalog.UpdateVariantStock(ctx, l.variant)
	}
	return catalog.UpdateProductStock(ctx, l.product)
}

// reload replaces the line's catalog state with a fresh read, dropping any
// unpersisted in-memory mutation.
func (l *checkoutLine) reload(ctx context.Context, catalog repository.CatalogRepository) error {
	if l.variant != nil {
		fresh, err := catalog.GetVariantByID(ctx, l.variant.ID)
		if err != nil {
			return err
		}
		l.variant = fresh
		return nil
	}
	fresh, err := catalog.GetProductByID(ctx, l.product.ID)
	if err != nil {
		return err
	}
	l.product = fresh
	return nil
}

func (l *checkoutLine) stockEvents() []domain.Event {
	if l.variant != nil {
		return l.variant.Events()
	}
	return l.product.Events()
}

// restoreStock is the compensating action shared by checkout rollback and
// order cancellation: it adds quantity back to a product or variant,
// retrying through concurrency conflicts. Returns the recorded stock
// events on success.
func restoreStock(ctx context.Context, catalog repository.CatalogRepository, productID uuid.UUID, variantID *uuid.UUID, quantity int) ([]domain.Event, error) {
	var lastErr error
	for attempt := 0; attempt <= stockConflictRetries; attempt++ {
		if variantID != nil {
			variant, err := catalog.GetVariantByID(ctx, *variantID)
			if err != nil {
				return nil, err
			}
			if err := variant.AddStock(quantity); err != nil {
				return nil, err
			}
			if err := catalog.UpdateVariantStock(ctx, variant); err == nil {
				return variant.Events(), nil
			} else if !errors.Is(err, repository.ErrConcurrencyConflict) {
				return nil, err
			} else {
				lastErr = err
			}
			continue
		}

		product, err := catalog.GetProductByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if err := product.AddStock(quantity); err != nil {
			return nil, err
		}
		if err := catalog.UpdateProductStock(ctx, product); err == nil {
			return product.Events(), nil
		} else if !errors.Is(err, repository.ErrConcurrencyConflict) {
			return nil, err
		} else {
			lastErr = err
		}
	}
	return nil, fmt.Errorf("restore stock: retries exhausted: %w", lastErr)
}
