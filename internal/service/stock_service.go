package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
	"github.com/jessetechgeek/shopilent-sub006/internal/repository"
)

// StockService covers admin stock corrections and restock flows. Checkout
// never goes through here.
type StockService struct {
	catalog repository.CatalogRepository
	outbox  repository.OutboxRepository
}

func NewStockService(catalog repository.CatalogRepository, outbox repository.OutboxRepository) *StockService {
	return &StockService{catalog: catalog, outbox: outbox}
}

// SetVariantStock sets an absolute quantity, retrying through concurrent
// writers since an absolute set wins regardless of interleaving.
func (s *StockService) SetVariantStock(ctx context.Context, variantID uuid.UUID, quantity int) (*domain.ProductVariant, error) {
	return s.mutateVariant(ctx, variantID, func(v *domain.ProductVariant) error {
		return v.SetStockQuantity(quantity)
	})
}

// AddVariantStock increments stock for restock and return flows.
func (s *StockService) AddVariantStock(ctx context.Context, variantID uuid.UUID, quantity int) (*domain.ProductVariant, error) {
	return s.mutateVariant(ctx, variantID, func(v *domain.ProductVariant) error {
		return v.AddStock(quantity)
	})
}

func (s *StockService) mutateVariant(ctx context.Context, variantID uuid.UUID, mutate func(*domain.ProductVariant) error) (*domain.ProductVariant, error) {
	var lastErr error
	for attempt := 0; attempt <= stockConflictRetries; attempt++ {
		variant, err := s.catalog.GetVariantByID(ctx, variantID)
		if errors.Is(err, repository.ErrVariantNotFound) {
			return nil, ErrProductNotFound
		}
		if err != nil {
			return nil, err
		}

		if err := mutate(variant); err != nil {
			return nil, err
		}

		err = s.catalog.UpdateVariantStock(ctx, variant)
		if err == nil {
			s.publish(ctx, variant)
			return variant, nil
		}
		if !errors.Is(err, repository.ErrConcurrencyConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("set stock: retries exhausted: %w", lastErr)
}

func (s *StockService) publish(ctx context.Context, variant *domain.ProductVariant) {
	defer variant.ClearEvents()
	rows, err := repository.OutboxFromEvents(variant.ID.String(), variant.Events())
	if err != nil {
		log.Printf("marshal stock events: %v", err)
		return
	}
	if err := s.outbox.EnqueueEvents(ctx, rows); err != nil {
		log.Printf("enqueue stock events: %v", err)
	}
}
