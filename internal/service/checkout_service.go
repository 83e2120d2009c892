package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jessetechgeek/shopilent-sub006/internal/cache"
	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
	"github.com/jessetechgeek/shopilent-sub006/internal/repository"
)

// PricingQuote carries the externally computed order charges. The checkout
// treats both as opaque amounts.
type PricingQuote struct {
	Tax          domain.Money
	ShippingCost domain.Money
}

type PricingRequest struct {
	Subtotal       domain.Money
	CountryCode    string
	ShippingMethod string
	ItemCount      int
}

// PricingService is the external tax/shipping collaborator.
type PricingService interface {
	Quote(ctx context.Context, req PricingRequest) (*PricingQuote, error)
}

type CheckoutRequest struct {
	UserID            string
	CartID            *uuid.UUID
	ShippingAddressID uuid.UUID
	BillingAddressID  *uuid.UUID
	ShippingMethod    string
	Metadata          map[string]string
}

// CheckoutService turns a cart into an order: validate, reserve stock,
// price, persist, clear. Stock decrements are compensated whenever a later
// step fails, so a checkout is observably all-or-nothing.
type CheckoutService struct {
	carts     repository.CartRepository
	catalog   repository.CatalogRepository
	addresses repository.AddressRepository
	orders    repository.OrderRepository
	outbox    repository.OutboxRepository
	cache     cache.CartCache
	pricing   PricingService
	metrics   *Metrics
}

func NewCheckoutService(
	carts repository.CartRepository,
	catalog repository.CatalogRepository,
	addresses repository.AddressRepository,
	orders repository.OrderRepository,
	outbox repository.OutboxRepository,
	cartCache cache.CartCache,
	pricing PricingService,
	metrics *Metrics,
) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		catalog:   catalog,
		addresses: addresses,
		orders:    orders,
		outbox:    outbox,
		cache:     cartCache,
		pricing:   pricing,
		metrics:   metrics,
	}
}

func (s *CheckoutService) PlaceOrder(ctx context.Context, req *CheckoutRequest) (*domain.Order, error) {
	order, err := s.placeOrder(ctx, req)
	s.metrics.recordCheckout(err)
	return order, err
}

func (s *CheckoutService) placeOrder(ctx context.Context, req *CheckoutRequest) (*domain.Order, error) {
	if req.UserID == "" {
		return nil, domain.ErrInvalidUserID
	}

	cart, err := s.loadCart(ctx, req)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	shipping, err := s.loadAddress(ctx, req.UserID, req.ShippingAddressID)
	if err != nil {
		return nil, err
	}
	billing := shipping
	if req.BillingAddressID != nil {
		billing, err = s.loadAddress(ctx, req.UserID, *req.BillingAddressID)
		if err != nil {
			return nil, err
		}
	}

	lines, err := s.resolveLines(ctx, cart)
	if err != nil {
		return nil, err
	}

	// All-or-nothing sufficiency check before any stock is touched.
	var shortages []StockShortage
	for _, ln := range lines {
		if ln.item.Quantity > ln.available() {
			shortages = append(shortages, StockShortage{
				ID:        ln.stockID(),
				SKU:       ln.sku(),
				Requested: ln.item.Quantity,
				Available: ln.available(),
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}

	// Decrement is the reservation. Each line is an independent row
	// update, so a failure here (or anywhere below) must compensate the
	// decrements already applied.
	var reserved []*checkoutLine
	for _, ln := range lines {
		if err := s.reserveLine(ctx, ln); err != nil {
			s.releaseReserved(ctx, reserved)
			if errors.Is(err, domain.ErrInsufficientStock) {
				return nil, &InsufficientStockError{Shortages: []StockShortage{{
					ID:        ln.stockID(),
					SKU:       ln.sku(),
					Requested: ln.item.Quantity,
					Available: ln.available(),
				}}}
			}
			return nil, &StockReductionError{ID: ln.stockID(), SKU: ln.sku(), Err: err}
		}
		reserved = append(reserved, ln)
	}

	order, err := s.buildOrder(ctx, req, shipping, billing, lines)
	if err != nil {
		s.releaseReserved(ctx, reserved)
		return nil, err
	}

	events := order.Events()
	for _, ln := range reserved {
		events = append(events, ln.stockEvents()...)
	}
	outboxRows, err := repository.OutboxFromEvents(order.ID.String(), events)
	if err != nil {
		s.releaseReserved(ctx, reserved)
		return nil, err
	}

	if err := s.orders.CreateOrder(ctx, order, outboxRows); err != nil {
		// Persistence failure carries the same compensation obligation
		// as a failed decrement.
		s.releaseReserved(ctx, reserved)
		return nil, fmt.Errorf("persist order: %w", err)
	}
	order.ClearEvents()

	s.clearCart(ctx, cart)
	return order, nil
}

func (s *CheckoutService) loadCart(ctx context.Context, req *CheckoutRequest) (*domain.Cart, error) {
	var cart *domain.Cart
	var err error
	if req.CartID != nil {
		cart, err = s.carts.GetCart(ctx, *req.CartID)
	} else {
		cart, err = s.carts.GetCartByUserID(ctx, req.UserID)
	}
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	// Ownership mismatch reads as not-found so other users' carts stay
	// unobservable.
	if cart.UserID != req.UserID {
		return nil, ErrCartNotFound
	}
	return cart, nil
}

func (s *CheckoutService) loadAddress(ctx context.Context, userID string, id uuid.UUID) (*domain.Address, error) {
	addr, err := s.addresses.GetAddressByID(ctx, id)
	if errors.Is(err, repository.ErrAddressNotFound) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}
	if addr.UserID != userID {
		return nil, ErrAddressNotFound
	}
	return addr, nil
}

func (s *CheckoutService) resolveLines(ctx context.Context, cart *domain.Cart) ([]*checkoutLine, error) {
	lines := make([]*checkoutLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, err := s.catalog.GetProductByID(ctx, item.ProductID)
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, ErrProductNotFound
		}

		ln := &checkoutLine{item: item, product: product}
		if item.VariantID != nil {
			variant, err := s.catalog.GetVariantByID(ctx, *item.VariantID)
			if errors.Is(err, repository.ErrVariantNotFound) {
				return nil, ErrProductNotFound
			}
			if err != nil {
				return nil, err
			}
			if !variant.IsActive || variant.ProductID != product.ID {
				return nil, ErrProductNotFound
			}
			ln.variant = variant
		}
		lines = append(lines, ln)
	}
	return lines, nil
}

// reserveLine decrements one line's stock. A concurrency conflict means a
// racing writer changed the row between our read and write: re-read,
// re-validate and try again rather than blindly re-applying.
func (s *CheckoutService) reserveLine(ctx context.Context, ln *checkoutLine) error {
	var lastErr error
	for attempt := 0; attempt <= stockConflictRetries; attempt++ {
		if err := ln.removeStock(ln.item.Quantity); err != nil {
			return err
		}
		err := ln.saveStock(ctx, s.catalog)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConcurrencyConflict) {
			return err
		}
		lastErr = err
		if err := ln.reload(ctx, s.catalog); err != nil {
			return err
		}
	}
	return fmt.Errorf("reserve stock: retries exhausted: %w", lastErr)
}

// releaseReserved compensates every decrement applied so far. It runs on a
// detached context: caller cancellation is not a license to leave stock
// inconsistent.
func (s *CheckoutService) releaseReserved(ctx context.Context, reserved []*checkoutLine) {
	ctx = context.WithoutCancel(ctx)
	for _, ln := range reserved {
		_, err := restoreStock(ctx, s.catalog, ln.product.ID, variantIDOf(ln), ln.item.Quantity)
		if err == nil {
			continue
		}
		log.Printf("stock restore failed for %s: %v", ln.sku(), err)
		s.enqueueRestoreFailure(ctx, ln, err)
	}
}

// enqueueRestoreFailure records a failed compensation for offline
// reconciliation instead of swallowing it.
func (s *CheckoutService) enqueueRestoreFailure(ctx context.Context, ln *checkoutLine, cause error) {
	payload, err := json.Marshal(map[string]any{
		"stock_id": ln.stockID(),
		"sku":      ln.sku(),
		"quantity": ln.item.Quantity,
		"error":    cause.Error(),
	})
	if err != nil {
		log.Printf("marshal restore failure payload: %v", err)
		return
	}
	ev := &repository.OutboxEvent{
		AggregateID: ln.stockID().String(),
		EventType:   "stock.restore_failed",
		Payload:     payload,
	}
	if err := s.outbox.EnqueueEvents(ctx, []*repository.OutboxEvent{ev}); err != nil {
		log.Printf("enqueue restore failure event: %v", err)
	}
}

func (s *CheckoutService) buildOrder(ctx context.Context, req *CheckoutRequest, shipping, billing *domain.Address, lines []*checkoutLine) (*domain.Order, error) {
	items := make([]domain.OrderItem, 0, len(lines))
	subtotal := domain.Zero(lines[0].unitPrice().Currency)
	for _, ln := range lines {
		snapshot, err := domain.NewProductSnapshot(ln.product, ln.variant)
		if err != nil {
			return nil, err
		}
		item, err := domain.NewOrderItem(ln.product.ID, variantIDOf(ln), ln.item.Quantity, ln.unitPrice(), snapshot)
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		subtotal, err = subtotal.Add(item.LineTotal())
		if err != nil {
			return nil, err
		}
	}

	quote, err := s.pricing.Quote(ctx, PricingRequest{
		Subtotal:       subtotal,
		CountryCode:    shipping.CountryCode,
		ShippingMethod: req.ShippingMethod,
		ItemCount:      len(items),
	})
	if err != nil {
		return nil, fmt.Errorf("pricing quote: %w", err)
	}

	return domain.NewOrder(
		req.UserID,
		shipping.ID,
		billing.ID,
		items,
		quote.Tax,
		quote.ShippingCost,
		req.ShippingMethod,
		req.Metadata,
	)
}

// clearCart runs after the order is committed. A failure here leaves a
// stale cart, not an inconsistent order, so it is logged and not fatal.
func (s *CheckoutService) clearCart(ctx context.Context, cart *domain.Cart) {
	cart.ClearEvents()
	cart.Clear()

	if err := s.carts.UpsertCart(ctx, cart); err != nil {
		log.Printf("clear cart after checkout: %v", err)
		return
	}

	rows, err := repository.OutboxFromEvents(cart.ID.String(), cart.Events())
	if err != nil {
		log.Printf("marshal cart events: %v", err)
	} else if err := s.outbox.EnqueueEvents(ctx, rows); err != nil {
		log.Printf("enqueue cart events: %v", err)
	}
	cart.ClearEvents()

	if cart.UserID != "" {
		if err := s.cache.Delete(ctx, cart.UserID); err != nil {
			log.Printf("cache invalidate error: %v", err)
		}
	}
}

func variantIDOf(ln *checkoutLine) *uuid.UUID {
	if ln.variant == nil {
		return nil
	}
	id := ln.variant.ID
	return &id
}
