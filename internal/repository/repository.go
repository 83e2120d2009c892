package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
)

// Common errors returned by repositories. All lookups return explicit
// not-found values so services can map them to domain errors.
var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
	ErrAddressNotFound = errors.New("address not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrDuplicateOrder  = errors.New("order already exists")

	// ErrConcurrencyConflict means a write targeted a stale row version.
	// Distinct from domain.ErrInsufficientStock: callers re-read and
	// re-validate instead of treating the stock as short.
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
)

// CartRepository defines cart data operations. Consumers define this
// interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, cartID uuid.UUID) (*domain.Cart, error)
	GetCartByUserID(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
}

// CatalogRepository loads products/variants for checkout and writes stock
// back under optimistic concurrency control.
type CatalogRepository interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetVariantByID(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error)
	// UpdateProductStock and UpdateVariantStock persist the in-memory
	// stock quantity against the version the entity was loaded with.
	// They return ErrConcurrencyConflict when that version is stale.
	UpdateProductStock(ctx context.Context, p *domain.Product) error
	UpdateVariantStock(ctx context.Context, v *domain.ProductVariant) error
}

type AddressRepository interface {
	GetAddressByID(ctx context.Context, id uuid.UUID) (*domain.Address, error)
}

type OrderRepository interface {
	// CreateOrder persists the order and its outbox events in one
	// transaction so events never outrun the committed state.
	CreateOrder(ctx context.Context, order *domain.Order, events []*OutboxEvent) error
	UpdateOrder(ctx context.Context, order *domain.Order, events []*OutboxEvent) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
}

// OutboxRepository feeds the Kafka poller and accepts standalone events
// (e.g. stock reconciliation records written outside an order transaction).
type OutboxRepository interface {
	EnqueueEvents(ctx context.Context, events []*OutboxEvent) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// OutboxEvent is a committed domain event awaiting publication.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// OutboxFromEvents converts recorded domain events into outbox rows keyed
// by the owning aggregate's id.
func OutboxFromEvents(aggregateID string, events []domain.Event) ([]*OutboxEvent, error) {
	out := make([]*OutboxEvent, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("marshal event %s: %w", ev.EventName(), err)
		}
		out = append(out, &OutboxEvent{
			AggregateID: aggregateID,
			EventType:   ev.EventName(),
			Payload:     payload,
		})
	}
	return out, nil
}
