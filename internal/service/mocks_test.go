package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jessetechgeek/shopilent-sub006/internal/cache"
	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
	"github.com/jessetechgeek/shopilent-sub006/internal/repository"
)

type mockCartRepo struct {
	mu        sync.Mutex
	carts     map[uuid.UUID]*domain.Cart
	getErr    error
	upsertErr error
	upserted  []*domain.Cart
	deleted   []uuid.UUID
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[uuid.UUID]*domain.Cart)}
}

func (m *mockCartRepo) put(cart *domain.Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cart.ID] = cart
}

func (m *mockCartRepo) GetCart(_ context.Context, cartID uuid.UUID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	cart, ok := m.carts[cartID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return cart, nil
}

func (m *mockCartRepo) GetCartByUserID(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, cart := range m.carts {
		if cart.UserID == userID {
			return cart, nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (m *mockCartRepo) UpsertCart(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.carts[cart.ID] = cart
	m.upserted = append(m.upserted, cart)
	return nil
}

func (m *mockCartRepo) DeleteCart(_ context.Context, cartID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, cartID)
	m.deleted = append(m.deleted, cartID)
	return nil
}

// mockCatalog mimics the optimistic concurrency of the real store: reads
// hand out copies, writes succeed only against the stored version.
type mockCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
	variants map[uuid.UUID]*domain.ProductVariant

	// errors popped once per write call, nil entries mean success
	productWriteErrs []error
	variantWriteErrs []error

	// runs under the lock on every variant write, before the error queue
	variantWriteHook func()

	productWrites int
	variantWrites int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		products: make(map[uuid.UUID]*domain.Product),
		variants: make(map[uuid.UUID]*domain.ProductVariant),
	}
}

func (m *mockCatalog) putProduct(p *domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *mockCatalog) putVariant(v *domain.ProductVariant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variants[v.ID] = v
}

func (m *mockCatalog) productStock(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].StockQuantity
}

func (m *mockCatalog) variantStock(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.variants[id].StockQuantity
}

func (m *mockCatalog) GetProductByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	cp.ClearEvents()
	return &cp, nil
}

func (m *mockCatalog) GetVariantByID(_ context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[id]
	if !ok {
		return nil, repository.ErrVariantNotFound
	}
	cp := *v
	cp.ClearEvents()
	return &cp, nil
}

func (m *mockCatalog) UpdateProductStock(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.productWrites++
	if len(m.productWriteErrs) > 0 {
		err := m.productWriteErrs[0]
		m.productWriteErrs = m.productWriteErrs[1:]
		if err != nil {
			return err
		}
	}
	stored, ok := m.products[p.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	if stored.Version != p.Version {
		return repository.ErrConcurrencyConflict
	}
	stored.StockQuantity = p.StockQuantity
	stored.Version++
	p.Version++
	return nil
}

func (m *mockCatalog) UpdateVariantStock(_ context.Context, v *domain.ProductVariant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variantWrites++
	if m.variantWriteHook != nil {
		m.variantWriteHook()
	}
	if len(m.variantWriteErrs) > 0 {
		err := m.variantWriteErrs[0]
		m.variantWriteErrs = m.variantWriteErrs[1:]
		if err != nil {
			return err
		}
	}
	stored, ok := m.variants[v.ID]
	if !ok {
		return repository.ErrVariantNotFound
	}
	if stored.Version != v.Version {
		return repository.ErrConcurrencyConflict
	}
	stored.StockQuantity = v.StockQuantity
	stored.Version++
	v.Version++
	return nil
}

type mockAddressRepo struct {
	addresses map[uuid.UUID]*domain.Address
}

func newMockAddressRepo(addrs ...*domain.Address) *mockAddressRepo {
	m := &mockAddressRepo{addresses: make(map[uuid.UUID]*domain.Address)}
	for _, a := range addrs {
		m.addresses[a.ID] = a
	}
	return m
}

func (m *mockAddressRepo) GetAddressByID(_ context.Context, id uuid.UUID) (*domain.Address, error) {
	addr, ok := m.addresses[id]
	if !ok {
		return nil, repository.ErrAddressNotFound
	}
	return addr, nil
}

type mockOrderRepo struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]*domain.Order
	createErr  error
	updateErr  error
	created    []*domain.Order
	updated    []*domain.Order
	outboxRows []*repository.OutboxEvent
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepo) put(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

func (m *mockOrderRepo) CreateOrder(_ context.Context, order *domain.Order, events []*repository.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[order.ID] = order
	m.created = append(m.created, order)
	m.outboxRows = append(m.outboxRows, events...)
	return nil
}

func (m *mockOrderRepo) UpdateOrder(_ context.Context, order *domain.Order, events []*repository.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.orders[order.ID] = order
	m.updated = append(m.updated, order)
	m.outboxRows = append(m.outboxRows, events...)
	return nil
}

func (m *mockOrderRepo) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepo) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	return out, nil
}

type mockOutbox struct {
	mu         sync.Mutex
	enqueueErr error
	enqueued   []*repository.OutboxEvent
}

func (m *mockOutbox) EnqueueEvents(_ context.Context, events []*repository.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, events...)
	return nil
}

func (m *mockOutbox) GetUnprocessedEvents(context.Context, int) ([]*repository.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enqueued, nil
}

func (m *mockOutbox) MarkEventAsProcessed(context.Context, int64) error {
	return nil
}

func (m *mockOutbox) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.enqueued))
	for _, ev := range m.enqueued {
		types = append(types, ev.EventType)
	}
	return types
}

type mockCache struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	getErr  error
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	cart, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (m *mockCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = cart
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	m.deleted = append(m.deleted, userID)
	return nil
}

type mockPricing struct {
	tax      string
	shipping string
	err      error
	requests []PricingRequest
}

func (m *mockPricing) Quote(_ context.Context, req PricingRequest) (*PricingQuote, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	tax, err := domain.NewMoneyFromString(m.tax, req.Subtotal.Currency)
	if err != nil {
		return nil, err
	}
	shipping, err := domain.NewMoneyFromString(m.shipping, req.Subtotal.Currency)
	if err != nil {
		return nil, err
	}
	return &PricingQuote{Tax: tax, ShippingCost: shipping}, nil
}

type mockSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockSink) Publish(_ context.Context, events []domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}
