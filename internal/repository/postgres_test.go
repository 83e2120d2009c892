package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func seedProduct(t *testing.T, repo *Repository, stock int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := repo.db.Exec(
		`INSERT INTO products (id, name, slug, sku, price_amount, price_currency, stock_quantity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, "Poster", "poster-"+id.String()[:8], "POSTER-"+id.String()[:8], "3.00", "USD", stock,
	)
	require.NoError(t, err)
	return id
}

func seedVariant(t *testing.T, repo *Repository, productID uuid.UUID, stock int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := repo.db.Exec(
		`INSERT INTO product_variants (id, product_id, sku, attributes, price_amount, price_currency, stock_quantity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, productID, "SHIRT-"+id.String()[:8], `{"size":"M"}`, "10.00", "USD", stock,
	)
	require.NoError(t, err)
	return id
}

func seedAddress(t *testing.T, repo *Repository, userID string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := repo.db.Exec(
		`INSERT INTO addresses (id, user_id, line1, city, postal_code, country_code)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID, "1 Main St", "Springfield", "12345", "US",
	)
	require.NoError(t, err)
	return id
}

func seedOrder(t *testing.T, repo *Repository, userID string) *domain.Order {
	t.Helper()
	price, _ := domain.NewMoneyFromString("3.00", "USD")
	productID := seedProduct(t, repo, 10)
	item, err := domain.NewOrderItem(productID, nil, 2, price, domain.ProductSnapshot{Name: "Poster", SKU: "POSTER-1"})
	require.NoError(t, err)

	addrID := seedAddress(t, repo, userID)
	tax, _ := domain.NewMoneyFromString("0.50", "USD")
	shipping, _ := domain.NewMoneyFromString("4.99", "USD")
	order, err := domain.NewOrder(userID, addrID, addrID, []domain.OrderItem{item}, tax, shipping, "standard", map[string]string{"note": "leave at door"})
	require.NoError(t, err)

	rows, err := OutboxFromEvents(order.ID.String(), order.Events())
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(context.Background(), order, rows))
	order.ClearEvents()
	return order
}

func TestGetProductByID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	id := seedProduct(t, repo, 7)

	p, err := repo.GetProductByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Poster", p.Name)
	assert.Equal(t, 7, p.StockQuantity)
	assert.Equal(t, "USD", p.Price.Currency)
	assert.Equal(t, "3", p.Price.Amount.String())
	assert.True(t, p.IsActive)
}

func TestGetProductByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetProductByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGetVariantByID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	productID := seedProduct(t, repo, 0)
	variantID := seedVariant(t, repo, productID, 5)

	v, err := repo.GetVariantByID(context.Background(), variantID)
	require.NoError(t, err)
	assert.Equal(t, productID, v.ProductID)
	assert.Equal(t, 5, v.StockQuantity)
	assert.Equal(t, "M", v.Attributes["size"])
}

func TestUpdateProductStock(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	id := seedProduct(t, repo, 10)

	p, err := repo.GetProductByID(ctx, id)
	require.NoError(t, err)

	p.StockQuantity = 4
	require.NoError(t, repo.UpdateProductStock(ctx, p))
	assert.Equal(t, int64(1), p.Version)

	fresh, err := repo.GetProductByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.StockQuantity)
	assert.Equal(t, int64(1), fresh.Version)
}

func TestUpdateVariantStock_StaleVersion(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	productID := seedProduct(t, repo, 0)
	variantID := seedVariant(t, repo, productID, 10)

	first, err := repo.GetVariantByID(ctx, variantID)
	require.NoError(t, err)
	second, err := repo.GetVariantByID(ctx, variantID)
	require.NoError(t, err)

	first.StockQuantity = 8
	require.NoError(t, repo.UpdateVariantStock(ctx, first))

	// second still carries the pre-update version
	second.StockQuantity = 9
	err = repo.UpdateVariantStock(ctx, second)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)

	fresh, err := repo.GetVariantByID(ctx, variantID)
	require.NoError(t, err)
	assert.Equal(t, 8, fresh.StockQuantity)
}

func TestGetAddressByID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	id := seedAddress(t, repo, "user-123")

	a, err := repo.GetAddressByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "user-123", a.UserID)
	assert.Equal(t, "US", a.CountryCode)

	_, err = repo.GetAddressByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestCreateOrder_RoundTrip(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := seedOrder(t, repo, "user-123")

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.UserID, fetched.UserID)
	assert.Equal(t, order.Status, fetched.Status)
	assert.Equal(t, order.PaymentStatus, fetched.PaymentStatus)
	assert.True(t, order.Total.Equal(fetched.Total), "total %s != %s", order.Total, fetched.Total)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, order.Items[0].ProductID, fetched.Items[0].ProductID)
	assert.Equal(t, "Poster", fetched.Items[0].Snapshot.Name)
	assert.Equal(t, "leave at door", fetched.Metadata["note"])

	// the outbox rows commit with the order
	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, order.ID.String(), events[0].AggregateID)
	assert.Equal(t, "order.created", events[0].EventType)
}

func TestCreateOrder_Duplicate(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	order := seedOrder(t, repo, "user-123")

	err := repo.CreateOrder(context.Background(), order, nil)
	assert.ErrorIs(t, err, ErrDuplicateOrder)
}

func TestUpdateOrder(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := seedOrder(t, repo, "user-123")

	require.NoError(t, order.MarkPaymentSucceeded())
	require.NoError(t, order.Ship("TRACK-42"))
	rows, err := OutboxFromEvents(order.ID.String(), order.Events())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateOrder(ctx, order, rows))

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, fetched.Status)
	assert.Equal(t, "TRACK-42", fetched.TrackingNumber)
}

func TestUpdateOrder_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	order := seedOrder(t, repo, "user-123")
	order.ID = uuid.New()

	err := repo.UpdateOrder(context.Background(), order, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrdersByUserID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	seedOrder(t, repo, "user-a")
	seedOrder(t, repo, "user-a")
	seedOrder(t, repo, "user-b")

	orders, err := repo.ListOrdersByUserID(context.Background(), "user-a")
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	orders, err = repo.ListOrdersByUserID(context.Background(), "user-c")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOutboxLifecycle(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	rows := []*OutboxEvent{
		{AggregateID: "agg-1", EventType: "variant.stock_changed", Payload: []byte(`{"quantity":5}`)},
		{AggregateID: "agg-2", EventType: "variant.stock_changed", Payload: []byte(`{"quantity":9}`)},
	}
	require.NoError(t, repo.EnqueueEvents(ctx, rows))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "agg-1", events[0].AggregateID)
	assert.NotZero(t, events[0].ID)
	assert.Nil(t, events[0].ProcessedAt)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "agg-2", events[0].AggregateID)
}

func TestGetUnprocessedEvents_Limit(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	var rows []*OutboxEvent
	for i := 0; i < 5; i++ {
		rows = append(rows, &OutboxEvent{AggregateID: "agg", EventType: "order.created", Payload: []byte(`{}`)})
	}
	require.NoError(t, repo.EnqueueEvents(ctx, rows))

	events, err := repo.GetUnprocessedEvents(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
