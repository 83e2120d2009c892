package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
	"github.com/jessetechgeek/shopilent-sub006/internal/repository"
)

type checkoutFixture struct {
	carts   *mockCartRepo
	catalog *mockCatalog
	orders  *mockOrderRepo
	outbox  *mockOutbox
	cache   *mockCache
	pricing *mockPricing
	svc     *CheckoutService

	cart     *domain.Cart
	product  *domain.Product
	variant  *domain.ProductVariant
	shipAddr *domain.Address
	billAddr *domain.Address
}

// newCheckoutFixture sets up a cart with two lines: 2x a plain product at
// 3.00 and 1x a variant at 10.00, both with stock to spare.
func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	productPrice, _ := domain.NewMoneyFromString("3.00", "USD")
	product := &domain.Product{
		ID: uuid.New(), Name: "Poster", Slug: "poster", SKU: "POSTER-1",
		Price: productPrice, StockQuantity: 10, IsActive: true,
	}

	parent := &domain.Product{
		ID: uuid.New(), Name: "Shirt", Slug: "shirt", SKU: "SHIRT",
		Price: productPrice, IsActive: true,
	}
	variantPrice, _ := domain.NewMoneyFromString("10.00", "USD")
	variant := &domain.ProductVariant{
		ID: uuid.New(), ProductID: parent.ID, SKU: "SHIRT-M",
		Attributes: map[string]string{"size": "M"},
		Price:      variantPrice, StockQuantity: 5, IsActive: true,
	}

	cart, err := domain.NewCart("user-1", nil)
	require.NoError(t, err)
	_, err = cart.AddItem(product.ID, 2, nil)
	require.NoError(t, err)
	variantID := variant.ID
	_, err = cart.AddItem(parent.ID, 1, &variantID)
	require.NoError(t, err)
	cart.ClearEvents()

	shipAddr := &domain.Address{ID: uuid.New(), UserID: "user-1", Line1: "1 Main St", City: "Springfield", PostalCode: "12345", CountryCode: "US"}
	billAddr := &domain.Address{ID: uuid.New(), UserID: "user-1", Line1: "2 Oak Ave", City: "Springfield", PostalCode: "12345", CountryCode: "US"}

	f := &checkoutFixture{
		carts:    newMockCartRepo(),
		catalog:  newMockCatalog(),
		orders:   newMockOrderRepo(),
		outbox:   &mockOutbox{},
		cache:    newMockCache(),
		pricing:  &mockPricing{tax: "1.60", shipping: "4.99"},
		cart:     cart,
		product:  product,
		variant:  variant,
		shipAddr: shipAddr,
		billAddr: billAddr,
	}
	f.carts.put(cart)
	f.catalog.putProduct(product)
	f.catalog.putProduct(parent)
	f.catalog.putVariant(variant)

	f.svc = NewCheckoutService(f.carts, f.catalog, newMockAddressRepo(shipAddr, billAddr), f.orders, f.outbox, f.cache, f.pricing, nil)
	return f
}

func (f *checkoutFixture) request() *CheckoutRequest {
	return &CheckoutRequest{
		UserID:            "user-1",
		ShippingAddressID: f.shipAddr.ID,
		ShippingMethod:    "standard",
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newCheckoutFixture(t)

	order, err := f.svc.PlaceOrder(context.Background(), f.request())
	require.NoError(t, err)

	// 2*3.00 + 10.00 subtotal, plus quoted tax and shipping
	assert.Equal(t, "6", order.Items[0].LineTotal().Amount.String())
	assert.Equal(t, "16", order.Subtotal.Amount.String())
	assert.Equal(t, "22.59", order.Total.Amount.String())
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, f.shipAddr.ID, order.ShippingAddressID)
	assert.Equal(t, f.shipAddr.ID, order.BillingAddressID, "billing defaults to shipping")

	// reservation happened
	assert.Equal(t, 8, f.catalog.productStock(f.product.ID))
	assert.Equal(t, 4, f.catalog.variantStock(f.variant.ID))

	// order persisted with its events in the same call
	require.Len(t, f.orders.created, 1)
	types := make([]string, 0, len(f.orders.outboxRows))
	for _, row := range f.orders.outboxRows {
		types = append(types, row.EventType)
	}
	assert.Contains(t, types, "order.created")
	assert.Contains(t, types, "product.stock_changed")
	assert.Contains(t, types, "variant.stock_changed")

	// cart cleared and cache invalidated
	stored, err := f.carts.GetCart(context.Background(), f.cart.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsEmpty())
	assert.Contains(t, f.cache.deleted, "user-1")
	assert.Contains(t, f.outbox.eventTypes(), "cart.cleared")
}

func TestPlaceOrder_SnapshotCapturesVariant(t *testing.T) {
	f := newCheckoutFixture(t)

	order, err := f.svc.PlaceOrder(context.Background(), f.request())
	require.NoError(t, err)

	var variantItem *domain.OrderItem
	for i := range order.Items {
		if order.Items[i].VariantID != nil {
			variantItem = &order.Items[i]
		}
	}
	require.NotNil(t, variantItem)
	assert.Equal(t, "Shirt", variantItem.Snapshot.Name)
	assert.Equal(t, "SHIRT-M", variantItem.Snapshot.VariantSKU)
	assert.Equal(t, "M", variantItem.Snapshot.VariantAttributes["size"])
	assert.Equal(t, "10", variantItem.UnitPrice.Amount.String())
}

func TestPlaceOrder_ExplicitBillingAddress(t *testing.T) {
	f := newCheckoutFixture(t)

	req := f.request()
	billingID := f.billAddr.ID
	req.BillingAddressID = &billingID

	order, err := f.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, f.billAddr.ID, order.BillingAddressID)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	f.cart.Clear()

	_, err := f.svc.PlaceOrder(context.Background(), f.request())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, 10, f.catalog.productStock(f.product.ID))
}

func TestPlaceOrder_CartOwnedByOtherUser(t *testing.T) {
	f := newCheckoutFixture(t)

	req := f.request()
	req.UserID = "intruder"
	cartID := f.cart.ID
	req.CartID = &cartID

	_, err := f.svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestPlaceOrder_AddressOwnedByOtherUser(t *testing.T) {
	f := newCheckoutFixture(t)
	f.shipAddr.UserID = "someone-else"

	_, err := f.svc.PlaceOrder(context.Background(), f.request())
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestPlaceOrder_InactiveProduct(t *testing.T) {
	f := newCheckoutFixture(t)
	f.product.IsActive = false

	_, err := f.svc.PlaceOrder(context.Background(), f.request())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestPlaceOrder_InsufficientStockListsAllShortLines(t *testing.T) {
	f := newCheckoutFixture(t)
	f.product.StockQuantity = 1 // need 2
	f.variant.StockQuantity = 0 // need 1

	_, err := f.svc.PlaceOrder(context.Background(), f.request())

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Shortages, 2)

	bySKU := make(map[string]StockShortage)
	for _, s := range insufficient.Shortages {
		bySKU[s.SKU] = s
	}
	assert.Equal(t, 2, bySKU["POSTER-1"].Requested)
	assert.Equal(t, 1, bySKU["POSTER-1"].Available)
	assert.Equal(t, 1, bySKU["SHIRT-M"].Requested)
	assert.Equal(t, 0, bySKU["SHIRT-M"].Available)

	// nothing was touched
	assert.Equal(t, 1, f.catalog.productStock(f.product.ID))
	assert.Equal(t, 0, f.catalog.variantStock(f.variant.ID))
	assert.Empty(t, f.orders.created)
}

func TestPlaceOrder_ConflictRetriesAndSucceeds(t *testing.T) {
	f := newCheckoutFixture(t)
	// first write on the plain product hits a stale version once
	f.catalog.productWriteErrs = []error{repository.ErrConcurrencyConflict}

	_, err := f.svc.PlaceOrder(context.Background(), f.request())
	require.NoError(t, err)

	assert.Equal(t, 8, f.catalog.productStock(f.product.ID))
	assert.GreaterOrEqual(t, f.catalog.productWrites, 2)
}

func TestPlaceOrder_SecondLineFailureRollsBackFirst(t *testing.T) {
	f := newCheckoutFixture(t)
	writeErr := errors.New("connection reset")
	f.catalog.variantWriteErrs = []error{writeErr}

	_, err := f.svc.PlaceOrder(context.Background(), f.request())

	var reduction *StockReductionError
	require.ErrorAs(t, err, &reduction)
	assert.Equal(t, "SHIRT-M", reduction.SKU)
	assert.ErrorIs(t, err, writeErr)

	// the already-reserved product line was compensated
	assert.Equal(t, 10, f.catalog.productStock(f.product.ID))
	assert.Equal(t, 5, f.catalog.variantStock(f.variant.ID))
	assert.Empty(t, f.orders.created)
}

func TestPlaceOrder_RaceToInsufficientStock(t *testing.T) {
	f := newCheckoutFixture(t)
	// a racing writer drains the variant between our read and write
	f.catalog.variantWriteErrs = []error{repository.ErrConcurrencyConflict}
	f.catalog.variantWriteHook = func() {
		f.variant.StockQuantity = 0
		f.variant.Version++
	}

	_, err := f.svc.PlaceOrder(context.Background(), f.request())

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	// the product line reserved before the race was compensated
	assert.Equal(t, 10, f.catalog.productStock(f.product.ID))
	assert.Empty(t, f.orders.created)
}

func TestPlaceOrder_PricingFailureRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)
	f.pricing.err = errors.New("pricing service down")

	_, err := f.svc.PlaceOrder(context.Background(), f.request())
	require.Error(t, err)

	assert.Equal(t, 10, f.catalog.productStock(f.product.ID))
	assert.Equal(t, 5, f.catalog.variantStock(f.variant.ID))
	assert.Empty(t, f.orders.created)
}

func TestPlaceOrder_PersistFailureRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)
	f.orders.createErr = errors.New("database down")

	_, err := f.svc.PlaceOrder(context.Background(), f.request())
	require.Error(t, err)

	assert.Equal(t, 10, f.catalog.productStock(f.product.ID))
	assert.Equal(t, 5, f.catalog.variantStock(f.variant.ID))

	// the cart survives a failed checkout
	stored, getErr := f.carts.GetCart(context.Background(), f.cart.ID)
	require.NoError(t, getErr)
	assert.False(t, stored.IsEmpty())
}

func TestPlaceOrder_FailedCompensationIsRecorded(t *testing.T) {
	f := newCheckoutFixture(t)
	f.orders.createErr = errors.New("database down")
	// the reserve write succeeds, then every restore attempt conflicts
	errs := []error{nil}
	for i := 0; i <= stockConflictRetries; i++ {
		errs = append(errs, repository.ErrConcurrencyConflict)
	}
	f.catalog.productWriteErrs = errs

	_, err := f.svc.PlaceOrder(context.Background(), f.request())
	require.Error(t, err)

	assert.Contains(t, f.outbox.eventTypes(), "stock.restore_failed")
}

func TestPlaceOrder_MissingUser(t *testing.T) {
	f := newCheckoutFixture(t)
	req := f.request()
	req.UserID = ""

	_, err := f.svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)
}
