package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is a domain event recorded on an aggregate. Events are collected
// in memory and published only after the triggering change is committed.
type Event interface {
	EventName() string
}

// events is embedded by aggregates to accumulate pending events.
type events struct {
	pending []Event
}

func (e *events) record(ev Event) {
	e.pending = append(e.pending, ev)
}

// Events returns the events recorded since the last ClearEvents call.
func (e *events) Events() []Event {
	return e.pending
}

// ClearEvents drops pending events. Called by the dispatcher after they
// have been handed off.
func (e *events) ClearEvents() {
	e.pending = nil
}

type CartCreated struct {
	CartID    uuid.UUID `json:"cart_id"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (CartCreated) EventName() string { return "cart.created" }

type CartItemAdded struct {
	CartID    uuid.UUID  `json:"cart_id"`
	ItemID    uuid.UUID  `json:"item_id"`
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}

func (CartItemAdded) EventName() string { return "cart.item_added" }

type CartItemUpdated struct {
	CartID   uuid.UUID `json:"cart_id"`
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

func (CartItemUpdated) EventName() string { return "cart.item_updated" }

type CartItemRemoved struct {
	CartID uuid.UUID `json:"cart_id"`
	ItemID uuid.UUID `json:"item_id"`
}

func (CartItemRemoved) EventName() string { return "cart.item_removed" }

type CartCleared struct {
	CartID uuid.UUID `json:"cart_id"`
}

func (CartCleared) EventName() string { return "cart.cleared" }

type CartAssignedToUser struct {
	CartID uuid.UUID `json:"cart_id"`
	UserID string    `json:"user_id"`
}

func (CartAssignedToUser) EventName() string { return "cart.assigned_to_user" }

type CartExpired struct {
	CartID uuid.UUID `json:"cart_id"`
}

func (CartExpired) EventName() string { return "cart.expired" }

// ProductVariantStockChanged is recorded on every stock mutation, with the
// old and new quantities so consumers can diff without a re-read.
type ProductVariantStockChanged struct {
	VariantID   uuid.UUID `json:"variant_id"`
	OldQuantity int       `json:"old_quantity"`
	NewQuantity int       `json:"new_quantity"`
}

func (ProductVariantStockChanged) EventName() string { return "variant.stock_changed" }

type ProductStockChanged struct {
	ProductID   uuid.UUID `json:"product_id"`
	OldQuantity int       `json:"old_quantity"`
	NewQuantity int       `json:"new_quantity"`
}

func (ProductStockChanged) EventName() string { return "product.stock_changed" }

type OrderCreated struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      string    `json:"user_id"`
	TotalAmount string    `json:"total_amount"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

func (OrderCreated) EventName() string { return "order.created" }

type OrderStatusChanged struct {
	OrderID uuid.UUID   `json:"order_id"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}

func (OrderStatusChanged) EventName() string { return "order.status_changed" }

type OrderPaymentStatusChanged struct {
	OrderID uuid.UUID     `json:"order_id"`
	From    PaymentStatus `json:"from"`
	To      PaymentStatus `json:"to"`
}

func (OrderPaymentStatusChanged) EventName() string { return "order.payment_status_changed" }

type OrderRefunded struct {
	OrderID uuid.UUID `json:"order_id"`
	Amount  string    `json:"amount"`
	Reason  string    `json:"reason"`
}

func (OrderRefunded) EventName() string { return "order.refunded" }
