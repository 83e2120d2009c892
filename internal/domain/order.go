package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderItem freezes quantity, unit price and product identity at order
// creation. None of these change afterwards, which keeps historical totals
// stable regardless of later catalog edits.
type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice Money           `json:"unit_price"`
	Snapshot  ProductSnapshot `json:"snapshot"`
}

func NewOrderItem(productID uuid.UUID, variantID *uuid.UUID, quantity int, unitPrice Money, snapshot ProductSnapshot) (OrderItem, error) {
	if productID == uuid.Nil {
		return OrderItem{}, ErrInvalidProductID
	}
	if quantity <= 0 {
		return OrderItem{}, ErrInvalidQuantity
	}
	if snapshot.Name == "" {
		return OrderItem{}, ErrSnapshotNameRequired
	}
	return OrderItem{
		ID:        uuid.New(),
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Snapshot:  snapshot,
	}, nil
}

// LineTotal is unit price times quantity.
func (i OrderItem) LineTotal() Money {
	total, _ := i.UnitPrice.MulInt(i.Quantity)
	return total
}

// Order is the immutable record of a completed checkout. After creation it
// changes only through the explicit status transitions below.
type Order struct {
	events
	ID                uuid.UUID         `json:"id"`
	UserID            string            `json:"user_id"`
	ShippingAddressID uuid.UUID         `json:"shipping_address_id"`
	BillingAddressID  uuid.UUID         `json:"billing_address_id"`
	Status            OrderStatus       `json:"status"`
	PaymentStatus     PaymentStatus     `json:"payment_status"`
	Items             []OrderItem       `json:"items"`
	Subtotal          Money             `json:"subtotal"`
	Tax               Money             `json:"tax"`
	ShippingCost      Money             `json:"shipping_cost"`
	Total             Money             `json:"total"`
	ShippingMethod    string            `json:"shipping_method,omitempty"`
	TrackingNumber    string            `json:"tracking_number,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	RefundedAmount    *Money            `json:"refunded_amount,omitempty"`
	RefundReason      string            `json:"refund_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// NewOrder builds an order in Pending/Pending state. Subtotal is computed
// from the items; tax and shipping are supplied by the pricing collaborator.
// Total = Subtotal + Tax + ShippingCost, computed once here and never
// re-derived.
func NewOrder(userID string, shippingAddressID, billingAddressID uuid.UUID, items []OrderItem, tax, shippingCost Money, shippingMethod string, metadata map[string]string) (*Order, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if len(items) == 0 {
		return nil, ErrOrderMustHaveItems
	}
	for k := range metadata {
		if k == "" {
			return nil, ErrInvalidMetadataKey
		}
	}

	subtotal := Zero(items[0].UnitPrice.Currency)
	for _, item := range items {
		var err error
		subtotal, err = subtotal.Add(item.LineTotal())
		if err != nil {
			return nil, fmt.Errorf("sum order items: %w", err)
		}
	}

	withTax, err := subtotal.Add(tax)
	if err != nil {
		return nil, fmt.Errorf("add tax: %w", err)
	}
	total, err := withTax.Add(shippingCost)
	if err != nil {
		return nil, fmt.Errorf("add shipping cost: %w", err)
	}

	now := time.Now()
	o := &Order{
		ID:                uuid.New(),
		UserID:            userID,
		ShippingAddressID: shippingAddressID,
		BillingAddressID:  billingAddressID,
		Status:            OrderStatusPending,
		PaymentStatus:     PaymentStatusPending,
		Items:             items,
		Subtotal:          subtotal,
		Tax:               tax,
		ShippingCost:      shippingCost,
		Total:             total,
		ShippingMethod:    shippingMethod,
		Metadata:          metadata,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	o.record(OrderCreated{
		OrderID:     o.ID,
		UserID:      userID,
		TotalAmount: total.Amount.String(),
		Currency:    total.Currency,
		CreatedAt:   now,
	})
	return o, nil
}

// MarkPaymentSucceeded moves the payment to Succeeded and the order to
// Processing.
func (o *Order) MarkPaymentSucceeded() error {
	if o.PaymentStatus != PaymentStatusPending {
		return &OrderStatusError{Operation: "complete payment for", Status: o.Status}
	}
	if !o.Status.CanTransitionTo(OrderStatusProcessing) {
		return &OrderStatusError{Operation: "process", Status: o.Status}
	}
	o.setPaymentStatus(PaymentStatusSucceeded)
	o.setStatus(OrderStatusProcessing)
	return nil
}

func (o *Order) MarkPaymentFailed() error {
	if o.PaymentStatus != PaymentStatusPending {
		return &OrderStatusError{Operation: "fail payment for", Status: o.Status}
	}
	o.setPaymentStatus(PaymentStatusFailed)
	return nil
}

// Ship assigns a tracking number and moves Processing -> Shipped.
func (o *Order) Ship(trackingNumber string) error {
	if !o.Status.CanTransitionTo(OrderStatusShipped) {
		return &OrderStatusError{Operation: "ship", Status: o.Status}
	}
	o.TrackingNumber = trackingNumber
	o.setStatus(OrderStatusShipped)
	return nil
}

func (o *Order) MarkDelivered() error {
	if !o.Status.CanTransitionTo(OrderStatusDelivered) {
		return &OrderStatusError{Operation: "deliver", Status: o.Status}
	}
	o.setStatus(OrderStatusDelivered)
	return nil
}

// Cancel is allowed from any state before shipment.
func (o *Order) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return &OrderStatusError{Operation: "cancel", Status: o.Status}
	}
	if reason != "" {
		if o.Metadata == nil {
			o.Metadata = make(map[string]string)
		}
		o.Metadata["cancellation_reason"] = reason
	}
	o.setStatus(OrderStatusCancelled)
	return nil
}

// ProcessRefund refunds the full order total.
func (o *Order) ProcessRefund(reason string) error {
	remaining, err := o.RefundableAmount()
	if err != nil {
		return err
	}
	return o.refund(remaining, reason)
}

// ProcessPartialRefund refunds an explicit amount up to the remaining
// refundable balance.
func (o *Order) ProcessPartialRefund(amount Money, reason string) error {
	remaining, err := o.RefundableAmount()
	if err != nil {
		return err
	}
	cmp, err := amount.Cmp(remaining)
	if err != nil {
		return err
	}
	if cmp > 0 {
		return ErrRefundExceedsTotal
	}
	return o.refund(amount, reason)
}

// RefundableAmount is Total minus what has already been refunded. Fails
// with ErrOrderAlreadyRefunded once the balance reaches zero.
func (o *Order) RefundableAmount() (Money, error) {
	if o.PaymentStatus != PaymentStatusSucceeded {
		return Money{}, ErrPaymentNotSucceeded
	}
	if o.RefundedAmount == nil {
		return o.Total, nil
	}
	remaining, err := o.Total.Sub(*o.RefundedAmount)
	if err != nil {
		return Money{}, err
	}
	if remaining.IsZero() {
		return Money{}, ErrOrderAlreadyRefunded
	}
	return remaining, nil
}

func (o *Order) refund(amount Money, reason string) error {
	refunded := amount
	if o.RefundedAmount != nil {
		var err error
		refunded, err = o.RefundedAmount.Add(amount)
		if err != nil {
			return err
		}
	}
	o.RefundedAmount = &refunded
	o.RefundReason = reason
	o.UpdatedAt = time.Now()
	o.record(OrderRefunded{OrderID: o.ID, Amount: amount.Amount.String(), Reason: reason})
	return nil
}

func (o *Order) setStatus(next OrderStatus) {
	prev := o.Status
	o.Status = next
	o.UpdatedAt = time.Now()
	o.record(OrderStatusChanged{OrderID: o.ID, From: prev, To: next})
}

func (o *Order) setPaymentStatus(next PaymentStatus) {
	prev := o.PaymentStatus
	o.PaymentStatus = next
	o.UpdatedAt = time.Now()
	o.record(OrderPaymentStatusChanged{OrderID: o.ID, From: prev, To: next})
}
