package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount    = errors.New("amount cannot be negative")
	ErrInvalidCurrency  = errors.New("currency code is required")
	ErrCurrencyMismatch = errors.New("currency mismatch")

	ErrNegativeDiscount          = errors.New("discount amount cannot be negative")
	ErrInvalidDiscountPercentage = errors.New("discount percentage must be between 0 and 100")

	ErrInvalidProductID   = errors.New("product id is required")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidUserID      = errors.New("user id is required")
	ErrInvalidMetadataKey = errors.New("metadata key cannot be empty")
	ErrItemNotFound       = errors.New("item not found in cart")

	ErrNegativeStockQuantity = errors.New("stock quantity must be positive")
	ErrInsufficientStock     = errors.New("insufficient stock")

	ErrSnapshotNameRequired = errors.New("product snapshot requires a name")

	ErrOrderMustHaveItems   = errors.New("order must contain at least one item")
	ErrOrderAlreadyRefunded = errors.New("order has already been fully refunded")
	ErrRefundExceedsTotal   = errors.New("refund amount exceeds refundable balance")
	ErrPaymentNotSucceeded  = errors.New("payment has not succeeded")
)

// OrderStatusError reports an operation attempted against an order in a
// state that does not allow it.
type OrderStatusError struct {
	Operation string
	Status    OrderStatus
}

func (e *OrderStatusError) Error() string {
	return fmt.Sprintf("cannot %s order in status %s", e.Operation, e.Status)
}
