package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrCartNotFound covers both a missing cart and a cart owned by a
	// different user, so callers cannot probe other users' carts.
	ErrCartNotFound = errors.New("cart not found")
	ErrEmptyCart    = errors.New("cart is empty, nothing to checkout")

	ErrAddressNotFound = errors.New("address not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrForbidden       = errors.New("access denied")
)

// StockShortage describes one cart line that cannot be fulfilled.
type StockShortage struct {
	ID        uuid.UUID `json:"id"`
	SKU       string    `json:"sku"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// InsufficientStockError fails the whole checkout before any stock is
// touched. It lists every short line so the client can adjust the cart.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d", s.SKU, s.Requested, s.Available))
	}
	return "insufficient stock for order: " + strings.Join(parts, "; ")
}

// StockReductionError means a decrement failed mid-checkout after the
// sufficiency check passed. By the time it surfaces, all decrements already
// applied in the same checkout have been compensated.
type StockReductionError struct {
	ID  uuid.UUID
	SKU string
	Err error
}

func (e *StockReductionError) Error() string {
	return fmt.Sprintf("stock reduction failed for %s: %v", e.SKU, e.Err)
}

func (e *StockReductionError) Unwrap() error {
	return e.Err
}
