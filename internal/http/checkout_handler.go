package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
	"github.com/jessetechgeek/shopilent-sub006/internal/service"
)

// CheckoutAPI is the subset of the checkout service used by the handler.
type CheckoutAPI interface {
	PlaceOrder(ctx context.Context, req *service.CheckoutRequest) (*domain.Order, error)
}

type CheckoutHandler struct {
	checkout CheckoutAPI
}

func NewCheckoutHandler(checkout CheckoutAPI) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type PlaceOrderRequestDTO struct {
	CartID            *string           `json:"cart_id,omitempty"`
	ShippingAddressID string            `json:"shipping_address_id"`
	BillingAddressID  *string           `json:"billing_address_id,omitempty"`
	ShippingMethod    string            `json:"shipping_method,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// POST /api/v1/orders
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req PlaceOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	shippingAddressID, err := uuid.Parse(req.ShippingAddressID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_shipping_address_id",
			"shipping_address_id must be a valid UUID")
		return
	}

	checkoutReq := &service.CheckoutRequest{
		UserID:            userID,
		ShippingAddressID: shippingAddressID,
		ShippingMethod:    req.ShippingMethod,
		Metadata:          req.Metadata,
	}

	if req.CartID != nil {
		cartID, err := uuid.Parse(*req.CartID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_cart_id", "cart_id must be a valid UUID")
			return
		}
		checkoutReq.CartID = &cartID
	}
	if req.BillingAddressID != nil {
		billingID, err := uuid.Parse(*req.BillingAddressID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_billing_address_id",
				"billing_address_id must be a valid UUID")
			return
		}
		checkoutReq.BillingAddressID = &billingID
	}

	order, err := h.checkout.PlaceOrder(r.Context(), checkoutReq)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}
