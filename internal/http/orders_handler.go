package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
)

// OrdersAPI is the subset of the order service used by the handler.
type OrdersAPI interface {
	GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	CancelOrder(ctx context.Context, userID string, orderID uuid.UUID, reason string) (*domain.Order, error)
	RefundOrder(ctx context.Context, userID string, orderID uuid.UUID, amount *domain.Money, reason string) (*domain.Order, error)
	ShipOrder(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*domain.Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	HandlePaymentResult(ctx context.Context, orderID uuid.UUID, succeeded bool) (*domain.Order, error)
}

type OrdersHandler struct {
	orders OrdersAPI
}

func NewOrdersHandler(orders OrdersAPI) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

type CancelOrderRequestDTO struct {
	Reason string `json:"reason,omitempty"`
}

type RefundOrderRequestDTO struct {
	Amount   *string `json:"amount,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

type ShipOrderRequestDTO struct {
	TrackingNumber string `json:"tracking_number"`
}

type PaymentResultRequestDTO struct {
	OrderID   string `json:"order_id"`
	Succeeded bool   `json:"succeeded"`
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid UUID")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid UUID")
		return
	}

	var req CancelOrderRequestDTO
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	order, err := h.orders.CancelOrder(r.Context(), userID, orderID, req.Reason)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid UUID")
		return
	}

	var req RefundOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// Omitted amount means full refund of the remaining balance.
	var amount *domain.Money
	if req.Amount != nil {
		if req.Currency == "" {
			respondError(w, http.StatusBadRequest, "missing_currency", "currency is required with amount")
			return
		}
		m, err := domain.NewMoneyFromString(*req.Amount, req.Currency)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_amount", "amount must be a valid decimal")
			return
		}
		amount = &m
	}

	order, err := h.orders.RefundOrder(r.Context(), userID, orderID, amount, req.Reason)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid UUID")
		return
	}

	var req ShipOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.TrackingNumber == "" {
		respondError(w, http.StatusBadRequest, "missing_tracking_number", "tracking_number is required")
		return
	}

	order, err := h.orders.ShipOrder(r.Context(), orderID, req.TrackingNumber)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid UUID")
		return
	}

	order, err := h.orders.MarkDelivered(r.Context(), orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// PaymentResult receives payment provider callbacks.
func (h *OrdersHandler) PaymentResult(w http.ResponseWriter, r *http.Request) {
	var req PaymentResultRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid UUID")
		return
	}

	order, err := h.orders.HandlePaymentResult(r.Context(), orderID, req.Succeeded)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
