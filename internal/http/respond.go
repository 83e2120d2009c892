package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
	"github.com/jessetechgeek/shopilent-sub006/internal/repository"
	"github.com/jessetechgeek/shopilent-sub006/internal/service"
)

type ErrorResponse struct {
	Error     string                  `json:"error"`
	Code      string                  `json:"code,omitempty"`
	Shortages []service.StockShortage `json:"shortages,omitempty"`
}

func getUserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value("user_id").(string); ok {
		return userID
	}
	return ""
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value("request_id").(string); ok {
		return requestID
	}
	return ""
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps service and domain errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error) {
	var insufficient *service.InsufficientStockError
	if errors.As(err, &insufficient) {
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:     insufficient.Error(),
			Code:      "insufficient_stock",
			Shortages: insufficient.Shortages,
		})
		return
	}

	var statusErr *domain.OrderStatusError
	if errors.As(err, &statusErr) {
		respondError(w, http.StatusConflict, "invalid_order_state", statusErr.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, service.ErrAddressNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, domain.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	// An empty cart reads as not-found so clients cannot distinguish
	// "no cart" from "cart with nothing in it".
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusNotFound, "empty_cart", err.Error())
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, repository.ErrConcurrencyConflict):
		respondError(w, http.StatusConflict, "conflict", "please retry the request")
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidProductID),
		errors.Is(err, domain.ErrNegativeStockQuantity),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrRefundExceedsTotal),
		errors.Is(err, domain.ErrOrderAlreadyRefunded),
		errors.Is(err, domain.ErrPaymentNotSucceeded):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
