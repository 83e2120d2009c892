package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
)

// StockAPI is the subset of the stock service used by the handler.
type StockAPI interface {
	SetVariantStock(ctx context.Context, variantID uuid.UUID, quantity int) (*domain.ProductVariant, error)
	AddVariantStock(ctx context.Context, variantID uuid.UUID, quantity int) (*domain.ProductVariant, error)
}

// StockHandler exposes admin stock adjustments.
type StockHandler struct {
	stock StockAPI
}

func NewStockHandler(stock StockAPI) *StockHandler {
	return &StockHandler{stock: stock}
}

type StockRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *StockHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	variantID, err := uuid.Parse(chi.URLParam(r, "variant_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_variant_id", "variant_id must be a valid UUID")
		return
	}

	var req StockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity cannot be negative")
		return
	}

	variant, err := h.stock.SetVariantStock(r.Context(), variantID, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, variant)
}

func (h *StockHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	variantID, err := uuid.Parse(chi.URLParam(r, "variant_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_variant_id", "variant_id must be a valid UUID")
		return
	}

	var req StockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
		return
	}

	variant, err := h.stock.AddVariantStock(r.Context(), variantID, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, variant)
}
