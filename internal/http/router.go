package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter builds the full HTTP surface: storefront APIs, admin stock
// endpoints, payment callbacks, health and metrics.
func NewRouter(
	cart *CartHandler,
	checkout *CheckoutHandler,
	orders *OrdersHandler,
	stock *StockHandler,
	requestTimeout time.Duration,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MockAuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cart.GetCart)
			r.Delete("/", cart.ClearCart)
			r.Post("/items", cart.AddItem)
			r.Put("/items/{item_id}", cart.UpdateQuantity)
			r.Delete("/items/{item_id}", cart.RemoveItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", checkout.PlaceOrder)
			r.Get("/", orders.ListOrders)
			r.Get("/{order_id}", orders.GetOrder)
			r.Post("/{order_id}/cancel", orders.CancelOrder)
			r.Post("/{order_id}/refund", orders.RefundOrder)
		})

		r.Post("/payments/result", orders.PaymentResult)

		// Admin endpoints, gate behind real auth before exposing.
		r.Route("/admin", func(r chi.Router) {
			r.Post("/orders/{order_id}/ship", orders.ShipOrder)
			r.Post("/orders/{order_id}/deliver", orders.MarkDelivered)
			r.Put("/variants/{variant_id}/stock", stock.SetStock)
			r.Post("/variants/{variant_id}/stock/add", stock.AddStock)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
