package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jessetechgeek/shopilent-sub006/internal/repository"
)

// Metrics counts checkout outcomes by failure class.
type Metrics struct {
	Checkouts *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "orders_total",
		Help:      "Checkout attempts by result.",
	}, []string{"result"})

	prometheus.MustRegister(checkouts)
	return &Metrics{Checkouts: checkouts}
}

func (m *Metrics) recordCheckout(err error) {
	if m == nil {
		return
	}
	var insufficient *InsufficientStockError
	var reduction *StockReductionError
	switch {
	case err == nil:
		m.Checkouts.WithLabelValues("success").Inc()
	case errors.As(err, &insufficient):
		m.Checkouts.WithLabelValues("insufficient_stock").Inc()
	case errors.As(err, &reduction), errors.Is(err, repository.ErrConcurrencyConflict):
		m.Checkouts.WithLabelValues("conflict").Inc()
	default:
		m.Checkouts.WithLabelValues("error").Inc()
	}
}
