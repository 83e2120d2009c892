package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
	"github.com/jessetechgeek/shopilent-sub006/internal/repository"
)

// OrderService handles order lifecycle after checkout: reads, payment
// results, shipping transitions, cancellation and refunds.
type OrderService struct {
	orders  repository.OrderRepository
	catalog repository.CatalogRepository
}

func NewOrderService(orders repository.OrderRepository, catalog repository.CatalogRepository) *OrderService {
	return &OrderService{orders: orders, catalog: catalog}
}

// GetOrder loads an order for its owner. Another user's order id yields
// ErrForbidden: orders are not secret, unlike carts, but they are not
// readable across users either.
func (s *OrderService) GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListOrdersByUserID(ctx, userID)
}

// CancelOrder cancels a not-yet-shipped order and restores the stock that
// checkout decremented, the same compensating pattern as checkout failure.
func (s *OrderService) CancelOrder(ctx context.Context, userID string, orderID uuid.UUID, reason string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.Cancel(reason); err != nil {
		return nil, err
	}

	events := order.Events()
	restoreCtx := context.WithoutCancel(ctx)
	for _, item := range order.Items {
		stockEvents, err := restoreStock(restoreCtx, s.catalog, item.ProductID, item.VariantID, item.Quantity)
		if err != nil {
			// The cancellation still proceeds; the gap is logged for
			// reconciliation rather than silently dropped.
			log.Printf("restore stock on cancel for product %s: %v", item.ProductID, err)
			continue
		}
		events = append(events, stockEvents...)
	}

	return s.persist(ctx, order, events)
}

// RefundOrder refunds the full remaining balance when amount is nil,
// otherwise the given partial amount.
func (s *OrderService) RefundOrder(ctx context.Context, userID string, orderID uuid.UUID, amount *domain.Money, reason string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if amount == nil {
		err = order.ProcessRefund(reason)
	} else {
		err = order.ProcessPartialRefund(*amount, reason)
	}
	if err != nil {
		return nil, err
	}

	return s.persist(ctx, order, order.Events())
}

// HandlePaymentResult is the payment webhook boundary: it flips the
// payment status and, on success, moves the order into Processing.
func (s *OrderService) HandlePaymentResult(ctx context.Context, orderID uuid.UUID, succeeded bool) (*domain.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if succeeded {
		err = order.MarkPaymentSucceeded()
	} else {
		err = order.MarkPaymentFailed()
	}
	if err != nil {
		return nil, err
	}

	return s.persist(ctx, order, order.Events())
}

func (s *OrderService) ShipOrder(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*domain.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.Ship(trackingNumber); err != nil {
		return nil, err
	}
	return s.persist(ctx, order, order.Events())
}

func (s *OrderService) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.MarkDelivered(); err != nil {
		return nil, err
	}
	return s.persist(ctx, order, order.Events())
}

func (s *OrderService) load(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) persist(ctx context.Context, order *domain.Order, events []domain.Event) (*domain.Order, error) {
	rows, err := repository.OutboxFromEvents(order.ID.String(), events)
	if err != nil {
		return nil, err
	}
	if err := s.orders.UpdateOrder(ctx, order, rows); err != nil {
		return nil, err
	}
	order.ClearEvents()
	return order, nil
}
