package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
)

const orderColumns = `id, user_id, shipping_address_id, billing_address_id, status, payment_status,
	items, subtotal_amount, tax_amount, shipping_amount, total_amount, currency,
	shipping_method, tracking_number, metadata, refunded_amount, refund_reason,
	created_at, updated_at`

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order, events []*OutboxEvent) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	metadataJSON, err := json.Marshal(order.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal order metadata: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.ShippingAddressID,
		order.BillingAddressID,
		order.Status,
		order.PaymentStatus,
		itemsJSON,
		order.Subtotal.Amount,
		order.Tax.Amount,
		order.ShippingCost.Amount,
		order.Total.Amount,
		order.Total.Currency,
		order.ShippingMethod,
		order.TrackingNumber,
		metadataJSON,
		refundedAmount(order),
		order.RefundReason,
	)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	if err := insertOutboxTx(ctx, tx, events); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order transaction: %w", err)
	}
	return nil
}

func (r *Repository) UpdateOrder(ctx context.Context, order *domain.Order, events []*OutboxEvent) error {
	metadataJSON, err := json.Marshal(order.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal order metadata: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE orders
	          SET status = $1, payment_status = $2, tracking_number = $3, metadata = $4,
	              refunded_amount = $5, refund_reason = $6, updated_at = NOW()
	          WHERE id = $7`

	res, err := tx.ExecContext(ctx, query,
		order.Status,
		order.PaymentStatus,
		order.TrackingNumber,
		metadataJSON,
		refundedAmount(order),
		order.RefundReason,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	if err := insertOutboxTx(ctx, tx, events); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order transaction: %w", err)
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

func (r *Repository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var itemsJSON, metadataJSON []byte
	var currency string
	var refunded decimal.NullDecimal
	var subtotal, tax, shipping, total decimal.Decimal

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.ShippingAddressID,
		&order.BillingAddressID,
		&order.Status,
		&order.PaymentStatus,
		&itemsJSON,
		&subtotal,
		&tax,
		&shipping,
		&total,
		&currency,
		&order.ShippingMethod,
		&order.TrackingNumber,
		&metadataJSON,
		&refunded,
		&order.RefundReason,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Subtotal = domain.Money{Amount: subtotal, Currency: currency}
	order.Tax = domain.Money{Amount: tax, Currency: currency}
	order.ShippingCost = domain.Money{Amount: shipping, Currency: currency}
	order.Total = domain.Money{Amount: total, Currency: currency}
	if refunded.Valid {
		order.RefundedAmount = &domain.Money{Amount: refunded.Decimal, Currency: currency}
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &order.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal order metadata: %w", err)
		}
	}
	return &order, nil
}

func refundedAmount(order *domain.Order) decimal.NullDecimal {
	if order.RefundedAmount == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: order.RefundedAmount.Amount, Valid: true}
}
