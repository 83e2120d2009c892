package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
)

func (r *Repository) GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT id, name, slug, sku, description, price_amount, price_currency,
	                 stock_quantity, is_active, version, created_at, updated_at
	          FROM products WHERE id = $1`

	var p domain.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.SKU,
		&p.Description,
		&p.Price.Amount,
		&p.Price.Currency,
		&p.StockQuantity,
		&p.IsActive,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return &p, nil
}

func (r *Repository) GetVariantByID(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	query := `SELECT id, product_id, sku, attributes, price_amount, price_currency,
	                 stock_quantity, is_active, version, created_at, updated_at
	          FROM product_variants WHERE id = $1`

	var v domain.ProductVariant
	var attrsJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID,
		&v.ProductID,
		&v.SKU,
		&attrsJSON,
		&v.Price.Amount,
		&v.Price.Currency,
		&v.StockQuantity,
		&v.IsActive,
		&v.Version,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query variant by id: %w", err)
	}
	if len(attrsJSON) > 0 {
		if err := json.Unmarshal(attrsJSON, &v.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal variant attributes: %w", err)
		}
	}
	return &v, nil
}

// UpdateVariantStock writes the variant's stock against the version it was
// loaded with. Zero rows affected means another writer got there first.
func (r *Repository) UpdateVariantStock(ctx context.Context, v *domain.ProductVariant) error {
	query := `UPDATE product_variants
	          SET stock_quantity = $1, version = version + 1, updated_at = NOW()
	          WHERE id = $2 AND version = $3`

	res, err := r.db.ExecContext(ctx, query, v.StockQuantity, v.ID, v.Version)
	if err != nil {
		return fmt.Errorf("update variant stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update variant stock rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConcurrencyConflict
	}
	v.Version++
	return nil
}

func (r *Repository) UpdateProductStock(ctx context.Context, p *domain.Product) error {
	query := `UPDATE products
	          SET stock_quantity = $1, version = version + 1, updated_at = NOW()
	          WHERE id = $2 AND version = $3`

	res, err := r.db.ExecContext(ctx, query, p.StockQuantity, p.ID, p.Version)
	if err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product stock rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConcurrencyConflict
	}
	p.Version++
	return nil
}

func (r *Repository) GetAddressByID(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
	query := `SELECT id, user_id, line1, line2, city, region, postal_code, country_code
	          FROM addresses WHERE id = $1`

	var a domain.Address
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.UserID,
		&a.Line1,
		&a.Line2,
		&a.City,
		&a.Region,
		&a.PostalCode,
		&a.CountryCode,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query address by id: %w", err)
	}
	return &a, nil
}
