package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/catalog"
)

const (
	getProductsSQL = `SELECT p.id, p.name, p.image,
		s.variant_name, s.size_name, s.price, s.original_price, s.stock
		FROM products p
		JOIN product_sizes s ON s.product_id = p.id
		WHERE p.id = ANY($1)
		ORDER BY p.id, s.variant_name, s.size_name`

	reserveStockSQL = `UPDATE product_sizes SET stock = stock - $4
		WHERE product_id = $1 AND variant_name = $2 AND size_name = $3 AND stock >= $4`

	releaseStockSQL = `UPDATE product_sizes SET stock = stock + $4
		WHERE product_id = $1 AND variant_name = $2 AND size_name = $3`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID fetches one product with all its variants and sizes.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	products, err := r.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, catalog.ErrNotFound
	}
	return &products[0], nil
}

// GetByIDs batch-fetches products with their variants and sizes. Missing ids
// are simply absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching products: %w", err)
	}
	defer rows.Close()

	var (
		products []catalog.Product
		cur      *catalog.Product
	)
	for rows.Next() {
		var (
			id, name, image      string
			variantName, szName  string
			price, originalPrice decimal.Decimal
			stock                int32
		)
		if err := rows.Scan(&id, &name, &image, &variantName, &szName, &price, &originalPrice, &stock); err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}

		if cur == nil || cur.ID != id {
			products = append(products, catalog.Product{ID: id, Name: name, Image: image})
			cur = &products[len(products)-1]
		}

		vi := len(cur.Variants) - 1
		if vi < 0 || cur.Variants[vi].Name != variantName {
			cur.Variants = append(cur.Variants, catalog.Variant{Name: variantName})
			vi = len(cur.Variants) - 1
		}
		cur.Variants[vi].Sizes = append(cur.Variants[vi].Sizes, catalog.Size{
			Name:          szName,
			Price:         price,
			OriginalPrice: originalPrice,
			Stock:         int(stock),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetching products: %w", err)
	}
	return products, nil
}

// ReserveStock conditionally decrements stock for every change inside one
// transaction. A decrement that matches no row (unknown SKU or not enough
// stock) rolls the whole batch back, so concurrent reservations of the last
// unit cannot both succeed.
func (r *ProductRepository) ReserveStock(ctx context.Context, changes []catalog.StockChange) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin reserve tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, ch := range changes {
		ct, err := tx.Exec(ctx, reserveStockSQL,
			ch.SKU.ProductID, ch.SKU.VariantName, ch.SKU.Size, ch.Quantity)
		if err != nil {
			return fmt.Errorf("reserving stock for %s/%s/%s: %w",
				ch.SKU.ProductID, ch.SKU.VariantName, ch.SKU.Size, err)
		}
		if ct.RowsAffected() != 1 {
			return errors.Wrapf(catalog.ErrInsufficientStock, "%s/%s/%s x%d",
				ch.SKU.ProductID, ch.SKU.VariantName, ch.SKU.Size, ch.Quantity)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reserve tx: %w", err)
	}
	return nil
}

// ReleaseStock returns previously reserved units in one transaction.
func (r *ProductRepository) ReleaseStock(ctx context.Context, changes []catalog.StockChange) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin release tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, ch := range changes {
		if _, err := tx.Exec(ctx, releaseStockSQL,
			ch.SKU.ProductID, ch.SKU.VariantName, ch.SKU.Size, ch.Quantity); err != nil {
			return fmt.Errorf("releasing stock for %s/%s/%s: %w",
				ch.SKU.ProductID, ch.SKU.VariantName, ch.SKU.Size, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit release tx: %w", err)
	}
	return nil
}
