package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/cart"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/catalog"
)

const getCartItemsSQL = `SELECT id, user_id, product_id, variant_name, size_name, quantity
	FROM cart_items
	WHERE user_id = $1 AND id = ANY($2)`

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool     *pgxpool.Pool
	products catalog.Repository
}

// NewCartRepository returns a CartRepository that resolves products through
// the given catalog repository.
func NewCartRepository(pool *pgxpool.Pool, products catalog.Repository) *CartRepository {
	return &CartRepository{pool: pool, products: products}
}

// GetItems fetches the given item ids for the user and resolves their
// products in a single batch. An id that does not exist or belongs to another
// user yields cart.ErrItemNotFound. A line whose product is gone from the
// catalog comes back with a nil Product, left to the caller as a typed state.
func (r *CartRepository) GetItems(ctx context.Context, userID string, itemIDs []string) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, getCartItemsSQL, userID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("fetching cart items: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]cart.Item, len(itemIDs))
	productIDs := make([]string, 0, len(itemIDs))
	for rows.Next() {
		var it cart.Item
		var qty int32
		if err := rows.Scan(&it.ID, &it.UserID, &it.ProductID, &it.VariantName, &it.Size, &qty); err != nil {
			return nil, fmt.Errorf("scanning cart item: %w", err)
		}
		it.Quantity = int(qty)
		byID[it.ID] = it
		productIDs = append(productIDs, it.ProductID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetching cart items: %w", err)
	}

	// Preserve request order and verify ownership of every id.
	items := make([]cart.Item, 0, len(itemIDs))
	for _, id := range itemIDs {
		it, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("item %s: %w", id, cart.ErrItemNotFound)
		}
		items = append(items, it)
	}

	products, err := r.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("resolving cart products: %w", err)
	}
	productMap := make(map[string]*catalog.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}
	for i := range items {
		items[i].Product = productMap[items[i].ProductID]
	}
	return items, nil
}
