package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/address"
)

const getAddressSQL = `SELECT id, user_id, full_name, phone, street, area, city, is_default
	FROM addresses
	WHERE id = $1 AND user_id = $2`

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// GetByID looks up an address owned by the given user. Foreign and unknown
// ids both return address.ErrNotFound.
func (r *AddressRepository) GetByID(ctx context.Context, userID, id string) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, getAddressSQL, id, userID)
	if err != nil {
		return nil, fmt.Errorf("finding address %q: %w", id, err)
	}

	addr, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (address.Address, error) {
		var a address.Address
		err := row.Scan(&a.ID, &a.UserID, &a.FullName, &a.Phone, &a.Street, &a.Area, &a.City, &a.Default)
		return a, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("finding address %q: %w", id, err)
	}
	return &addr, nil
}
