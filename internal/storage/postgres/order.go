package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/address"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/order"
)

const (
	orderColumns = `id, user_id, items, shipping_address,
		items_price, discount_on_mrp, coupon_discount, coupon_code, shipping_price, total_price,
		payment_method, payment_status, paid_at, status, created_at, delivered_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`

	updateDraftSQL = `UPDATE orders SET shipping_address = $2,
		items_price = $3, discount_on_mrp = $4, coupon_discount = $5, coupon_code = $6,
		shipping_price = $7, total_price = $8
		WHERE id = $1 AND status = 'pending_payment'`

	// Moving back to pending_payment (payment retry) also resets the payment
	// status so the draft is payable again.
	transitionStatusSQL = `UPDATE orders SET status = $3,
		payment_status = CASE WHEN $3 = 'pending_payment' THEN 'unpaid' ELSE payment_status END
		WHERE id = $1 AND status = ANY($2)`

	confirmCODSQL = `UPDATE orders SET status = 'processing', payment_method = 'COD'
		WHERE id = $1 AND status = 'pending_payment'`

	markPaidSQL = `UPDATE orders SET status = 'processing', payment_status = 'paid',
		payment_method = $2, paid_at = $3
		WHERE id = $1 AND status = 'pending_payment'`

	markPaymentFailedSQL = `UPDATE orders SET status = 'payment_failed', payment_status = 'failed'
		WHERE id = $1 AND status = 'pending_payment'`

	markDeliveredSQL = `UPDATE orders SET status = 'delivered', delivered_at = $2
		WHERE id = $1 AND status = 'shipped'`

	listStaleDraftsSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE status = 'pending_payment' AND created_at < $1
		ORDER BY created_at ASC LIMIT $2`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Item and
// address snapshots are serialized to JSONB; status swaps are conditional
// UPDATEs whose row count reports whether the swap happened.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order with its frozen snapshots.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	addrJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, addrJSON,
		o.ItemsPrice, o.DiscountOnMRP, o.CouponDiscount, o.CouponCode, o.ShippingPrice, o.TotalPrice,
		string(o.PaymentMethod), string(o.PaymentStatus), o.PaidAt, string(o.Status), o.CreatedAt, o.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID fetches a single order. Returns order.ErrNotFound when absent.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser fetches all orders of a user, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return orders, nil
}

// UpdateDraft rewrites the mutable snapshot fields of a pending draft.
func (r *OrderRepository) UpdateDraft(ctx context.Context, o *order.Order) error {
	addrJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	ct, err := r.pool.Exec(ctx, updateDraftSQL,
		o.ID, addrJSON,
		o.ItemsPrice, o.DiscountOnMRP, o.CouponDiscount, o.CouponCode, o.ShippingPrice, o.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("updating draft %q: %w", o.ID, err)
	}
	if ct.RowsAffected() != 1 {
		return order.ErrNotFound
	}
	return nil
}

// TransitionStatus compare-and-swaps the order status.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id string, from []order.Status, to order.Status) (bool, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}
	ct, err := r.pool.Exec(ctx, transitionStatusSQL, id, fromStrs, string(to))
	if err != nil {
		return false, fmt.Errorf("transitioning order %q to %s: %w", id, to, err)
	}
	return ct.RowsAffected() == 1, nil
}

// ConfirmCOD finalizes a pending draft as cash-on-delivery.
func (r *OrderRepository) ConfirmCOD(ctx context.Context, id string) (bool, error) {
	ct, err := r.pool.Exec(ctx, confirmCODSQL, id)
	if err != nil {
		return false, fmt.Errorf("confirming cod order %q: %w", id, err)
	}
	return ct.RowsAffected() == 1, nil
}

// MarkPaid records a verified payment on a pending draft.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, method order.PaymentMethod, paidAt time.Time) (bool, error) {
	ct, err := r.pool.Exec(ctx, markPaidSQL, id, string(method), paidAt)
	if err != nil {
		return false, fmt.Errorf("marking order %q paid: %w", id, err)
	}
	return ct.RowsAffected() == 1, nil
}

// MarkPaymentFailed records a failed gateway payment on a pending draft.
func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, id string) (bool, error) {
	ct, err := r.pool.Exec(ctx, markPaymentFailedSQL, id)
	if err != nil {
		return false, fmt.Errorf("marking order %q payment failed: %w", id, err)
	}
	return ct.RowsAffected() == 1, nil
}

// MarkDelivered completes a shipped order.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error) {
	ct, err := r.pool.Exec(ctx, markDeliveredSQL, id, at)
	if err != nil {
		return false, fmt.Errorf("marking order %q delivered: %w", id, err)
	}
	return ct.RowsAffected() == 1, nil
}

// ListStaleDrafts returns pending drafts created before the cutoff.
func (r *OrderRepository) ListStaleDrafts(ctx context.Context, cutoff time.Time, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listStaleDraftsSQL, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("listing stale drafts: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing stale drafts: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		itemsJSON     []byte
		addrJSON      []byte
		method        string
		paymentStatus string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &addrJSON,
		&o.ItemsPrice, &o.DiscountOnMRP, &o.CouponDiscount, &o.CouponCode, &o.ShippingPrice, &o.TotalPrice,
		&method, &paymentStatus, &o.PaidAt, &status, &o.CreatedAt, &o.DeliveredAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling order items: %w", err)
	}
	var addr address.Address
	if err := json.Unmarshal(addrJSON, &addr); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	o.ShippingAddress = addr
	o.PaymentMethod = order.PaymentMethod(method)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)
	return o, nil
}
