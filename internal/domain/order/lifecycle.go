package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/catalog"
)

// Cancel cancels an order on behalf of its owner. Allowed only before
// shipment; cancelling an already-cancelled order is an idempotent success.
// Reserved stock is released. Refunds are manual and out of scope.
func (s *Service) Cancel(ctx context.Context, orderID, userID string) (*Order, error) {
	o, err := s.getOwned(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCancelled {
		return o, nil
	}
	if !userCancellable[o.Status] {
		return nil, &StateConflictError{OrderID: o.ID, Current: o.Status, Attempted: "cancel"}
	}

	ok, err := s.orders.TransitionStatus(ctx, o.ID,
		[]Status{StatusPendingPayment, StatusProcessing}, StatusCancelled)
	if err != nil {
		return nil, errors.Wrap(err, "cancel order")
	}
	if !ok {
		// Re-read: a concurrent cancel is an idempotent success.
		cur, err := s.orders.GetByID(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if cur.Status == StatusCancelled {
			return cur, nil
		}
		return nil, &StateConflictError{OrderID: o.ID, Current: cur.Status, Attempted: "cancel"}
	}

	s.releaseStock(ctx, o)
	o.Status = StatusCancelled
	return o, nil
}

// Transition applies an externally requested (admin) status change, enforcing
// the transition table. Requesting the current status is an idempotent
// success; anything outside the table is a conflict.
func (s *Service) Transition(ctx context.Context, orderID string, to Status) (*Order, error) {
	if !to.Valid() {
		return nil, errors.Errorf("unknown status %q", to)
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == to {
		return o, nil
	}
	if !CanTransition(o.Status, to) {
		return nil, &StateConflictError{OrderID: o.ID, Current: o.Status, Attempted: "transition to " + string(to)}
	}

	var ok bool
	switch to {
	case StatusDelivered:
		at := s.now()
		ok, err = s.orders.MarkDelivered(ctx, o.ID, at)
		if ok {
			o.DeliveredAt = &at
		}
	default:
		ok, err = s.orders.TransitionStatus(ctx, o.ID, []Status{o.Status}, to)
	}
	if err != nil {
		return nil, errors.Wrap(err, "transition order")
	}
	if !ok {
		return nil, s.conflictFor(ctx, o.ID, "transition to "+string(to))
	}

	if to == StatusCancelled {
		s.releaseStock(ctx, o)
	}
	o.Status = to
	return o, nil
}

// Get returns an order visible to the given user.
func (s *Service) Get(ctx context.Context, orderID, userID string) (*Order, error) {
	return s.getOwned(ctx, orderID, userID)
}

// List returns all orders of the given user, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ExpireStaleDrafts cancels pending_payment drafts older than ttl and releases
// their stock. Abandoned gateway redirects would otherwise hold reservations
// forever. Returns the number of drafts expired.
func (s *Service) ExpireStaleDrafts(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	cutoff := s.now().Add(-ttl)
	stale, err := s.orders.ListStaleDrafts(ctx, cutoff, limit)
	if err != nil {
		return 0, errors.Wrap(err, "list stale drafts")
	}

	expired := 0
	for i := range stale {
		o := &stale[i]
		ok, err := s.orders.TransitionStatus(ctx, o.ID, []Status{StatusPendingPayment}, StatusCancelled)
		if err != nil {
			return expired, errors.Wrapf(err, "expire draft %s", o.ID)
		}
		if !ok {
			// Paid or cancelled since listing; leave it alone.
			continue
		}
		s.releaseStock(ctx, o)
		zctx.From(ctx).Info("expired stale draft",
			zap.String("order_id", o.ID), zap.Time("created_at", o.CreatedAt))
		expired++
	}
	return expired, nil
}

// releaseStock returns the order's reserved units to the catalog. Failures are
// logged, not propagated: the status swap has already happened and a stuck
// reservation is recoverable by hand, an un-cancellable order is not.
func (s *Service) releaseStock(ctx context.Context, o *Order) {
	changes := make([]catalog.StockChange, len(o.Items))
	for i, it := range o.Items {
		changes[i] = catalog.StockChange{
			SKU: catalog.SKU{
				ProductID:   it.ProductID,
				VariantName: it.VariantName,
				Size:        it.Size,
			},
			Quantity: it.Quantity,
		}
	}
	if err := s.catalog.ReleaseStock(ctx, changes); err != nil {
		zctx.From(ctx).Error("release stock",
			zap.String("order_id", o.ID), zap.Error(err))
	}
}
