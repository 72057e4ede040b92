package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// InitiatePayment starts payment on a pending draft. COD finalizes the order
// immediately (processing, still unpaid until delivery); the gateway branch
// returns a signed redirect and leaves the order pending_payment until the
// callback arrives. Double initiation on a paid or non-pending order is a
// conflict with no side effects.
func (s *Service) InitiatePayment(ctx context.Context, orderID, userID string, method PaymentMethod) (*PaymentInitiation, error) {
	o, err := s.getOwned(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == PaymentPaid {
		return nil, ErrAlreadyPaid
	}
	if o.Status != StatusPendingPayment {
		return nil, &StateConflictError{OrderID: o.ID, Current: o.Status, Attempted: "initiate payment"}
	}

	switch method {
	case MethodCOD:
		ok, err := s.orders.ConfirmCOD(ctx, o.ID)
		if err != nil {
			return nil, errors.Wrap(err, "confirm cod order")
		}
		if !ok {
			// Lost a race with another initiation or a cancel.
			return nil, s.conflictFor(ctx, o.ID, "initiate payment")
		}
		return &PaymentInitiation{COD: true}, nil

	case MethodESewa:
		o.PaymentMethod = MethodESewa
		redirect, err := s.gateway.BuildRedirect(o)
		if err != nil {
			return nil, errors.Wrap(err, "build gateway redirect")
		}
		return &PaymentInitiation{Redirect: redirect}, nil

	default:
		return nil, ErrUnknownMethod
	}
}

// VerifyCallback consumes the gateway's encoded callback payload. It verifies
// the payload signature, cross-checks the amount against the order's frozen
// total, and transitions pending_payment -> processing/paid with a single
// compare-and-swap. A replayed callback for an already-paid order is an
// idempotent success.
func (s *Service) VerifyCallback(ctx context.Context, encoded string) (*Order, error) {
	cb, err := s.gateway.DecodeCallback(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "decode callback")
	}

	o, err := s.orders.GetByID(ctx, cb.TransactionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownTransaction
		}
		return nil, err
	}

	if o.PaymentStatus == PaymentPaid {
		return o, nil
	}

	if !cb.Complete {
		if _, err := s.orders.MarkPaymentFailed(ctx, o.ID); err != nil {
			return nil, errors.Wrap(err, "mark payment failed")
		}
		return nil, &PaymentIncompleteError{OrderID: o.ID, RawStatus: cb.RawStatus}
	}

	// Never trust the client-supplied amount: the stored total is authoritative.
	if !cb.Amount.Equal(o.TotalPrice) {
		zctx.From(ctx).Warn("callback amount mismatch",
			zap.String("order_id", o.ID),
			zap.String("got", cb.Amount.String()),
			zap.String("want", o.TotalPrice.String()))
		if _, err := s.orders.MarkPaymentFailed(ctx, o.ID); err != nil {
			return nil, errors.Wrap(err, "mark payment failed")
		}
		return nil, &AmountMismatchError{OrderID: o.ID, Got: cb.Amount, Want: o.TotalPrice}
	}

	paidAt := s.now()
	ok, err := s.orders.MarkPaid(ctx, o.ID, MethodESewa, paidAt)
	if err != nil {
		return nil, errors.Wrap(err, "mark paid")
	}
	if !ok {
		// Concurrent duplicate callback or a cancel won the swap. Reload and
		// decide: already paid is an idempotent success, anything else is a
		// conflict.
		cur, err := s.orders.GetByID(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if cur.PaymentStatus == PaymentPaid {
			return cur, nil
		}
		return nil, &StateConflictError{OrderID: o.ID, Current: cur.Status, Attempted: "confirm payment"}
	}

	o.PaymentMethod = MethodESewa
	o.PaymentStatus = PaymentPaid
	o.PaidAt = &paidAt
	o.Status = StatusProcessing
	return o, nil
}

// RetryPayment moves a payment_failed order back to pending_payment so the
// customer can attempt the gateway flow again.
func (s *Service) RetryPayment(ctx context.Context, orderID, userID string) (*Order, error) {
	o, err := s.getOwned(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusPendingPayment {
		return o, nil
	}
	ok, err := s.orders.TransitionStatus(ctx, o.ID, []Status{StatusPaymentFailed}, StatusPendingPayment)
	if err != nil {
		return nil, errors.Wrap(err, "retry payment")
	}
	if !ok {
		return nil, s.conflictFor(ctx, o.ID, "retry payment")
	}
	o.Status = StatusPendingPayment
	o.PaymentStatus = PaymentUnpaid
	return o, nil
}

// conflictFor reloads the order to report its current state in a conflict
// error, falling back to the bare error when the reload fails.
func (s *Service) conflictFor(ctx context.Context, orderID, attempted string) error {
	cur, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return &StateConflictError{OrderID: orderID, Attempted: attempted}
	}
	return &StateConflictError{OrderID: orderID, Current: cur.Status, Attempted: attempted}
}
