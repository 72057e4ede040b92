package order

// Status enumerates order lifecycle states. Transitions are restricted to the
// validNext table; everything else is a conflict.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusPaymentFailed  Status = "payment_failed"
	StatusOnHold         Status = "on_hold"
)

var validNext = map[Status]map[Status]bool{
	StatusPendingPayment: {StatusProcessing: true, StatusCancelled: true, StatusPaymentFailed: true},
	StatusProcessing:     {StatusShipped: true, StatusCancelled: true, StatusOnHold: true},
	StatusShipped:        {StatusDelivered: true},
	StatusPaymentFailed:  {StatusPendingPayment: true, StatusCancelled: true},
	StatusOnHold:         {StatusProcessing: true, StatusCancelled: true},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return len(validNext[s]) == 0
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// userCancellable lists the states a customer may cancel from. Once shipped,
// cancellation requires manual intervention.
var userCancellable = map[Status]bool{
	StatusPendingPayment: true,
	StatusProcessing:     true,
}
