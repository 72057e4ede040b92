package address

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when an address does not exist or is not owned by
// the requesting user.
var ErrNotFound = errors.New("address not found")

// Address is a shipping destination owned by a user. Orders store a frozen
// copy, so later edits never alter a placed order.
type Address struct {
	ID       string
	UserID   string
	FullName string
	Phone    string
	Street   string
	Area     string
	City     string
	Default  bool
}

// Repository provides address lookups scoped to an owner.
type Repository interface {
	GetByID(ctx context.Context, userID, id string) (*Address, error)
}
