package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/catalog"
)

var (
	// ErrItemNotFound is returned when a requested cart item does not exist or
	// does not belong to the requesting user.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrInvalidQuantity is returned for a non-positive line quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Item is a persisted cart line. Product is resolved at read time; a line
// whose product has been removed from the catalog is represented by a nil
// Product and reported through Missing, never by a panic downstream.
type Item struct {
	ID          string
	UserID      string
	ProductID   string
	VariantName string
	Size        string
	Quantity    int

	// Product is the resolved catalog product, nil when it no longer exists.
	Product *catalog.Product
}

// Missing reports whether the line's product could not be resolved.
func (i *Item) Missing() bool {
	return i.Product == nil
}

// Repository provides reads of a user's cart lines.
type Repository interface {
	// GetItems fetches the given item ids with their products resolved.
	// Every id must belong to userID; otherwise ErrItemNotFound is returned.
	GetItems(ctx context.Context, userID string, itemIDs []string) ([]Item, error)
}
