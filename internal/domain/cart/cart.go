// Package cart models the persisted shopping cart the checkout paths
// consume.
package cart

import "context"

// Item is one cart line.
type Item struct {
	VariantID int64
	Quantity  int
}

// Repository defines the cart operations the order flow needs. Cart
// mutation endpoints live upstream; checkout only reads and prunes.
type Repository interface {
	// ItemsByUser returns every line in the user's cart.
	ItemsByUser(ctx context.Context, userID int64) ([]Item, error)
	// RemoveVariants deletes only the given variants from the user's cart.
	RemoveVariants(ctx context.Context, userID int64, variantIDs []int64) error
	// Clear removes all lines from the user's cart.
	Clear(ctx context.Context, userID int64) error
}
