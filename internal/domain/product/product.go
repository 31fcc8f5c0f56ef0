package product

import (
	"github.com/shopspring/decimal"
)

// PlaceholderImage is shown for products whose catalog record has no image.
const PlaceholderImage = "https://cdn-icons-png.flaticon.com/512/2920/2920277.png"

// Product represents a catalog item available for purchase.
//
// Products are snapshots of the remote catalog and are never mutated after
// construction. A reload produces a fresh slice.
type Product struct {
	// ID is the textual form of the catalog identifier. Numeric and string
	// identifiers are both accepted by the catalog decoder.
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
}

// ImageURL returns the product image, or PlaceholderImage when none is set.
func (p Product) ImageURL() string {
	if p.Image == "" {
		return PlaceholderImage
	}
	return p.Image
}
