// Package cart implements the session shopping cart.
//
// A Cart is an ordered, append-only sequence of item snapshots. It has two
// observable states, empty and non-empty; there is no way back to empty
// other than discarding the Cart.
package cart

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidItem is matched by every *InvalidItemError.
var ErrInvalidItem = errors.New("invalid cart item")

// InvalidItemError indicates an add request rejected by validation.
type InvalidItemError struct {
	Field  string
	Reason string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid cart item: %s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidItem.
func (e *InvalidItemError) Is(target error) bool {
	return target == ErrInvalidItem
}

// Item is a snapshot of a product taken when it was added. Its price is
// fixed at insertion time.
type Item struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Cart holds the items selected during a session. It is safe for concurrent
// use; operations are applied in the order they acquire the lock.
type Cart struct {
	mu    sync.Mutex
	items []Item
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add appends a new item to the end of the cart. The same id may be added
// any number of times; each call appends independently.
//
// Names must be non-blank and prices non-negative, otherwise an
// *InvalidItemError is returned and the cart is unchanged.
func (c *Cart) Add(id, name string, price decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return &InvalidItemError{Field: "name", Reason: "must not be empty"}
	}
	if price.IsNegative() {
		return &InvalidItemError{Field: "price", Reason: "must not be negative"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append(c.items, Item{ID: id, Name: name, Price: price})
	return nil
}

// Count returns the number of items in the cart.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Summarize returns the itemized contents and total. It does not modify the
// cart.
func (c *Cart) Summarize() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return Summary{Empty: true, Total: decimal.Zero}
	}

	lines := make([]Line, len(c.items))
	total := decimal.Zero
	for i, it := range c.items {
		lines[i] = Line{ID: it.ID, Name: it.Name, Price: it.Price}
		total = total.Add(it.Price)
	}

	return Summary{
		Lines: lines,
		Total: total,
	}
}
