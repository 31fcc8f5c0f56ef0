package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// EmptyMessage is the text shown instead of a summary when the cart is empty.
const EmptyMessage = "Your cart is empty! 🛒"

// Line is one entry of a cart summary.
type Line struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Summary is a read-only view of the cart contents.
type Summary struct {
	// Empty is set when the cart holds no items. Lines is nil in that case.
	Empty bool
	Lines []Line
	// Total is the exact sum of all line prices.
	Total decimal.Decimal
}

// Count returns the number of lines.
func (s Summary) Count() int {
	return len(s.Lines)
}

// TotalString formats the total with exactly two fraction digits.
func (s Summary) TotalString() string {
	return s.Total.StringFixed(2)
}

// String renders the summary as plain text, one line per item followed by
// the total, or EmptyMessage for an empty cart.
func (s Summary) String() string {
	if s.Empty {
		return EmptyMessage
	}

	var b strings.Builder
	b.WriteString("🛒 Your Cart:\n\n")
	for _, l := range s.Lines {
		b.WriteString(l.Name)
		b.WriteString(" - $")
		b.WriteString(l.Price.String())
		b.WriteByte('\n')
	}
	b.WriteString("\n💰 Total: $")
	b.WriteString(s.TotalString())
	return b.String()
}
