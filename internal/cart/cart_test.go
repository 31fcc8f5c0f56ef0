package cart

import (
	"fmt"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCart_AddAndCount(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("1", "Docker Container", price("29.99")))
	require.NoError(t, c.Add("2", "Kubernetes Cluster", price("99.99")))

	assert.Equal(t, 2, c.Count())

	s := c.Summarize()
	assert.False(t, s.Empty)
	assert.Equal(t, "129.98", s.TotalString())
}

func TestCart_CountMatchesAdds(t *testing.T) {
	for _, k := range []int{0, 1, 7, 100} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			c := New()
			for i := range k {
				require.NoError(t, c.Add(fmt.Sprint(i), "item", price("1.00")))
			}
			assert.Equal(t, k, c.Count())
		})
	}
}

func TestCart_DuplicatesAppend(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("1", "Docker Container", price("29.99")))
	require.NoError(t, c.Add("1", "Docker Container", price("29.99")))

	s := c.Summarize()
	require.Len(t, s.Lines, 2)
	assert.Equal(t, "1", s.Lines[0].ID)
	assert.Equal(t, "1", s.Lines[1].ID)
	assert.Equal(t, "59.98", s.TotalString())
}

func TestCart_SummarizeEmpty(t *testing.T) {
	c := New()

	s := c.Summarize()
	assert.True(t, s.Empty)
	assert.Nil(t, s.Lines)
	assert.Equal(t, EmptyMessage, s.String())
}

func TestCart_SummarizePreservesOrder(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("3", "AWS EC2 Instance", price("49.99")))
	require.NoError(t, c.Add("1", "Docker Container", price("29.99")))
	require.NoError(t, c.Add("8", "Ansible Playbook", price("24.99")))

	s := c.Summarize()
	require.Equal(t, 3, s.Count())
	assert.Equal(t, "AWS EC2 Instance", s.Lines[0].Name)
	assert.Equal(t, "Docker Container", s.Lines[1].Name)
	assert.Equal(t, "Ansible Playbook", s.Lines[2].Name)
	assert.Equal(t, "104.97", s.TotalString())
}

func TestCart_TotalIsExact(t *testing.T) {
	c := New()
	// 0.1 added ten times is 1 exactly; float addition would drift.
	for range 10 {
		require.NoError(t, c.Add("x", "Penny Widget", price("0.1")))
	}

	s := c.Summarize()
	assert.True(t, price("1").Equal(s.Total))
	assert.Equal(t, "1.00", s.TotalString())
}

func TestCart_TotalRoundsToTwoDigits(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("x", "Odd", price("0.005")))
	require.NoError(t, c.Add("y", "Odd", price("0.001")))

	assert.Equal(t, "0.01", c.Summarize().TotalString())
}

func TestCart_SummarizeIsIdempotent(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("1", "Docker Container", price("29.99")))

	first := c.Summarize()
	second := c.Summarize()
	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, first.Lines, second.Lines)
	assert.Equal(t, c.Count(), c.Count())
}

func TestCart_PriceSnapshot(t *testing.T) {
	c := New()
	p := price("29.99")
	require.NoError(t, c.Add("1", "Docker Container", p))

	s := c.Summarize()
	s.Lines[0].Price = price("0")

	assert.Equal(t, "29.99", c.Summarize().TotalString())
}

func TestCart_AddInvalid(t *testing.T) {
	tests := []struct {
		name      string
		itemName  string
		itemPrice decimal.Decimal
		wantField string
	}{
		{name: "empty name", itemName: "", itemPrice: price("1"), wantField: "name"},
		{name: "blank name", itemName: "   ", itemPrice: price("1"), wantField: "name"},
		{name: "negative price", itemName: "Widget", itemPrice: price("-0.01"), wantField: "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()

			err := c.Add("1", tt.itemName, tt.itemPrice)
			require.ErrorIs(t, err, ErrInvalidItem)

			var invalid *InvalidItemError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.wantField, invalid.Field)

			assert.Equal(t, 0, c.Count())
			assert.True(t, c.Summarize().Empty)
		})
	}
}

func TestCart_ZeroPriceAllowed(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("free", "Sticker", decimal.Zero))
	assert.Equal(t, "0.00", c.Summarize().TotalString())
}

func TestCart_ConcurrentAdds(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Add(fmt.Sprint(i), "item", price("2.50"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Count())
	assert.Equal(t, "125.00", c.Summarize().TotalString())
}

func TestSummary_String(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("1", "Docker Container", price("29.99")))
	require.NoError(t, c.Add("2", "Kubernetes Cluster", price("99.99")))

	want := "🛒 Your Cart:\n\n" +
		"Docker Container - $29.99\n" +
		"Kubernetes Cluster - $99.99\n" +
		"\n💰 Total: $129.98"
	assert.Equal(t, want, c.Summarize().String())
}
