package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	UserID      string          `json:"userId"`
	Items       []CartItem      `json:"items"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Total       decimal.Decimal `json:"total"`
}

type CartItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Name      string          `json:"name"`
}

// Subtotal returns quantity × unit price for the line.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Recalculate recomputes Total from scratch over all items.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	c.Total = total
}

// IndexOf returns the position of the line holding productID, or -1.
func (c *Cart) IndexOf(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy; Items never aliases the receiver's slice.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}
