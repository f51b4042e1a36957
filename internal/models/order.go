package models

import (
	"github.com/shopspring/decimal"
)

// Order is one placed table order.
// Status is derived from the item statuses and must not be set from UI actions.
type Order struct {
	// ID is the store-assigned identifier.
	ID int64

	// Code is the human-readable, globally unique order code (e.g. "ORD-7F3A92C1").
	Code string

	// TableID is the physical table the order was placed from.
	TableID int64

	// Status is the aggregated status of Items.
	Status ItemStatus

	// Total is the bill amount, the sum of non-canceled line totals.
	Total decimal.Decimal

	// PaymentMethod is the label chosen at checkout ("cash", "card", "split", ...).
	PaymentMethod string

	// PaymentStatus flips to PaymentPaid when a settlement session finalizes.
	PaymentStatus PaymentStatus

	// Items are the order lines. Items are never deleted.
	Items []OrderItem

	// SettlementID links the settlement session, if one was opened.
	SettlementID string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// OrderItem is a single line on an order.
type OrderItem struct {
	ID        int64
	OrderID   int64
	FoodID    int64
	FoodName  string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
	Status    ItemStatus
	Note      string
	Options   []string
	CreatedAt int64
	UpdatedAt int64
}

// Item returns the line with the given ID.
func (o *Order) Item(id int64) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// ItemStatuses returns the status multiset of the order's lines.
func (o *Order) ItemStatuses() []ItemStatus {
	statuses := make([]ItemStatus, len(o.Items))
	for i, item := range o.Items {
		statuses[i] = item.Status
	}
	return statuses
}

// RecomputeTotal sets Total to the sum of the non-canceled line totals.
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		if item.Status == StatusCanceled {
			continue
		}
		total = total.Add(item.LineTotal)
	}
	o.Total = total
}

// Clone returns a deep copy safe to hand to another goroutine.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		c.Items[i] = item
		c.Items[i].Options = append([]string(nil), item.Options...)
	}
	return &c
}
