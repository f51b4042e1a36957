package models

import (
	"fmt"
)

// ItemStatus is the lifecycle state of an order item. The same domain is reused for
// the derived order status.
//
// The progression is Pending < Confirmed < InKitchen < Ready < Served < RequestedBill
// < Paid. Canceled is absorbing and sits outside the progression.
type ItemStatus uint8

const (
	StatusPending ItemStatus = iota
	StatusConfirmed
	StatusInKitchen
	StatusReady
	StatusServed
	StatusRequestedBill
	StatusPaid
	StatusCanceled

	itemStatusCount
)

var itemStatusNames = [...]string{
	StatusPending:       "pending",
	StatusConfirmed:     "confirmed",
	StatusInKitchen:     "in_kitchen",
	StatusReady:         "ready",
	StatusServed:        "served",
	StatusRequestedBill: "requested_bill",
	StatusPaid:          "paid",
	StatusCanceled:      "canceled",
}

// Adding a status without a wire name (or the reverse) fails to compile.
var (
	_ [len(itemStatusNames) - int(itemStatusCount)]struct{}
	_ [int(itemStatusCount) - len(itemStatusNames)]struct{}
)

// AllItemStatuses lists every status in progression order, Canceled last.
var AllItemStatuses = []ItemStatus{
	StatusPending,
	StatusConfirmed,
	StatusInKitchen,
	StatusReady,
	StatusServed,
	StatusRequestedBill,
	StatusPaid,
	StatusCanceled,
}

func (s ItemStatus) Valid() bool {
	return s < itemStatusCount
}

func (s ItemStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("ItemStatus(%d)", uint8(s))
	}
	return itemStatusNames[s]
}

// Terminal reports whether no further kitchen progress is expected.
func (s ItemStatus) Terminal() bool {
	return s == StatusPaid || s == StatusCanceled
}

// ParseItemStatus resolves a wire name to its status.
func ParseItemStatus(name string) (ItemStatus, error) {
	for i, n := range itemStatusNames {
		if n == name {
			return ItemStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown item status %q", name)
}

func (s ItemStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid item status %d", uint8(s))
	}
	return []byte(itemStatusNames[s]), nil
}

func (s *ItemStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseItemStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SplitMode is the policy a settlement session uses to divide the bill.
type SplitMode uint8

const (
	SplitFull SplitMode = iota
	SplitEven
	SplitPercentage
	SplitItems

	splitModeCount
)

var splitModeNames = [...]string{
	SplitFull:       "full",
	SplitEven:       "even",
	SplitPercentage: "percentage",
	SplitItems:      "items",
}

var (
	_ [len(splitModeNames) - int(splitModeCount)]struct{}
	_ [int(splitModeCount) - len(splitModeNames)]struct{}
)

func (m SplitMode) Valid() bool {
	return m < splitModeCount
}

func (m SplitMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("SplitMode(%d)", uint8(m))
	}
	return splitModeNames[m]
}

// ParseSplitMode resolves a wire name to its split mode.
func ParseSplitMode(name string) (SplitMode, error) {
	for i, n := range splitModeNames {
		if n == name {
			return SplitMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown split mode %q", name)
}

func (m SplitMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid split mode %d", uint8(m))
	}
	return []byte(splitModeNames[m]), nil
}

func (m *SplitMode) UnmarshalText(text []byte) error {
	parsed, err := ParseSplitMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// PaymentStatus tracks whether an order's bill has been fully settled.
type PaymentStatus uint8

const (
	PaymentUnpaid PaymentStatus = iota
	PaymentPaid

	paymentStatusCount
)

var paymentStatusNames = [...]string{
	PaymentUnpaid: "unpaid",
	PaymentPaid:   "paid",
}

var (
	_ [len(paymentStatusNames) - int(paymentStatusCount)]struct{}
	_ [int(paymentStatusCount) - len(paymentStatusNames)]struct{}
)

func (p PaymentStatus) Valid() bool {
	return p < paymentStatusCount
}

func (p PaymentStatus) String() string {
	if !p.Valid() {
		return fmt.Sprintf("PaymentStatus(%d)", uint8(p))
	}
	return paymentStatusNames[p]
}

// ParsePaymentStatus resolves a wire name to its payment status.
func ParsePaymentStatus(name string) (PaymentStatus, error) {
	for i, n := range paymentStatusNames {
		if n == name {
			return PaymentStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown payment status %q", name)
}

func (p PaymentStatus) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid payment status %d", uint8(p))
	}
	return []byte(paymentStatusNames[p]), nil
}

func (p *PaymentStatus) UnmarshalText(text []byte) error {
	parsed, err := ParsePaymentStatus(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
