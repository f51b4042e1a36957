package models

import (
	"github.com/shopspring/decimal"
)

// SettlementSession records how one order's total is being divided.
// Exactly one session exists per order; its Mode never changes once created.
type SettlementSession struct {
	// ID is the unique identifier for the session (UUID format).
	ID string

	// OrderID is the order being settled.
	OrderID int64

	// Mode is the split policy, locked at creation.
	Mode SplitMode

	// ParticipantCount is the number of payers for SplitEven; zero otherwise.
	ParticipantCount int

	// Finalized is set once the shares sum to the order total.
	Finalized bool

	// Version is bumped on every successful save and used for compare-and-swap.
	Version int64

	// Shares holds at most one entry per participant, in creation order.
	Shares []Share

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// Share is one participant's contribution within a session.
type Share struct {
	ParticipantID string
	DisplayName   string
	PaymentMethod string

	// Amount is what this participant pays, rounded once to two decimals.
	Amount decimal.Decimal

	// Percentage is set for SplitPercentage shares.
	Percentage decimal.NullDecimal

	// ItemIDs are the order lines claimed by this participant (SplitItems).
	ItemIDs []int64

	CreatedAt int64
	UpdatedAt int64
}

// ShareOf returns the index of the participant's share, or -1.
func (s *SettlementSession) ShareOf(participantID string) int {
	for i := range s.Shares {
		if s.Shares[i].ParticipantID == participantID {
			return i
		}
	}
	return -1
}

// Paid sums all recorded share amounts.
func (s *SettlementSession) Paid() decimal.Decimal {
	paid := decimal.Zero
	for _, share := range s.Shares {
		paid = paid.Add(share.Amount)
	}
	return paid
}

// Clone returns a deep copy of the session.
func (s *SettlementSession) Clone() *SettlementSession {
	c := *s
	c.Shares = make([]Share, len(s.Shares))
	for i, share := range s.Shares {
		c.Shares[i] = share
		c.Shares[i].ItemIDs = append([]int64(nil), share.ItemIDs...)
	}
	return &c
}
