package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/models"
)

// ParticipantBalance is what one participant has committed across a billing group.
type ParticipantBalance struct {
	ParticipantID string
	DisplayName   string
	Paid          decimal.Decimal
	Orders        int // Number of orders this participant holds a share in
}

// GroupBalance summarizes the bill of several orders billed together, typically the
// orders of every table in a merge group.
type GroupBalance struct {
	Total        decimal.Decimal
	Paid         decimal.Decimal
	Outstanding  decimal.Decimal
	Orders       int
	SettledCount int
	Participants []ParticipantBalance
}

// CalculateGroupBalance aggregates orders and their settlement sessions.
//
// Algorithm:
// - Canceled orders are skipped
// - Each order contributes its total; its session (if any) contributes the shares
// - Outstanding = total - paid, per order floored at zero
// - Participants are ordered by amount paid, then by ID
func CalculateGroupBalance(orders []*models.Order, sessions map[int64]*models.SettlementSession) GroupBalance {
	result := GroupBalance{
		Total:       decimal.Zero,
		Paid:        decimal.Zero,
		Outstanding: decimal.Zero,
	}
	balances := make(map[string]*ParticipantBalance)

	for _, order := range orders {
		if order.Status == models.StatusCanceled {
			continue
		}
		result.Orders++
		result.Total = result.Total.Add(order.Total)

		paid := decimal.Zero
		if session := sessions[order.ID]; session != nil {
			for _, share := range session.Shares {
				bal, exists := balances[share.ParticipantID]
				if !exists {
					bal = &ParticipantBalance{ParticipantID: share.ParticipantID, Paid: decimal.Zero}
					balances[share.ParticipantID] = bal
				}
				if bal.DisplayName == "" {
					bal.DisplayName = share.DisplayName
				}
				bal.Paid = bal.Paid.Add(share.Amount)
				bal.Orders++
				paid = paid.Add(share.Amount)
			}
			if session.Finalized {
				result.SettledCount++
			}
		} else if order.PaymentStatus == models.PaymentPaid {
			// Paid at checkout without a split session.
			paid = order.Total
			result.SettledCount++
		}

		result.Paid = result.Paid.Add(paid)
		if outstanding := order.Total.Sub(paid); outstanding.IsPositive() {
			result.Outstanding = result.Outstanding.Add(outstanding)
		}
	}

	result.Participants = make([]ParticipantBalance, 0, len(balances))
	for _, bal := range balances {
		result.Participants = append(result.Participants, *bal)
	}
	sort.Slice(result.Participants, func(i, j int) bool {
		a, b := result.Participants[i], result.Participants[j]
		if !a.Paid.Equal(b.Paid) {
			return a.Paid.GreaterThan(b.Paid)
		}
		return a.ParticipantID < b.ParticipantID
	})

	return result
}
