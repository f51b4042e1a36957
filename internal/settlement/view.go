package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/models"
)

// View is a settlement session as seen by one participant.
type View struct {
	SessionID        string
	OrderID          int64
	Mode             models.SplitMode
	Finalized        bool
	ParticipantCount int // SplitEven only

	TotalAmount       decimal.Decimal
	PaidAmount        decimal.Decimal
	OutstandingAmount decimal.Decimal

	// TotalPercentage is the sum of claimed percentages (SplitPercentage only).
	TotalPercentage decimal.NullDecimal

	Shares  []ShareView
	Version int64
}

// ShareView is one share, flagged when it belongs to the viewer.
type ShareView struct {
	ParticipantID string
	DisplayName   string
	PaymentMethod string
	Amount        decimal.Decimal
	Percentage    decimal.NullDecimal
	ItemIDs       []int64
	IsCurrentUser bool
	CreatedAt     int64
	UpdatedAt     int64
}

// Share returns the viewer's own share, if any.
func (v *View) Share() (ShareView, bool) {
	for _, s := range v.Shares {
		if s.IsCurrentUser {
			return s, true
		}
	}
	return ShareView{}, false
}

func newView(order *models.Order, session *models.SettlementSession, participantID string) *View {
	paid := session.Paid()
	v := &View{
		SessionID:         session.ID,
		OrderID:           session.OrderID,
		Mode:              session.Mode,
		Finalized:         session.Finalized,
		ParticipantCount:  session.ParticipantCount,
		TotalAmount:       order.Total,
		PaidAmount:        paid,
		OutstandingAmount: order.Total.Sub(paid),
		Shares:            make([]ShareView, len(session.Shares)),
		Version:           session.Version,
	}
	if session.Mode == models.SplitPercentage {
		v.TotalPercentage = decimal.NewNullDecimal(sumPercentages(session.Shares, ""))
	}
	for i, s := range session.Shares {
		v.Shares[i] = ShareView{
			ParticipantID: s.ParticipantID,
			DisplayName:   s.DisplayName,
			PaymentMethod: s.PaymentMethod,
			Amount:        s.Amount,
			Percentage:    s.Percentage,
			ItemIDs:       append([]int64(nil), s.ItemIDs...),
			IsCurrentUser: s.ParticipantID == participantID,
			CreatedAt:     s.CreatedAt,
			UpdatedAt:     s.UpdatedAt,
		}
	}
	return v
}

// sumPercentages adds the percentages of every share except the excluded participant's.
func sumPercentages(shares []models.Share, exclude string) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range shares {
		if s.ParticipantID == exclude || !s.Percentage.Valid {
			continue
		}
		sum = sum.Add(s.Percentage.Decimal)
	}
	return sum
}
