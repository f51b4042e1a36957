package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/calculator"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/settlement"
	"github.com/mmynk/tableside/pkg/api"
)

func toAPIOrder(order *models.Order) api.Order {
	out := api.Order{
		ID:            order.ID,
		Code:          order.Code,
		TableID:       order.TableID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		Items:         make([]api.OrderItem, len(order.Items)),
		SettlementID:  order.SettlementID,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	for i, item := range order.Items {
		out.Items[i] = api.OrderItem{
			ID:        item.ID,
			FoodID:    item.FoodID,
			FoodName:  item.FoodName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
			Status:    item.Status,
			Note:      item.Note,
			Options:   item.Options,
			UpdatedAt: item.UpdatedAt,
		}
	}
	return out
}

func toAPIOrders(orders []*models.Order) []api.Order {
	out := make([]api.Order, len(orders))
	for i, order := range orders {
		out[i] = toAPIOrder(order)
	}
	return out
}

func toAPISettlement(view *settlement.View) api.Settlement {
	out := api.Settlement{
		SessionID:         view.SessionID,
		OrderID:           view.OrderID,
		Mode:              view.Mode,
		Finalized:         view.Finalized,
		ParticipantCount:  view.ParticipantCount,
		TotalAmount:       view.TotalAmount,
		PaidAmount:        view.PaidAmount,
		OutstandingAmount: view.OutstandingAmount,
		TotalPercentage:   optionalDecimal(view.TotalPercentage),
		Shares:            make([]api.Share, len(view.Shares)),
		Version:           view.Version,
	}
	for i, s := range view.Shares {
		out.Shares[i] = api.Share{
			ParticipantID: s.ParticipantID,
			DisplayName:   s.DisplayName,
			PaymentMethod: s.PaymentMethod,
			Amount:        s.Amount,
			Percentage:    optionalDecimal(s.Percentage),
			ItemIDs:       s.ItemIDs,
			IsCurrentUser: s.IsCurrentUser,
			CreatedAt:     s.CreatedAt,
			UpdatedAt:     s.UpdatedAt,
		}
	}
	return out
}

func toAPIBalance(b calculator.GroupBalance) api.Balance {
	out := api.Balance{
		Total:        b.Total,
		Paid:         b.Paid,
		Outstanding:  b.Outstanding,
		Orders:       b.Orders,
		SettledCount: b.SettledCount,
		Participants: make([]api.ParticipantBalance, len(b.Participants)),
	}
	for i, p := range b.Participants {
		out.Participants[i] = api.ParticipantBalance{
			ParticipantID: p.ParticipantID,
			DisplayName:   p.DisplayName,
			Paid:          p.Paid,
			Orders:        p.Orders,
		}
	}
	return out
}

func toAPIGroup(g models.MergeGroup) api.MergeGroup {
	return api.MergeGroup{
		ID:        g.ID,
		Label:     g.Label,
		Tables:    g.Tables,
		CreatedAt: g.CreatedAt.Unix(),
	}
}

func toAPISplits(splits []calculator.PersonSplit) []api.PreviewShare {
	out := make([]api.PreviewShare, len(splits))
	for i, s := range splits {
		out[i] = api.PreviewShare{
			Participant: s.Participant,
			Amount:      s.Amount,
			Percentage:  optionalDecimal(s.Percentage),
		}
		for _, item := range s.Items {
			out[i].Items = append(out[i].Items, api.PreviewShareItem{
				Description: item.Description,
				Amount:      item.Amount,
			})
		}
	}
	return out
}

func optionalDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
