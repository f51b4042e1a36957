// Package notify publishes order and settlement summaries to the real-time channel
// that diners' devices and staff terminals subscribe to.
package notify

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/models"
)

const (
	KitchenSubject = "tableside.staff.kitchen"
	CashierSubject = "tableside.staff.cashier"

	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventBillRequested      = "order.bill_requested"
	EventOrderPaid          = "order.paid"
	EventSettlementUpdated  = "settlement.updated"
	EventSettlementReset    = "settlement.reset"
	EventTablesMerged       = "tables.merged"
	EventTablesSplit        = "tables.split"
)

// TableSubject is the subject the guests of a table listen on.
func TableSubject(tableID int64) string {
	return fmt.Sprintf("tableside.table.%d", tableID)
}

// ItemSummary is one order line as shown on a ticket.
type ItemSummary struct {
	ItemID   int64             `json:"item_id"`
	FoodName string            `json:"food_name"`
	Quantity int               `json:"quantity"`
	Status   models.ItemStatus `json:"status"`
	Note     string            `json:"note,omitempty"`
	Options  []string          `json:"options,omitempty"`
}

// OrderSummary is published whenever an order or one of its items changes.
type OrderSummary struct {
	EventType     string               `json:"event_type"`
	OccurredAt    time.Time            `json:"occurred_at"`
	OrderID       int64                `json:"order_id"`
	Code          string               `json:"code"`
	TableID       int64                `json:"table_id"`
	Status        models.ItemStatus    `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	PaymentMethod string               `json:"payment_method,omitempty"`
	Total         decimal.Decimal      `json:"total"`
	Items         []ItemSummary        `json:"items"`
}

// NewOrderSummary snapshots order for publishing.
func NewOrderSummary(eventType string, order *models.Order) OrderSummary {
	s := OrderSummary{
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		OrderID:       order.ID,
		Code:          order.Code,
		TableID:       order.TableID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		Items:         make([]ItemSummary, len(order.Items)),
	}
	for i, item := range order.Items {
		s.Items[i] = ItemSummary{
			ItemID:   item.ID,
			FoodName: item.FoodName,
			Quantity: item.Quantity,
			Status:   item.Status,
			Note:     item.Note,
			Options:  item.Options,
		}
	}
	return s
}

// SettlementSummary is published after every accepted contribution or reset.
type SettlementSummary struct {
	EventType         string           `json:"event_type"`
	OccurredAt        time.Time        `json:"occurred_at"`
	OrderID           int64            `json:"order_id"`
	Code              string           `json:"code"`
	TableID           int64            `json:"table_id"`
	SessionID         string           `json:"session_id,omitempty"`
	Mode              models.SplitMode `json:"mode"`
	Finalized         bool             `json:"finalized"`
	Participants      int              `json:"participants"`
	TotalAmount       decimal.Decimal  `json:"total_amount"`
	PaidAmount        decimal.Decimal  `json:"paid_amount"`
	OutstandingAmount decimal.Decimal  `json:"outstanding_amount"`
}

// GroupSummary is published when tables are merged or split.
type GroupSummary struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	GroupID    int64     `json:"group_id"`
	Label      string    `json:"label,omitempty"`
	Tables     []int64   `json:"tables"`
}
