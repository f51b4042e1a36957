package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

func TestStoreOrders(t *testing.T) {
	store := New()
	ctx := context.Background()

	order := &models.Order{
		TableID: 3,
		Items: []models.OrderItem{
			{FoodName: "Pho", Quantity: 1, LineTotal: decimal.NewFromInt(12), Options: []string{"extra herbs"}},
			{FoodName: "Tea", Quantity: 2, LineTotal: decimal.NewFromInt(4)},
		},
	}
	order.RecomputeTotal()
	if err := store.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.ID == 0 || !strings.HasPrefix(order.Code, "ORD-") {
		t.Fatalf("Expected ID and code to be assigned, got %d %q", order.ID, order.Code)
	}
	if order.Items[1].ID == 0 || order.Items[1].OrderID != order.ID {
		t.Errorf("Expected item IDs to be assigned, got %+v", order.Items[1])
	}

	got, err := store.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	got.Items[0].Options[0] = "mutated"
	again, _ := store.GetOrder(ctx, order.ID)
	if again.Items[0].Options[0] != "extra herbs" {
		t.Error("Mutating a returned order must not change the store")
	}

	got.Items[0].Status = models.StatusServed
	got.PaymentStatus = models.PaymentPaid
	if err := store.UpdateOrder(ctx, got); err != nil {
		t.Fatalf("UpdateOrder failed: %v", err)
	}
	again, _ = store.GetOrder(ctx, order.ID)
	if again.Items[0].Status != models.StatusServed || again.PaymentStatus != models.PaymentPaid {
		t.Errorf("Update not applied: %+v", again)
	}

	if _, err := store.GetOrder(ctx, 999); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}

	other := &models.Order{TableID: 4}
	_ = store.CreateOrder(ctx, other)
	_ = store.CreateOrder(ctx, &models.Order{TableID: 5})
	orders, err := store.ListOrdersByTables(ctx, []int64{3, 4})
	if err != nil {
		t.Fatalf("ListOrdersByTables failed: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != order.ID || orders[1].ID != other.ID {
		t.Errorf("Expected orders of tables 3 and 4 oldest first, got %d", len(orders))
	}
}

func TestStoreSessionVersioning(t *testing.T) {
	store := New()
	ctx := context.Background()

	s, err := store.GetSession(ctx, 1)
	if err != nil || s != nil {
		t.Fatalf("Expected no session, got %v %v", s, err)
	}

	session := &models.SettlementSession{ID: "s1", OrderID: 1, Mode: models.SplitFull}
	if err := store.SaveSession(ctx, session, 0); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if session.Version != 1 {
		t.Errorf("Version = %d, want 1", session.Version)
	}

	stale := &models.SettlementSession{ID: "s2", OrderID: 1, Mode: models.SplitEven}
	if err := store.SaveSession(ctx, stale, 0); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("Expected version conflict, got %v", err)
	}

	session.Shares = append(session.Shares, models.Share{ParticipantID: "a", Amount: decimal.NewFromInt(10)})
	if err := store.SaveSession(ctx, session, 1); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	if err := store.DeleteSession(ctx, 1, 1); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("Expected version conflict on stale delete, got %v", err)
	}
	if err := store.DeleteSession(ctx, 1, 2); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if s, _ := store.GetSession(ctx, 1); s != nil {
		t.Error("Expected session to be deleted")
	}
}
