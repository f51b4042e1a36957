package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newOrder(tableID int64) *models.Order {
	order := &models.Order{
		TableID:       tableID,
		PaymentMethod: "split",
		Items: []models.OrderItem{
			{FoodID: 7, FoodName: "Bun cha", Quantity: 2, UnitPrice: d("45000"), LineTotal: d("90000"), Options: []string{"no chili"}},
			{FoodID: 9, FoodName: "Iced coffee", Quantity: 1, UnitPrice: d("25000.50"), LineTotal: d("25000.50"), Note: "less ice"},
		},
	}
	order.RecomputeTotal()
	return order
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateOrder assigns IDs and code", func(t *testing.T) {
		order := newOrder(1)
		if err := store.CreateOrder(ctx, order); err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}

		if order.ID == 0 {
			t.Error("Expected order ID to be generated")
		}
		if !strings.HasPrefix(order.Code, "ORD-") || len(order.Code) != 12 {
			t.Errorf("Unexpected order code %q", order.Code)
		}
		for _, item := range order.Items {
			if item.ID == 0 || item.OrderID != order.ID {
				t.Errorf("Expected item IDs to be set, got %+v", item)
			}
		}
	})

	t.Run("GetOrder retrieves complete order", func(t *testing.T) {
		original := newOrder(2)
		if err := store.CreateOrder(ctx, original); err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}

		retrieved, err := store.GetOrder(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetOrder failed: %v", err)
		}

		if retrieved.Code != original.Code {
			t.Errorf("Code mismatch: got %s, want %s", retrieved.Code, original.Code)
		}
		if !retrieved.Total.Equal(d("115000.50")) {
			t.Errorf("Total mismatch: got %s, want 115000.50", retrieved.Total)
		}
		if retrieved.PaymentStatus != models.PaymentUnpaid {
			t.Errorf("PaymentStatus = %s, want unpaid", retrieved.PaymentStatus)
		}
		if len(retrieved.Items) != 2 {
			t.Fatalf("Items count mismatch: got %d, want 2", len(retrieved.Items))
		}
		if retrieved.Items[0].Options[0] != "no chili" || retrieved.Items[1].Note != "less ice" {
			t.Errorf("Item details not preserved: %+v", retrieved.Items)
		}
		if !retrieved.Items[1].UnitPrice.Equal(d("25000.50")) {
			t.Errorf("UnitPrice = %s, want 25000.50", retrieved.Items[1].UnitPrice)
		}
	})

	t.Run("GetOrder returns not found for nonexistent order", func(t *testing.T) {
		_, err := store.GetOrder(ctx, 9999)
		if !apperr.IsKind(err, apperr.KindNotFound) {
			t.Errorf("Expected not found, got %v", err)
		}
	})

	t.Run("UpdateOrder persists statuses", func(t *testing.T) {
		order := newOrder(3)
		if err := store.CreateOrder(ctx, order); err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}

		order.Items[0].Status = models.StatusCanceled
		order.RecomputeTotal()
		order.Status = models.StatusPending
		order.PaymentStatus = models.PaymentPaid
		order.SettlementID = "session-1"
		if err := store.UpdateOrder(ctx, order); err != nil {
			t.Fatalf("UpdateOrder failed: %v", err)
		}

		retrieved, _ := store.GetOrder(ctx, order.ID)
		if retrieved.Items[0].Status != models.StatusCanceled {
			t.Errorf("Item status = %s, want canceled", retrieved.Items[0].Status)
		}
		if !retrieved.Total.Equal(d("25000.50")) {
			t.Errorf("Total = %s, want 25000.50", retrieved.Total)
		}
		if retrieved.PaymentStatus != models.PaymentPaid || retrieved.SettlementID != "session-1" {
			t.Errorf("Payment fields not persisted: %+v", retrieved)
		}

		missing := &models.Order{ID: 9999}
		if err := store.UpdateOrder(ctx, missing); !apperr.IsKind(err, apperr.KindNotFound) {
			t.Errorf("Expected not found, got %v", err)
		}
	})

	t.Run("ListOrdersByTables filters by table", func(t *testing.T) {
		a, b, c := newOrder(10), newOrder(11), newOrder(12)
		for _, o := range []*models.Order{a, b, c} {
			if err := store.CreateOrder(ctx, o); err != nil {
				t.Fatalf("CreateOrder failed: %v", err)
			}
		}

		orders, err := store.ListOrdersByTables(ctx, []int64{10, 12})
		if err != nil {
			t.Fatalf("ListOrdersByTables failed: %v", err)
		}
		if len(orders) != 2 || orders[0].ID != a.ID || orders[1].ID != c.ID {
			t.Fatalf("Expected orders %d and %d, got %d orders", a.ID, c.ID, len(orders))
		}
		if len(orders[1].Items) != 2 {
			t.Errorf("Expected items to be loaded, got %d", len(orders[1].Items))
		}

		none, err := store.ListOrdersByTables(ctx, []int64{404})
		if err != nil || len(none) != 0 {
			t.Errorf("Expected no orders, got %d (%v)", len(none), err)
		}
	})
}

func TestSQLiteSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	order := newOrder(1)
	if err := store.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	got, err := store.GetSession(ctx, order.ID)
	if err != nil || got != nil {
		t.Fatalf("Expected no session, got %v (%v)", got, err)
	}

	session := &models.SettlementSession{
		ID:        "7b0c7d61-4f1c-4b0e-9a57-1d1f0c5c2a10",
		OrderID:   order.ID,
		Mode:      models.SplitItems,
		CreatedAt: 100,
		UpdatedAt: 100,
		Shares: []models.Share{
			{ParticipantID: "a", DisplayName: "Ann", PaymentMethod: "card", Amount: d("90000"), ItemIDs: []int64{order.Items[0].ID}, CreatedAt: 100, UpdatedAt: 100},
		},
	}
	if err := store.SaveSession(ctx, session, 0); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if session.Version != 1 {
		t.Errorf("Version = %d, want 1", session.Version)
	}

	t.Run("stale insert conflicts", func(t *testing.T) {
		dup := &models.SettlementSession{ID: "other", OrderID: order.ID, Mode: models.SplitFull}
		if err := store.SaveSession(ctx, dup, 0); !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("Expected version conflict, got %v", err)
		}
	})

	t.Run("update replaces shares", func(t *testing.T) {
		session.Shares = append(session.Shares, models.Share{
			ParticipantID: "b", PaymentMethod: "cash", Amount: d("25000.50"),
			ItemIDs: []int64{order.Items[1].ID}, CreatedAt: 101, UpdatedAt: 101,
		})
		session.Finalized = true
		if err := store.SaveSession(ctx, session, 1); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}

		got, err := store.GetSession(ctx, order.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.Version != 2 || !got.Finalized || got.Mode != models.SplitItems {
			t.Errorf("Unexpected session header: %+v", got)
		}
		if len(got.Shares) != 2 || got.Shares[0].ParticipantID != "a" || got.Shares[1].ParticipantID != "b" {
			t.Fatalf("Shares not preserved in order: %+v", got.Shares)
		}
		if !got.Shares[1].Amount.Equal(d("25000.50")) {
			t.Errorf("Amount = %s, want 25000.50", got.Shares[1].Amount)
		}
		if len(got.Shares[1].ItemIDs) != 1 || got.Shares[1].ItemIDs[0] != order.Items[1].ID {
			t.Errorf("ItemIDs = %v", got.Shares[1].ItemIDs)
		}
		if got.Shares[0].Percentage.Valid {
			t.Error("Expected no percentage on an item share")
		}
	})

	t.Run("stale update conflicts", func(t *testing.T) {
		if err := store.SaveSession(ctx, session, 1); !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("Expected version conflict, got %v", err)
		}
	})

	t.Run("delete checks version", func(t *testing.T) {
		if err := store.DeleteSession(ctx, order.ID, 1); !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("Expected version conflict, got %v", err)
		}
		if err := store.DeleteSession(ctx, order.ID, 2); err != nil {
			t.Fatalf("DeleteSession failed: %v", err)
		}
		if got, _ := store.GetSession(ctx, order.ID); got != nil {
			t.Error("Expected session to be gone")
		}
		if err := store.DeleteSession(ctx, order.ID, 2); !apperr.IsKind(err, apperr.KindNotFound) {
			t.Errorf("Expected not found, got %v", err)
		}
	})

	t.Run("percentage round-trips", func(t *testing.T) {
		s := &models.SettlementSession{
			ID: "pct", OrderID: order.ID, Mode: models.SplitPercentage,
			Shares: []models.Share{{
				ParticipantID: "a", PaymentMethod: "card", Amount: d("46000.20"),
				Percentage: decimal.NewNullDecimal(d("40")),
			}},
		}
		if err := store.SaveSession(ctx, s, 0); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}
		got, _ := store.GetSession(ctx, order.ID)
		if !got.Shares[0].Percentage.Valid || !got.Shares[0].Percentage.Decimal.Equal(d("40")) {
			t.Errorf("Percentage = %v, want 40", got.Shares[0].Percentage)
		}
	})
}
