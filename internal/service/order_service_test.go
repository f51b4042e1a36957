package service

import (
	"context"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/auth"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/notify"
	"github.com/mmynk/tableside/pkg/api"
)

func TestCreateOrder(t *testing.T) {
	env := setupTestServer(t)

	order := createOrder(t, env, 3, line("Pho", "45000", 2), line("Iced tea", "10000", 1))

	if !strings.HasPrefix(order.Code, "ORD-") {
		t.Errorf("Expected order code to start with ORD-, got %q", order.Code)
	}
	if order.Status != models.StatusPending {
		t.Errorf("Expected status pending, got %s", order.Status)
	}
	if order.PaymentStatus != models.PaymentUnpaid {
		t.Errorf("Expected payment status unpaid, got %s", order.PaymentStatus)
	}
	assertDecimal(t, "total", order.Total, "100000")
	assertDecimal(t, "line total", order.Items[0].LineTotal, "90000")
	if len(order.Items) != 2 || order.Items[0].ID == 0 {
		t.Fatalf("Expected 2 stored items, got %+v", order.Items)
	}

	got, err := env.orders.GetOrder(context.Background(), connect.NewRequest(&api.GetOrderRequest{OrderID: order.ID}))
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got.Msg.Order.Code != order.Code {
		t.Errorf("Expected code %q, got %q", order.Code, got.Msg.Order.Code)
	}

	for _, subject := range []string{notify.TableSubject(3), notify.KitchenSubject, notify.CashierSubject} {
		if events := eventTypes(t, env.recorder, subject); !contains(events, notify.EventOrderCreated) {
			t.Errorf("Expected %s on %s, got %v", notify.EventOrderCreated, subject, events)
		}
	}
}

func TestCreateOrder_Invalid(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name string
		req  *api.CreateOrderRequest
		code apperr.Code
	}{
		{"missing table", &api.CreateOrderRequest{Items: []api.CartLine{line("Pho", "1", 1)}}, apperr.CodeMissingField},
		{"no items", &api.CreateOrderRequest{TableID: 1}, apperr.CodeNoItems},
		{"zero quantity", &api.CreateOrderRequest{TableID: 1, Items: []api.CartLine{line("Pho", "1", 0)}}, apperr.CodeInvalidQuantity},
		{"negative price", &api.CreateOrderRequest{TableID: 1, Items: []api.CartLine{line("Pho", "-1", 1)}}, apperr.CodeInvalidPrice},
		{"missing name", &api.CreateOrderRequest{TableID: 1, Items: []api.CartLine{line(" ", "1", 1)}}, apperr.CodeMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.orders.CreateOrder(context.Background(), connect.NewRequest(tt.req))
			assertError(t, err, connect.CodeInvalidArgument, tt.code)
		})
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	env := setupTestServer(t)

	_, err := env.orders.GetOrder(context.Background(), connect.NewRequest(&api.GetOrderRequest{OrderID: 42}))
	assertError(t, err, connect.CodeNotFound, apperr.CodeNotFound)
}

func TestUpdateItemStatus(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	order := createOrder(t, env, 1, line("Pizza", "20", 1), line("Salad", "10", 1))
	pizza, salad := order.Items[0].ID, order.Items[1].ID

	update := func(role auth.Role, itemID int64, status string) (*connect.Response[api.UpdateItemStatusResponse], error) {
		return env.orders.UpdateItemStatus(ctx, asStaff(t, env, role, &api.UpdateItemStatusRequest{
			OrderID: order.ID, ItemID: itemID, Status: status,
		}))
	}

	t.Run("requires staff", func(t *testing.T) {
		_, err := env.orders.UpdateItemStatus(ctx, connect.NewRequest(&api.UpdateItemStatusRequest{
			OrderID: order.ID, ItemID: pizza, Status: "in_kitchen",
		}))
		assertError(t, err, connect.CodeUnauthenticated, "")
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := update(auth.RoleKitchen, pizza, "cooking")
		assertError(t, err, connect.CodeInvalidArgument, apperr.CodeInvalidStatus)
	})

	t.Run("kitchen progresses items", func(t *testing.T) {
		resp, err := update(auth.RoleKitchen, pizza, "in_kitchen")
		if err != nil {
			t.Fatalf("UpdateItemStatus failed: %v", err)
		}
		if resp.Msg.Order.Status != models.StatusInKitchen {
			t.Errorf("Expected order status in_kitchen, got %s", resp.Msg.Order.Status)
		}
	})

	t.Run("kitchen cannot take payment", func(t *testing.T) {
		_, err := update(auth.RoleKitchen, pizza, "paid")
		assertError(t, err, connect.CodePermissionDenied, "")
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := update(auth.RoleKitchen, 9999, "ready")
		assertError(t, err, connect.CodeNotFound, apperr.CodeNotFound)
	})

	t.Run("cashier settles by items", func(t *testing.T) {
		if _, err := update(auth.RoleCashier, pizza, "paid"); err != nil {
			t.Fatalf("UpdateItemStatus failed: %v", err)
		}
		resp, err := update(auth.RoleCashier, salad, "paid")
		if err != nil {
			t.Fatalf("UpdateItemStatus failed: %v", err)
		}
		if resp.Msg.Order.Status != models.StatusPaid {
			t.Errorf("Expected order status paid, got %s", resp.Msg.Order.Status)
		}
		if resp.Msg.Order.PaymentStatus != models.PaymentPaid {
			t.Errorf("Expected payment status paid, got %s", resp.Msg.Order.PaymentStatus)
		}
		events := eventTypes(t, env.recorder, notify.CashierSubject)
		if last := events[len(events)-1]; last != notify.EventOrderPaid {
			t.Errorf("Expected last cashier event %s, got %s", notify.EventOrderPaid, last)
		}
	})

	t.Run("paid order is final", func(t *testing.T) {
		_, err := update(auth.RoleCashier, pizza, "served")
		assertError(t, err, connect.CodeAborted, apperr.CodeOrderAlreadyPaid)
	})
}

func TestUpdateItemStatus_CanceledIsFinal(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	order := createOrder(t, env, 1, line("Pizza", "20", 1), line("Salad", "10", 1))

	resp, err := env.orders.UpdateItemStatus(ctx, asStaff(t, env, auth.RoleCashier, &api.UpdateItemStatusRequest{
		OrderID: order.ID, ItemID: order.Items[1].ID, Status: "canceled",
	}))
	if err != nil {
		t.Fatalf("UpdateItemStatus failed: %v", err)
	}
	assertDecimal(t, "total after cancel", resp.Msg.Order.Total, "20")

	_, err = env.orders.UpdateItemStatus(ctx, asStaff(t, env, auth.RoleKitchen, &api.UpdateItemStatusRequest{
		OrderID: order.ID, ItemID: order.Items[1].ID, Status: "ready",
	}))
	assertError(t, err, connect.CodeAborted, apperr.CodeInvalidTransition)
}

func TestRequestBill(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	order := createOrder(t, env, 7, line("Pizza", "20", 1), line("Salad", "10", 1))

	// One line is still cooking; the bill request wins anyway.
	if _, err := env.orders.UpdateItemStatus(ctx, asStaff(t, env, auth.RoleKitchen, &api.UpdateItemStatusRequest{
		OrderID: order.ID, ItemID: order.Items[0].ID, Status: "in_kitchen",
	})); err != nil {
		t.Fatalf("UpdateItemStatus failed: %v", err)
	}

	resp, err := env.orders.RequestBill(ctx, asGuest(&api.RequestBillRequest{OrderID: order.ID}, "alice"))
	if err != nil {
		t.Fatalf("RequestBill failed: %v", err)
	}
	if resp.Msg.Order.Status != models.StatusRequestedBill {
		t.Errorf("Expected order status requested_bill, got %s", resp.Msg.Order.Status)
	}
	for _, item := range resp.Msg.Order.Items {
		if item.Status != models.StatusRequestedBill {
			t.Errorf("Expected item %q requested_bill, got %s", item.FoodName, item.Status)
		}
	}
	if events := eventTypes(t, env.recorder, notify.CashierSubject); !contains(events, notify.EventBillRequested) {
		t.Errorf("Expected %s on cashier subject, got %v", notify.EventBillRequested, events)
	}

	// Asking twice is harmless.
	if _, err := env.orders.RequestBill(ctx, asGuest(&api.RequestBillRequest{OrderID: order.ID}, "bob")); err != nil {
		t.Errorf("Repeated RequestBill failed: %v", err)
	}
}

func TestListTableOrders_MergedGroup(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	first := createOrder(t, env, 1, line("Hotpot", "100", 1))
	if _, err := env.tables.MergeTables(ctx, asStaff(t, env, auth.RoleCashier, &api.MergeTablesRequest{
		TableIDs: []int64{1, 2}, Label: "Birthday",
	})); err != nil {
		t.Fatalf("MergeTables failed: %v", err)
	}
	second := createOrder(t, env, 2, line("Beer", "25", 2))
	createOrder(t, env, 3, line("Water", "5", 1))

	// Guests at table 1 hear about orders placed at table 2 once merged.
	created := 0
	for _, event := range eventTypes(t, env.recorder, notify.TableSubject(1)) {
		if event == notify.EventOrderCreated {
			created++
		}
	}
	if created != 2 {
		t.Errorf("Expected 2 %s events on table 1, got %d", notify.EventOrderCreated, created)
	}

	if _, err := env.settlements.Contribute(ctx, asGuest(&api.ContributeRequest{
		OrderID: first.ID, Mode: "full", PaymentMethod: "card", DisplayName: "Alice",
	}, "alice")); err != nil {
		t.Fatalf("Contribute failed: %v", err)
	}

	resp, err := env.orders.ListTableOrders(ctx, connect.NewRequest(&api.ListTableOrdersRequest{TableID: 2}))
	if err != nil {
		t.Fatalf("ListTableOrders failed: %v", err)
	}
	msg := resp.Msg
	if len(msg.Tables) != 2 || msg.Tables[0] != 1 || msg.Tables[1] != 2 {
		t.Errorf("Expected tables [1 2], got %v", msg.Tables)
	}
	if msg.GroupID == 0 {
		t.Error("Expected a group id")
	}
	if len(msg.Orders) != 2 || msg.Orders[0].ID != first.ID || msg.Orders[1].ID != second.ID {
		t.Fatalf("Expected orders of tables 1 and 2 oldest first, got %+v", msg.Orders)
	}
	assertDecimal(t, "balance total", msg.Balance.Total, "150")
	assertDecimal(t, "balance paid", msg.Balance.Paid, "100")
	assertDecimal(t, "balance outstanding", msg.Balance.Outstanding, "50")
	if msg.Balance.SettledCount != 1 {
		t.Errorf("Expected 1 settled order, got %d", msg.Balance.SettledCount)
	}
	if len(msg.Balance.Participants) != 1 || msg.Balance.Participants[0].DisplayName != "Alice" {
		t.Errorf("Expected Alice as the only participant, got %+v", msg.Balance.Participants)
	}

	_, err = env.orders.ListTableOrders(ctx, connect.NewRequest(&api.ListTableOrdersRequest{}))
	assertError(t, err, connect.CodeInvalidArgument, apperr.CodeMissingField)
}
