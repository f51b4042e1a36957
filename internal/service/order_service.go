package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/auth"
	"github.com/mmynk/tableside/internal/calculator"
	"github.com/mmynk/tableside/internal/middleware"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/notify"
	"github.com/mmynk/tableside/pkg/api"
)

// OrderService implements the Connect OrderService.
type OrderService struct {
	orders *Orders
}

var _ api.OrderServiceHandler = (*OrderService)(nil)

// NewOrderService creates a new OrderService.
func NewOrderService(orders *Orders) *OrderService {
	return &OrderService{orders: orders}
}

// CreateOrder checks out a cart into a new order. Every line starts pending.
func (s *OrderService) CreateOrder(ctx context.Context, req *connect.Request[api.CreateOrderRequest]) (*connect.Response[api.CreateOrderResponse], error) {
	order, err := newOrder(req.Msg, s.orders.now().Unix())
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}

	if err := s.orders.store.CreateOrder(ctx, order); err != nil {
		slog.Error("CreateOrder failed", "table_id", order.TableID, "error", err)
		return nil, toConnectError(req.Spec().Procedure, err)
	}

	slog.Info("Order created",
		"order_id", order.ID,
		"code", order.Code,
		"table_id", order.TableID,
		"items", len(order.Items),
		"total", order.Total.StringFixed(calculator.MoneyPlaces),
		"participant", middleware.GetParticipant(ctx),
	)
	s.orders.publishOrder(ctx, notify.EventOrderCreated, order)

	return connect.NewResponse(&api.CreateOrderResponse{Order: toAPIOrder(order)}), nil
}

func newOrder(msg *api.CreateOrderRequest, now int64) (*models.Order, error) {
	if msg.TableID <= 0 {
		return nil, apperr.Validation(apperr.CodeMissingField, "table id is required")
	}
	if len(msg.Items) == 0 {
		return nil, apperr.Validation(apperr.CodeNoItems, "an order needs at least one item")
	}

	order := &models.Order{
		TableID:       msg.TableID,
		PaymentMethod: strings.TrimSpace(msg.PaymentMethod),
		PaymentStatus: models.PaymentUnpaid,
		Items:         make([]models.OrderItem, len(msg.Items)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, line := range msg.Items {
		name := strings.TrimSpace(line.FoodName)
		if name == "" {
			return nil, apperr.Validation(apperr.CodeMissingField, "item %d: food name is required", i+1)
		}
		if line.Quantity <= 0 {
			return nil, apperr.Validation(apperr.CodeInvalidQuantity, "item %q: quantity must be positive", name)
		}
		if line.UnitPrice.IsNegative() {
			return nil, apperr.Validation(apperr.CodeInvalidPrice, "item %q: unit price cannot be negative", name)
		}
		order.Items[i] = models.OrderItem{
			FoodID:    line.FoodID,
			FoodName:  name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: calculator.RoundMoney(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))),
			Status:    models.StatusPending,
			Note:      strings.TrimSpace(line.Note),
			Options:   line.Options,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	order.RecomputeTotal()
	order.Status = calculator.AggregateItems(order.Items)
	return order, nil
}

// GetOrder returns one order with its items.
func (s *OrderService) GetOrder(ctx context.Context, req *connect.Request[api.GetOrderRequest]) (*connect.Response[api.GetOrderResponse], error) {
	order, err := s.orders.store.GetOrder(ctx, req.Msg.OrderID)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&api.GetOrderResponse{Order: toAPIOrder(order)}), nil
}

// ListTableOrders returns every order of the table's billing group with the group's
// running balance.
func (s *OrderService) ListTableOrders(ctx context.Context, req *connect.Request[api.ListTableOrdersRequest]) (*connect.Response[api.ListTableOrdersResponse], error) {
	if req.Msg.TableID <= 0 {
		return nil, toConnectError(req.Spec().Procedure, apperr.Validation(apperr.CodeMissingField, "table id is required"))
	}

	tableIDs := s.orders.tracker.BillingTables(req.Msg.TableID)
	orders, err := s.orders.store.ListOrdersByTables(ctx, tableIDs)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}

	sessions := make(map[int64]*models.SettlementSession, len(orders))
	for _, order := range orders {
		session, err := s.orders.store.GetSession(ctx, order.ID)
		if err != nil {
			return nil, toConnectError(req.Spec().Procedure, fmt.Errorf("failed to load settlement: %w", err))
		}
		if session != nil {
			sessions[order.ID] = session
		}
	}

	resp := &api.ListTableOrdersResponse{
		Tables:  tableIDs,
		Orders:  toAPIOrders(orders),
		Balance: toAPIBalance(calculator.CalculateGroupBalance(orders, sessions)),
	}
	if group, ok := s.orders.tracker.FindGroup(req.Msg.TableID); ok {
		resp.GroupID = group.ID
	}
	return connect.NewResponse(resp), nil
}

// UpdateItemStatus moves one line along the kitchen/cashier workflow and re-derives
// the order status. Paid and canceled lines are final.
func (s *OrderService) UpdateItemStatus(ctx context.Context, req *connect.Request[api.UpdateItemStatusRequest]) (*connect.Response[api.UpdateItemStatusResponse], error) {
	status, err := models.ParseItemStatus(req.Msg.Status)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, apperr.Validation(apperr.CodeInvalidStatus, "%v", err))
	}
	roles := []auth.Role{auth.RoleKitchen, auth.RoleCashier}
	if status.Terminal() {
		roles = []auth.Role{auth.RoleCashier}
	}
	if err := middleware.RequireRole(ctx, roles...); err != nil {
		return nil, err
	}

	event := notify.EventOrderStatusChanged
	order, err := s.orders.mutate(ctx, req.Msg.OrderID, func(order *models.Order) (bool, error) {
		if order.PaymentStatus == models.PaymentPaid {
			return false, apperr.Conflict(apperr.CodeOrderAlreadyPaid, "order %s is already paid", order.Code)
		}
		item, ok := order.Item(req.Msg.ItemID)
		if !ok {
			return false, apperr.NotFound("item %d not found on order %s", req.Msg.ItemID, order.Code)
		}
		if item.Status == status {
			return false, nil
		}
		if item.Status.Terminal() {
			return false, apperr.Conflict(apperr.CodeInvalidTransition, "item %q is already %s", item.FoodName, item.Status)
		}
		// Cancel or take payment per line only while no split is open on the order.
		if status.Terminal() {
			session, err := s.orders.store.GetSession(ctx, order.ID)
			if err != nil {
				return false, fmt.Errorf("failed to load settlement: %w", err)
			}
			if session != nil {
				return false, apperr.Conflict(apperr.CodeSettlementInProgress,
					"order %s is being settled; reset the settlement before marking items %s", order.Code, status)
			}
		}

		item.Status = status
		item.UpdatedAt = s.orders.now().Unix()
		if settledByItems(order) {
			order.PaymentStatus = models.PaymentPaid
			event = notify.EventOrderPaid
		}
		return true, nil
	})
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}

	slog.Info("Item status updated",
		"order_id", order.ID,
		"item_id", req.Msg.ItemID,
		"status", status.String(),
		"order_status", order.Status.String(),
		"staff_id", middleware.GetStaffID(ctx),
	)
	s.orders.publishOrder(ctx, event, order)

	return connect.NewResponse(&api.UpdateItemStatusResponse{Order: toAPIOrder(order)}), nil
}

// RequestBill marks every open line as requested_bill, which surfaces the order to
// the cashier regardless of lines still in the kitchen.
func (s *OrderService) RequestBill(ctx context.Context, req *connect.Request[api.RequestBillRequest]) (*connect.Response[api.RequestBillResponse], error) {
	order, err := s.orders.mutate(ctx, req.Msg.OrderID, func(order *models.Order) (bool, error) {
		if order.PaymentStatus == models.PaymentPaid {
			return false, apperr.Conflict(apperr.CodeOrderAlreadyPaid, "order %s is already paid", order.Code)
		}
		now := s.orders.now().Unix()
		open, changed := 0, false
		for i := range order.Items {
			item := &order.Items[i]
			if item.Status.Terminal() {
				continue
			}
			open++
			if item.Status != models.StatusRequestedBill {
				item.Status = models.StatusRequestedBill
				item.UpdatedAt = now
				changed = true
			}
		}
		if open == 0 {
			return false, apperr.Invariant(apperr.CodeNothingOutstanding, "order %s has nothing left to bill", order.Code)
		}
		return changed, nil
	})
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}

	slog.Info("Bill requested", "order_id", order.ID, "participant", middleware.GetParticipant(ctx))
	s.orders.publishOrder(ctx, notify.EventBillRequested, order)

	return connect.NewResponse(&api.RequestBillResponse{Order: toAPIOrder(order)}), nil
}
