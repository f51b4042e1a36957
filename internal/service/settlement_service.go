package service

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/auth"
	"github.com/mmynk/tableside/internal/calculator"
	"github.com/mmynk/tableside/internal/metrics"
	"github.com/mmynk/tableside/internal/middleware"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/notify"
	"github.com/mmynk/tableside/internal/settlement"
	"github.com/mmynk/tableside/pkg/api"
)

// SettlementService implements the Connect SettlementService.
type SettlementService struct {
	orders  *Orders
	engine  *settlement.Engine
	metrics *metrics.Metrics
}

var _ api.SettlementServiceHandler = (*SettlementService)(nil)

// NewSettlementService creates a new SettlementService. m may be nil.
func NewSettlementService(orders *Orders, engine *settlement.Engine, m *metrics.Metrics) *SettlementService {
	return &SettlementService{orders: orders, engine: engine, metrics: m}
}

// Contribute records the caller's share of an order. When the shares reach the order
// total the order is flipped to paid in the same request.
func (s *SettlementService) Contribute(ctx context.Context, req *connect.Request[api.ContributeRequest]) (*connect.Response[api.ContributeResponse], error) {
	participantID := middleware.GetParticipant(ctx)
	if participantID == "" {
		return nil, toConnectError(req.Spec().Procedure,
			apperr.Validation(apperr.CodeMissingField, "the %s header is required", middleware.ParticipantHeader))
	}
	mode, err := models.ParseSplitMode(req.Msg.Mode)
	if err != nil {
		err = apperr.Validation(apperr.CodeInvalidMode, "%v", err)
		s.metrics.ObserveContribution("invalid", err)
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	request := settlement.Request{
		Mode:             mode,
		PaymentMethod:    req.Msg.PaymentMethod,
		ParticipantCount: req.Msg.ParticipantCount,
		Percentage:       nullDecimal(req.Msg.Percentage),
		ItemIDs:          req.Msg.ItemIDs,
		DisplayName:      req.Msg.DisplayName,
	}

	var (
		view      *settlement.View
		finalized bool
	)
	order, err := s.orders.mutate(ctx, req.Msg.OrderID, func(order *models.Order) (bool, error) {
		var err error
		view, err = s.engine.Contribute(ctx, order, participantID, request)
		s.metrics.ObserveContribution(mode.String(), err)
		if err != nil {
			if !apperr.IsCode(err, apperr.CodeSessionFinalized) || order.PaymentStatus == models.PaymentPaid {
				return false, err
			}
			// An earlier request finished the session but never saved the order.
			if view, err = s.engine.View(ctx, order, participantID); err != nil {
				return false, err
			}
		}
		finalized = s.settle(order, view)
		if finalized {
			return true, nil
		}
		if order.SettlementID != view.SessionID {
			order.SettlementID = view.SessionID
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}

	s.publishSettlement(ctx, notify.EventSettlementUpdated, order, view)
	if finalized {
		s.announcePaid(ctx, order, view)
	}

	return connect.NewResponse(&api.ContributeResponse{
		Settlement: toAPISettlement(view),
		Order:      toAPIOrder(order),
	}), nil
}

// settle flips order to paid when view is finalized and the order is not paid yet.
// That also repairs an order left unpaid by an interrupted earlier request.
func (s *SettlementService) settle(order *models.Order, view *settlement.View) bool {
	if !view.Finalized || order.PaymentStatus == models.PaymentPaid {
		return false
	}
	methods := make([]string, len(view.Shares))
	for i, share := range view.Shares {
		methods[i] = share.PaymentMethod
	}
	markPaid(order, view.SessionID, methods, s.orders.now().Unix())
	return true
}

func (s *SettlementService) announcePaid(ctx context.Context, order *models.Order, view *settlement.View) {
	s.metrics.SettlementFinalized()
	slog.Info("Order settled", "order_id", order.ID, "session_id", view.SessionID, "shares", len(view.Shares))
	s.orders.publishOrder(ctx, notify.EventOrderPaid, order)
}

// GetSettlement returns the order's session as seen by the caller. A finished
// session whose order was left unpaid flips the order on the way.
func (s *SettlementService) GetSettlement(ctx context.Context, req *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.GetSettlementResponse], error) {
	var (
		view     *settlement.View
		repaired bool
	)
	order, err := s.orders.mutate(ctx, req.Msg.OrderID, func(order *models.Order) (bool, error) {
		var err error
		if view, err = s.engine.View(ctx, order, middleware.GetParticipant(ctx)); err != nil {
			return false, err
		}
		repaired = s.settle(order, view)
		return repaired, nil
	})
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	if repaired {
		s.announcePaid(ctx, order, view)
	}
	return connect.NewResponse(&api.GetSettlementResponse{Settlement: toAPISettlement(view)}), nil
}

// ResetSettlement discards an unfinished session so the table can start over with a
// different mode. Cashier only.
func (s *SettlementService) ResetSettlement(ctx context.Context, req *connect.Request[api.ResetSettlementRequest]) (*connect.Response[api.ResetSettlementResponse], error) {
	if err := middleware.RequireRole(ctx, auth.RoleCashier); err != nil {
		return nil, err
	}

	var view *settlement.View
	order, err := s.orders.mutate(ctx, req.Msg.OrderID, func(order *models.Order) (bool, error) {
		var err error
		if view, err = s.engine.View(ctx, order, ""); err != nil {
			return false, err
		}
		if err := s.engine.Reset(ctx, order.ID); err != nil {
			return false, err
		}
		if order.SettlementID == "" {
			return false, nil
		}
		order.SettlementID = ""
		return true, nil
	})
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}

	slog.Info("Settlement reset by staff", "order_id", order.ID, "staff_id", middleware.GetStaffID(ctx))
	view.Shares = nil
	view.PaidAmount = decimal.Zero
	view.OutstandingAmount = order.Total
	s.publishSettlement(ctx, notify.EventSettlementReset, order, view)

	return connect.NewResponse(&api.ResetSettlementResponse{Order: toAPIOrder(order)}), nil
}

// PreviewSplit computes a one-shot split of a cart or an existing order. Nothing is
// recorded; the amounts pre-fill the settlement form.
func (s *SettlementService) PreviewSplit(ctx context.Context, req *connect.Request[api.PreviewSplitRequest]) (*connect.Response[api.PreviewSplitResponse], error) {
	mode, err := models.ParseSplitMode(req.Msg.Mode)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, apperr.Validation(apperr.CodeInvalidMode, "%v", err))
	}

	plan := calculator.Plan{
		Mode:         mode,
		Total:        req.Msg.Total,
		Participants: req.Msg.Participants,
		Percentages:  req.Msg.Percentages,
		Items:        make([]calculator.Item, len(req.Msg.Items)),
	}
	for i, item := range req.Msg.Items {
		plan.Items[i] = calculator.Item{
			ID:          item.ID,
			Description: item.Description,
			Amount:      item.Amount,
			AssignedTo:  item.AssignedTo,
		}
	}

	if req.Msg.OrderID != 0 {
		order, err := s.orders.store.GetOrder(ctx, req.Msg.OrderID)
		if err != nil {
			return nil, toConnectError(req.Spec().Procedure, err)
		}
		plan.Total = order.Total
		plan.Items = orderPlanItems(order, req.Msg.Items)
	}

	splits, err := calculator.CalculateSplit(plan)
	if err != nil {
		slog.Debug("PreviewSplit rejected", "mode", mode.String(), "error", err)
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&api.PreviewSplitResponse{Splits: toAPISplits(splits)}), nil
}

// orderPlanItems turns the order's billable lines into plan items, keeping the
// assignments the request made by item ID.
func orderPlanItems(order *models.Order, requested []api.PreviewItem) []calculator.Item {
	assigned := make(map[int64][]string, len(requested))
	for _, item := range requested {
		assigned[item.ID] = item.AssignedTo
	}
	var items []calculator.Item
	for _, line := range order.Items {
		if line.Status == models.StatusCanceled {
			continue
		}
		items = append(items, calculator.Item{
			ID:          line.ID,
			Description: line.FoodName,
			Amount:      line.LineTotal,
			AssignedTo:  assigned[line.ID],
		})
	}
	return items
}

func (s *SettlementService) publishSettlement(ctx context.Context, eventType string, order *models.Order, view *settlement.View) {
	summary := notify.SettlementSummary{
		EventType:         eventType,
		OccurredAt:        time.Now().UTC(),
		OrderID:           order.ID,
		Code:              order.Code,
		TableID:           order.TableID,
		SessionID:         view.SessionID,
		Mode:              view.Mode,
		Finalized:         view.Finalized,
		Participants:      len(view.Shares),
		TotalAmount:       view.TotalAmount,
		PaidAmount:        view.PaidAmount,
		OutstandingAmount: view.OutstandingAmount,
	}
	notify.Broadcast(ctx, s.orders.publisher, summary, s.orders.subjects(order.TableID)...)
}
