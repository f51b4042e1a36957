// Package service implements the tableside.v1 Connect services. Handlers load and
// persist orders, call into the status aggregator, the settlement engine and the
// table tracker, and publish the resulting summaries.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/calculator"
	"github.com/mmynk/tableside/internal/keylock"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/notify"
	"github.com/mmynk/tableside/internal/storage"
	"github.com/mmynk/tableside/internal/tables"
)

// Orders is shared by the order and settlement services. It serializes every
// read-modify-write of one order and fans summaries out to the order's billing group
// and the staff terminals.
type Orders struct {
	store     storage.Store
	tracker   *tables.Tracker
	publisher notify.Publisher
	locks     *keylock.Map
	now       func() time.Time
}

// NewOrders wires the order store, the table tracker and the publisher.
func NewOrders(store storage.Store, tracker *tables.Tracker, publisher notify.Publisher) *Orders {
	return &Orders{
		store:     store,
		tracker:   tracker,
		publisher: publisher,
		locks:     keylock.New(),
		now:       time.Now,
	}
}

// mutate loads the order under its lock and hands it to fn. When fn reports a change
// the total and the aggregated status are recomputed and the order is written back.
func (o *Orders) mutate(ctx context.Context, orderID int64, fn func(order *models.Order) (bool, error)) (*models.Order, error) {
	unlock := o.locks.Lock(orderID)
	defer unlock()

	order, err := o.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	changed, err := fn(order)
	if err != nil {
		return nil, err
	}
	if !changed {
		return order, nil
	}
	if err := o.save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (o *Orders) save(ctx context.Context, order *models.Order) error {
	order.RecomputeTotal()
	order.Status = calculator.AggregateItems(order.Items)
	if err := o.store.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// subjects lists every table of the billing group plus the staff audiences.
func (o *Orders) subjects(tableID int64) []string {
	tableIDs := o.tracker.BillingTables(tableID)
	subjects := make([]string, 0, len(tableIDs)+2)
	for _, id := range tableIDs {
		subjects = append(subjects, notify.TableSubject(id))
	}
	return append(subjects, notify.KitchenSubject, notify.CashierSubject)
}

func (o *Orders) publishOrder(ctx context.Context, eventType string, order *models.Order) {
	notify.Broadcast(ctx, o.publisher, notify.NewOrderSummary(eventType, order), o.subjects(order.TableID)...)
}

// markPaid flips an order to paid once its settlement session finalized. Canceled
// lines stay canceled.
func markPaid(order *models.Order, sessionID string, methods []string, now int64) {
	for i := range order.Items {
		if order.Items[i].Status.Terminal() {
			continue
		}
		order.Items[i].Status = models.StatusPaid
		order.Items[i].UpdatedAt = now
	}
	order.PaymentStatus = models.PaymentPaid
	order.SettlementID = sessionID
	if len(methods) == 1 {
		order.PaymentMethod = methods[0]
	} else if len(methods) > 1 {
		order.PaymentMethod = "split"
	}
}

// settledByItems reports whether every line is paid or canceled with at least one paid.
func settledByItems(order *models.Order) bool {
	paid := false
	for _, item := range order.Items {
		switch item.Status {
		case models.StatusPaid:
			paid = true
		case models.StatusCanceled:
		default:
			return false
		}
	}
	return paid
}

// toConnectError logs unexpected errors before they lose their detail.
func toConnectError(procedure string, err error) error {
	ce := apperr.ToConnect(err)
	if ce.Code() == connect.CodeInternal {
		slog.Error("Request failed", "procedure", procedure, "error", err)
	}
	return ce
}
