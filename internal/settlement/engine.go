// Package settlement records how participants at a table pay one order between them.
//
// Each order has at most one session. Its split mode is fixed by the first
// contribution; every participant then holds at most one share, recomputed in place
// when they submit again. The sum of shares never exceeds the order total, and the
// session finalizes when it reaches it. Flipping the order to paid is left to the
// caller.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/calculator"
	"github.com/mmynk/tableside/internal/keylock"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

// maxAttempts bounds the compare-and-swap retries when another writer saved the
// session between our read and our write.
const maxAttempts = 3

// Request is one participant's split request.
type Request struct {
	Mode          models.SplitMode
	PaymentMethod string

	// ParticipantCount is the number of payers for SplitEven. Zero reuses the count
	// recorded on an existing session.
	ParticipantCount int

	// Percentage is required for SplitPercentage.
	Percentage decimal.NullDecimal

	// ItemIDs are the order lines claimed for SplitItems. Duplicates are ignored.
	ItemIDs []int64

	DisplayName string
}

// Engine computes and persists shares. It is safe for concurrent use; contributions
// to the same order are serialized, different orders proceed in parallel.
type Engine struct {
	store storage.SettlementStore
	locks *keylock.Map
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine persisting sessions to store.
func NewEngine(store storage.SettlementStore, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		locks: keylock.New(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Contribute records or recomputes participantID's share of order and returns the
// resulting view. order must be a current snapshot of the order including its items.
func (e *Engine) Contribute(ctx context.Context, order *models.Order, participantID string, req Request) (*View, error) {
	if participantID == "" {
		return nil, apperr.Validation(apperr.CodeMissingField, "participant id is required")
	}
	if !req.Mode.Valid() {
		return nil, apperr.Validation(apperr.CodeInvalidMode, "invalid split mode %s", req.Mode)
	}
	if req.PaymentMethod == "" {
		return nil, apperr.Validation(apperr.CodeMissingField, "payment method is required")
	}

	unlock := e.locks.Lock(order.ID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		current, err := e.store.GetSession(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load settlement: %w", err)
		}

		next, changed, err := e.apply(order, current, participantID, req)
		if err != nil {
			return nil, err
		}
		if !changed {
			return newView(order, next, participantID), nil
		}

		var expected int64
		if current != nil {
			expected = current.Version
		}
		err = e.store.SaveSession(ctx, next, expected)
		if err == nil {
			slog.Info("Settlement share recorded",
				"order_id", order.ID,
				"session_id", next.ID,
				"participant", participantID,
				"mode", next.Mode.String(),
				"finalized", next.Finalized,
			)
			return newView(order, next, participantID), nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to save settlement: %w", err)
		}
		if attempt == maxAttempts {
			slog.Warn("Settlement save kept conflicting", "order_id", order.ID, "attempts", attempt)
			return nil, storage.ErrVersionConflict
		}
		slog.Debug("Settlement version conflict, retrying", "order_id", order.ID, "attempt", attempt)
	}
}

// View returns the current session of order as seen by participantID.
func (e *Engine) View(ctx context.Context, order *models.Order, participantID string) (*View, error) {
	session, err := e.store.GetSession(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settlement: %w", err)
	}
	if session == nil {
		return nil, apperr.NotFound("no settlement for order %d", order.ID)
	}
	return newView(order, session, participantID), nil
}

// Reset discards an unfinished session so the table can pick a different mode.
func (e *Engine) Reset(ctx context.Context, orderID int64) error {
	unlock := e.locks.Lock(orderID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		session, err := e.store.GetSession(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load settlement: %w", err)
		}
		if session == nil {
			return apperr.NotFound("no settlement for order %d", orderID)
		}
		if session.Finalized {
			return apperr.Conflict(apperr.CodeSessionFinalized, "settlement for order %d is already complete", orderID)
		}

		err = e.store.DeleteSession(ctx, orderID, session.Version)
		if err == nil {
			slog.Info("Settlement reset", "order_id", orderID, "session_id", session.ID, "shares", len(session.Shares))
			return nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) || attempt == maxAttempts {
			return err
		}
	}
}

// apply computes the session that results from req. It never mutates current.
// changed is false when the request matches a finalized session's existing share.
func (e *Engine) apply(order *models.Order, current *models.SettlementSession, participantID string, req Request) (*models.SettlementSession, bool, error) {
	now := e.now().Unix()

	var session *models.SettlementSession
	if current == nil {
		session = &models.SettlementSession{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			Mode:      req.Mode,
			CreatedAt: now,
		}
	} else {
		session = current.Clone()
		if session.Mode != req.Mode {
			return nil, false, apperr.Conflict(apperr.CodeModeConflict,
				"this bill is already being split by %s, not by %s", session.Mode, req.Mode)
		}
	}

	if session.Finalized {
		if idx := session.ShareOf(participantID); idx >= 0 && sameRequest(session, session.Shares[idx], req) {
			return session, false, nil
		}
		return nil, false, apperr.Conflict(apperr.CodeSessionFinalized, "this bill is already fully paid")
	}
	// Paid at the counter while the split was still open.
	if order.PaymentStatus == models.PaymentPaid {
		return nil, false, apperr.Conflict(apperr.CodeOrderAlreadyPaid, "order %s is already paid", order.Code)
	}

	total := order.Total
	if !total.IsPositive() {
		return nil, false, apperr.Invariant(apperr.CodeNothingOutstanding, "order %s has nothing to pay", order.Code)
	}

	paidByOthers := decimal.Zero
	others := 0
	for _, s := range session.Shares {
		if s.ParticipantID != participantID {
			paidByOthers = paidByOthers.Add(s.Amount)
			others++
		}
	}
	outstanding := total.Sub(paidByOthers)

	share := models.Share{
		ParticipantID: participantID,
		DisplayName:   req.DisplayName,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     now,
	}
	if idx := session.ShareOf(participantID); idx >= 0 {
		share.CreatedAt = session.Shares[idx].CreatedAt
		if share.DisplayName == "" {
			share.DisplayName = session.Shares[idx].DisplayName
		}
	}

	var amount decimal.Decimal
	switch req.Mode {
	case models.SplitFull:
		amount = outstanding

	case models.SplitEven:
		n, err := participantCount(session, req)
		if err != nil {
			return nil, false, err
		}
		session.ParticipantCount = n
		if others >= n-1 {
			// Last slot absorbs the rounding remainder.
			amount = outstanding
		} else {
			amount = calculator.EvenShare(total, n)
		}

	case models.SplitPercentage:
		if !req.Percentage.Valid {
			return nil, false, apperr.Validation(apperr.CodeMissingField, "percentage is required")
		}
		pct := req.Percentage.Decimal
		if !pct.IsPositive() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return nil, false, apperr.Validation(apperr.CodeInvalidPercentage, "percentage must be greater than 0 and at most 100")
		}
		claimed := sumPercentages(session.Shares, participantID).Add(pct)
		excess := claimed.Sub(decimal.NewFromInt(100))
		if excess.GreaterThan(calculator.PercentageTolerance) {
			return nil, false, apperr.Conflict(apperr.CodePercentageExceeded,
				"percentage total exceeds 100%% (%s%% already claimed)", claimed.Sub(pct).String())
		}
		share.Percentage = decimal.NewNullDecimal(pct)
		if excess.Abs().LessThanOrEqual(calculator.PercentageTolerance) {
			amount = outstanding
		} else {
			amount = calculator.PercentageShare(total, pct)
		}

	case models.SplitItems:
		ids, sum, err := claimItems(order, session, participantID, req.ItemIDs)
		if err != nil {
			return nil, false, err
		}
		share.ItemIDs = ids
		amount = sum
	}

	if !outstanding.IsPositive() {
		return nil, false, apperr.Invariant(apperr.CodeNothingOutstanding, "nothing is left to pay on this bill")
	}
	if !amount.IsPositive() {
		return nil, false, apperr.Invariant(apperr.CodeNonPositiveAmount, "the requested share comes to nothing")
	}
	share.Amount = calculator.Clamp(amount, outstanding)
	share.UpdatedAt = now

	if idx := session.ShareOf(participantID); idx >= 0 {
		session.Shares[idx] = share
	} else {
		session.Shares = append(session.Shares, share)
	}
	session.UpdatedAt = now
	session.Finalized = !total.Sub(session.Paid()).IsPositive()
	return session, true, nil
}

// participantCount resolves n for SplitEven against the session's recorded count.
func participantCount(session *models.SettlementSession, req Request) (int, error) {
	n := req.ParticipantCount
	if n < 0 {
		return 0, apperr.Validation(apperr.CodeInvalidCount, "participant count must be at least 1")
	}
	if session.ParticipantCount > 0 {
		if n == 0 {
			return session.ParticipantCount, nil
		}
		if n != session.ParticipantCount {
			return 0, apperr.Conflict(apperr.CodeCountConflict,
				"this bill is already split between %d people", session.ParticipantCount)
		}
		return n, nil
	}
	if n == 0 {
		return 0, apperr.Validation(apperr.CodeMissingField, "participant count is required for an even split")
	}
	return n, nil
}

// claimItems validates an item claim and returns the sorted, deduplicated IDs and
// their line total.
func claimItems(order *models.Order, session *models.SettlementSession, participantID string, requested []int64) ([]int64, decimal.Decimal, error) {
	if len(requested) == 0 {
		return nil, decimal.Zero, apperr.Validation(apperr.CodeNoItems, "select at least one item")
	}

	claimedBy := make(map[int64]string)
	for _, s := range session.Shares {
		if s.ParticipantID == participantID {
			continue
		}
		for _, id := range s.ItemIDs {
			claimedBy[id] = s.DisplayName
		}
	}

	seen := make(map[int64]bool, len(requested))
	ids := make([]int64, 0, len(requested))
	sum := decimal.Zero
	for _, id := range requested {
		if seen[id] {
			continue
		}
		seen[id] = true

		item, ok := order.Item(id)
		if !ok {
			return nil, decimal.Zero, apperr.Validation(apperr.CodeUnknownItem, "item %d is not on this order", id)
		}
		if item.Status == models.StatusCanceled {
			return nil, decimal.Zero, apperr.Validation(apperr.CodeCanceledItem, "%s was canceled", item.FoodName)
		}
		if owner, taken := claimedBy[id]; taken {
			if owner == "" {
				owner = "another guest"
			}
			return nil, decimal.Zero, apperr.Conflict(apperr.CodeItemAlreadyClaimed,
				"%s is already claimed by %s", item.FoodName, owner)
		}
		ids = append(ids, id)
		sum = sum.Add(item.LineTotal)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, sum, nil
}

// sameRequest reports whether req would reproduce share on a finalized session.
func sameRequest(session *models.SettlementSession, share models.Share, req Request) bool {
	if req.PaymentMethod != share.PaymentMethod {
		return false
	}
	if req.DisplayName != "" && req.DisplayName != share.DisplayName {
		return false
	}
	switch session.Mode {
	case models.SplitEven:
		return req.ParticipantCount == 0 || req.ParticipantCount == session.ParticipantCount
	case models.SplitPercentage:
		return req.Percentage.Valid && share.Percentage.Valid && req.Percentage.Decimal.Equal(share.Percentage.Decimal)
	case models.SplitItems:
		seen := make(map[int64]bool, len(req.ItemIDs))
		for _, id := range req.ItemIDs {
			seen[id] = true
		}
		if len(seen) != len(share.ItemIDs) {
			return false
		}
		for _, id := range share.ItemIDs {
			if !seen[id] {
				return false
			}
		}
	}
	return true
}
