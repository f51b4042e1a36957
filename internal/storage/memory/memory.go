// Package memory provides an in-memory implementation of the storage.Store interface,
// used by tests and single-node deployments without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store keeps orders and settlement sessions in maps. Every read and write copies,
// so callers never share memory with the store.
type Store struct {
	mu        sync.RWMutex
	nextOrder int64
	nextItem  int64
	orders    map[int64]*models.Order
	codes     map[string]bool
	sessions  map[int64]*models.SettlementSession
}

// New creates an empty store.
func New() *Store {
	return &Store{
		orders:   make(map[int64]*models.Order),
		codes:    make(map[string]bool),
		sessions: make(map[int64]*models.SettlementSession),
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// CreateOrder assigns IDs and a unique code, then stores a copy of the order.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	if order.CreatedAt == 0 {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	code := storage.NewOrderCode()
	for s.codes[code] {
		code = storage.NewOrderCode()
	}

	s.nextOrder++
	order.ID = s.nextOrder
	order.Code = code
	for i := range order.Items {
		s.nextItem++
		order.Items[i].ID = s.nextItem
		order.Items[i].OrderID = order.ID
		if order.Items[i].CreatedAt == 0 {
			order.Items[i].CreatedAt = order.CreatedAt
		}
		order.Items[i].UpdatedAt = order.Items[i].CreatedAt
	}

	s.codes[code] = true
	s.orders[order.ID] = order.Clone()
	return nil
}

// GetOrder returns a copy of the order.
func (s *Store) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, apperr.NotFound("order not found: %d", orderID)
	}
	return order.Clone(), nil
}

// ListOrdersByTables returns copies of the orders placed from any of the tables,
// oldest first.
func (s *Store) ListOrdersByTables(ctx context.Context, tableIDs []int64) ([]*models.Order, error) {
	wanted := make(map[int64]bool, len(tableIDs))
	for _, id := range tableIDs {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []*models.Order
	for _, order := range s.orders {
		if wanted[order.TableID] {
			orders = append(orders, order.Clone())
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt != orders[j].CreatedAt {
			return orders[i].CreatedAt < orders[j].CreatedAt
		}
		return orders[i].ID < orders[j].ID
	})
	return orders, nil
}

// UpdateOrder replaces the stored order's mutable fields and item statuses.
func (s *Store) UpdateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[order.ID]
	if !ok {
		return apperr.NotFound("order not found: %d", order.ID)
	}

	now := time.Now().Unix()
	updated := stored.Clone()
	updated.Status = order.Status
	updated.Total = order.Total
	updated.PaymentMethod = order.PaymentMethod
	updated.PaymentStatus = order.PaymentStatus
	updated.SettlementID = order.SettlementID
	updated.UpdatedAt = now
	for _, item := range order.Items {
		if existing, ok := updated.Item(item.ID); ok && existing.Status != item.Status {
			existing.Status = item.Status
			existing.UpdatedAt = now
		}
	}

	s.orders[order.ID] = updated
	order.UpdatedAt = now
	return nil
}

// GetSession returns a copy of the order's session, or nil if none exists.
func (s *Store) GetSession(ctx context.Context, orderID int64) (*models.SettlementSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[orderID]
	if !ok {
		return nil, nil
	}
	return session.Clone(), nil
}

// SaveSession stores a copy of the session if the stored version matches.
func (s *Store) SaveSession(ctx context.Context, session *models.SettlementSession, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if existing, ok := s.sessions[session.OrderID]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return storage.ErrVersionConflict
	}

	session.Version = expectedVersion + 1
	s.sessions[session.OrderID] = session.Clone()
	return nil
}

// DeleteSession removes the order's session if the stored version matches.
func (s *Store) DeleteSession(ctx context.Context, orderID int64, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[orderID]
	if !ok {
		return apperr.NotFound("no settlement for order %d", orderID)
	}
	if existing.Version != expectedVersion {
		return storage.ErrVersionConflict
	}
	delete(s.sessions, orderID)
	return nil
}
