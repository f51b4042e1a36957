// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/models"
)

// ErrVersionConflict is returned by SaveSession and DeleteSession when the stored
// session version no longer matches the one the caller read.
var ErrVersionConflict = apperr.Conflict(apperr.CodeVersionConflict, "settlement was updated concurrently, please retry")

// Store defines the interface for order storage operations.
// This abstraction allows swapping storage backends (SQLite, in-memory, etc.)
// without changing the service layer.
type Store interface {
	SettlementStore

	// CreateOrder persists a new order with its items.
	// The order.ID, order.Code and item IDs are populated by the store.
	CreateOrder(ctx context.Context, order *models.Order) error

	// GetOrder retrieves an order by its ID, including its items.
	// Returns an apperr not-found error if the order does not exist.
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)

	// ListOrdersByTables retrieves every order placed from any of the tables,
	// oldest first.
	ListOrdersByTables(ctx context.Context, tableIDs []int64) ([]*models.Order, error)

	// UpdateOrder writes the order's mutable fields (status, totals, payment fields,
	// settlement link) and every item's status in one transaction.
	UpdateOrder(ctx context.Context, order *models.Order) error

	// Close releases any resources held by the store.
	Close() error
}

// SettlementStore persists settlement sessions with optimistic concurrency.
type SettlementStore interface {
	// GetSession returns the order's session, or nil and no error if none exists.
	GetSession(ctx context.Context, orderID int64) (*models.SettlementSession, error)

	// SaveSession writes the session and its shares atomically if the stored version
	// equals expectedVersion (zero means "must not exist yet"). On success
	// session.Version is set to expectedVersion+1.
	SaveSession(ctx context.Context, session *models.SettlementSession, expectedVersion int64) error

	// DeleteSession removes the order's session and shares if the stored version
	// equals expectedVersion.
	DeleteSession(ctx context.Context, orderID int64, expectedVersion int64) error
}
