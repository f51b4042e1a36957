// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// maxCodeAttempts bounds retries when a generated order code is already taken.
const maxCodeAttempts = 5

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas apply to every pooled connection. Write transactions take the write
	// lock up front so concurrent writers queue on busy_timeout instead of failing.
	dsn := filepath.Clean(dbPath) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateOrder persists a new order and its items.
func (s *SQLiteStore) CreateOrder(ctx context.Context, order *models.Order) error {
	now := time.Now().Unix()
	if order.CreatedAt == 0 {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	for attempt := 1; ; attempt++ {
		err := s.insertOrder(ctx, order, storage.NewOrderCode())
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) || attempt == maxCodeAttempts {
			return err
		}
	}
}

func (s *SQLiteStore) insertOrder(ctx context.Context, order *models.Order, code string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (code, table_id, status, total, payment_method, payment_status, settlement_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		code, order.TableID, order.Status.String(), order.Total.String(), order.PaymentMethod,
		order.PaymentStatus.String(), nullString(order.SettlementID), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read order id: %w", err)
	}

	itemIDs := make([]int64, len(order.Items))
	for i, item := range order.Items {
		options, err := json.Marshal(nonNil(item.Options))
		if err != nil {
			return fmt.Errorf("failed to encode item options: %w", err)
		}
		createdAt := item.CreatedAt
		if createdAt == 0 {
			createdAt = order.CreatedAt
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, food_id, food_name, quantity, unit_price, line_total, status, note, options, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			orderID, item.FoodID, item.FoodName, item.Quantity, item.UnitPrice.String(), item.LineTotal.String(),
			item.Status.String(), item.Note, string(options), createdAt, createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
		if itemIDs[i], err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read item id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	order.ID = orderID
	order.Code = code
	for i := range order.Items {
		order.Items[i].ID = itemIDs[i]
		order.Items[i].OrderID = orderID
		if order.Items[i].CreatedAt == 0 {
			order.Items[i].CreatedAt = order.CreatedAt
		}
		order.Items[i].UpdatedAt = order.Items[i].CreatedAt
	}
	return nil
}

// GetOrder retrieves an order by ID, including its items.
func (s *SQLiteStore) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx,
		`SELECT id, code, table_id, status, total, payment_method, payment_status, settlement_id, created_at, updated_at
		 FROM orders WHERE id = ?`,
		orderID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("order not found: %d", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := s.listItems(ctx, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return order, nil
}

// ListOrdersByTables retrieves the orders of every given table, oldest first.
func (s *SQLiteStore) ListOrdersByTables(ctx context.Context, tableIDs []int64) ([]*models.Order, error) {
	if len(tableIDs) == 0 {
		return nil, nil
	}

	args := make([]any, len(tableIDs))
	for i, id := range tableIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, table_id, status, total, payment_method, payment_status, settlement_id, created_at, updated_at
		 FROM orders WHERE table_id IN (`+placeholders(len(tableIDs))+`) ORDER BY created_at, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	var orderIDs []int64
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	rows.Close()

	if len(orders) == 0 {
		return nil, nil
	}
	items, err := s.listItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		order.Items = items[order.ID]
	}
	return orders, nil
}

// UpdateOrder writes the order's mutable fields and its item statuses.
func (s *SQLiteStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, total = ?, payment_method = ?, payment_status = ?, settlement_id = ?, updated_at = ?
		 WHERE id = ?`,
		order.Status.String(), order.Total.String(), order.PaymentMethod, order.PaymentStatus.String(),
		nullString(order.SettlementID), now, order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	} else if n == 0 {
		return apperr.NotFound("order not found: %d", order.ID)
	}

	for _, item := range order.Items {
		_, err := tx.ExecContext(ctx,
			`UPDATE order_items SET status = ?, updated_at = ? WHERE id = ? AND order_id = ? AND status <> ?`,
			item.Status.String(), now, item.ID, order.ID, item.Status.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to update order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	order.UpdatedAt = now
	return nil
}

// listItems loads the items of the given orders, keyed by order ID.
func (s *SQLiteStore) listItems(ctx context.Context, orderIDs []int64) (map[int64][]models.OrderItem, error) {
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, food_id, food_name, quantity, unit_price, line_total, status, note, options, created_at, updated_at
		 FROM order_items WHERE order_id IN (`+placeholders(len(orderIDs))+`) ORDER BY id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var item models.OrderItem
		var status, options string
		if err := rows.Scan(&item.ID, &item.OrderID, &item.FoodID, &item.FoodName, &item.Quantity,
			&item.UnitPrice, &item.LineTotal, &status, &item.Note, &options, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if item.Status, err = models.ParseItemStatus(status); err != nil {
			return nil, fmt.Errorf("failed to decode item %d: %w", item.ID, err)
		}
		if err := json.Unmarshal([]byte(options), &item.Options); err != nil {
			return nil, fmt.Errorf("failed to decode item %d options: %w", item.ID, err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*models.Order, error) {
	order := &models.Order{}
	var status, paymentStatus string
	var settlementID sql.NullString
	if err := row.Scan(&order.ID, &order.Code, &order.TableID, &status, &order.Total, &order.PaymentMethod,
		&paymentStatus, &settlementID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if order.Status, err = models.ParseItemStatus(status); err != nil {
		return nil, fmt.Errorf("failed to decode order %d: %w", order.ID, err)
	}
	if order.PaymentStatus, err = models.ParsePaymentStatus(paymentStatus); err != nil {
		return nil, fmt.Errorf("failed to decode order %d: %w", order.ID, err)
	}
	if settlementID.Valid {
		order.SettlementID = settlementID.String
	}
	return order, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
