package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

// GetSession retrieves the order's settlement session with its shares and claims.
// Returns nil if the order has no session.
func (s *SQLiteStore) GetSession(ctx context.Context, orderID int64) (*models.SettlementSession, error) {
	session := &models.SettlementSession{}
	var mode string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, order_id, mode, participant_count, finalized, version, created_at, updated_at
		 FROM settlement_sessions WHERE order_id = ?`,
		orderID,
	).Scan(&session.ID, &session.OrderID, &mode, &session.ParticipantCount, &session.Finalized,
		&session.Version, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement session: %w", err)
	}
	if session.Mode, err = models.ParseSplitMode(mode); err != nil {
		return nil, fmt.Errorf("failed to decode settlement session %s: %w", session.ID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, display_name, payment_method, amount, percentage, created_at, updated_at
		 FROM settlement_shares WHERE session_id = ? ORDER BY position`,
		session.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement shares: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var share models.Share
		if err := rows.Scan(&share.ParticipantID, &share.DisplayName, &share.PaymentMethod, &share.Amount,
			&share.Percentage, &share.CreatedAt, &share.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement share: %w", err)
		}
		index[share.ParticipantID] = len(session.Shares)
		session.Shares = append(session.Shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement shares: %w", err)
	}
	rows.Close()

	claimRows, err := s.db.QueryContext(ctx,
		"SELECT participant_id, item_id FROM settlement_claims WHERE session_id = ? ORDER BY item_id",
		session.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement claims: %w", err)
	}
	defer claimRows.Close()

	for claimRows.Next() {
		var participantID string
		var itemID int64
		if err := claimRows.Scan(&participantID, &itemID); err != nil {
			return nil, fmt.Errorf("failed to scan settlement claim: %w", err)
		}
		if i, ok := index[participantID]; ok {
			session.Shares[i].ItemIDs = append(session.Shares[i].ItemIDs, itemID)
		}
	}
	if err := claimRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement claims: %w", err)
	}

	return session, nil
}

// SaveSession replaces the stored session and its shares in one transaction,
// provided the stored version still equals expectedVersion.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *models.SettlementSession, expectedVersion int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx, "SELECT version FROM settlement_sessions WHERE order_id = ?", session.OrderID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read settlement version: %w", err)
	}
	if current != expectedVersion {
		return storage.ErrVersionConflict
	}
	next := expectedVersion + 1

	if expectedVersion == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO settlement_sessions (id, order_id, mode, participant_count, finalized, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, session.OrderID, session.Mode.String(), session.ParticipantCount, session.Finalized,
			next, session.CreatedAt, session.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrVersionConflict
			}
			return fmt.Errorf("failed to insert settlement session: %w", err)
		}
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE settlement_sessions SET participant_count = ?, finalized = ?, version = ?, updated_at = ?
			 WHERE order_id = ? AND version = ?`,
			session.ParticipantCount, session.Finalized, next, session.UpdatedAt, session.OrderID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update settlement session: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM settlement_shares WHERE session_id = ?", session.ID); err != nil {
		return fmt.Errorf("failed to clear settlement shares: %w", err)
	}
	for i, share := range session.Shares {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settlement_shares (session_id, participant_id, position, display_name, payment_method, amount, percentage, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, share.ParticipantID, i, share.DisplayName, share.PaymentMethod, share.Amount.String(),
			nullDecimal(share.Percentage), share.CreatedAt, share.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement share: %w", err)
		}
		for _, itemID := range share.ItemIDs {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO settlement_claims (session_id, item_id, participant_id) VALUES (?, ?, ?)",
				session.ID, itemID, share.ParticipantID,
			)
			if isUniqueViolation(err) {
				return apperr.Conflict(apperr.CodeItemAlreadyClaimed, "item %d is already claimed", itemID)
			}
			if err != nil {
				return fmt.Errorf("failed to insert settlement claim: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	session.Version = next
	return nil
}

// DeleteSession removes the order's session, its shares and claims.
func (s *SQLiteStore) DeleteSession(ctx context.Context, orderID int64, expectedVersion int64) error {
	// Check if session exists
	var current int64
	err := s.db.QueryRowContext(ctx, "SELECT version FROM settlement_sessions WHERE order_id = ?", orderID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("no settlement for order %d", orderID)
	}
	if err != nil {
		return fmt.Errorf("failed to check settlement existence: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM settlement_sessions WHERE order_id = ? AND version = ?",
		orderID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to delete settlement session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if n == 0 {
		return storage.ErrVersionConflict
	}
	return nil
}

func nullDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
