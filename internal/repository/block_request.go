package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avdeenkov/cardbank/internal/models"
)

const blockRequestColumns = `id, card_id, user_id, reason, status, processed_by, processed_at, admin_comment, created_at`

func scanBlockRequest(scan func(dest ...any) error) (*models.BlockRequest, error) {
	req := &models.BlockRequest{}
	err := scan(&req.ID, &req.CardID, &req.UserID, &req.Reason, &req.Status,
		&req.ProcessedBy, &req.ProcessedAt, &req.AdminComment, &req.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan block request: %w", err)
	}
	return req, nil
}

// CreateBlockRequestTx inserts a PENDING block request inside an open
// transaction. The partial unique index on (card_id) WHERE status = 'PENDING'
// backs up the duplicate check under concurrency.
func (r *Repository) CreateBlockRequestTx(ctx context.Context, tx *sql.Tx, req *models.BlockRequest) error {
	query := `
		INSERT INTO bank.block_requests (card_id, user_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := tx.QueryRowContext(ctx, query, req.CardID, req.UserID, req.Reason, req.Status).
		Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create block request: %w", err)
	}
	return nil
}

// HasPendingBlockRequestTx reports whether a PENDING request already exists
// for the card, taking a share lock so a concurrent creator serializes.
func (r *Repository) HasPendingBlockRequestTx(ctx context.Context, tx *sql.Tx, cardID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bank.block_requests WHERE card_id = $1 AND status = $2)`
	err := tx.QueryRowContext(ctx, query, cardID, models.BlockRequestPending).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending block request: %w", err)
	}
	return exists, nil
}

// FindBlockRequestByIDForUpdate loads a block request inside tx with a row lock.
func (r *Repository) FindBlockRequestByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.BlockRequest, error) {
	query := `SELECT ` + blockRequestColumns + ` FROM bank.block_requests WHERE id = $1 FOR UPDATE`
	return scanBlockRequest(tx.QueryRowContext(ctx, query, id).Scan)
}

// UpdateBlockRequestTx persists a processed block request inside an open transaction
func (r *Repository) UpdateBlockRequestTx(ctx context.Context, tx *sql.Tx, req *models.BlockRequest) error {
	query := `
		UPDATE bank.block_requests
		SET status = $1, processed_by = $2, processed_at = $3, admin_comment = $4
		WHERE id = $5`
	res, err := tx.ExecContext(ctx, query, req.Status, req.ProcessedBy, req.ProcessedAt, req.AdminComment, req.ID)
	if err != nil {
		return fmt.Errorf("failed to update block request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

// FindBlockRequests lists block requests, optionally filtered by status,
// newest first.
func (r *Repository) FindBlockRequests(ctx context.Context, status *models.BlockRequestStatus) ([]*models.BlockRequest, error) {
	query := `SELECT ` + blockRequestColumns + ` FROM bank.block_requests`
	var args []any
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list block requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.BlockRequest
	for rows.Next() {
		req, err := scanBlockRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// CountPendingBlockRequests returns the number of PENDING requests.
func (r *Repository) CountPendingBlockRequests(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM bank.block_requests WHERE status = $1`
	if err := r.db.QueryRowContext(ctx, query, models.BlockRequestPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending block requests: %w", err)
	}
	return count, nil
}

// FindCardIDsWithPendingRequests returns the distinct ids of cards that have
// at least one PENDING block request.
func (r *Repository) FindCardIDsWithPendingRequests(ctx context.Context) ([]int64, error) {
	query := `SELECT DISTINCT card_id FROM bank.block_requests WHERE status = $1 ORDER BY card_id`
	rows, err := r.db.QueryContext(ctx, query, models.BlockRequestPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards with pending requests: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan card id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteBlockRequestsByCardTx removes block requests referencing a card inside
// an open transaction, ahead of deleting the card itself.
func (r *Repository) DeleteBlockRequestsByCardTx(ctx context.Context, tx *sql.Tx, cardID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM bank.block_requests WHERE card_id = $1`, cardID)
	if err != nil {
		return fmt.Errorf("failed to delete block requests: %w", err)
	}
	return nil
}
