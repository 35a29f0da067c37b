package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avdeenkov/cardbank/internal/models"
)

const transferColumns = `id, reference, from_card_id, to_card_id, amount, status, description, transfer_date`

// CreateTransferTx appends a completed transfer record inside an open
// transaction. Transfer rows are never updated afterwards.
func (r *Repository) CreateTransferTx(ctx context.Context, tx *sql.Tx, t *models.Transfer) error {
	query := `
		INSERT INTO bank.transfers (reference, from_card_id, to_card_id, amount, status, description, transfer_date)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		RETURNING id, transfer_date`
	err := tx.QueryRowContext(ctx, query, t.Reference, t.FromCardID, t.ToCardID, t.Amount, t.Status, t.Description).
		Scan(&t.ID, &t.TransferDate)
	if err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

func (r *Repository) queryTransfers(ctx context.Context, query string, args ...any) ([]*models.Transfer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		t := &models.Transfer{}
		if err := rows.Scan(&t.ID, &t.Reference, &t.FromCardID, &t.ToCardID,
			&t.Amount, &t.Status, &t.Description, &t.TransferDate); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// FindTransfersByUserID returns every transfer where the user owns either
// side, newest first.
func (r *Repository) FindTransfersByUserID(ctx context.Context, userID int64) ([]*models.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM bank.transfers t
		WHERE EXISTS (SELECT 1 FROM bank.cards c WHERE c.user_id = $1 AND c.id IN (t.from_card_id, t.to_card_id))
		ORDER BY t.transfer_date DESC, t.id DESC`
	return r.queryTransfers(ctx, query, userID)
}

// FindTransfersByCardID returns every transfer touching one card, newest first.
func (r *Repository) FindTransfersByCardID(ctx context.Context, cardID int64) ([]*models.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM bank.transfers t
		WHERE t.from_card_id = $1 OR t.to_card_id = $1
		ORDER BY t.transfer_date DESC, t.id DESC`
	return r.queryTransfers(ctx, query, cardID)
}

// CardStats aggregates income, expense and operation counts for one card.
func (r *Repository) CardStats(ctx context.Context, cardID int64) (*models.CardStats, error) {
	stats := &models.CardStats{CardID: cardID}
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE to_card_id = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE from_card_id = $1), 0),
			COUNT(*) FILTER (WHERE to_card_id = $1),
			COUNT(*) FILTER (WHERE from_card_id = $1)
		FROM bank.transfers
		WHERE from_card_id = $1 OR to_card_id = $1`
	err := r.db.QueryRowContext(ctx, query, cardID).
		Scan(&stats.Income, &stats.Expense, &stats.IncomingCount, &stats.OutgoingCount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate card stats: %w", err)
	}
	return stats, nil
}

// UserStats aggregates income, expense and operation counts across all of a
// user's cards. Transfers between two cards of the same user count on both sides.
func (r *Repository) UserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	stats := &models.UserStats{UserID: userID}
	query := `
		WITH owned AS (SELECT id FROM bank.cards WHERE user_id = $1)
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE to_card_id IN (SELECT id FROM owned)), 0),
			COALESCE(SUM(amount) FILTER (WHERE from_card_id IN (SELECT id FROM owned)), 0),
			COUNT(*) FILTER (WHERE to_card_id IN (SELECT id FROM owned)),
			COUNT(*) FILTER (WHERE from_card_id IN (SELECT id FROM owned))
		FROM bank.transfers`
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&stats.Income, &stats.Expense, &stats.IncomingCount, &stats.OutgoingCount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate user stats: %w", err)
	}
	return stats, nil
}

// DeleteTransfersByCardTx removes ledger rows referencing a card inside an
// open transaction, ahead of deleting the card itself.
func (r *Repository) DeleteTransfersByCardTx(ctx context.Context, tx *sql.Tx, cardID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM bank.transfers WHERE from_card_id = $1 OR to_card_id = $1`, cardID)
	if err != nil {
		return fmt.Errorf("failed to delete transfers: %w", err)
	}
	return nil
}
