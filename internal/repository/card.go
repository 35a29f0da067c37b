package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avdeenkov/cardbank/internal/models"
)

const cardColumns = `id, user_id, encrypted_number, holder, expiration_date, encrypted_cvv, balance, status, created_at, updated_at`

func scanCard(row *sql.Row) (*models.Card, error) {
	card := &models.Card{}
	err := row.Scan(&card.ID, &card.UserID, &card.EncryptedNumber, &card.Holder,
		&card.ExpirationDate, &card.EncryptedCVV, &card.Balance, &card.Status,
		&card.CreatedAt, &card.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}
	return card, nil
}

// CreateCard creates a new card in the database
func (r *Repository) CreateCard(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO bank.cards (user_id, encrypted_number, holder, expiration_date, encrypted_cvv, balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, card.UserID, card.EncryptedNumber, card.Holder,
		card.ExpirationDate, card.EncryptedCVV, card.Balance, card.Status).
		Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// FindCardByID retrieves a card by id
func (r *Repository) FindCardByID(ctx context.Context, id int64) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE id = $1`
	return scanCard(r.db.QueryRowContext(ctx, query, id))
}

// FindCardByIDForUpdate loads a card inside tx with a row lock. Callers that
// lock two cards must lock them in ascending id order to avoid deadlocks.
func (r *Repository) FindCardByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE id = $1 FOR UPDATE`
	return scanCard(tx.QueryRowContext(ctx, query, id))
}

// FindCardsByUserID retrieves all cards owned by a user, newest first
func (r *Repository) FindCardsByUserID(ctx context.Context, userID int64) ([]*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE user_id = $1 ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card := &models.Card{}
		if err := rows.Scan(&card.ID, &card.UserID, &card.EncryptedNumber, &card.Holder,
			&card.ExpirationDate, &card.EncryptedCVV, &card.Balance, &card.Status,
			&card.CreatedAt, &card.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// UpdateCard persists mutable card fields (holder, balance, status)
func (r *Repository) UpdateCard(ctx context.Context, card *models.Card) error {
	return updateCard(ctx, r.db, card)
}

// UpdateCardTx persists mutable card fields inside an open transaction
func (r *Repository) UpdateCardTx(ctx context.Context, tx *sql.Tx, card *models.Card) error {
	return updateCard(ctx, tx, card)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateCard(ctx context.Context, db execer, card *models.Card) error {
	query := `
		UPDATE bank.cards
		SET holder = $1, balance = $2, status = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4`
	res, err := db.ExecContext(ctx, query, card.Holder, card.Balance, card.Status, card.ID)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
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

// ExpireCards marks every ACTIVE card whose expiration date has passed as
// EXPIRED and returns the number of rows changed. Re-running with the same
// date is a no-op.
func (r *Repository) ExpireCards(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE bank.cards
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE status = $2 AND expiration_date < $3`
	res, err := r.db.ExecContext(ctx, query, models.CardStatusExpired, models.CardStatusActive, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to expire cards: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// DeleteCardTx removes a card row inside an open transaction. Transfers and
// block requests referencing the card must be deleted first.
func (r *Repository) DeleteCardTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM bank.cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
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
