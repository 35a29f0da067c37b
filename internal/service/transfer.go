package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/avdeenkov/cardbank/internal/models"
	"github.com/avdeenkov/cardbank/internal/repository"
)

// TransferService executes atomic money movements between two cards and
// serves the transfer history and statistics views.
type TransferService struct {
	store    Store
	cards    *CardService
	notifier Notifier
	log      *logrus.Logger
}

// NewTransferService initializes a new transfer service. notifier may be nil
// when notifications are not configured.
func NewTransferService(store Store, cards *CardService, notifier Notifier, log *logrus.Logger) *TransferService {
	return &TransferService{store: store, cards: cards, notifier: notifier, log: log}
}

// Transfer moves amount from one card to another as one atomic unit: both card
// rows are locked in ascending id order, every precondition is checked, the
// debit, credit and the COMPLETED ledger record are committed together or not
// at all. cvv is optional; when supplied it must match the source card's.
func (s *TransferService) Transfer(ctx context.Context, identity models.Identity, fromCardID, toCardID int64, amount decimal.Decimal, cvv, description string) (*models.Transfer, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", ErrInvalidOperation)
	}

	var transfer *models.Transfer
	var from, to *models.Card
	err := s.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		from, to, err = s.lockCards(ctx, tx, fromCardID, toCardID)
		if err != nil {
			return err
		}

		// The same uninformative error covers a missing source card, a source
		// card owned by someone else and a missing destination card, so an
		// unauthorized caller cannot probe which card ids exist.
		if from.UserID != identity.UserID {
			return ErrAccessDenied
		}

		if cvv != "" {
			storedCVV, err := s.cards.codec.Decrypt(from.EncryptedCVV)
			if err != nil {
				s.log.Errorf("Failed to decrypt CVV of card %d: %v", from.ID, err)
				return fmt.Errorf("%w: card %d", ErrDecryptFailed, from.ID)
			}
			if storedCVV != cvv {
				return fmt.Errorf("%w: Invalid CVV code", ErrInvalidOperation)
			}
		}

		if from.ID == to.ID {
			return fmt.Errorf("%w: Cannot transfer to the same card", ErrInvalidOperation)
		}
		if !from.IsActive() {
			return fmt.Errorf("%w: source card is %s", ErrInvalidOperation, from.Status)
		}
		if !to.IsActive() {
			return fmt.Errorf("%w: destination card is %s", ErrInvalidOperation, to.Status)
		}
		if !from.CanDebit(amount) {
			return fmt.Errorf("%w: card %d balance %s cannot cover %s",
				ErrInsufficientFunds, from.ID, from.Balance, amount)
		}

		if !from.Debit(amount) {
			return fmt.Errorf("%w: card %d", ErrInsufficientFunds, from.ID)
		}
		if err := to.Credit(amount); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
		}

		if err := s.store.UpdateCardTx(ctx, tx, from); err != nil {
			return err
		}
		if err := s.store.UpdateCardTx(ctx, tx, to); err != nil {
			return err
		}

		transfer = &models.Transfer{
			Reference:   uuid.NewString(),
			FromCardID:  from.ID,
			ToCardID:    to.ID,
			Amount:      amount,
			Status:      models.TransferStatusCompleted,
			Description: description,
		}
		return s.store.CreateTransferTx(ctx, tx, transfer)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Transfer %s completed: %s from card %d to card %d",
		transfer.Reference, transfer.Amount, transfer.FromCardID, transfer.ToCardID)
	s.notifyTransfer(ctx, identity.UserID, transfer, from, to)
	return transfer, nil
}

// lockCards loads both cards FOR UPDATE in ascending id order so concurrent
// transfers over the same pair cannot deadlock. Equal ids load a single row;
// the same-card rule is rejected later with the other precondition checks.
// A missing row surfaces as ErrAccessDenied.
func (s *TransferService) lockCards(ctx context.Context, tx *sql.Tx, fromID, toID int64) (*models.Card, *models.Card, error) {
	if fromID == toID {
		card, err := s.store.FindCardByIDForUpdate(ctx, tx, fromID)
		if err != nil {
			return nil, nil, asAccessDenied(err)
		}
		return card, card, nil
	}

	firstID, secondID := fromID, toID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	first, err := s.store.FindCardByIDForUpdate(ctx, tx, firstID)
	if err != nil {
		return nil, nil, asAccessDenied(err)
	}
	second, err := s.store.FindCardByIDForUpdate(ctx, tx, secondID)
	if err != nil {
		return nil, nil, asAccessDenied(err)
	}

	if first.ID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

func asAccessDenied(err error) error {
	if errors.Is(err, repository.ErrNoRows) {
		return ErrAccessDenied
	}
	return err
}

func (s *TransferService) notifyTransfer(ctx context.Context, userID int64, transfer *models.Transfer, from, to *models.Card) {
	if s.notifier == nil {
		return
	}
	owner, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		s.log.Errorf("Failed to load user %d for transfer notification: %v", userID, err)
		return
	}
	if err := s.cards.Mask(from); err != nil || s.cards.Mask(to) != nil {
		return
	}
	if err := s.notifier.TransferCompleted(owner, transfer, from.MaskedNumber, to.MaskedNumber); err != nil {
		s.log.Errorf("Failed to send transfer notification to %s: %v", owner.Email, err)
	}
}

// HistoryByUser returns all transfers where the user owns either side.
func (s *TransferService) HistoryByUser(ctx context.Context, identity models.Identity, userID int64) ([]*models.Transfer, error) {
	if userID != identity.UserID && !identity.IsAdmin() {
		return nil, ErrAccessDenied
	}
	return s.store.FindTransfersByUserID(ctx, userID)
}

// HistoryByCard returns all transfers touching one card. Ownership-checked for
// regular users, unchecked for admins.
func (s *TransferService) HistoryByCard(ctx context.Context, identity models.Identity, cardID int64) ([]*models.Transfer, error) {
	if _, err := s.cards.loadOwnedCard(ctx, identity, cardID); err != nil {
		return nil, err
	}
	return s.store.FindTransfersByCardID(ctx, cardID)
}

// CardStats returns aggregate income, expense and operation counts for a card.
func (s *TransferService) CardStats(ctx context.Context, identity models.Identity, cardID int64) (*models.CardStats, error) {
	if _, err := s.cards.loadOwnedCard(ctx, identity, cardID); err != nil {
		return nil, err
	}
	return s.store.CardStats(ctx, cardID)
}

// UserStats returns aggregate income, expense and operation counts summed
// across all of a user's cards.
func (s *TransferService) UserStats(ctx context.Context, identity models.Identity, userID int64) (*models.UserStats, error) {
	if userID != identity.UserID && !identity.IsAdmin() {
		return nil, ErrAccessDenied
	}
	return s.store.UserStats(ctx, userID)
}
