package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/avdeenkov/cardbank/internal/models"
	"github.com/avdeenkov/cardbank/internal/repository"
	"github.com/avdeenkov/cardbank/internal/secret"
)

// CardService owns card issuance, reads and status transitions.
type CardService struct {
	store Store
	codec *secret.Codec
	log   *logrus.Logger
}

// NewCardService initializes a new card service
func NewCardService(store Store, codec *secret.Codec, log *logrus.Logger) *CardService {
	return &CardService{store: store, codec: codec, log: log}
}

// CreateCardParams are the caller-supplied inputs for card issuance.
type CreateCardParams struct {
	UserID         int64
	ExpirationDate time.Time
	InitialBalance decimal.Decimal
}

// CreateCard issues a new card. Regular users may only issue cards for
// themselves; admins may issue for any user. The PAN and CVV are generated,
// encrypted and stored; the response carries only the masked number.
func (s *CardService) CreateCard(ctx context.Context, identity models.Identity, params CreateCardParams) (*models.Card, error) {
	if params.UserID != identity.UserID && !identity.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if params.InitialBalance.Sign() < 0 {
		return nil, fmt.Errorf("%w: initial balance cannot be negative", ErrInvalidOperation)
	}
	if params.ExpirationDate.IsZero() {
		params.ExpirationDate = time.Now().AddDate(3, 0, 0)
	}

	owner, err := s.store.FindUserByID(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, params.UserID)
		}
		return nil, err
	}

	number, err := secret.GenerateCardNumber("400000", 16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate card number: %w", err)
	}
	cvv, err := secret.GenerateCVV()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CVV: %w", err)
	}

	encryptedNumber, err := s.codec.Encrypt(number)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt card number: %w", err)
	}
	encryptedCVV, err := s.codec.Encrypt(cvv)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt CVV: %w", err)
	}

	card := &models.Card{
		UserID:          owner.ID,
		EncryptedNumber: encryptedNumber,
		Holder:          owner.HolderName(),
		ExpirationDate:  params.ExpirationDate,
		EncryptedCVV:    encryptedCVV,
		Balance:         params.InitialBalance,
		Status:          models.CardStatusActive,
	}
	if err := s.store.CreateCard(ctx, card); err != nil {
		return nil, err
	}

	card.MaskedNumber = secret.MaskNumber(number)
	s.log.Infof("Card %d issued for user %d", card.ID, owner.ID)
	return card, nil
}

// GetCard returns one card with its masked number. Regular users get the same
// access-denied answer for a missing card and for someone else's card; admins
// get a plain not-found for missing ids.
func (s *CardService) GetCard(ctx context.Context, identity models.Identity, cardID int64) (*models.Card, error) {
	card, err := s.loadOwnedCard(ctx, identity, cardID)
	if err != nil {
		return nil, err
	}
	if err := s.Mask(card); err != nil {
		return nil, err
	}
	return card, nil
}

// ListCards returns all cards of a user with masked numbers. Regular users may
// only list their own.
func (s *CardService) ListCards(ctx context.Context, identity models.Identity, userID int64) ([]*models.Card, error) {
	if userID != identity.UserID && !identity.IsAdmin() {
		return nil, ErrAccessDenied
	}
	cards, err := s.store.FindCardsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, card := range cards {
		if err := s.Mask(card); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

// UpdateCard re-derives the holder display name from the owner's current
// first and last name.
func (s *CardService) UpdateCard(ctx context.Context, identity models.Identity, cardID int64) (*models.Card, error) {
	card, err := s.loadOwnedCard(ctx, identity, cardID)
	if err != nil {
		return nil, err
	}
	owner, err := s.store.FindUserByID(ctx, card.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, card.UserID)
		}
		return nil, err
	}
	card.Holder = owner.HolderName()
	if err := s.store.UpdateCard(ctx, card); err != nil {
		return nil, err
	}
	if err := s.Mask(card); err != nil {
		return nil, err
	}
	return card, nil
}

// DeleteCard removes a card and, first, everything referencing it: ledger rows
// and block requests. Admin only; one transaction, defined order.
func (s *CardService) DeleteCard(ctx context.Context, identity models.Identity, cardID int64) error {
	if !identity.IsAdmin() {
		return ErrAccessDenied
	}
	err := s.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := s.store.FindCardByIDForUpdate(ctx, tx, cardID); err != nil {
			if errors.Is(err, repository.ErrNoRows) {
				return fmt.Errorf("%w: card %d", ErrNotFound, cardID)
			}
			return err
		}
		if err := s.store.DeleteTransfersByCardTx(ctx, tx, cardID); err != nil {
			return err
		}
		if err := s.store.DeleteBlockRequestsByCardTx(ctx, tx, cardID); err != nil {
			return err
		}
		return s.store.DeleteCardTx(ctx, tx, cardID)
	})
	if err != nil {
		return err
	}
	s.log.Infof("Card %d deleted by admin %d", cardID, identity.UserID)
	return nil
}

// BlockCard transitions a card ACTIVE -> BLOCKED. Admin only; EXPIRED cards
// cannot be blocked.
func (s *CardService) BlockCard(ctx context.Context, identity models.Identity, cardID int64) (*models.Card, error) {
	return s.transition(ctx, identity, cardID, (*models.Card).Block)
}

// ActivateCard transitions a card BLOCKED -> ACTIVE. Admin only; EXPIRED is
// terminal.
func (s *CardService) ActivateCard(ctx context.Context, identity models.Identity, cardID int64) (*models.Card, error) {
	return s.transition(ctx, identity, cardID, (*models.Card).Activate)
}

func (s *CardService) transition(ctx context.Context, identity models.Identity, cardID int64, mutate func(*models.Card) error) (*models.Card, error) {
	if !identity.IsAdmin() {
		return nil, ErrAccessDenied
	}
	var card *models.Card
	err := s.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		card, err = s.store.FindCardByIDForUpdate(ctx, tx, cardID)
		if err != nil {
			if errors.Is(err, repository.ErrNoRows) {
				return fmt.Errorf("%w: card %d", ErrNotFound, cardID)
			}
			return err
		}
		if err := mutate(card); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
		}
		return s.store.UpdateCardTx(ctx, tx, card)
	})
	if err != nil {
		return nil, err
	}
	if err := s.Mask(card); err != nil {
		return nil, err
	}
	s.log.Infof("Card %d status changed to %s by admin %d", card.ID, card.Status, identity.UserID)
	return card, nil
}

// Mask fills in the derived masked number from the card's encrypted PAN. A
// codec failure is fatal for the read and logged at error level.
func (s *CardService) Mask(card *models.Card) error {
	number, err := s.codec.Decrypt(card.EncryptedNumber)
	if err != nil {
		s.log.Errorf("Failed to decrypt number of card %d: %v", card.ID, err)
		return fmt.Errorf("%w: card %d", ErrDecryptFailed, card.ID)
	}
	card.MaskedNumber = secret.MaskNumber(number)
	return nil
}

// loadOwnedCard loads a card enforcing the non-leaking ownership rule: for a
// regular user a missing card and a foreign card produce the same ErrAccessDenied.
func (s *CardService) loadOwnedCard(ctx context.Context, identity models.Identity, cardID int64) (*models.Card, error) {
	card, err := s.store.FindCardByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			if identity.IsAdmin() {
				return nil, fmt.Errorf("%w: card %d", ErrNotFound, cardID)
			}
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	if card.UserID != identity.UserID && !identity.IsAdmin() {
		return nil, ErrAccessDenied
	}
	return card, nil
}
