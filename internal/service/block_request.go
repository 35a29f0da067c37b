package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avdeenkov/cardbank/internal/models"
	"github.com/avdeenkov/cardbank/internal/repository"
)

// BlockRequestService drives the user-initiated block request workflow and
// its admin approve/reject state machine.
type BlockRequestService struct {
	store    Store
	cards    *CardService
	notifier Notifier
	log      *logrus.Logger
}

// NewBlockRequestService initializes a new block request service. notifier
// may be nil when notifications are not configured.
func NewBlockRequestService(store Store, cards *CardService, notifier Notifier, log *logrus.Logger) *BlockRequestService {
	return &BlockRequestService{store: store, cards: cards, notifier: notifier, log: log}
}

// CreateBlockRequest files a PENDING request to block one of the caller's own
// cards. At most one PENDING request may exist per card.
func (s *BlockRequestService) CreateBlockRequest(ctx context.Context, identity models.Identity, cardID int64, reason string) (*models.BlockRequest, error) {
	card, err := s.cards.loadOwnedCard(ctx, identity, cardID)
	if err != nil {
		return nil, err
	}
	if card.UserID != identity.UserID {
		// Admins read foreign cards freely but block their own via requests
		// like everyone else.
		return nil, ErrAccessDenied
	}

	req := &models.BlockRequest{
		CardID: card.ID,
		UserID: identity.UserID,
		Reason: reason,
		Status: models.BlockRequestPending,
	}
	err = s.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		pending, err := s.store.HasPendingBlockRequestTx(ctx, tx, card.ID)
		if err != nil {
			return err
		}
		if pending {
			return fmt.Errorf("%w: You already have a pending block request for this card", ErrInvalidOperation)
		}
		return s.store.CreateBlockRequestTx(ctx, tx, req)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Block request %d created for card %d by user %d", req.ID, card.ID, identity.UserID)
	return req, nil
}

// ApproveBlockRequest transitions a PENDING request to APPROVED, stamps the
// processing admin, time and comment, and blocks the referenced card — all in
// one transaction. This is the only path by which a request affects card state.
func (s *BlockRequestService) ApproveBlockRequest(ctx context.Context, identity models.Identity, requestID int64, adminComment string) (*models.BlockRequest, error) {
	return s.decide(ctx, identity, requestID, adminComment, true)
}

// RejectBlockRequest transitions a PENDING request to REJECTED with no card
// state side effect.
func (s *BlockRequestService) RejectBlockRequest(ctx context.Context, identity models.Identity, requestID int64, adminComment string) (*models.BlockRequest, error) {
	return s.decide(ctx, identity, requestID, adminComment, false)
}

func (s *BlockRequestService) decide(ctx context.Context, identity models.Identity, requestID int64, adminComment string, approve bool) (*models.BlockRequest, error) {
	if !identity.IsAdmin() {
		return nil, ErrAccessDenied
	}

	verb := "rejected"
	if approve {
		verb = "approved"
	}

	var req *models.BlockRequest
	err := s.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		req, err = s.store.FindBlockRequestByIDForUpdate(ctx, tx, requestID)
		if err != nil {
			if errors.Is(err, repository.ErrNoRows) {
				return fmt.Errorf("%w: block request %d", ErrNotFound, requestID)
			}
			return err
		}
		if !req.IsPending() {
			return fmt.Errorf("%w: Only pending requests can be %s", ErrInvalidOperation, verb)
		}

		if approve {
			card, err := s.store.FindCardByIDForUpdate(ctx, tx, req.CardID)
			if err != nil {
				if errors.Is(err, repository.ErrNoRows) {
					return fmt.Errorf("%w: card %d", ErrNotFound, req.CardID)
				}
				return err
			}
			if err := card.Block(); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
			}
			if err := s.store.UpdateCardTx(ctx, tx, card); err != nil {
				return err
			}
			req.Status = models.BlockRequestApproved
		} else {
			req.Status = models.BlockRequestRejected
		}

		now := time.Now()
		req.ProcessedBy = &identity.UserID
		req.ProcessedAt = &now
		req.AdminComment = &adminComment
		return s.store.UpdateBlockRequestTx(ctx, tx, req)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Block request %d %s by admin %d", req.ID, verb, identity.UserID)
	s.notifyDecision(ctx, req)
	return req, nil
}

func (s *BlockRequestService) notifyDecision(ctx context.Context, req *models.BlockRequest) {
	if s.notifier == nil {
		return
	}
	owner, err := s.store.FindUserByID(ctx, req.UserID)
	if err != nil {
		s.log.Errorf("Failed to load user %d for block decision notification: %v", req.UserID, err)
		return
	}
	card, err := s.store.FindCardByID(ctx, req.CardID)
	if err != nil {
		s.log.Errorf("Failed to load card %d for block decision notification: %v", req.CardID, err)
		return
	}
	if err := s.cards.Mask(card); err != nil {
		return
	}
	if err := s.notifier.BlockRequestDecided(owner, req, card.MaskedNumber); err != nil {
		s.log.Errorf("Failed to send block decision notification to %s: %v", owner.Email, err)
	}
}

// ListBlockRequests returns all requests, optionally filtered by status.
// Admin only.
func (s *BlockRequestService) ListBlockRequests(ctx context.Context, identity models.Identity, status *models.BlockRequestStatus) ([]*models.BlockRequest, error) {
	if !identity.IsAdmin() {
		return nil, ErrAccessDenied
	}
	return s.store.FindBlockRequests(ctx, status)
}

// PendingCount returns the number of PENDING requests, for notification
// badges. Admin only.
func (s *BlockRequestService) PendingCount(ctx context.Context, identity models.Identity) (int64, error) {
	if !identity.IsAdmin() {
		return 0, ErrAccessDenied
	}
	return s.store.CountPendingBlockRequests(ctx)
}

// CardsWithPendingRequests returns the cards that have at least one PENDING
// request, deduplicated by card id. Admin only.
func (s *BlockRequestService) CardsWithPendingRequests(ctx context.Context, identity models.Identity) ([]*models.Card, error) {
	if !identity.IsAdmin() {
		return nil, ErrAccessDenied
	}
	ids, err := s.store.FindCardIDsWithPendingRequests(ctx)
	if err != nil {
		return nil, err
	}
	cards := make([]*models.Card, 0, len(ids))
	for _, id := range ids {
		card, err := s.store.FindCardByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNoRows) {
				continue
			}
			return nil, err
		}
		if err := s.cards.Mask(card); err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}
