package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avdeenkov/cardbank/internal/models"
	"github.com/avdeenkov/cardbank/internal/repository"
)

// fakeStore is an in-memory service.Store. Reads hand out copies and writes
// store values, so a mutation that is never saved stays invisible, the same
// way an uncommitted row change would.
type fakeStore struct {
	users     map[int64]models.User
	cards     map[int64]models.Card
	transfers []models.Transfer
	requests  map[int64]models.BlockRequest

	nextUserID     int64
	nextCardID     int64
	nextTransferID int64
	nextRequestID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]models.User),
		cards:    make(map[int64]models.Card),
		requests: make(map[int64]models.BlockRequest),
	}
}

func (f *fakeStore) WithTransaction(_ context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	f.nextUserID++
	user.ID = f.nextUserID
	user.CreatedAt = time.Now()
	f.users[user.ID] = *user
	return nil
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, repository.ErrNoRows
}

func (f *fakeStore) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNoRows
	}
	user := u
	return &user, nil
}

func (f *fakeStore) CreateCard(_ context.Context, card *models.Card) error {
	f.nextCardID++
	card.ID = f.nextCardID
	card.CreatedAt = time.Now()
	card.UpdatedAt = card.CreatedAt
	f.cards[card.ID] = *card
	return nil
}

func (f *fakeStore) FindCardByID(_ context.Context, id int64) (*models.Card, error) {
	c, ok := f.cards[id]
	if !ok {
		return nil, repository.ErrNoRows
	}
	card := c
	return &card, nil
}

func (f *fakeStore) FindCardByIDForUpdate(ctx context.Context, _ *sql.Tx, id int64) (*models.Card, error) {
	return f.FindCardByID(ctx, id)
}

func (f *fakeStore) FindCardsByUserID(_ context.Context, userID int64) ([]*models.Card, error) {
	var cards []*models.Card
	for _, c := range f.cards {
		if c.UserID == userID {
			card := c
			cards = append(cards, &card)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID > cards[j].ID })
	return cards, nil
}

func (f *fakeStore) UpdateCard(_ context.Context, card *models.Card) error {
	if _, ok := f.cards[card.ID]; !ok {
		return repository.ErrNoRows
	}
	card.UpdatedAt = time.Now()
	f.cards[card.ID] = *card
	return nil
}

func (f *fakeStore) UpdateCardTx(ctx context.Context, _ *sql.Tx, card *models.Card) error {
	return f.UpdateCard(ctx, card)
}

func (f *fakeStore) ExpireCards(_ context.Context, asOf time.Time) (int64, error) {
	var count int64
	for id, c := range f.cards {
		if c.Status == models.CardStatusActive && c.ExpirationDate.Before(asOf) {
			c.Status = models.CardStatusExpired
			f.cards[id] = c
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) DeleteCardTx(_ context.Context, _ *sql.Tx, id int64) error {
	if _, ok := f.cards[id]; !ok {
		return repository.ErrNoRows
	}
	delete(f.cards, id)
	return nil
}

func (f *fakeStore) CreateTransferTx(_ context.Context, _ *sql.Tx, t *models.Transfer) error {
	f.nextTransferID++
	t.ID = f.nextTransferID
	t.TransferDate = time.Now()
	f.transfers = append(f.transfers, *t)
	return nil
}

func (f *fakeStore) FindTransfersByUserID(_ context.Context, userID int64) ([]*models.Transfer, error) {
	owned := make(map[int64]bool)
	for id, c := range f.cards {
		if c.UserID == userID {
			owned[id] = true
		}
	}
	var out []*models.Transfer
	for i := len(f.transfers) - 1; i >= 0; i-- {
		t := f.transfers[i]
		if owned[t.FromCardID] || owned[t.ToCardID] {
			out = append(out, &t)
		}
	}
	return out, nil
}

func (f *fakeStore) FindTransfersByCardID(_ context.Context, cardID int64) ([]*models.Transfer, error) {
	var out []*models.Transfer
	for i := len(f.transfers) - 1; i >= 0; i-- {
		t := f.transfers[i]
		if t.FromCardID == cardID || t.ToCardID == cardID {
			out = append(out, &t)
		}
	}
	return out, nil
}

func (f *fakeStore) CardStats(_ context.Context, cardID int64) (*models.CardStats, error) {
	stats := &models.CardStats{CardID: cardID, Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range f.transfers {
		if t.ToCardID == cardID {
			stats.Income = stats.Income.Add(t.Amount)
			stats.IncomingCount++
		}
		if t.FromCardID == cardID {
			stats.Expense = stats.Expense.Add(t.Amount)
			stats.OutgoingCount++
		}
	}
	return stats, nil
}

func (f *fakeStore) UserStats(_ context.Context, userID int64) (*models.UserStats, error) {
	stats := &models.UserStats{UserID: userID, Income: decimal.Zero, Expense: decimal.Zero}
	owned := make(map[int64]bool)
	for id, c := range f.cards {
		if c.UserID == userID {
			owned[id] = true
		}
	}
	for _, t := range f.transfers {
		if owned[t.ToCardID] {
			stats.Income = stats.Income.Add(t.Amount)
			stats.IncomingCount++
		}
		if owned[t.FromCardID] {
			stats.Expense = stats.Expense.Add(t.Amount)
			stats.OutgoingCount++
		}
	}
	return stats, nil
}

func (f *fakeStore) DeleteTransfersByCardTx(_ context.Context, _ *sql.Tx, cardID int64) error {
	kept := f.transfers[:0]
	for _, t := range f.transfers {
		if t.FromCardID != cardID && t.ToCardID != cardID {
			kept = append(kept, t)
		}
	}
	f.transfers = kept
	return nil
}

func (f *fakeStore) CreateBlockRequestTx(_ context.Context, _ *sql.Tx, req *models.BlockRequest) error {
	for _, r := range f.requests {
		if r.CardID == req.CardID && r.Status == models.BlockRequestPending {
			return fmt.Errorf("unique violation: pending request exists for card %d", req.CardID)
		}
	}
	f.nextRequestID++
	req.ID = f.nextRequestID
	req.CreatedAt = time.Now()
	f.requests[req.ID] = *req
	return nil
}

func (f *fakeStore) HasPendingBlockRequestTx(_ context.Context, _ *sql.Tx, cardID int64) (bool, error) {
	for _, r := range f.requests {
		if r.CardID == cardID && r.Status == models.BlockRequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) FindBlockRequestByIDForUpdate(_ context.Context, _ *sql.Tx, id int64) (*models.BlockRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, repository.ErrNoRows
	}
	req := r
	return &req, nil
}

func (f *fakeStore) UpdateBlockRequestTx(_ context.Context, _ *sql.Tx, req *models.BlockRequest) error {
	if _, ok := f.requests[req.ID]; !ok {
		return repository.ErrNoRows
	}
	f.requests[req.ID] = *req
	return nil
}

func (f *fakeStore) FindBlockRequests(_ context.Context, status *models.BlockRequestStatus) ([]*models.BlockRequest, error) {
	var out []*models.BlockRequest
	for _, r := range f.requests {
		if status == nil || r.Status == *status {
			req := r
			out = append(out, &req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) CountPendingBlockRequests(_ context.Context) (int64, error) {
	var count int64
	for _, r := range f.requests {
		if r.Status == models.BlockRequestPending {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) FindCardIDsWithPendingRequests(_ context.Context) ([]int64, error) {
	seen := make(map[int64]bool)
	for _, r := range f.requests {
		if r.Status == models.BlockRequestPending {
			seen[r.CardID] = true
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeStore) DeleteBlockRequestsByCardTx(_ context.Context, _ *sql.Tx, cardID int64) error {
	for id, r := range f.requests {
		if r.CardID == cardID {
			delete(f.requests, id)
		}
	}
	return nil
}

// fakeNotifier records notification calls.
type fakeNotifier struct {
	transfers []string
	decisions []string
}

func (n *fakeNotifier) TransferCompleted(owner *models.User, transfer *models.Transfer, fromMasked, toMasked string) error {
	n.transfers = append(n.transfers, fmt.Sprintf("%s:%s->%s", owner.Email, fromMasked, toMasked))
	return nil
}

func (n *fakeNotifier) BlockRequestDecided(owner *models.User, req *models.BlockRequest, maskedNumber string) error {
	n.decisions = append(n.decisions, fmt.Sprintf("%s:%s:%s", owner.Email, req.Status, maskedNumber))
	return nil
}
