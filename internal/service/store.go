package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/avdeenkov/cardbank/internal/models"
)

// Store is the persistence contract the engine requires: load by id, save,
// atomic update. *repository.Repository implements it; tests substitute an
// in-memory fake. Methods taking *sql.Tx run inside a WithTransaction callback
// and form the unit of atomicity for transfers and block decisions.
type Store interface {
	WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error

	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)

	CreateCard(ctx context.Context, card *models.Card) error
	FindCardByID(ctx context.Context, id int64) (*models.Card, error)
	FindCardByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Card, error)
	FindCardsByUserID(ctx context.Context, userID int64) ([]*models.Card, error)
	UpdateCard(ctx context.Context, card *models.Card) error
	UpdateCardTx(ctx context.Context, tx *sql.Tx, card *models.Card) error
	ExpireCards(ctx context.Context, asOf time.Time) (int64, error)
	DeleteCardTx(ctx context.Context, tx *sql.Tx, id int64) error

	CreateTransferTx(ctx context.Context, tx *sql.Tx, t *models.Transfer) error
	FindTransfersByUserID(ctx context.Context, userID int64) ([]*models.Transfer, error)
	FindTransfersByCardID(ctx context.Context, cardID int64) ([]*models.Transfer, error)
	CardStats(ctx context.Context, cardID int64) (*models.CardStats, error)
	UserStats(ctx context.Context, userID int64) (*models.UserStats, error)
	DeleteTransfersByCardTx(ctx context.Context, tx *sql.Tx, cardID int64) error

	CreateBlockRequestTx(ctx context.Context, tx *sql.Tx, req *models.BlockRequest) error
	HasPendingBlockRequestTx(ctx context.Context, tx *sql.Tx, cardID int64) (bool, error)
	FindBlockRequestByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.BlockRequest, error)
	UpdateBlockRequestTx(ctx context.Context, tx *sql.Tx, req *models.BlockRequest) error
	FindBlockRequests(ctx context.Context, status *models.BlockRequestStatus) ([]*models.BlockRequest, error)
	CountPendingBlockRequests(ctx context.Context) (int64, error)
	FindCardIDsWithPendingRequests(ctx context.Context) ([]int64, error)
	DeleteBlockRequestsByCardTx(ctx context.Context, tx *sql.Tx, cardID int64) error
}

// Notifier delivers best-effort owner notifications. Failures are logged by
// the caller and never roll back a committed operation.
type Notifier interface {
	TransferCompleted(owner *models.User, transfer *models.Transfer, fromMasked, toMasked string) error
	BlockRequestDecided(owner *models.User, req *models.BlockRequest, maskedNumber string) error
}
