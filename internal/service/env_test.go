package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/avdeenkov/cardbank/internal/models"
	"github.com/avdeenkov/cardbank/internal/secret"
	"github.com/avdeenkov/cardbank/internal/service"
)

type env struct {
	store     *fakeStore
	codec     *secret.Codec
	notifier  *fakeNotifier
	auth      *service.AuthService
	cards     *service.CardService
	transfers *service.TransferService
	blocks    *service.BlockRequestService
	sweep     *service.SweepService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	codec, err := secret.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	store := newFakeStore()
	notifier := &fakeNotifier{}
	cards := service.NewCardService(store, codec, log)

	return &env{
		store:     store,
		codec:     codec,
		notifier:  notifier,
		auth:      service.NewAuthService(store, "test-secret", log),
		cards:     cards,
		transfers: service.NewTransferService(store, cards, notifier, log),
		blocks:    service.NewBlockRequestService(store, cards, notifier, log),
		sweep:     service.NewSweepService(store, log),
	}
}

func (e *env) addUser(t *testing.T, email, firstName, lastName string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      role,
	}
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user
}

type cardSpec struct {
	userID  int64
	pan     string
	cvv     string
	balance string
	status  models.CardStatus
	expires time.Time
}

func (e *env) addCard(t *testing.T, spec cardSpec) *models.Card {
	t.Helper()

	if spec.pan == "" {
		spec.pan = "4000001234567890"
	}
	if spec.cvv == "" {
		spec.cvv = "123"
	}
	if spec.status == "" {
		spec.status = models.CardStatusActive
	}
	if spec.expires.IsZero() {
		spec.expires = time.Now().AddDate(3, 0, 0)
	}

	encNumber, err := e.codec.Encrypt(spec.pan)
	require.NoError(t, err)
	encCVV, err := e.codec.Encrypt(spec.cvv)
	require.NoError(t, err)

	card := &models.Card{
		UserID:          spec.userID,
		EncryptedNumber: encNumber,
		Holder:          "Test Holder",
		ExpirationDate:  spec.expires,
		EncryptedCVV:    encCVV,
		Balance:         dec(spec.balance),
		Status:          spec.status,
	}
	require.NoError(t, e.store.CreateCard(context.Background(), card))
	return card
}

func (e *env) balance(t *testing.T, cardID int64) decimal.Decimal {
	t.Helper()
	card, err := e.store.FindCardByID(context.Background(), cardID)
	require.NoError(t, err)
	return card.Balance
}

func (e *env) status(t *testing.T, cardID int64) models.CardStatus {
	t.Helper()
	card, err := e.store.FindCardByID(context.Background(), cardID)
	require.NoError(t, err)
	return card.Status
}

func dec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}

func asUser(u *models.User) models.Identity {
	return models.Identity{UserID: u.ID, Role: u.Role}
}
