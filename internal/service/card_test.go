package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avdeenkov/cardbank/internal/models"
	"github.com/avdeenkov/cardbank/internal/service"
)

func TestCardService_CreateCard(t *testing.T) {
	e := newEnv(t)
	owner := e.addUser(t, "ivan@example.com", "Ivan", "Petrov", models.RoleUser)

	card, err := e.cards.CreateCard(context.Background(), asUser(owner), service.CreateCardParams{
		UserID:         owner.ID,
		InitialBalance: dec("250.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, owner.ID, card.UserID)
	assert.Equal(t, "Ivan Petrov", card.Holder)
	assert.Equal(t, models.CardStatusActive, card.Status)
	assert.True(t, card.Balance.Equal(dec("250.00")))
	assert.True(t, card.ExpirationDate.After(time.Now()))

	// Only ciphertext at rest, only the masked form in the response.
	assert.NotEmpty(t, card.EncryptedNumber)
	assert.NotEmpty(t, card.EncryptedCVV)
	assert.Regexp(t, `^\*\*\*\* \*\*\*\* \*\*\*\* \d{4}$`, card.MaskedNumber)

	pan, err := e.codec.Decrypt(card.EncryptedNumber)
	require.NoError(t, err)
	assert.Len(t, pan, 16)
	assert.NotContains(t, card.MaskedNumber, pan[:12])

	t.Run("user cannot issue for someone else", func(t *testing.T) {
		other := e.addUser(t, "anna@example.com", "Anna", "Orlova", models.RoleUser)
		_, err := e.cards.CreateCard(context.Background(), asUser(other), service.CreateCardParams{UserID: owner.ID})
		assert.ErrorIs(t, err, service.ErrAccessDenied)
	})

	t.Run("admin issues for any user", func(t *testing.T) {
		admin := e.addUser(t, "admin@example.com", "Ada", "Admin", models.RoleAdmin)
		card, err := e.cards.CreateCard(context.Background(), asUser(admin), service.CreateCardParams{UserID: owner.ID})
		require.NoError(t, err)
		assert.Equal(t, owner.ID, card.UserID)
	})

	t.Run("negative initial balance", func(t *testing.T) {
		_, err := e.cards.CreateCard(context.Background(), asUser(owner), service.CreateCardParams{
			UserID:         owner.ID,
			InitialBalance: dec("-1.00"),
		})
		assert.ErrorIs(t, err, service.ErrInvalidOperation)
	})

	t.Run("unknown user", func(t *testing.T) {
		admin := e.addUser(t, "admin2@example.com", "Bea", "Admin", models.RoleAdmin)
		_, err := e.cards.CreateCard(context.Background(), asUser(admin), service.CreateCardParams{UserID: 9999})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestCardService_GetCard(t *testing.T) {
	e := newEnv(t)
	owner := e.addUser(t, "ivan@example.com", "Ivan", "Petrov", models.RoleUser)
	other := e.addUser(t, "anna@example.com", "Anna", "Orlova", models.RoleUser)
	admin := e.addUser(t, "admin@example.com", "Ada", "Admin", models.RoleAdmin)
	card := e.addCard(t, cardSpec{userID: owner.ID, pan: "4000001234567890", balance: "10.00"})

	got, err := e.cards.GetCard(context.Background(), asUser(owner), card.ID)
	require.NoError(t, err)
	assert.Equal(t, "**** **** **** 7890", got.MaskedNumber)

	t.Run("foreign card and missing card are indistinguishable", func(t *testing.T) {
		_, errForeign := e.cards.GetCard(context.Background(), asUser(other), card.ID)
		_, errMissing := e.cards.GetCard(context.Background(), asUser(other), 9999)
		assert.ErrorIs(t, errForeign, service.ErrAccessDenied)
		assert.Equal(t, errForeign, errMissing)
	})

	t.Run("admin sees any card, missing is NotFound", func(t *testing.T) {
		_, err := e.cards.GetCard(context.Background(), asUser(admin), card.ID)
		assert.NoError(t, err)
		_, err = e.cards.GetCard(context.Background(), asUser(admin), 9999)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestCardService_ListCards(t *testing.T) {
	e := newEnv(t)
	owner := e.addUser(t, "ivan@example.com", "Ivan", "Petrov", models.RoleUser)
	other := e.addUser(t, "anna@example.com", "Anna", "Orlova", models.RoleUser)
	e.addCard(t, cardSpec{userID: owner.ID, balance: "1.00"})
	e.addCard(t, cardSpec{userID: owner.ID, balance: "2.00", pan: "4000009999990001"})
	e.addCard(t, cardSpec{userID: other.ID, balance: "3.00", pan: "4000009999990002"})

	cards, err := e.cards.ListCards(context.Background(), asUser(owner), owner.ID)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	for _, c := range cards {
		assert.NotEmpty(t, c.MaskedNumber)
	}

	_, err = e.cards.ListCards(context.Background(), asUser(owner), other.ID)
	assert.ErrorIs(t, err, service.ErrAccessDenied)
}

func TestCardService_Transitions(t *testing.T) {
	e := newEnv(t)
	owner := e.addUser(t, "ivan@example.com", "Ivan", "Petrov", models.RoleUser)
	admin := e.addUser(t, "admin@example.com", "Ada", "Admin", models.RoleAdmin)
	card := e.addCard(t, cardSpec{userID: owner.ID, balance: "0"})

	t.Run("admin only", func(t *testing.T) {
		_, err := e.cards.BlockCard(context.Background(), asUser(owner), card.ID)
		assert.ErrorIs(t, err, service.ErrAccessDenied)
	})

	blocked, err := e.cards.BlockCard(context.Background(), asUser(admin), card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CardStatusBlocked, blocked.Status)

	t.Run("blocking twice fails", func(t *testing.T) {
		_, err := e.cards.BlockCard(context.Background(), asUser(admin), card.ID)
		assert.ErrorIs(t, err, service.ErrInvalidOperation)
	})

	activated, err := e.cards.ActivateCard(context.Background(), asUser(admin), card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CardStatusActive, activated.Status)

	t.Run("expired card is terminal", func(t *testing.T) {
		expired := e.addCard(t, cardSpec{userID: owner.ID, pan: "4000009999990001", status: models.CardStatusExpired})
		_, err := e.cards.BlockCard(context.Background(), asUser(admin), expired.ID)
		assert.ErrorIs(t, err, service.ErrInvalidOperation)
		_, err = e.cards.ActivateCard(context.Background(), asUser(admin), expired.ID)
		assert.ErrorIs(t, err, service.ErrInvalidOperation)
	})
}

func TestCardService_UpdateCardRefreshesHolder(t *testing.T) {
	e := newEnv(t)
	owner := e.addUser(t, "ivan@example.com", "Ivan", "Petrov", models.RoleUser)
	card := e.addCard(t, cardSpec{userID: owner.ID, balance: "0"})

	stored := e.store.users[owner.ID]
	stored.LastName = "Sidorov"
	e.store.users[owner.ID] = stored

	updated, err := e.cards.UpdateCard(context.Background(), asUser(owner), card.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ivan Sidorov", updated.Holder)
}

func TestCardService_DeleteCard(t *testing.T) {
	e := newEnv(t)
	owner := e.addUser(t, "ivan@example.com", "Ivan", "Petrov", models.RoleUser)
	admin := e.addUser(t, "admin@example.com", "Ada", "Admin", models.RoleAdmin)
	card := e.addCard(t, cardSpec{userID: owner.ID, balance: "100.00"})
	peer := e.addCard(t, cardSpec{userID: owner.ID, balance: "100.00", pan: "4000009999990001"})

	_, err := e.transfers.Transfer(context.Background(), asUser(owner), card.ID, peer.ID, dec("10.00"), "", "")
	require.NoError(t, err)
	_, err = e.blocks.CreateBlockRequest(context.Background(), asUser(owner), card.ID, "lost")
	require.NoError(t, err)

	t.Run("admin only", func(t *testing.T) {
		err := e.cards.DeleteCard(context.Background(), asUser(owner), card.ID)
		assert.ErrorIs(t, err, service.ErrAccessDenied)
	})

	require.NoError(t, e.cards.DeleteCard(context.Background(), asUser(admin), card.ID))

	_, err = e.store.FindCardByID(context.Background(), card.ID)
	assert.Error(t, err)
	assert.Empty(t, e.store.transfers, "transfers referencing the card are removed")
	assert.Empty(t, e.store.requests, "block requests referencing the card are removed")

	t.Run("deleting a missing card", func(t *testing.T) {
		err := e.cards.DeleteCard(context.Background(), asUser(admin), 9999)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestCardService_DecryptFailureIsFatal(t *testing.T) {
	e := newEnv(t)
	owner := e.addUser(t, "ivan@example.com", "Ivan", "Petrov", models.RoleUser)
	card := e.addCard(t, cardSpec{userID: owner.ID, balance: "0"})

	stored := e.store.cards[card.ID]
	stored.EncryptedNumber = "not-even-hex"
	e.store.cards[card.ID] = stored

	_, err := e.cards.GetCard(context.Background(), asUser(owner), card.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrDecryptFailed)
}
