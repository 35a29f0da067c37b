package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avdeenkov/cardbank/internal/models"
)

func TestSweep(t *testing.T) {
	e := newEnv(t)
	owner := e.addUser(t, "ivan@example.com", "Ivan", "Petrov", models.RoleUser)
	now := time.Now()

	expired := e.addCard(t, cardSpec{userID: owner.ID, expires: now.AddDate(0, 0, -1)})
	fresh := e.addCard(t, cardSpec{userID: owner.ID, pan: "4000009999990001", expires: now.AddDate(1, 0, 0)})
	blocked := e.addCard(t, cardSpec{userID: owner.ID, pan: "4000009999990002",
		status: models.CardStatusBlocked, expires: now.AddDate(0, 0, -1)})

	count, err := e.sweep.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(1))

	assert.Equal(t, models.CardStatusExpired, e.status(t, expired.ID))
	assert.Equal(t, models.CardStatusActive, e.status(t, fresh.ID))
	// Blocked cards never expire; an admin has to reactivate them first.
	assert.Equal(t, models.CardStatusBlocked, e.status(t, blocked.ID))

	t.Run("idempotent", func(t *testing.T) {
		count, err := e.sweep.Sweep(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}
