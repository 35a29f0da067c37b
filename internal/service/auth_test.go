package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avdeenkov/cardbank/internal/middleware"
	"github.com/avdeenkov/cardbank/internal/models"
	"github.com/avdeenkov/cardbank/internal/service"
)

func TestAuth_RegisterAndLogin(t *testing.T) {
	e := newEnv(t)

	user, err := e.auth.Register(context.Background(), "ivan@example.com", "Ivan", "Petrov", "s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role, "empty role defaults to USER")
	assert.NotEqual(t, "s3cret", user.PasswordHash, "password is stored hashed")

	t.Run("duplicate email", func(t *testing.T) {
		_, err := e.auth.Register(context.Background(), "ivan@example.com", "Ivan", "Petrov", "other", "")
		assert.ErrorIs(t, err, service.ErrAlreadyExists)
	})

	token, err := e.auth.Login(context.Background(), "ivan@example.com", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	t.Run("token round-trips through the middleware parser", func(t *testing.T) {
		identity, err := middleware.ParseToken(token, "test-secret")
		require.NoError(t, err)
		assert.Equal(t, user.ID, identity.UserID)
		assert.Equal(t, models.RoleUser, identity.Role)
		assert.False(t, identity.IsAdmin())
	})

	t.Run("token rejected with the wrong secret", func(t *testing.T) {
		_, err := middleware.ParseToken(token, "other-secret")
		assert.Error(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := e.auth.Login(context.Background(), "ivan@example.com", "nope")
		assert.ErrorIs(t, err, service.ErrAccessDenied)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := e.auth.Login(context.Background(), "ghost@example.com", "s3cret")
		assert.ErrorIs(t, err, service.ErrAccessDenied)
	})
}

func TestAuth_AdminTokenCarriesRole(t *testing.T) {
	e := newEnv(t)

	_, err := e.auth.Register(context.Background(), "admin@example.com", "Ada", "Admin", "s3cret", models.RoleAdmin)
	require.NoError(t, err)

	token, err := e.auth.Login(context.Background(), "admin@example.com", "s3cret")
	require.NoError(t, err)

	identity, err := middleware.ParseToken(token, "test-secret")
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin())
}
