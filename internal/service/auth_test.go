package service_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librisapp/libris-server/internal/auth"
	"github.com/librisapp/libris-server/internal/errors"
	"github.com/librisapp/libris-server/internal/service"
	"github.com/librisapp/libris-server/internal/store"
)

func setupAuth(t *testing.T) *service.AuthService {
	t.Helper()

	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	tokens, err := auth.NewTokenService(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	return service.NewAuthService(s, tokens, slog.New(slog.DiscardHandler))
}

func TestCreateUser(t *testing.T) {
	svc := setupAuth(t)

	user, err := svc.CreateUser(context.Background(), service.CreateUserRequest{
		Username:      "reader",
		FavoriteGenre: "fantasy",
	})
	require.NoError(t, err)
	assert.Equal(t, "reader", user.Username)
	assert.Equal(t, "fantasy", user.FavoriteGenre)
	assert.NotEmpty(t, user.ID)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	svc := setupAuth(t)

	_, err := svc.CreateUser(context.Background(), service.CreateUserRequest{
		Username: "reader", FavoriteGenre: "fantasy",
	})
	require.NoError(t, err)

	_, err = svc.CreateUser(context.Background(), service.CreateUserRequest{
		Username: "reader", FavoriteGenre: "crime",
	})
	require.ErrorIs(t, err, errors.ErrBadUserInput)
}

func TestCreateUser_Validation(t *testing.T) {
	svc := setupAuth(t)

	_, err := svc.CreateUser(context.Background(), service.CreateUserRequest{Username: "reader"})
	require.ErrorIs(t, err, errors.ErrBadUserInput)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := setupAuth(t)

	_, err := svc.Login(context.Background(), "ghost", "secret")
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := setupAuth(t)

	_, err := svc.CreateUser(context.Background(), service.CreateUserRequest{
		Username: "reader", FavoriteGenre: "fantasy",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "reader", "hunter2")
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)
}

func TestLogin_TokenResolvesBackToUser(t *testing.T) {
	svc := setupAuth(t)

	created, err := svc.CreateUser(context.Background(), service.CreateUserRequest{
		Username: "reader", FavoriteGenre: "fantasy",
	})
	require.NoError(t, err)

	token, err := svc.Login(context.Background(), "reader", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	user, err := svc.ResolveToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Equal(t, "reader", user.Username)
}

func TestResolveToken_Garbage(t *testing.T) {
	svc := setupAuth(t)

	_, err := svc.ResolveToken(context.Background(), "v4.local.garbage")
	require.Error(t, err)
}
