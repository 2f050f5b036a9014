package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepstack/keepstack-server/internal/auth"
	svcerrors "github.com/keepstack/keepstack-server/internal/errors"
	"github.com/keepstack/keepstack-server/internal/store"
	"github.com/keepstack/keepstack-server/internal/store/sqlite"
	"github.com/keepstack/keepstack-server/internal/validation"
)

// newTestDeps opens a throwaway store with a quiet logger for service tests.
func newTestDeps(t *testing.T) (store.Store, *slog.Logger) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, logger
}

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()

	s, logger := newTestDeps(t)

	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(key, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	return NewAuthService(s, tokens, validation.New(), logger)
}

func TestAuthService_SetupOnce(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	required, err := svc.SetupRequired(ctx)
	require.NoError(t, err)
	assert.True(t, required)

	resp, err := svc.Setup(ctx, SetupRequest{
		Email:       "Owner@Example.com",
		Password:    "correct horse battery",
		DisplayName: "Owner",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "owner@example.com", resp.User.Email)

	required, err = svc.SetupRequired(ctx)
	require.NoError(t, err)
	assert.False(t, required)

	// Second setup is rejected.
	_, err = svc.Setup(ctx, SetupRequest{
		Email:    "intruder@example.com",
		Password: "whatever else",
	})
	assert.ErrorIs(t, err, svcerrors.ErrAlreadyConfigured)
}

func TestAuthService_SetupValidation(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Setup(context.Background(), SetupRequest{
		Email:    "not-an-email",
		Password: "short",
	})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestAuthService_Login(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Setup(ctx, SetupRequest{
		Email:    "owner@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginRequest{
		Email:     "owner@example.com",
		Password:  "correct horse battery",
		IPAddress: "127.0.0.1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	claims, err := svc.VerifyAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	// Wrong password and unknown email produce the same error.
	_, err = svc.Login(ctx, LoginRequest{Email: "owner@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, svcerrors.ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, svcerrors.ErrInvalidCredentials)
}

func TestAuthService_RefreshRotation(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	setup, err := svc.Setup(ctx, SetupRequest{
		Email:    "owner@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: setup.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, setup.SessionID, refreshed.SessionID)
	assert.NotEqual(t, setup.RefreshToken, refreshed.RefreshToken)

	// The rotated-out token is dead.
	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: setup.RefreshToken})
	assert.ErrorIs(t, err, svcerrors.ErrUnauthorized)

	// The fresh one still works.
	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: refreshed.RefreshToken})
	require.NoError(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	setup, err := svc.Setup(ctx, SetupRequest{
		Email:    "owner@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, setup.RefreshToken))

	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: setup.RefreshToken})
	assert.ErrorIs(t, err, svcerrors.ErrUnauthorized)

	// Logout is idempotent.
	require.NoError(t, svc.Logout(ctx, setup.RefreshToken))
	require.NoError(t, svc.Logout(ctx, "never-issued"))
}

func TestAuthService_VerifyAccessTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.VerifyAccessToken("v4.local.garbage")
	assert.ErrorIs(t, err, svcerrors.ErrUnauthorized)
}
