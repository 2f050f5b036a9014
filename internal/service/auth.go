// Package service contains the application services sitting between the HTTP
// layer and the store. Services own orchestration and policy; the store owns
// transactions and SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/keepstack/keepstack-server/internal/auth"
	"github.com/keepstack/keepstack-server/internal/domain"
	svcerrors "github.com/keepstack/keepstack-server/internal/errors"
	"github.com/keepstack/keepstack-server/internal/id"
	"github.com/keepstack/keepstack-server/internal/store"
	"github.com/keepstack/keepstack-server/internal/validation"
)

// AuthService handles the single-owner authentication boundary: first-run
// setup, login, refresh rotation and logout.
type AuthService struct {
	store     store.Store
	tokens    *auth.TokenService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(st store.Store, tokens *auth.TokenService, validator *validation.Validator, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:     st,
		tokens:    tokens,
		validator: validator,
		logger:    logger,
	}
}

// SetupRequest contains the initial owner account data.
type SetupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

// LoginRequest contains owner credentials plus client metadata extracted by
// the handler.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

// RefreshRequest carries the opaque refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	UserAgent    string `json:"-"`
	IPAddress    string `json:"-"`
}

// AuthResponse contains the issued tokens and the owner account.
type AuthResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	SessionID    string       `json:"session_id"`
}

// SetupRequired reports whether the instance has no owner account yet.
func (s *AuthService) SetupRequired(ctx context.Context) (bool, error) {
	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count == 0, nil
}

// Setup creates the owner account. It can only succeed once: after the first
// user exists every further call fails with AlreadyConfigured.
func (s *AuthService) Setup(ctx context.Context, req SetupRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	required, err := s.SetupRequired(ctx)
	if err != nil {
		return nil, err
	}
	if !required {
		return nil, svcerrors.AlreadyConfigured("server is already configured")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("usr")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		ID:           userID,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: passwordHash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		// Setup raced with itself; whichever insert lost reports configured.
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, svcerrors.AlreadyConfigured("server is already configured")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	resp, err := s.issueSession(ctx, user, "", "")
	if err != nil {
		return nil, err
	}

	s.logger.Info("Server setup complete", "user_id", userID, "email", user.Email)
	return resp, nil
}

// Login authenticates the owner and opens a new refresh session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Don't leak whether the email exists.
			return nil, svcerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, svcerrors.InvalidCredentials("invalid email or password")
	}

	resp, err := s.issueSession(ctx, user, req.UserAgent, req.IPAddress)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", "user_id", user.ID, "ip", req.IPAddress)
	return resp, nil
}

// Refresh exchanges a valid refresh token for a new access token, rotating
// the refresh token in place. A rotated-out or revoked token never refreshes.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	sess, err := s.store.GetSessionByTokenHash(ctx, auth.HashRefreshToken(req.RefreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, svcerrors.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	now := time.Now().UTC()
	if sess.RevokedAt != nil {
		return nil, svcerrors.Unauthorized("session revoked")
	}
	if !now.Before(sess.ExpiresAt) {
		return nil, svcerrors.TokenExpired("refresh token expired")
	}

	user, err := s.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	expiresAt := now.Add(s.tokens.RefreshTokenDuration())
	if err := s.store.RotateSession(ctx, sess.ID, auth.HashRefreshToken(refreshToken), expiresAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, svcerrors.Unauthorized("session revoked")
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(s.tokens.AccessTokenDuration()),
		SessionID:    sess.ID,
	}, nil
}

// Logout revokes the session behind a refresh token. Unknown tokens are a
// no-op so logout stays idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	sess, err := s.store.GetSessionByTokenHash(ctx, auth.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup session: %w", err)
	}

	if err := s.store.RevokeSession(ctx, sess.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}

	s.logger.Info("User logged out", "session_id", sess.ID)
	return nil
}

// LogoutAll revokes every live session of the owner.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.store.RevokeUserSessions(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// CurrentUser returns the owner account behind an authenticated request.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// VerifyAccessToken validates a bearer token. Used by the auth middleware.
func (s *AuthService) VerifyAccessToken(tokenString string) (*auth.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, svcerrors.ErrUnauthorized.WithCause(err)
	}
	return claims, nil
}

// issueSession persists a fresh refresh session and mints both tokens.
func (s *AuthService) issueSession(ctx context.Context, user *domain.User, userAgent, ipAddress string) (*AuthResponse, error) {
	sessionID, err := id.Generate("ses")
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	sess := &domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: auth.HashRefreshToken(refreshToken),
		UserAgent:        userAgent,
		IPAddress:        ipAddress,
		ExpiresAt:        time.Now().UTC().Add(s.tokens.RefreshTokenDuration()),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(s.tokens.AccessTokenDuration()),
		SessionID:    sessionID,
	}, nil
}
