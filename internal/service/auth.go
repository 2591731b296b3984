package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/E10-Naganiom/backOFraud/internal/crypto"
	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/repository"

	"go.uber.org/zap"
)

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	// Refresh exchanges a refresh token for a new access token. The refresh
	// token itself is not rotated.
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type authService struct {
	users  repository.UserRepository
	tokens *TokenService
	verify func(password string, digest crypto.Digest) bool
	logger *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens *TokenService, logger *zap.Logger) AuthService {
	return &authService{
		users:  users,
		tokens: tokens,
		verify: crypto.VerifyPassword,
		logger: logger,
	}
}

// dummyDigest stands in for the stored digest when there is none, so a
// failed login costs one argon2id run whether or not the email exists.
var dummyDigest = sync.OnceValue(func() crypto.Digest {
	digest, err := crypto.HashPassword("dummy-password-for-unknown-users")
	if err != nil {
		return nil
	}
	return digest
})

func (s *authService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.verify(password, dummyDigest())
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Failed to get user by email", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	digest, err := crypto.DigestFromRecord(user.PasswordScheme, user.PasswordHash, user.PasswordSalt)
	if err != nil {
		s.logger.Error("Stored password digest is unusable", zap.Int64("user_id", user.ID), zap.Error(err))
		s.verify(password, dummyDigest())
		return nil, ErrInvalidCredentials
	}

	if !s.verify(password, digest) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.logger.Info("Login attempt for inactive user", zap.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	if crypto.NeedsRehash(digest) {
		s.migrateHash(ctx, user, password)
	}

	profile := user.Profile()
	access, err := s.tokens.IssueAccess(profile)
	if err != nil {
		s.logger.Error("Failed to generate access token", zap.Error(err))
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(profile)
	if err != nil {
		s.logger.Error("Failed to generate refresh token", zap.Error(err))
		return nil, err
	}

	s.logger.Info("User logged in successfully.", zap.Int64("user_id", user.ID))
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// migrateHash replaces an outdated digest right after it verified. Failing
// to persist the new digest leaves the old one in place and the login
// proceeds.
func (s *authService) migrateHash(ctx context.Context, user *models.User, password string) {
	digest, err := crypto.HashPassword(password)
	if err != nil {
		s.logger.Warn("Failed to rehash password", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}

	if err := s.users.UpdatePassword(ctx, user.ID, digest.Encoded, nil, digest.Scheme()); err != nil {
		s.logger.Warn("Failed to persist migrated password digest",
			zap.Int64("user_id", user.ID), zap.String("from_scheme", user.PasswordScheme), zap.Error(err))
		return
	}

	s.logger.Info("Migrated password digest",
		zap.Int64("user_id", user.ID), zap.String("from_scheme", user.PasswordScheme))
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.Debug("Rejected refresh token", zap.Error(err))
		return "", ErrInvalidRefreshToken
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidRefreshToken
		}
		s.logger.Error("Failed to get user for refresh", zap.Int64("user_id", userID), zap.Error(err))
		return "", fmt.Errorf("failed to retrieve user: %w", err)
	}
	if !user.IsActive {
		return "", ErrInvalidRefreshToken
	}

	access, err := s.tokens.IssueAccess(user.Profile())
	if err != nil {
		s.logger.Error("Failed to generate access token", zap.Error(err))
		return "", err
	}
	return access, nil
}
