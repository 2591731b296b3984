package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/E10-Naganiom/backOFraud/internal/crypto"
	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/repository"

	"go.uber.org/zap"
)

// UserService covers registration and the self-service account endpoints.
// Every method acting on an existing account only accepts the caller's own
// id.
type UserService interface {
	Register(ctx context.Context, input models.RegisterUserInput) (*models.User, error)
	UpdateSelf(ctx context.Context, identity models.UserProfile, id int64, input models.UpdateUserInput) (*models.User, error)
	DeactivateSelf(ctx context.Context, identity models.UserProfile, id int64) error
}

type userService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewUserService(users repository.UserRepository, logger *zap.Logger) UserService {
	return &userService{users: users, logger: logger}
}

func (s *userService) Register(ctx context.Context, input models.RegisterUserInput) (*models.User, error) {
	digest, err := crypto.HashPassword(input.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:          strings.TrimSpace(input.Email),
		Name:           strings.TrimSpace(input.Name),
		LastName:       strings.TrimSpace(input.LastName),
		PasswordHash:   digest.Encoded,
		PasswordScheme: digest.Scheme(),
		IsActive:       true,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *userService) UpdateSelf(ctx context.Context, identity models.UserProfile, id int64, input models.UpdateUserInput) (*models.User, error) {
	if identity.ID != id {
		return nil, ErrForbidden
	}
	return applyUserUpdate(ctx, s.users, s.logger, id, input, models.UserUpdate{})
}

func (s *userService) DeactivateSelf(ctx context.Context, identity models.UserProfile, id int64) error {
	if identity.ID != id {
		return ErrForbidden
	}

	inactive := false
	if _, err := s.users.UpdateUser(ctx, id, models.UserUpdate{IsActive: &inactive}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		s.logger.Error("Failed to deactivate user", zap.Int64("user_id", id), zap.Error(err))
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	s.logger.Info("User deactivated own account", zap.Int64("user_id", id))
	return nil
}

// UserAdminService reads and edits any account. It is only mounted on
// admin routes.
type UserAdminService interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, input models.AdminUpdateUserInput) (*models.User, error)
}

type userAdminService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewUserAdminService(users repository.UserRepository, logger *zap.Logger) UserAdminService {
	return &userAdminService{users: users, logger: logger}
}

func (s *userAdminService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *userAdminService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("Failed to get user", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userAdminService) UpdateUser(ctx context.Context, id int64, input models.AdminUpdateUserInput) (*models.User, error) {
	flags := models.UserUpdate{IsAdmin: input.IsAdmin, IsActive: input.IsActive}
	return applyUserUpdate(ctx, s.users, s.logger, id, input.UpdateUserInput, flags)
}

func applyUserUpdate(ctx context.Context, users repository.UserRepository, logger *zap.Logger,
	id int64, input models.UpdateUserInput, update models.UserUpdate) (*models.User, error) {
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		update.Email = &email
	}
	update.Name = input.Name
	update.LastName = input.LastName
	if input.Password != nil {
		digest, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		update.Password = &models.PasswordUpdate{Hash: digest.Encoded, Scheme: digest.Scheme()}
	}

	user, err := users.UpdateUser(ctx, id, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrUserAlreadyExists
		}
		logger.Error("Failed to update user", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}
