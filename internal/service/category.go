package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/repository"

	"go.uber.org/zap"
)

type CategoryService interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListByRiskLevel(ctx context.Context, riskLevelID int64) ([]*models.Category, error)
	CreateCategory(ctx context.Context, input models.CreateCategoryInput) (*models.Category, error)
}

type categoryService struct {
	categories repository.CategoryRepository
	logger     *zap.Logger
}

func NewCategoryService(categories repository.CategoryRepository, logger *zap.Logger) CategoryService {
	return &categoryService{categories: categories, logger: logger}
}

func (s *categoryService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.categories.GetAllCategories(ctx)
	if err != nil {
		s.logger.Error("Failed to get categories", zap.Error(err))
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	category, err := s.categories.GetCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("Failed to get category", zap.Int64("category_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

func (s *categoryService) ListByRiskLevel(ctx context.Context, riskLevelID int64) ([]*models.Category, error) {
	if riskLevelID < models.MinRiskLevel || riskLevelID > models.MaxRiskLevel {
		return nil, fmt.Errorf("%w: risk level must be between %d and %d", ErrValidation, models.MinRiskLevel, models.MaxRiskLevel)
	}
	categories, err := s.categories.GetCategoriesByRiskLevel(ctx, riskLevelID)
	if err != nil {
		s.logger.Error("Failed to get categories by risk level", zap.Int64("risk_level_id", riskLevelID), zap.Error(err))
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) CreateCategory(ctx context.Context, input models.CreateCategoryInput) (*models.Category, error) {
	if input.RiskLevelID < models.MinRiskLevel || input.RiskLevelID > models.MaxRiskLevel {
		return nil, fmt.Errorf("%w: risk level must be between %d and %d", ErrValidation, models.MinRiskLevel, models.MaxRiskLevel)
	}

	category := &models.Category{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		RiskLevelID: input.RiskLevelID,
		Signals:     input.Signals,
		Prevention:  input.Prevention,
		Actions:     input.Actions,
		Examples:    input.Examples,
	}
	if err := s.categories.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		s.logger.Error("Failed to create category", zap.Error(err))
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("Category created", zap.Int64("category_id", category.ID))
	return category, nil
}
