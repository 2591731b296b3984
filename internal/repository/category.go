package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/E10-Naganiom/backOFraud/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const categorySelect = `SELECT c.id, c.title, c.description, c.risk_level_id, r.description AS risk_level,
	c.signals, c.prevention, c.actions, c.examples
	FROM categories c JOIN risk_levels r ON r.id = c.risk_level_id`

type CategoryRepository interface {
	GetAllCategories(ctx context.Context) ([]*models.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
	GetCategoriesByRiskLevel(ctx context.Context, riskLevelID int64) ([]*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
}

type categoryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewCategoryRepository(db *sqlx.DB, logger *zap.Logger) CategoryRepository {
	return &categoryRepository{db: db, logger: logger}
}

func (r *categoryRepository) GetAllCategories(ctx context.Context) ([]*models.Category, error) {
	categories := []*models.Category{}
	if err := r.db.SelectContext(ctx, &categories, categorySelect+` ORDER BY c.id`); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	if err := r.db.GetContext(ctx, &category, categorySelect+` WHERE c.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) GetCategoriesByRiskLevel(ctx context.Context, riskLevelID int64) ([]*models.Category, error) {
	categories := []*models.Category{}
	query := categorySelect + ` WHERE c.risk_level_id = $1 ORDER BY c.id`
	if err := r.db.SelectContext(ctx, &categories, query, riskLevelID); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `INSERT INTO categories (title, description, risk_level_id, signals, prevention, actions, examples)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, category.Title, category.Description, category.RiskLevelID,
		category.Signals, category.Prevention, category.Actions, category.Examples).Scan(&category.ID)
	if err != nil {
		if uniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
