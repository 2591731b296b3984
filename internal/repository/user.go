package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/E10-Naganiom/backOFraud/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const userColumns = `id, email, name, last_name, password_hash, password_salt, password_scheme, is_admin, is_active, created_at, updated_at`

// UserRepository is the credential store.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, id int64, update models.UserUpdate) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string, salt *string, scheme string) error
}

type userRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewUserRepository(db *sqlx.DB, logger *zap.Logger) UserRepository {
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (email, name, last_name, password_hash, password_salt, password_scheme, is_admin, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query, user.Email, user.Name, user.LastName, user.PasswordHash,
		user.PasswordSalt, user.PasswordScheme, user.IsAdmin, user.IsActive).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if uniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	users := []*models.User{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, id int64, update models.UserUpdate) (*models.User, error) {
	sets := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Email != nil {
		add("email", *update.Email)
	}
	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.LastName != nil {
		add("last_name", *update.LastName)
	}
	if update.IsAdmin != nil {
		add("is_admin", *update.IsAdmin)
	}
	if update.IsActive != nil {
		add("is_active", *update.IsActive)
	}
	if update.Password != nil {
		add("password_hash", update.Password.Hash)
		add("password_salt", nil)
		add("password_scheme", update.Password.Scheme)
	}

	if len(sets) == 0 {
		return r.GetUserByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = now() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	var user models.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if uniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, hash string, salt *string, scheme string) error {
	query := `UPDATE users SET password_hash = $1, password_salt = $2, password_scheme = $3, updated_at = now() WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, hash, salt, scheme, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	r.logger.Debug("Password digest replaced", zap.Int64("user_id", id), zap.String("scheme", scheme))
	return nil
}
