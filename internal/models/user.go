package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the credential record owned by the users table.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Name           string    `db:"name" json:"name"`
	LastName       string    `db:"last_name" json:"last_name"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	PasswordSalt   *string   `db:"password_salt" json:"-"`
	PasswordScheme string    `db:"password_scheme" json:"-"`
	IsAdmin        bool      `db:"is_admin" json:"is_admin"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Profile returns the identity claim minted into access tokens.
func (u *User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Email: u.Email, Name: u.Name}
}

// UserProfile is the identity embedded in access tokens and attached to
// authenticated requests.
type UserProfile struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TokenType discriminates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims defines the structure of the JWT claims. Profile is only present
// on access tokens.
type Claims struct {
	Type    TokenType    `json:"type"`
	Profile *UserProfile `json:"profile,omitempty"`
	jwt.RegisteredClaims
}

// UserUpdate carries the optional fields of a profile update. Nil means
// "leave unchanged".
type UserUpdate struct {
	Email    *string
	Name     *string
	LastName *string
	IsAdmin  *bool
	IsActive *bool
	// Password replaces the stored digest and clears the legacy salt.
	Password *PasswordUpdate
}

// PasswordUpdate is an already hashed password.
type PasswordUpdate struct {
	Hash   string
	Scheme string
}

type RegisterUserInput struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	LastName string `json:"last_name" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type UpdateUserInput struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Name     *string `json:"name"`
	LastName *string `json:"last_name"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}

// AdminUpdateUserInput extends UpdateUserInput with the flags only an
// administrator may change.
type AdminUpdateUserInput struct {
	UpdateUserInput
	IsAdmin  *bool `json:"is_admin"`
	IsActive *bool `json:"is_active"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshInput struct {
	Token string `json:"token" binding:"required"`
}
