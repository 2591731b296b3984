package service

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrForbidden           = errors.New("forbidden")
	ErrValidation          = errors.New("validation failed")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrCategoryExists      = errors.New("category already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrTooManyEvidence     = errors.New("too many evidence files")

	// ErrInvalidToken is the single kind returned by token verification.
	// The cause is joined to it and only inspected by the auth guard.
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenTypeMismatch = errors.New("token type mismatch")
)
