package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/E10-Naganiom/backOFraud/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and verifies HS256 access and refresh tokens. The
// secret is fixed at construction; replacing it invalidates every token
// already handed out.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

type TokenOption func(*TokenService)

// WithClock overrides the wall clock used for iat/exp and for verification.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	s := &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// IssueAccess mints an access token carrying the profile claim.
func (s *TokenService) IssueAccess(profile models.UserProfile) (string, error) {
	p := profile
	return s.sign(&models.Claims{
		Type:             models.TokenTypeAccess,
		Profile:          &p,
		RegisteredClaims: s.registered(profile.ID, s.accessTTL),
	})
}

// IssueRefresh mints a refresh token. It only carries the subject.
func (s *TokenService) IssueRefresh(profile models.UserProfile) (string, error) {
	return s.sign(&models.Claims{
		Type:             models.TokenTypeRefresh,
		RegisteredClaims: s.registered(profile.ID, s.refreshTTL),
	})
}

// VerifyAccess returns the profile embedded in a valid access token.
func (s *TokenService) VerifyAccess(token string) (*models.UserProfile, error) {
	claims, err := s.verify(token, models.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	if claims.Profile == nil || strconv.FormatInt(claims.Profile.ID, 10) != claims.Subject {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, jwt.ErrTokenInvalidClaims)
	}
	return claims.Profile, nil
}

// VerifyRefresh returns the user id carried by a valid refresh token.
func (s *TokenService) VerifyRefresh(token string) (int64, error) {
	claims, err := s.verify(token, models.TokenTypeRefresh)
	if err != nil {
		return 0, err
	}
	return subjectID(claims)
}

func (s *TokenService) verify(token string, want models.TokenType) (*models.Claims, error) {
	claims := &models.Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenTypeMismatch)
	}
	return claims, nil
}

func (s *TokenService) registered(userID int64, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *TokenService) sign(claims *models.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func subjectID(claims *models.Claims) (int64, error) {
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, jwt.ErrTokenInvalidSubject)
	}
	return id, nil
}
