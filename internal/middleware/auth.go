package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Error codes returned by the guard in the "code" field.
const (
	CodeTokenMissing    = "token_missing"
	CodeTokenExpired    = "token_expired"
	CodeTokenInvalid    = "token_invalid"
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
)

// TokenVerifier checks access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (*models.UserProfile, error)
}

// UserLookup fetches the credential record behind an identity.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// FailureRecorder counts rejected requests by reason.
type FailureRecorder interface {
	AuthFailure(reason string)
}

// Guard authenticates every request according to the access level its
// route was registered with.
type Guard struct {
	routes   *RouteTable
	tokens   TokenVerifier
	users    UserLookup
	failures FailureRecorder
	logger   *zap.Logger
}

// NewGuard builds the guard. failures may be nil.
func NewGuard(routes *RouteTable, tokens TokenVerifier, users UserLookup, failures FailureRecorder, logger *zap.Logger) *Guard {
	return &Guard{
		routes:   routes,
		tokens:   tokens,
		users:    users,
		failures: failures,
		logger:   logger,
	}
}

// Handler must be installed on the engine before any route.
func (g *Guard) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		access := g.routes.Lookup(c.Request.Method, c.FullPath())
		if access == Public {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			g.reject(c, http.StatusUnauthorized, CodeTokenMissing, "Authorization header required")
			return
		}

		profile, err := g.tokens.VerifyAccess(token)
		if err != nil {
			code := classify(err)
			g.logger.Debug("Rejected access token", zap.String("code", code), zap.Error(err))
			g.reject(c, http.StatusUnauthorized, code, rejectionMessage(code))
			return
		}

		SetIdentity(c, *profile)

		if access == Admin && !g.authorizeAdmin(c, *profile) {
			return
		}

		c.Next()
	}
}

func (g *Guard) authorizeAdmin(c *gin.Context, profile models.UserProfile) bool {
	user, err := g.users.GetUserByID(c.Request.Context(), profile.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		g.logger.Error("Failed to load user for admin check", zap.Int64("user_id", profile.ID), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return false
	}
	if err != nil || !user.IsActive || !user.IsAdmin {
		g.logger.Warn("Denied admin route", zap.Int64("user_id", profile.ID), zap.String("path", c.FullPath()))
		g.reject(c, http.StatusForbidden, CodeForbidden, "Admin access required")
		return false
	}
	return true
}

func (g *Guard) reject(c *gin.Context, status int, code, message string) {
	if g.failures != nil {
		g.failures.AuthFailure(code)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

// bearerToken extracts the credential of an "Authorization: Bearer <token>"
// header. Any other scheme counts as no credential.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// classify maps a verification failure to the cause reported to clients.
func classify(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return CodeTokenInvalid
	default:
		return CodeUnauthenticated
	}
}

func rejectionMessage(code string) string {
	switch code {
	case CodeTokenExpired:
		return "Token expired"
	case CodeTokenInvalid:
		return "Invalid token"
	default:
		return "Unauthenticated"
	}
}

type identityCtxKey struct{}

const identityKey = "identity"

// SetIdentity attaches the verified profile to the gin context and to the
// request's context.Context.
func SetIdentity(c *gin.Context, profile models.UserProfile) {
	c.Set(identityKey, profile)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), identityCtxKey{}, profile))
}

// CurrentUser returns the identity attached by the guard.
func CurrentUser(c *gin.Context) (models.UserProfile, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.UserProfile{}, false
	}
	profile, ok := v.(models.UserProfile)
	return profile, ok
}

// IdentityFromContext returns the identity carried by a request context.
func IdentityFromContext(ctx context.Context) (models.UserProfile, bool) {
	profile, ok := ctx.Value(identityCtxKey{}).(models.UserProfile)
	return profile, ok
}
