package handler

import (
	"errors"
	"net/http"

	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginRecorder counts login outcomes.
type LoginRecorder interface {
	Login(outcome string)
}

type AuthHandler interface {
	Login(c *gin.Context)
	Refresh(c *gin.Context)
	Profile(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	logins      LoginRecorder
	logger      *zap.Logger
}

// NewAuthHandler creates the auth handler. logins may be nil.
func NewAuthHandler(authService service.AuthService, logins LoginRecorder, logger *zap.Logger) AuthHandler {
	return &authHandler{authService: authService, logins: logins, logger: logger}
}

// Login handles POST /auth/login. Wrong credentials answer 200 with an
// error body; existing clients depend on it.
func (h *authHandler) Login(c *gin.Context) {
	var req models.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Failed to bind login request", zap.Error(err))
		badRequest(c, err)
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.record("invalid_credentials")
			c.JSON(http.StatusOK, gin.H{"error": "Invalid credentials"})
			return
		}
		h.record("error")
		h.logger.Error("Failed to login user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to login"})
		return
	}

	h.record("success")
	c.JSON(http.StatusOK, pair)
}

// Refresh handles POST /auth/refresh.
func (h *authHandler) Refresh(c *gin.Context) {
	var req models.RefreshInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	access, err := h.authService.Refresh(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			c.JSON(http.StatusOK, gin.H{"error": "Invalid refresh token"})
			return
		}
		h.logger.Error("Failed to refresh token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": access})
}

// Profile handles GET /auth/profile and echoes the token's identity.
func (h *authHandler) Profile(c *gin.Context) {
	profile, ok := identity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *authHandler) record(outcome string) {
	if h.logins != nil {
		h.logins.Login(outcome)
	}
}
