package handler

import (
	"net/http"

	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler interface {
	Register(c *gin.Context)
	UpdateUser(c *gin.Context)
	Inactivate(c *gin.Context)
}

type userHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService service.UserService, logger *zap.Logger) UserHandler {
	return &userHandler{userService: userService, logger: logger}
}

// Register handles POST /users.
func (h *userHandler) Register(c *gin.Context) {
	var req models.RegisterUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "register user", err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// UpdateUser handles PUT /users/:id for the caller's own account.
func (h *userHandler) UpdateUser(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.UpdateSelf(c.Request.Context(), caller, id, req)
	if err != nil {
		respondError(c, h.logger, "update user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Inactivate handles PATCH /users/:id/inactivate.
func (h *userHandler) Inactivate(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.userService.DeactivateSelf(c.Request.Context(), caller, id); err != nil {
		respondError(c, h.logger, "inactivate user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User inactivated"})
}
