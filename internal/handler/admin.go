package handler

import (
	"net/http"
	"strconv"

	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler serves the /admin routes. The auth guard has already checked
// that the caller is an active administrator.
type AdminHandler interface {
	ListUsers(c *gin.Context)
	GetUser(c *gin.Context)
	UpdateUser(c *gin.Context)
	ListIncidents(c *gin.Context)
	GetIncident(c *gin.Context)
	EvaluateIncident(c *gin.Context)
	CreateCategory(c *gin.Context)
}

type adminHandler struct {
	users      service.UserAdminService
	incidents  service.IncidentAdminService
	categories service.CategoryService
	logger     *zap.Logger
}

func NewAdminHandler(users service.UserAdminService, incidents service.IncidentAdminService, categories service.CategoryService, logger *zap.Logger) AdminHandler {
	return &adminHandler{
		users:      users,
		incidents:  incidents,
		categories: categories,
		logger:     logger,
	}
}

func (h *adminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "retrieve users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *adminHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "retrieve user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *adminHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.AdminUpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, "update user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListIncidents handles GET /admin/incidents with an optional ?status=
// filter.
func (h *adminHandler) ListIncidents(c *gin.Context) {
	var statusID *int64
	if raw := c.Query("status"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status", "code": "validation_failed"})
			return
		}
		statusID = &id
	}

	incidents, err := h.incidents.ListIncidents(c.Request.Context(), statusID)
	if err != nil {
		respondError(c, h.logger, "retrieve incidents", err)
		return
	}
	c.JSON(http.StatusOK, incidents)
}

func (h *adminHandler) GetIncident(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	incident, err := h.incidents.GetIncident(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "retrieve incident", err)
		return
	}
	c.JSON(http.StatusOK, incident)
}

// EvaluateIncident handles PATCH /admin/incidents/:id/evaluate.
func (h *adminHandler) EvaluateIncident(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.EvaluateIncidentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	incident, err := h.incidents.EvaluateIncident(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, "evaluate incident", err)
		return
	}
	c.JSON(http.StatusOK, incident)
}

func (h *adminHandler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	category, err := h.categories.CreateCategory(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "create category", err)
		return
	}
	c.JSON(http.StatusCreated, category)
}
