package handler

import (
	"net/http"

	"github.com/E10-Naganiom/backOFraud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CategoryHandler interface {
	ListCategories(c *gin.Context)
	GetCategory(c *gin.Context)
	ListByRiskLevel(c *gin.Context)
}

type categoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
}

func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) CategoryHandler {
	return &categoryHandler{categoryService: categoryService, logger: logger}
}

func (h *categoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "retrieve categories", err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *categoryHandler) GetCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	category, err := h.categoryService.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "retrieve category", err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// ListByRiskLevel handles GET /risk-levels/:id/categories.
func (h *categoryHandler) ListByRiskLevel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	categories, err := h.categoryService.ListByRiskLevel(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "retrieve categories", err)
		return
	}
	c.JSON(http.StatusOK, categories)
}
