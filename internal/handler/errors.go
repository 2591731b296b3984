package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/E10-Naganiom/backOFraud/internal/middleware"
	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError translates service errors to HTTP responses. Unexpected
// errors are logged with the failed action and hidden from the client.
func respondError(c *gin.Context, logger *zap.Logger, action string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrTooManyEvidence):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_failed"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden", "code": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "code": "not_found"})
	case errors.Is(err, service.ErrUserAlreadyExists), errors.Is(err, service.ErrCategoryExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "conflict"})
	default:
		logger.Error("Failed to "+action, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_failed"})
}

// pathID parses a positive integer path parameter. It writes the 400
// response itself when the value is unusable.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name, "code": "validation_failed"})
		return 0, false
	}
	return id, true
}

// identity returns the caller attached by the auth guard. A missing
// identity means the route was registered without protection.
func identity(c *gin.Context) (models.UserProfile, bool) {
	profile, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated", "code": middleware.CodeUnauthenticated})
	}
	return profile, ok
}
