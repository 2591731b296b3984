package handler

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/E10-Naganiom/backOFraud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EvidenceHandler interface {
	ListEvidence(c *gin.Context)
	DownloadEvidence(c *gin.Context)
	DeleteEvidence(c *gin.Context)
}

type evidenceHandler struct {
	evidenceService service.EvidenceService
	logger          *zap.Logger
}

func NewEvidenceHandler(evidenceService service.EvidenceService, logger *zap.Logger) EvidenceHandler {
	return &evidenceHandler{evidenceService: evidenceService, logger: logger}
}

// ListEvidence handles GET /incidents/:id/evidence.
func (h *evidenceHandler) ListEvidence(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	incidentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	evidence, err := h.evidenceService.ListEvidence(c.Request.Context(), caller, incidentID)
	if err != nil {
		respondError(c, h.logger, "retrieve evidence", err)
		return
	}

	c.JSON(http.StatusOK, evidence)
}

// DownloadEvidence handles GET /incidents/:id/evidence/:evidenceId/file and
// streams the stored file.
func (h *evidenceHandler) DownloadEvidence(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	incidentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	evidenceID, ok := pathID(c, "evidenceId")
	if !ok {
		return
	}

	evidence, body, err := h.evidenceService.OpenEvidence(c.Request.Context(), caller, incidentID, evidenceID)
	if err != nil {
		respondError(c, h.logger, "open evidence", err)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(filepath.Ext(evidence.URL))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, -1, contentType, body, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename=%q`, filepath.Base(evidence.URL)),
	})
}

// DeleteEvidence handles DELETE /incidents/:id/evidence/:evidenceId.
func (h *evidenceHandler) DeleteEvidence(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	incidentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	evidenceID, ok := pathID(c, "evidenceId")
	if !ok {
		return
	}

	if err := h.evidenceService.DeleteEvidence(c.Request.Context(), caller, incidentID, evidenceID); err != nil {
		respondError(c, h.logger, "delete evidence", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Evidence deleted"})
}
