package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/service"
	"github.com/E10-Naganiom/backOFraud/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// filesField is the multipart field carrying evidence files.
const filesField = "files"

type IncidentHandler interface {
	CreateIncident(c *gin.Context)
	ListIncidents(c *gin.Context)
	GetIncident(c *gin.Context)
	UpdateIncident(c *gin.Context)
	DeleteIncident(c *gin.Context)
}

type incidentHandler struct {
	incidentService service.IncidentService
	maxBodyBytes    int64
	logger          *zap.Logger
}

// NewIncidentHandler creates the incident handler. maxBodyBytes caps the
// whole multipart body; zero disables the cap.
func NewIncidentHandler(incidentService service.IncidentService, maxBodyBytes int64, logger *zap.Logger) IncidentHandler {
	return &incidentHandler{
		incidentService: incidentService,
		maxBodyBytes:    maxBodyBytes,
		logger:          logger,
	}
}

// CreateIncident handles POST /incidents.
func (h *incidentHandler) CreateIncident(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	h.limitBody(c)

	var req models.CreateIncidentInput
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	files, err := formUploads(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	incident, err := h.incidentService.CreateIncident(c.Request.Context(), caller, req, files)
	if err != nil {
		respondError(c, h.logger, "create incident", err)
		return
	}

	c.JSON(http.StatusCreated, incident)
}

// ListIncidents handles GET /incidents. Only the caller's incidents are
// returned; the full list lives under /admin.
func (h *incidentHandler) ListIncidents(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	incidents, err := h.incidentService.ListOwnIncidents(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.logger, "retrieve incidents", err)
		return
	}

	c.JSON(http.StatusOK, incidents)
}

func (h *incidentHandler) GetIncident(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	incident, err := h.incidentService.GetIncident(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, h.logger, "retrieve incident", err)
		return
	}

	c.JSON(http.StatusOK, incident)
}

// UpdateIncident handles PUT /incidents/:id. New files are appended and
// evidence_to_delete lists evidence ids to remove.
func (h *incidentHandler) UpdateIncident(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.limitBody(c)

	var req models.UpdateIncidentInput
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	files, err := formUploads(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	incident, err := h.incidentService.UpdateIncident(c.Request.Context(), caller, id, req, files)
	if err != nil {
		respondError(c, h.logger, "update incident", err)
		return
	}

	c.JSON(http.StatusOK, incident)
}

// DeleteIncident handles PATCH /incidents/:id/delete. The row is kept with
// the withdrawn status.
func (h *incidentHandler) DeleteIncident(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	incident, err := h.incidentService.WithdrawIncident(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, h.logger, "delete incident", err)
		return
	}

	c.JSON(http.StatusOK, incident)
}

func (h *incidentHandler) limitBody(c *gin.Context) {
	if h.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}
}

// formUploads collects the files of a multipart request. Requests that are
// not multipart carry no files.
func formUploads(c *gin.Context) ([]storage.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}

	headers := form.File[filesField]
	uploads := make([]storage.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, uploadFromHeader(fh))
	}
	return uploads, nil
}

func uploadFromHeader(fh *multipart.FileHeader) storage.Upload {
	return storage.Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
