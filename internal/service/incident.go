package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/repository"
	"github.com/E10-Naganiom/backOFraud/internal/storage"

	"go.uber.org/zap"
)

// Notifier tells supervisors about incident activity. Implementations must
// bound how long they hold the request, honour ctx and report their own
// failures.
type Notifier interface {
	IncidentCreated(ctx context.Context, incident *models.Incident)
	IncidentEvaluated(ctx context.Context, incident *models.Incident)
}

// EvidencePolicy bounds the files attached to one incident.
type EvidencePolicy struct {
	MaxPerIncident int
	MaxFileBytes   int64
}

func (p EvidencePolicy) check(existing, removing int, files []storage.Upload) error {
	if existing-removing+len(files) > p.MaxPerIncident {
		return fmt.Errorf("%w: at most %d files per incident", ErrTooManyEvidence, p.MaxPerIncident)
	}
	for _, f := range files {
		if p.MaxFileBytes > 0 && f.Size > p.MaxFileBytes {
			return fmt.Errorf("%w: %s exceeds %d bytes", ErrValidation, f.Filename, p.MaxFileBytes)
		}
	}
	return nil
}

type IncidentService interface {
	CreateIncident(ctx context.Context, identity models.UserProfile, input models.CreateIncidentInput, files []storage.Upload) (*models.Incident, error)
	ListOwnIncidents(ctx context.Context, identity models.UserProfile) ([]*models.Incident, error)
	GetIncident(ctx context.Context, identity models.UserProfile, id int64) (*models.Incident, error)
	UpdateIncident(ctx context.Context, identity models.UserProfile, id int64, input models.UpdateIncidentInput, files []storage.Upload) (*models.Incident, error)
	// WithdrawIncident is the soft delete: the incident stays stored with
	// the withdrawn status.
	WithdrawIncident(ctx context.Context, identity models.UserProfile, id int64) (*models.Incident, error)
}

type incidentService struct {
	incidents  repository.IncidentRepository
	evidence   repository.EvidenceRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	store      storage.FileStore
	notifier   Notifier
	policy     EvidencePolicy
	logger     *zap.Logger
}

// NewIncidentService wires the owner-facing incident operations. notifier
// may be nil.
func NewIncidentService(incidents repository.IncidentRepository, evidence repository.EvidenceRepository,
	categories repository.CategoryRepository, users repository.UserRepository, store storage.FileStore,
	notifier Notifier, policy EvidencePolicy, logger *zap.Logger) IncidentService {
	return &incidentService{
		incidents:  incidents,
		evidence:   evidence,
		categories: categories,
		users:      users,
		store:      store,
		notifier:   notifier,
		policy:     policy,
		logger:     logger,
	}
}

func (s *incidentService) CreateIncident(ctx context.Context, identity models.UserProfile, input models.CreateIncidentInput, files []storage.Upload) (*models.Incident, error) {
	if err := s.policy.check(0, 0, files); err != nil {
		return nil, err
	}
	if err := ensureCategory(ctx, s.categories, input.CategoryID); err != nil {
		return nil, err
	}
	if err := ensureSupervisor(ctx, s.users, input.SupervisorID); err != nil {
		return nil, err
	}

	keys, err := saveUploads(ctx, s.store, s.logger, files)
	if err != nil {
		return nil, err
	}

	incident := &models.Incident{
		Title:         strings.TrimSpace(input.Title),
		CategoryID:    input.CategoryID,
		AttackerName:  input.AttackerName,
		Phone:         input.Phone,
		Email:         input.Email,
		SocialUser:    input.SocialUser,
		SocialNetwork: input.SocialNetwork,
		Description:   input.Description,
		UserID:        identity.ID,
		SupervisorID:  input.SupervisorID,
		StatusID:      models.StatusPending,
		IsAnonymous:   input.IsAnonymous,
	}

	if err := s.incidents.CreateIncident(ctx, incident, keys); err != nil {
		removeStored(ctx, s.store, s.logger, keys)
		s.logger.Error("Failed to create incident", zap.Int64("user_id", identity.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}

	s.logger.Info("Incident created",
		zap.Int64("incident_id", incident.ID), zap.Int64("user_id", identity.ID), zap.Int("evidence", len(keys)))

	if s.notifier != nil {
		s.notifier.IncidentCreated(ctx, incident)
	}
	return incident, nil
}

func (s *incidentService) ListOwnIncidents(ctx context.Context, identity models.UserProfile) ([]*models.Incident, error) {
	incidents, err := s.incidents.GetIncidentsByUser(ctx, identity.ID)
	if err != nil {
		s.logger.Error("Failed to get incidents", zap.Int64("user_id", identity.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to get incidents: %w", err)
	}
	return incidents, nil
}

func (s *incidentService) GetIncident(ctx context.Context, identity models.UserProfile, id int64) (*models.Incident, error) {
	incident, err := ownedIncident(ctx, s.incidents, s.logger, identity, id)
	if err != nil {
		return nil, err
	}
	if err := attachEvidence(ctx, s.evidence, incident); err != nil {
		return nil, err
	}
	return incident, nil
}

func (s *incidentService) UpdateIncident(ctx context.Context, identity models.UserProfile, id int64, input models.UpdateIncidentInput, files []storage.Upload) (*models.Incident, error) {
	if _, err := ownedIncident(ctx, s.incidents, s.logger, identity, id); err != nil {
		return nil, err
	}

	toDelete, err := parseIDList(input.EvidenceToDelete)
	if err != nil {
		return nil, err
	}

	existing, err := s.evidence.GetEvidenceByIncident(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get evidence: %w", err)
	}
	byID := make(map[int64]models.Evidence, len(existing))
	for _, e := range existing {
		byID[e.ID] = e
	}
	for _, evidenceID := range toDelete {
		if _, ok := byID[evidenceID]; !ok {
			return nil, fmt.Errorf("%w: evidence %d does not belong to incident %d", ErrValidation, evidenceID, id)
		}
	}

	if err := s.policy.check(len(existing), len(toDelete), files); err != nil {
		return nil, err
	}
	if input.CategoryID != nil {
		if err := ensureCategory(ctx, s.categories, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	keys, err := saveUploads(ctx, s.store, s.logger, files)
	if err != nil {
		return nil, err
	}

	update := models.IncidentUpdate{
		Title:         input.Title,
		CategoryID:    input.CategoryID,
		AttackerName:  input.AttackerName,
		Phone:         input.Phone,
		Email:         input.Email,
		SocialUser:    input.SocialUser,
		SocialNetwork: input.SocialNetwork,
		Description:   input.Description,
	}
	updated, err := s.incidents.ReviseIncident(ctx, id, update, keys, toDelete)
	if err != nil {
		removeStored(ctx, s.store, s.logger, keys)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("Failed to update incident", zap.Int64("incident_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update incident: %w", err)
	}

	removed := make([]string, 0, len(toDelete))
	for _, evidenceID := range toDelete {
		removed = append(removed, byID[evidenceID].URL)
	}
	removeStored(ctx, s.store, s.logger, removed)

	if err := attachEvidence(ctx, s.evidence, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *incidentService) WithdrawIncident(ctx context.Context, identity models.UserProfile, id int64) (*models.Incident, error) {
	if _, err := ownedIncident(ctx, s.incidents, s.logger, identity, id); err != nil {
		return nil, err
	}

	status := models.StatusWithdrawn
	updated, err := s.incidents.UpdateIncident(ctx, id, models.IncidentUpdate{StatusID: &status})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("Failed to withdraw incident", zap.Int64("incident_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to withdraw incident: %w", err)
	}

	s.logger.Info("Incident withdrawn", zap.Int64("incident_id", id), zap.Int64("user_id", identity.ID))
	return updated, nil
}

// IncidentAdminService reads and evaluates any incident without ownership
// checks. It is only mounted on admin routes.
type IncidentAdminService interface {
	ListIncidents(ctx context.Context, statusID *int64) ([]*models.Incident, error)
	GetIncident(ctx context.Context, id int64) (*models.Incident, error)
	EvaluateIncident(ctx context.Context, id int64, input models.EvaluateIncidentInput) (*models.Incident, error)
}

type incidentAdminService struct {
	incidents repository.IncidentRepository
	evidence  repository.EvidenceRepository
	users     repository.UserRepository
	notifier  Notifier
	logger    *zap.Logger
}

func NewIncidentAdminService(incidents repository.IncidentRepository, evidence repository.EvidenceRepository,
	users repository.UserRepository, notifier Notifier, logger *zap.Logger) IncidentAdminService {
	return &incidentAdminService{
		incidents: incidents,
		evidence:  evidence,
		users:     users,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *incidentAdminService) ListIncidents(ctx context.Context, statusID *int64) ([]*models.Incident, error) {
	if statusID != nil && !models.ValidStatus(*statusID) {
		return nil, fmt.Errorf("%w: unknown status %d", ErrValidation, *statusID)
	}
	incidents, err := s.incidents.GetAllIncidents(ctx, statusID)
	if err != nil {
		s.logger.Error("Failed to get incidents", zap.Error(err))
		return nil, fmt.Errorf("failed to get incidents: %w", err)
	}
	return incidents, nil
}

func (s *incidentAdminService) GetIncident(ctx context.Context, id int64) (*models.Incident, error) {
	incident, err := loadIncident(ctx, s.incidents, s.logger, id)
	if err != nil {
		return nil, err
	}
	if err := attachEvidence(ctx, s.evidence, incident); err != nil {
		return nil, err
	}
	return incident, nil
}

func (s *incidentAdminService) EvaluateIncident(ctx context.Context, id int64, input models.EvaluateIncidentInput) (*models.Incident, error) {
	if !models.ValidStatus(input.StatusID) {
		return nil, fmt.Errorf("%w: unknown status %d", ErrValidation, input.StatusID)
	}
	if _, err := loadIncident(ctx, s.incidents, s.logger, id); err != nil {
		return nil, err
	}

	if err := ensureSupervisor(ctx, s.users, input.SupervisorID); err != nil {
		return nil, err
	}

	status := input.StatusID
	updated, err := s.incidents.UpdateIncident(ctx, id, models.IncidentUpdate{StatusID: &status, SupervisorID: input.SupervisorID})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("Failed to evaluate incident", zap.Int64("incident_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to evaluate incident: %w", err)
	}

	s.logger.Info("Incident evaluated", zap.Int64("incident_id", id), zap.Int64("status_id", status))
	if s.notifier != nil {
		s.notifier.IncidentEvaluated(ctx, updated)
	}
	return updated, nil
}

// ensureSupervisor accepts a nil id or the id of an existing user.
func ensureSupervisor(ctx context.Context, users repository.UserRepository, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := users.GetUserByID(ctx, *id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: unknown supervisor %d", ErrValidation, *id)
		}
		return fmt.Errorf("failed to get supervisor: %w", err)
	}
	return nil
}

func loadIncident(ctx context.Context, incidents repository.IncidentRepository, logger *zap.Logger, id int64) (*models.Incident, error) {
	incident, err := incidents.GetIncidentByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		logger.Error("Failed to get incident", zap.Int64("incident_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}
	return incident, nil
}

// ownedIncident loads an incident and applies the ownership rule: a missing
// incident is ErrNotFound, someone else's is ErrForbidden.
func ownedIncident(ctx context.Context, incidents repository.IncidentRepository, logger *zap.Logger,
	identity models.UserProfile, id int64) (*models.Incident, error) {
	incident, err := loadIncident(ctx, incidents, logger, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(identity, incident.UserID); err != nil {
		logger.Warn("Denied access to incident",
			zap.Int64("incident_id", id), zap.Int64("user_id", identity.ID))
		return nil, err
	}
	return incident, nil
}

func attachEvidence(ctx context.Context, evidence repository.EvidenceRepository, incident *models.Incident) error {
	items, err := evidence.GetEvidenceByIncident(ctx, incident.ID)
	if err != nil {
		return fmt.Errorf("failed to get evidence: %w", err)
	}
	incident.Evidence = items
	return nil
}

func ensureCategory(ctx context.Context, categories repository.CategoryRepository, id int64) error {
	if _, err := categories.GetCategoryByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: unknown category %d", ErrValidation, id)
		}
		return fmt.Errorf("failed to get category: %w", err)
	}
	return nil
}

// parseIDList parses "1, 2,3" into unique ids.
func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	seen := map[int64]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: invalid evidence id %q", ErrValidation, part)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func saveUploads(ctx context.Context, store storage.FileStore, logger *zap.Logger, files []storage.Upload) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, f := range files {
		key, err := saveUpload(ctx, store, f)
		if err != nil {
			removeStored(ctx, store, logger, keys)
			logger.Error("Failed to store evidence file", zap.String("filename", f.Filename), zap.Error(err))
			return nil, fmt.Errorf("failed to store evidence: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func saveUpload(ctx context.Context, store storage.FileStore, f storage.Upload) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	return store.Save(ctx, f.Filename, r, f.Size, f.ContentType)
}

// removeStored deletes files best-effort. Failures are logged only.
func removeStored(ctx context.Context, store storage.FileStore, logger *zap.Logger, keys []string) {
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil {
			logger.Warn("Failed to remove evidence file", zap.String("key", key), zap.Error(err))
		}
	}
}
