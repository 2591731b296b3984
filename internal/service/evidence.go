package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/repository"
	"github.com/E10-Naganiom/backOFraud/internal/storage"

	"go.uber.org/zap"
)

// EvidenceService exposes the files of an incident to its owner.
type EvidenceService interface {
	ListEvidence(ctx context.Context, identity models.UserProfile, incidentID int64) ([]models.Evidence, error)
	OpenEvidence(ctx context.Context, identity models.UserProfile, incidentID, evidenceID int64) (*models.Evidence, io.ReadCloser, error)
	DeleteEvidence(ctx context.Context, identity models.UserProfile, incidentID, evidenceID int64) error
}

type evidenceService struct {
	incidents repository.IncidentRepository
	evidence  repository.EvidenceRepository
	store     storage.FileStore
	logger    *zap.Logger
}

func NewEvidenceService(incidents repository.IncidentRepository, evidence repository.EvidenceRepository,
	store storage.FileStore, logger *zap.Logger) EvidenceService {
	return &evidenceService{
		incidents: incidents,
		evidence:  evidence,
		store:     store,
		logger:    logger,
	}
}

func (s *evidenceService) ListEvidence(ctx context.Context, identity models.UserProfile, incidentID int64) ([]models.Evidence, error) {
	if _, err := ownedIncident(ctx, s.incidents, s.logger, identity, incidentID); err != nil {
		return nil, err
	}
	items, err := s.evidence.GetEvidenceByIncident(ctx, incidentID)
	if err != nil {
		s.logger.Error("Failed to get evidence", zap.Int64("incident_id", incidentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get evidence: %w", err)
	}
	return items, nil
}

func (s *evidenceService) OpenEvidence(ctx context.Context, identity models.UserProfile, incidentID, evidenceID int64) (*models.Evidence, io.ReadCloser, error) {
	evidence, err := s.ownedEvidence(ctx, identity, incidentID, evidenceID)
	if err != nil {
		return nil, nil, err
	}

	r, err := s.store.Open(ctx, evidence.URL)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Evidence file missing from store",
				zap.Int64("evidence_id", evidenceID), zap.String("key", evidence.URL))
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to open evidence: %w", err)
	}
	return evidence, r, nil
}

func (s *evidenceService) DeleteEvidence(ctx context.Context, identity models.UserProfile, incidentID, evidenceID int64) error {
	evidence, err := s.ownedEvidence(ctx, identity, incidentID, evidenceID)
	if err != nil {
		return err
	}
	return deleteEvidence(ctx, s.evidence, s.store, s.logger, *evidence)
}

// ownedEvidence resolves the incident, checks ownership, then makes sure the
// evidence belongs to that incident.
func (s *evidenceService) ownedEvidence(ctx context.Context, identity models.UserProfile, incidentID, evidenceID int64) (*models.Evidence, error) {
	if _, err := ownedIncident(ctx, s.incidents, s.logger, identity, incidentID); err != nil {
		return nil, err
	}

	evidence, err := s.evidence.GetEvidenceByID(ctx, evidenceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get evidence: %w", err)
	}
	if evidence.IncidentID != incidentID {
		return nil, ErrNotFound
	}
	return evidence, nil
}

// deleteEvidence removes the row, then the stored file. A file that cannot
// be removed is logged and left behind.
func deleteEvidence(ctx context.Context, evidence repository.EvidenceRepository, store storage.FileStore,
	logger *zap.Logger, item models.Evidence) error {
	if err := evidence.DeleteEvidence(ctx, item.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("Failed to delete evidence", zap.Int64("evidence_id", item.ID), zap.Error(err))
		return fmt.Errorf("failed to delete evidence: %w", err)
	}

	if err := store.Delete(ctx, item.URL); err != nil {
		logger.Warn("Failed to delete evidence file",
			zap.Int64("evidence_id", item.ID), zap.String("key", item.URL), zap.Error(err))
	}
	return nil
}
