package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/E10-Naganiom/backOFraud/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type EvidenceRepository interface {
	GetEvidenceByIncident(ctx context.Context, incidentID int64) ([]models.Evidence, error)
	GetEvidenceByID(ctx context.Context, id int64) (*models.Evidence, error)
	AddEvidence(ctx context.Context, incidentID int64, urls []string) ([]models.Evidence, error)
	DeleteEvidence(ctx context.Context, id int64) error
}

type evidenceRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewEvidenceRepository(db *sqlx.DB, logger *zap.Logger) EvidenceRepository {
	return &evidenceRepository{db: db, logger: logger}
}

func (r *evidenceRepository) GetEvidenceByIncident(ctx context.Context, incidentID int64) ([]models.Evidence, error) {
	evidence := []models.Evidence{}
	query := `SELECT id, incident_id, url FROM evidence WHERE incident_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &evidence, query, incidentID); err != nil {
		return nil, err
	}
	return evidence, nil
}

func (r *evidenceRepository) GetEvidenceByID(ctx context.Context, id int64) (*models.Evidence, error) {
	var evidence models.Evidence
	query := `SELECT id, incident_id, url FROM evidence WHERE id = $1`
	if err := r.db.GetContext(ctx, &evidence, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &evidence, nil
}

func (r *evidenceRepository) AddEvidence(ctx context.Context, incidentID int64, urls []string) ([]models.Evidence, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	evidence, err := insertEvidence(ctx, tx, incidentID, urls)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return evidence, nil
}

func (r *evidenceRepository) DeleteEvidence(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM evidence WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func insertEvidence(ctx context.Context, tx *sqlx.Tx, incidentID int64, urls []string) ([]models.Evidence, error) {
	evidence := make([]models.Evidence, 0, len(urls))
	query := `INSERT INTO evidence (incident_id, url) VALUES ($1, $2) RETURNING id`
	for _, url := range urls {
		e := models.Evidence{IncidentID: incidentID, URL: url}
		if err := tx.QueryRowxContext(ctx, query, incidentID, url).Scan(&e.ID); err != nil {
			return nil, err
		}
		evidence = append(evidence, e)
	}
	return evidence, nil
}

// deleteIncidentEvidence removes one evidence row only if it belongs to
// incidentID.
func deleteIncidentEvidence(ctx context.Context, tx *sqlx.Tx, incidentID, evidenceID int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM evidence WHERE id = $1 AND incident_id = $2`, evidenceID, incidentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
