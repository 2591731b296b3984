package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/E10-Naganiom/backOFraud/internal/crypto"
	"github.com/E10-Naganiom/backOFraud/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const incidentColumns = `id, title, category_id, attacker_name, phone_enc, email_enc, social_user_enc, social_network,
	description, user_id, supervisor_id, status_id, is_anonymous, created_at, updated_at`

type IncidentRepository interface {
	// CreateIncident inserts the incident and its evidence rows in one
	// transaction.
	CreateIncident(ctx context.Context, incident *models.Incident, evidenceURLs []string) error
	GetIncidentByID(ctx context.Context, id int64) (*models.Incident, error)
	GetIncidentsByUser(ctx context.Context, userID int64) ([]*models.Incident, error)
	GetAllIncidents(ctx context.Context, statusID *int64) ([]*models.Incident, error)
	UpdateIncident(ctx context.Context, id int64, update models.IncidentUpdate) (*models.Incident, error)
	// ReviseIncident applies update, adds evidence rows for addURLs and
	// removes the listed evidence of the incident in one transaction.
	ReviseIncident(ctx context.Context, id int64, update models.IncidentUpdate, addURLs []string, removeEvidence []int64) (*models.Incident, error)
}

type incidentRepository struct {
	db     *sqlx.DB
	cipher *crypto.FieldCipher
	logger *zap.Logger
}

// NewIncidentRepository returns a repository that encrypts attacker contact
// fields with cipher. A nil cipher stores them as given.
func NewIncidentRepository(db *sqlx.DB, cipher *crypto.FieldCipher, logger *zap.Logger) IncidentRepository {
	return &incidentRepository{db: db, cipher: cipher, logger: logger}
}

func (r *incidentRepository) CreateIncident(ctx context.Context, incident *models.Incident, evidenceURLs []string) error {
	phone, email, social, err := r.encryptContacts(incident.Phone, incident.Email, incident.SocialUser)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO incidents (title, category_id, attacker_name, phone_enc, email_enc, social_user_enc, social_network,
	              description, user_id, supervisor_id, status_id, is_anonymous)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id, created_at, updated_at`
	err = tx.QueryRowxContext(ctx, query, incident.Title, incident.CategoryID, incident.AttackerName, phone, email, social,
		incident.SocialNetwork, incident.Description, incident.UserID, incident.SupervisorID, incident.StatusID,
		incident.IsAnonymous).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return err
	}

	incident.Evidence, err = insertEvidence(ctx, tx, incident.ID, evidenceURLs)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *incidentRepository) GetIncidentByID(ctx context.Context, id int64) (*models.Incident, error) {
	return r.getIncident(ctx, r.db, id)
}

func (r *incidentRepository) getIncident(ctx context.Context, q sqlx.QueryerContext, id int64) (*models.Incident, error) {
	var incident models.Incident
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`
	if err := sqlx.GetContext(ctx, q, &incident, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.decryptContacts(&incident)
	return &incident, nil
}

func (r *incidentRepository) GetIncidentsByUser(ctx context.Context, userID int64) ([]*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	return r.selectIncidents(ctx, query, userID)
}

func (r *incidentRepository) GetAllIncidents(ctx context.Context, statusID *int64) ([]*models.Incident, error) {
	if statusID != nil {
		query := `SELECT ` + incidentColumns + ` FROM incidents WHERE status_id = $1 ORDER BY created_at DESC, id DESC`
		return r.selectIncidents(ctx, query, *statusID)
	}
	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY created_at DESC, id DESC`
	return r.selectIncidents(ctx, query)
}

func (r *incidentRepository) selectIncidents(ctx context.Context, query string, args ...interface{}) ([]*models.Incident, error) {
	incidents := []*models.Incident{}
	if err := r.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, err
	}
	for _, incident := range incidents {
		r.decryptContacts(incident)
	}
	return incidents, nil
}

func (r *incidentRepository) UpdateIncident(ctx context.Context, id int64, update models.IncidentUpdate) (*models.Incident, error) {
	return r.updateIncident(ctx, r.db, id, update)
}

func (r *incidentRepository) ReviseIncident(ctx context.Context, id int64, update models.IncidentUpdate,
	addURLs []string, removeEvidence []int64) (*models.Incident, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	incident, err := r.updateIncident(ctx, tx, id, update)
	if err != nil {
		return nil, err
	}
	if _, err := insertEvidence(ctx, tx, id, addURLs); err != nil {
		return nil, err
	}
	for _, evidenceID := range removeEvidence {
		if err := deleteIncidentEvidence(ctx, tx, id, evidenceID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return incident, nil
}

func (r *incidentRepository) updateIncident(ctx context.Context, q sqlx.QueryerContext, id int64, update models.IncidentUpdate) (*models.Incident, error) {
	if update.Empty() {
		return r.getIncident(ctx, q, id)
	}

	phone, email, social, err := r.encryptContacts(update.Phone, update.Email, update.SocialUser)
	if err != nil {
		return nil, err
	}

	sets := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.CategoryID != nil {
		add("category_id", *update.CategoryID)
	}
	if update.AttackerName != nil {
		add("attacker_name", *update.AttackerName)
	}
	if phone != nil {
		add("phone_enc", *phone)
	}
	if email != nil {
		add("email_enc", *email)
	}
	if social != nil {
		add("social_user_enc", *social)
	}
	if update.SocialNetwork != nil {
		add("social_network", *update.SocialNetwork)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.SupervisorID != nil {
		add("supervisor_id", *update.SupervisorID)
	}
	if update.StatusID != nil {
		add("status_id", *update.StatusID)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE incidents SET %s, updated_at = now() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), incidentColumns)

	var incident models.Incident
	if err := sqlx.GetContext(ctx, q, &incident, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.decryptContacts(&incident)
	return &incident, nil
}

func (r *incidentRepository) encryptContacts(phone, email, social *string) (*string, *string, *string, error) {
	encPhone, err := r.cipher.EncryptField(phone)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encrypt phone: %w", err)
	}
	encEmail, err := r.cipher.EncryptField(email)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encrypt email: %w", err)
	}
	encSocial, err := r.cipher.EncryptField(social)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encrypt social user: %w", err)
	}
	return encPhone, encEmail, encSocial, nil
}

// decryptContacts replaces the stored contact fields with their plaintext.
// Values written before encryption was enabled are kept as stored.
func (r *incidentRepository) decryptContacts(incident *models.Incident) {
	for _, field := range []**string{&incident.Phone, &incident.Email, &incident.SocialUser} {
		plain, err := r.cipher.DecryptField(*field)
		if err != nil {
			r.logger.Warn("Failed to decrypt incident field, using stored value",
				zap.Int64("incident_id", incident.ID), zap.Error(err))
			continue
		}
		*field = plain
	}
}
