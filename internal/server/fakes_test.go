package server

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/repository"
)

// memDB is a small in-memory stand-in for the Postgres repositories.
type memDB struct {
	mu         sync.Mutex
	users      map[int64]*models.User
	incidents  map[int64]*models.Incident
	evidence   map[int64]models.Evidence
	categories map[int64]*models.Category
	seq        int64
}

func newMemDB() *memDB {
	return &memDB{
		users:      map[int64]*models.User{},
		incidents:  map[int64]*models.Incident{},
		evidence:   map[int64]models.Evidence{},
		categories: map[int64]*models.Category{},
		seq:        1000,
	}
}

func (m *memDB) next() int64 {
	m.seq++
	return m.seq
}

func (m *memDB) repositories() Repositories {
	return Repositories{
		Users:      memUsers{m},
		Incidents:  memIncidents{m},
		Evidence:   memEvidence{m},
		Categories: memCategories{m},
	}
}

type memUsers struct{ *memDB }

func (r memUsers) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.next()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r memUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) ListUsers(_ context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memUsers) UpdateUser(_ context.Context, id int64, update models.UserUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.IsAdmin != nil {
		u.IsAdmin = *update.IsAdmin
	}
	if update.IsActive != nil {
		u.IsActive = *update.IsActive
	}
	if update.Password != nil {
		u.PasswordHash, u.PasswordSalt, u.PasswordScheme = update.Password.Hash, nil, update.Password.Scheme
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) UpdatePassword(_ context.Context, id int64, hash string, salt *string, scheme string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash, u.PasswordSalt, u.PasswordScheme = hash, salt, scheme
	return nil
}

type memIncidents struct{ *memDB }

func (r memIncidents) CreateIncident(_ context.Context, incident *models.Incident, urls []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	incident.ID = r.next()
	cp := *incident
	r.incidents[incident.ID] = &cp
	incident.Evidence = r.addEvidence(incident.ID, urls)
	return nil
}

func (r memIncidents) GetIncidentByID(_ context.Context, id int64) (*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.incidents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (r memIncidents) GetIncidentsByUser(_ context.Context, userID int64) ([]*models.Incident, error) {
	return r.filter(func(i *models.Incident) bool { return i.UserID == userID }), nil
}

func (r memIncidents) GetAllIncidents(_ context.Context, statusID *int64) ([]*models.Incident, error) {
	return r.filter(func(i *models.Incident) bool { return statusID == nil || i.StatusID == *statusID }), nil
}

func (r memIncidents) filter(keep func(*models.Incident) bool) []*models.Incident {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Incident{}
	for _, i := range r.incidents {
		if keep(i) {
			cp := *i
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (r memIncidents) UpdateIncident(_ context.Context, id int64, update models.IncidentUpdate) (*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.incidents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	applyIncidentUpdate(i, update)
	cp := *i
	return &cp, nil
}

func (r memIncidents) ReviseIncident(_ context.Context, id int64, update models.IncidentUpdate,
	urls []string, remove []int64) (*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.incidents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, evidenceID := range remove {
		if e, ok := r.evidence[evidenceID]; !ok || e.IncidentID != id {
			return nil, repository.ErrNotFound
		}
	}
	applyIncidentUpdate(i, update)
	r.addEvidence(id, urls)
	for _, evidenceID := range remove {
		delete(r.evidence, evidenceID)
	}
	cp := *i
	return &cp, nil
}

func applyIncidentUpdate(i *models.Incident, update models.IncidentUpdate) {
	if update.Title != nil {
		i.Title = *update.Title
	}
	if update.Description != nil {
		i.Description = *update.Description
	}
	if update.StatusID != nil {
		i.StatusID = *update.StatusID
	}
	if update.SupervisorID != nil {
		i.SupervisorID = update.SupervisorID
	}
}

type memEvidence struct{ *memDB }

func (r memEvidence) GetEvidenceByIncident(_ context.Context, incidentID int64) ([]models.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Evidence{}
	for _, e := range r.evidence {
		if e.IncidentID == incidentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r memEvidence) GetEvidenceByID(_ context.Context, id int64) (*models.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.evidence[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r memEvidence) AddEvidence(_ context.Context, incidentID int64, urls []string) ([]models.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addEvidence(incidentID, urls), nil
}

func (r memEvidence) DeleteEvidence(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.evidence[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.evidence, id)
	return nil
}

// addEvidence expects m.mu to be held.
func (m *memDB) addEvidence(incidentID int64, urls []string) []models.Evidence {
	out := make([]models.Evidence, 0, len(urls))
	for _, url := range urls {
		e := models.Evidence{ID: m.next(), IncidentID: incidentID, URL: url}
		m.evidence[e.ID] = e
		out = append(out, e)
	}
	return out
}

type memCategories struct{ *memDB }

func (r memCategories) GetAllCategories(_ context.Context) ([]*models.Category, error) {
	return r.byRisk(0), nil
}

func (r memCategories) GetCategoryByID(_ context.Context, id int64) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memCategories) GetCategoriesByRiskLevel(_ context.Context, riskLevelID int64) ([]*models.Category, error) {
	return r.byRisk(riskLevelID), nil
}

func (r memCategories) byRisk(riskLevelID int64) []*models.Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Category{}
	for _, c := range r.categories {
		if riskLevelID == 0 || c.RiskLevelID == riskLevelID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (r memCategories) CreateCategory(_ context.Context, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if strings.EqualFold(c.Title, category.Title) {
			return repository.ErrDuplicate
		}
	}
	category.ID = r.next()
	cp := *category
	r.categories[category.ID] = &cp
	return nil
}
