package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/E10-Naganiom/backOFraud/internal/models"
	"github.com/E10-Naganiom/backOFraud/internal/repository"
	"github.com/E10-Naganiom/backOFraud/internal/storage"
)

type fakeUsers struct {
	mu                sync.Mutex
	byID              map[int64]*models.User
	nextID            int64
	updatePasswordErr error
	passwordUpdates   int
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: map[int64]*models.User{}, nextID: 100}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) CreateUser(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) ListUsers(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := []*models.User{}
	for _, u := range f.byID {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (f *fakeUsers) UpdateUser(ctx context.Context, id int64, update models.UserUpdate) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Email != nil {
		for _, other := range f.byID {
			if other.ID != id && strings.EqualFold(other.Email, *update.Email) {
				return nil, repository.ErrDuplicate
			}
		}
		u.Email = *update.Email
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.LastName != nil {
		u.LastName = *update.LastName
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

func (f *fakeUsers) UpdatePassword(ctx context.Context, id int64, hash string, salt *string, scheme string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updatePasswordErr != nil {
		return f.updatePasswordErr
	}
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.PasswordSalt = salt
	u.PasswordScheme = scheme
	f.passwordUpdates++
	return nil
}

type fakeIncidents struct {
	mu     sync.Mutex
	byID   map[int64]*models.Incident
	nextID int64
	// evidence is shared with fakeEvidence so CreateIncident can insert rows.
	evidence  *fakeEvidence
	createErr error
	updateErr error
}

func newFakeIncidents(evidence *fakeEvidence, incidents ...*models.Incident) *fakeIncidents {
	f := &fakeIncidents{byID: map[int64]*models.Incident{}, nextID: 100, evidence: evidence}
	for _, i := range incidents {
		f.byID[i.ID] = i
	}
	return f
}

func (f *fakeIncidents) CreateIncident(ctx context.Context, incident *models.Incident, urls []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	incident.ID = f.nextID
	cp := *incident
	f.byID[incident.ID] = &cp
	added, err := f.evidence.AddEvidence(ctx, incident.ID, urls)
	if err != nil {
		return err
	}
	incident.Evidence = added
	return nil
}

func (f *fakeIncidents) GetIncidentByID(ctx context.Context, id int64) (*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (f *fakeIncidents) GetIncidentsByUser(ctx context.Context, userID int64) ([]*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Incident{}
	for _, i := range f.byID {
		if i.UserID == userID {
			cp := *i
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (f *fakeIncidents) GetAllIncidents(ctx context.Context, statusID *int64) ([]*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Incident{}
	for _, i := range f.byID {
		if statusID == nil || i.StatusID == *statusID {
			cp := *i
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (f *fakeIncidents) UpdateIncident(ctx context.Context, id int64, update models.IncidentUpdate) (*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	i, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	applyIncidentUpdate(i, update)
	cp := *i
	return &cp, nil
}

// ReviseIncident stages every change and applies none of them on failure.
func (f *fakeIncidents) ReviseIncident(ctx context.Context, id int64, update models.IncidentUpdate,
	urls []string, remove []int64) (*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	i, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	staged := *i
	applyIncidentUpdate(&staged, update)
	if err := f.evidence.replace(id, urls, remove); err != nil {
		return nil, err
	}
	*i = staged
	cp := staged
	return &cp, nil
}

func applyIncidentUpdate(i *models.Incident, update models.IncidentUpdate) {
	if update.Title != nil {
		i.Title = *update.Title
	}
	if update.CategoryID != nil {
		i.CategoryID = *update.CategoryID
	}
	if update.Description != nil {
		i.Description = *update.Description
	}
	if update.Phone != nil {
		i.Phone = update.Phone
	}
	if update.StatusID != nil {
		i.StatusID = *update.StatusID
	}
	if update.SupervisorID != nil {
		i.SupervisorID = update.SupervisorID
	}
}

type fakeEvidence struct {
	mu        sync.Mutex
	byID      map[int64]models.Evidence
	nextID    int64
	addErr    error
	removeErr error
}

func newFakeEvidence(items ...models.Evidence) *fakeEvidence {
	f := &fakeEvidence{byID: map[int64]models.Evidence{}, nextID: 100}
	for _, e := range items {
		f.byID[e.ID] = e
	}
	return f
}

func (f *fakeEvidence) GetEvidenceByIncident(ctx context.Context, incidentID int64) ([]models.Evidence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Evidence{}
	for _, e := range f.byID {
		if e.IncidentID == incidentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (f *fakeEvidence) GetEvidenceByID(ctx context.Context, id int64) (*models.Evidence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (f *fakeEvidence) AddEvidence(ctx context.Context, incidentID int64, urls []string) ([]models.Evidence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return nil, f.addErr
	}
	out := make([]models.Evidence, 0, len(urls))
	for _, url := range urls {
		f.nextID++
		e := models.Evidence{ID: f.nextID, IncidentID: incidentID, URL: url}
		f.byID[e.ID] = e
		out = append(out, e)
	}
	return out, nil
}

// replace adds urls and removes the listed rows of incidentID, or changes
// nothing.
func (f *fakeEvidence) replace(incidentID int64, urls []string, remove []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	if len(remove) > 0 && f.removeErr != nil {
		return f.removeErr
	}
	for _, id := range remove {
		if e, ok := f.byID[id]; !ok || e.IncidentID != incidentID {
			return repository.ErrNotFound
		}
	}
	for _, url := range urls {
		f.nextID++
		f.byID[f.nextID] = models.Evidence{ID: f.nextID, IncidentID: incidentID, URL: url}
	}
	for _, id := range remove {
		delete(f.byID, id)
	}
	return nil
}

func (f *fakeEvidence) DeleteEvidence(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeCategories struct {
	byID map[int64]*models.Category
}

func newFakeCategories(categories ...*models.Category) *fakeCategories {
	f := &fakeCategories{byID: map[int64]*models.Category{}}
	for _, c := range categories {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCategories) GetAllCategories(ctx context.Context) ([]*models.Category, error) {
	out := []*models.Category{}
	for _, c := range f.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (f *fakeCategories) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeCategories) GetCategoriesByRiskLevel(ctx context.Context, riskLevelID int64) ([]*models.Category, error) {
	out := []*models.Category{}
	for _, c := range f.byID {
		if c.RiskLevelID == riskLevelID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCategories) CreateCategory(ctx context.Context, category *models.Category) error {
	for _, c := range f.byID {
		if c.Title == category.Title {
			return repository.ErrDuplicate
		}
	}
	category.ID = int64(len(f.byID) + 1)
	f.byID[category.ID] = category
	return nil
}

type memStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	seq       int
	saveErr   error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (m *memStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.seq++
	key := storage.ObjectKey(name, time.Unix(int64(m.seq), 0))
	m.files[key] = data
	return key, nil
}

func (m *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.files[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.files, key)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type recordingNotifier struct {
	created   []int64
	evaluated []int64
}

func (n *recordingNotifier) IncidentCreated(ctx context.Context, incident *models.Incident) {
	n.created = append(n.created, incident.ID)
}

func (n *recordingNotifier) IncidentEvaluated(ctx context.Context, incident *models.Incident) {
	n.evaluated = append(n.evaluated, incident.ID)
}

func upload(name, content string) storage.Upload {
	return storage.Upload{
		Filename: name,
		Size:     int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

var errBoom = errors.New("boom")
