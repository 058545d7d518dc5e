package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/digest"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
)

// Store is the shared in-memory state behind the mock repositories.
// Tests seed it directly and inspect it after calling services.
type Store struct {
	mu sync.Mutex

	Users       map[string]*models.User
	Entities    map[string]*models.Entity
	Memberships map[string]models.Membership
	Preferences map[string]models.NotificationPreference
	Starters    map[string]*models.Starter
	Tasks       map[string]*models.Task
	Templates   map[string]*models.TaskTemplate
	Assignments map[string]*models.TaskAssignment
	Rooms       map[string]*models.Room
	Bookings    map[string]*models.Booking
	Settings    map[string]models.SystemSetting
	Audit       []*models.AuditLog

	// HealthErr is returned by HealthCheck
	HealthErr error
	// AuditErr is returned by AuditRepository.Append
	AuditErr error

	revision int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		Users:       make(map[string]*models.User),
		Entities:    make(map[string]*models.Entity),
		Memberships: make(map[string]models.Membership),
		Preferences: make(map[string]models.NotificationPreference),
		Starters:    make(map[string]*models.Starter),
		Tasks:       make(map[string]*models.Task),
		Templates:   make(map[string]*models.TaskTemplate),
		Assignments: make(map[string]*models.TaskAssignment),
		Rooms:       make(map[string]*models.Room),
		Bookings:    make(map[string]*models.Booking),
		Settings:    make(map[string]models.SystemSetting),
	}
}

// InTx runs fn and restores the store to its prior state when fn fails
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	users       map[string]*models.User
	entities    map[string]*models.Entity
	memberships map[string]models.Membership
	preferences map[string]models.NotificationPreference
	starters    map[string]*models.Starter
	tasks       map[string]*models.Task
	templates   map[string]*models.TaskTemplate
	assignments map[string]*models.TaskAssignment
	rooms       map[string]*models.Room
	bookings    map[string]*models.Booking
	settings    map[string]models.SystemSetting
	audit       []*models.AuditLog
	revision    int64
}

func (s *Store) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storeSnapshot{
		users:       clonePtrs(s.Users),
		entities:    clonePtrs(s.Entities),
		memberships: cloneValues(s.Memberships),
		preferences: cloneValues(s.Preferences),
		starters:    clonePtrs(s.Starters),
		tasks:       clonePtrs(s.Tasks),
		templates:   clonePtrs(s.Templates),
		assignments: clonePtrs(s.Assignments),
		rooms:       clonePtrs(s.Rooms),
		bookings:    clonePtrs(s.Bookings),
		settings:    cloneValues(s.Settings),
		audit:       append([]*models.AuditLog(nil), s.Audit...),
		revision:    s.revision,
	}
}

func (s *Store) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Users, s.Entities = snap.users, snap.entities
	s.Memberships, s.Preferences = snap.memberships, snap.preferences
	s.Starters, s.Tasks = snap.starters, snap.tasks
	s.Templates, s.Assignments = snap.templates, snap.assignments
	s.Rooms, s.Bookings = snap.rooms, snap.bookings
	s.Settings, s.Audit, s.revision = snap.settings, snap.audit, snap.revision
}

func clonePtrs[T any](m map[string]*T) map[string]*T {
	out := make(map[string]*T, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

func cloneValues[T any](m map[string]T) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HealthCheck fails with the configured error, if any
func (s *Store) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.HealthErr
}

// NewRepositories creates a full set of mock repositories over one store
func NewRepositories() (*repository.Repositories, *Store) {
	s := NewStore()
	return &repository.Repositories{
		Health:         s,
		Tx:             s,
		User:           &MockUserRepository{s},
		Entity:         &MockEntityRepository{s},
		Membership:     &MockMembershipRepository{s},
		Preference:     &MockPreferenceRepository{s},
		Starter:        &MockStarterRepository{s},
		Task:           &MockTaskRepository{s},
		TaskTemplate:   &MockTaskTemplateRepository{s},
		TaskAssignment: &MockTaskAssignmentRepository{s},
		Room:           &MockRoomRepository{s},
		Booking:        &MockBookingRepository{s},
		Audit:          &MockAuditRepository{s},
		Settings:       &MockSettingsRepository{s},
	}, s
}

func pairKey(a, b string) string {
	return a + "|" + b
}

// AddMembership stores m; users loaded afterwards carry it
func (s *Store) AddMembership(m models.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Memberships[pairKey(m.UserID, m.EntityID)] = m
}

// SetPreference stores a notification preference
func (s *Store) SetPreference(p models.NotificationPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Preferences[pairKey(p.UserID, p.EntityID)] = p
}

// Actions returns the audit actions in append order
func (s *Store) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, 0, len(s.Audit))
	for _, e := range s.Audit {
		actions = append(actions, e.Action)
	}
	return actions
}

// withMemberships returns a copy of u carrying its stored memberships; caller holds mu
func (s *Store) withMemberships(u *models.User) *models.User {
	c := *u
	c.Memberships = []models.Membership{}
	for _, m := range s.Memberships {
		if m.UserID == u.ID {
			c.Memberships = append(c.Memberships, m)
		}
	}
	sort.Slice(c.Memberships, func(i, j int) bool {
		return c.Memberships[i].EntityID < c.Memberships[j].EntityID
	})
	return &c
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	s *Store
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.Users {
		if u.Email == user.Email {
			return &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	user.CreatedAt, user.UpdatedAt = time.Now(), time.Now()
	c := *user
	m.s.Users[user.ID] = &c
	return nil
}

func (m *MockUserRepository) UpsertByEmail(ctx context.Context, user *models.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.Users {
		if u.Email == user.Email {
			u.Name = user.Name
			user.ID, user.Role = u.ID, u.Role
			return nil
		}
	}
	c := *user
	m.s.Users[user.ID] = &c
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.Users[id]
	if !ok {
		return nil, nil
	}
	return m.s.withMemberships(u), nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.Users {
		if u.Email == email {
			return m.s.withMemberships(u), nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	users := make([]*models.User, 0, len(m.s.Users))
	for _, u := range m.s.Users {
		users = append(users, m.s.withMemberships(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id string, role models.Role) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.Users[id]
	if !ok {
		return false, nil
	}
	u.Role = role
	return true, nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.Users[id]; !ok {
		return false, nil
	}
	delete(m.s.Users, id)
	for k, mem := range m.s.Memberships {
		if mem.UserID == id {
			delete(m.s.Memberships, k)
		}
	}
	for k, p := range m.s.Preferences {
		if p.UserID == id {
			delete(m.s.Preferences, k)
		}
	}
	return true, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.Users), nil
}

// MockEntityRepository is a mock implementation of EntityRepository
type MockEntityRepository struct {
	s *Store
}

var _ repository.EntityRepository = (*MockEntityRepository)(nil)

func (m *MockEntityRepository) Create(ctx context.Context, entity *models.Entity) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, e := range m.s.Entities {
		if e.Name == entity.Name {
			return &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	c := *entity
	m.s.Entities[entity.ID] = &c
	return nil
}

func (m *MockEntityRepository) Update(ctx context.Context, entity *models.Entity) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c := *entity
	m.s.Entities[entity.ID] = &c
	return nil
}

func (m *MockEntityRepository) GetByID(ctx context.Context, id string) (*models.Entity, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.Entities[id]
	if !ok {
		return nil, nil
	}
	c := *e
	return &c, nil
}

func (m *MockEntityRepository) List(ctx context.Context) ([]*models.Entity, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	entities := make([]*models.Entity, 0, len(m.s.Entities))
	for _, e := range m.s.Entities {
		c := *e
		entities = append(entities, &c)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].Name < entities[j].Name })
	return entities, nil
}

func (m *MockEntityRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.Entities[id]; !ok {
		return false, nil
	}
	delete(m.s.Entities, id)
	return true, nil
}

func (m *MockEntityRepository) CountReferences(ctx context.Context, id string) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	count := 0
	for _, st := range m.s.Starters {
		if st.EntityID != nil && *st.EntityID == id {
			count++
		}
	}
	for _, t := range m.s.Tasks {
		if t.EntityID != nil && *t.EntityID == id {
			count++
		}
	}
	for _, mem := range m.s.Memberships {
		if mem.EntityID == id {
			count++
		}
	}
	return count, nil
}

func (m *MockEntityRepository) Count(ctx context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.Entities), nil
}

// MockMembershipRepository is a mock implementation of MembershipRepository
type MockMembershipRepository struct {
	s *Store
}

var _ repository.MembershipRepository = (*MockMembershipRepository)(nil)

func (m *MockMembershipRepository) Set(ctx context.Context, mem *models.Membership) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := pairKey(mem.UserID, mem.EntityID)
	if existing, ok := m.s.Memberships[key]; ok {
		mem.CreatedAt = existing.CreatedAt
	} else {
		mem.CreatedAt = time.Now()
	}
	m.s.Memberships[key] = *mem
	return nil
}

func (m *MockMembershipRepository) Delete(ctx context.Context, userID, entityID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := pairKey(userID, entityID)
	if _, ok := m.s.Memberships[key]; !ok {
		return false, nil
	}
	delete(m.s.Memberships, key)
	return true, nil
}

func (m *MockMembershipRepository) ListByEntity(ctx context.Context, entityID string) ([]*models.MemberView, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	members := []*models.MemberView{}
	for _, mem := range m.s.Memberships {
		if mem.EntityID != entityID {
			continue
		}
		u, ok := m.s.Users[mem.UserID]
		if !ok {
			continue
		}
		members = append(members, &models.MemberView{Membership: mem, Email: u.Email, Name: u.Name, Role: u.Role})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Email < members[j].Email })
	return members, nil
}

func (m *MockMembershipRepository) ListByUser(ctx context.Context, userID string) ([]models.Membership, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.Users[userID]
	if !ok {
		return []models.Membership{}, nil
	}
	return m.s.withMemberships(u).Memberships, nil
}

// MockPreferenceRepository is a mock implementation of PreferenceRepository
type MockPreferenceRepository struct {
	s *Store
}

var _ repository.PreferenceRepository = (*MockPreferenceRepository)(nil)

func (m *MockPreferenceRepository) ListByUser(ctx context.Context, userID string) ([]models.NotificationPreference, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.byUser(userID), nil
}

// byUser returns the user's preferences ordered by entity; caller holds mu
func (m *MockPreferenceRepository) byUser(userID string) []models.NotificationPreference {
	prefs := []models.NotificationPreference{}
	for _, p := range m.s.Preferences {
		if p.UserID == userID {
			prefs = append(prefs, p)
		}
	}
	sort.Slice(prefs, func(i, j int) bool { return prefs[i].EntityID < prefs[j].EntityID })
	return prefs
}

func (m *MockPreferenceRepository) Set(ctx context.Context, p *models.NotificationPreference) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p.UpdatedAt = time.Now()
	m.s.Preferences[pairKey(p.UserID, p.EntityID)] = *p
	return nil
}

func (m *MockPreferenceRepository) EnsureDefaults(ctx context.Context, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, mem := range m.s.Memberships {
		if mem.UserID != userID {
			continue
		}
		key := pairKey(userID, mem.EntityID)
		if _, ok := m.s.Preferences[key]; !ok {
			m.s.Preferences[key] = models.DefaultPreference(userID, mem.EntityID)
		}
	}
	return nil
}

func (m *MockPreferenceRepository) ListCandidates(ctx context.Context, dt models.DigestType) ([]digest.Candidate, error) {
	if !models.ValidDigestTypes[dt] {
		return nil, fmt.Errorf("unknown digest type %q", dt)
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	candidates := []digest.Candidate{}
	for _, u := range m.s.Users {
		prefs := m.byUser(u.ID)
		for _, p := range prefs {
			if p.Enabled(dt) {
				candidates = append(candidates, digest.Candidate{User: m.s.withMemberships(u), Preferences: prefs})
				break
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].User.Email < candidates[j].User.Email })
	return candidates, nil
}

// MockStarterRepository is a mock implementation of StarterRepository
type MockStarterRepository struct {
	s *Store
}

var _ repository.StarterRepository = (*MockStarterRepository)(nil)

func (m *MockStarterRepository) Create(ctx context.Context, starter *models.Starter, tasks []*models.Task) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	now := time.Now()
	starter.CreatedAt, starter.UpdatedAt = now, now
	c := *starter
	m.s.Starters[starter.ID] = &c
	for _, t := range tasks {
		t.CreatedAt, t.UpdatedAt = now, now
		tc := *t
		m.s.Tasks[t.ID] = &tc
	}
	return nil
}

func (m *MockStarterRepository) Update(ctx context.Context, starter *models.Starter) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	starter.UpdatedAt = time.Now()
	c := *starter
	m.s.Starters[starter.ID] = &c
	for _, t := range m.s.Tasks {
		if t.StarterID != nil && *t.StarterID == starter.ID {
			t.EntityID = starter.EntityID
			t.UpdatedAt = starter.UpdatedAt
		}
	}
	return nil
}

func (m *MockStarterRepository) GetByID(ctx context.Context, id string) (*models.Starter, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	st, ok := m.s.Starters[id]
	if !ok {
		return nil, nil
	}
	c := *st
	return &c, nil
}

func (m *MockStarterRepository) List(ctx context.Context, scope access.Scope, filter models.StarterFilter) ([]*models.Starter, error) {
	return m.filter(func(st *models.Starter) bool {
		switch {
		case !scope.Includes(st.EntityID):
			return false
		case filter.EntityID != "" && (st.EntityID == nil || *st.EntityID != filter.EntityID):
			return false
		case filter.From != nil && st.StartDate.Before(*filter.From):
			return false
		case filter.To != nil && !st.StartDate.Before(*filter.To):
			return false
		case !filter.IncludeCancelled && st.IsCancelled:
			return false
		}
		return true
	}), nil
}

func (m *MockStarterRepository) ListInWindow(ctx context.Context, start, end time.Time) ([]*models.Starter, error) {
	return m.filter(func(st *models.Starter) bool {
		return !st.IsCancelled && st.EntityID != nil && !st.StartDate.Before(start) && st.StartDate.Before(end)
	}), nil
}

func (m *MockStarterRepository) filter(keep func(*models.Starter) bool) []*models.Starter {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	starters := []*models.Starter{}
	for _, st := range m.s.Starters {
		if keep(st) {
			c := *st
			starters = append(starters, &c)
		}
	}
	sort.Slice(starters, func(i, j int) bool {
		if !starters[i].StartDate.Equal(starters[j].StartDate) {
			return starters[i].StartDate.Before(starters[j].StartDate)
		}
		return starters[i].Name < starters[j].Name
	})
	return starters
}

func (m *MockStarterRepository) Cancel(ctx context.Context, starter *models.Starter) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	st, ok := m.s.Starters[starter.ID]
	if !ok || st.IsCancelled {
		return false, nil
	}
	st.IsCancelled = true
	st.CancelledAt = starter.CancelledAt
	st.CancelReason = starter.CancelReason
	st.CancelledBy = starter.CancelledBy
	return true, nil
}

func (m *MockStarterRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.Starters[id]; !ok {
		return false, nil
	}
	delete(m.s.Starters, id)
	for tid, t := range m.s.Tasks {
		if t.StarterID != nil && *t.StarterID == id {
			delete(m.s.Tasks, tid)
		}
	}
	return true, nil
}

func (m *MockStarterRepository) Count(ctx context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.Starters), nil
}

// MockTaskRepository is a mock implementation of TaskRepository
type MockTaskRepository struct {
	s *Store
}

var _ repository.TaskRepository = (*MockTaskRepository)(nil)

func (m *MockTaskRepository) Create(ctx context.Context, task *models.Task) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	task.CreatedAt, task.UpdatedAt = time.Now(), time.Now()
	c := *task
	m.s.Tasks[task.ID] = &c
	return nil
}

func (m *MockTaskRepository) Update(ctx context.Context, task *models.Task) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	task.UpdatedAt = time.Now()
	c := *task
	m.s.Tasks[task.ID] = &c
	return nil
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.Tasks[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (m *MockTaskRepository) List(ctx context.Context, scope access.Scope, filter models.TaskFilter) ([]*models.Task, error) {
	return m.filter(func(t *models.Task) bool {
		switch {
		case !scope.Includes(t.EntityID):
			return false
		case filter.StarterID != "" && (t.StarterID == nil || *t.StarterID != filter.StarterID):
			return false
		case filter.Status != "" && t.Status != filter.Status:
			return false
		case filter.AssigneeID != "" && (t.AssigneeID == nil || *t.AssigneeID != filter.AssigneeID):
			return false
		}
		return true
	}), nil
}

func (m *MockTaskRepository) ListOpenByStarter(ctx context.Context, starterID string) ([]*models.Task, error) {
	return m.filter(func(t *models.Task) bool {
		return t.StarterID != nil && *t.StarterID == starterID && t.Status != models.TaskStatusCompleted
	}), nil
}

func (m *MockTaskRepository) filter(keep func(*models.Task) bool) []*models.Task {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	tasks := []*models.Task{}
	for _, t := range m.s.Tasks {
		if keep(t) {
			c := *t
			tasks = append(tasks, &c)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskType < tasks[j].TaskType })
	return tasks
}

func (m *MockTaskRepository) Count(ctx context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.Tasks), nil
}

// MockTaskTemplateRepository is a mock implementation of TaskTemplateRepository
type MockTaskTemplateRepository struct {
	s *Store
}

var _ repository.TaskTemplateRepository = (*MockTaskTemplateRepository)(nil)

func (m *MockTaskTemplateRepository) Create(ctx context.Context, tpl *models.TaskTemplate) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c := *tpl
	m.s.Templates[tpl.ID] = &c
	return nil
}

func (m *MockTaskTemplateRepository) Update(ctx context.Context, tpl *models.TaskTemplate) error {
	return m.Create(ctx, tpl)
}

func (m *MockTaskTemplateRepository) GetByID(ctx context.Context, id string) (*models.TaskTemplate, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	tpl, ok := m.s.Templates[id]
	if !ok {
		return nil, nil
	}
	c := *tpl
	return &c, nil
}

func (m *MockTaskTemplateRepository) List(ctx context.Context) ([]*models.TaskTemplate, error) {
	return m.filter(func(*models.TaskTemplate) bool { return true }), nil
}

func (m *MockTaskTemplateRepository) ListActiveFor(ctx context.Context, entityID *string) ([]*models.TaskTemplate, error) {
	return m.filter(func(tpl *models.TaskTemplate) bool {
		return tpl.Active && (tpl.EntityID == nil || (entityID != nil && *tpl.EntityID == *entityID))
	}), nil
}

// filter returns matching templates ordered by task type with global templates first
func (m *MockTaskTemplateRepository) filter(keep func(*models.TaskTemplate) bool) []*models.TaskTemplate {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	templates := []*models.TaskTemplate{}
	for _, tpl := range m.s.Templates {
		if keep(tpl) {
			c := *tpl
			templates = append(templates, &c)
		}
	}
	sort.Slice(templates, func(i, j int) bool {
		if templates[i].TaskType != templates[j].TaskType {
			return templates[i].TaskType < templates[j].TaskType
		}
		return templates[i].EntityID == nil && templates[j].EntityID != nil
	})
	return templates
}

func (m *MockTaskTemplateRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.Templates[id]; !ok {
		return false, nil
	}
	delete(m.s.Templates, id)
	return true, nil
}

// MockTaskAssignmentRepository is a mock implementation of TaskAssignmentRepository
type MockTaskAssignmentRepository struct {
	s *Store
}

var _ repository.TaskAssignmentRepository = (*MockTaskAssignmentRepository)(nil)

func sameEntity(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Set upserts on (entity, task type) like the partial unique indexes do
func (m *MockTaskAssignmentRepository) Set(ctx context.Context, a *models.TaskAssignment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	now := time.Now()
	for _, existing := range m.s.Assignments {
		if existing.TaskType == a.TaskType && sameEntity(existing.EntityID, a.EntityID) {
			existing.UserID = a.UserID
			existing.UpdatedAt = now
			a.ID, a.CreatedAt, a.UpdatedAt = existing.ID, existing.CreatedAt, now
			return nil
		}
	}
	a.CreatedAt, a.UpdatedAt = now, now
	c := *a
	m.s.Assignments[a.ID] = &c
	return nil
}

func (m *MockTaskAssignmentRepository) GetByID(ctx context.Context, id string) (*models.TaskAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.Assignments[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (m *MockTaskAssignmentRepository) Candidates(ctx context.Context, entityID *string, taskType string) ([]*models.TaskAssignment, error) {
	return m.filter(func(a *models.TaskAssignment) bool {
		return a.TaskType == taskType && (a.EntityID == nil || sameEntity(a.EntityID, entityID))
	}), nil
}

func (m *MockTaskAssignmentRepository) List(ctx context.Context) ([]*models.TaskAssignment, error) {
	return m.filter(func(*models.TaskAssignment) bool { return true }), nil
}

func (m *MockTaskAssignmentRepository) filter(keep func(*models.TaskAssignment) bool) []*models.TaskAssignment {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []*models.TaskAssignment{}
	for _, a := range m.s.Assignments {
		if keep(a) {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaskType != out[j].TaskType {
			return out[i].TaskType < out[j].TaskType
		}
		return out[i].EntityID == nil && out[j].EntityID != nil
	})
	return out
}

func (m *MockTaskAssignmentRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.Assignments[id]; !ok {
		return false, nil
	}
	delete(m.s.Assignments, id)
	return true, nil
}

// MockRoomRepository is a mock implementation of RoomRepository
type MockRoomRepository struct {
	s *Store
}

var _ repository.RoomRepository = (*MockRoomRepository)(nil)

func (m *MockRoomRepository) Create(ctx context.Context, room *models.Room) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c := *room
	m.s.Rooms[room.ID] = &c
	return nil
}

func (m *MockRoomRepository) Update(ctx context.Context, room *models.Room) error {
	return m.Create(ctx, room)
}

func (m *MockRoomRepository) GetByID(ctx context.Context, id string) (*models.Room, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.Rooms[id]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (m *MockRoomRepository) List(ctx context.Context) ([]*models.Room, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rooms := []*models.Room{}
	for _, r := range m.s.Rooms {
		c := *r
		rooms = append(rooms, &c)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms, nil
}

// Delete removes the room after clearing its cancelled and past bookings
func (m *MockRoomRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.Rooms[id]; !ok {
		return false, nil
	}
	now := time.Now()
	for bid, b := range m.s.Bookings {
		if b.RoomID == id && (b.Status == models.BookingCancelled || !b.EndAt.After(now)) {
			delete(m.s.Bookings, bid)
		}
	}
	delete(m.s.Rooms, id)
	return true, nil
}

func (m *MockRoomRepository) Count(ctx context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.Rooms), nil
}

// MockBookingRepository is a mock implementation of BookingRepository.
// The store mutex plays the part of the per-room row lock.
type MockBookingRepository struct {
	s *Store
}

var _ repository.BookingRepository = (*MockBookingRepository)(nil)

// confirmedOverlaps counts confirmed bookings of roomID intersecting [start, end); caller holds mu
func (m *MockBookingRepository) confirmedOverlaps(roomID string, start, end time.Time, excludeID string) int {
	n := 0
	for _, b := range m.s.Bookings {
		if b.ID != excludeID && b.RoomID == roomID && b.Status == models.BookingConfirmed &&
			models.Overlaps(b.StartAt, b.EndAt, start, end) {
			n++
		}
	}
	return n
}

func (m *MockBookingRepository) CreatePending(ctx context.Context, b *models.Booking) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.Rooms[b.RoomID]; !ok {
		return repository.ErrRoomNotFound
	}
	if m.confirmedOverlaps(b.RoomID, b.StartAt, b.EndAt, "") > 0 {
		return repository.ErrOverlap
	}
	now := time.Now()
	b.Status = models.BookingPending
	b.CreatedAt, b.UpdatedAt = now, now
	c := *b
	m.s.Bookings[b.ID] = &c
	return nil
}

func (m *MockBookingRepository) Confirm(ctx context.Context, id, externalEventID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b, ok := m.s.Bookings[id]
	if !ok || b.Status != models.BookingPending {
		return repository.ErrNotPending
	}
	if m.confirmedOverlaps(b.RoomID, b.StartAt, b.EndAt, id) > 0 {
		return repository.ErrOverlap
	}
	b.Status = models.BookingConfirmed
	b.ExternalEventID = externalEventID
	b.UpdatedAt = time.Now()
	return nil
}

func (m *MockBookingRepository) DeletePending(ctx context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if b, ok := m.s.Bookings[id]; ok && b.Status == models.BookingPending {
		delete(m.s.Bookings, id)
	}
	return nil
}

func (m *MockBookingRepository) Cancel(ctx context.Context, id string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b, ok := m.s.Bookings[id]
	if !ok || b.Status == models.BookingCancelled {
		return false, nil
	}
	b.Status = models.BookingCancelled
	return true, nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b, ok := m.s.Bookings[id]
	if !ok {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (m *MockBookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	return m.filter(func(b *models.Booking) bool {
		switch {
		case filter.RoomID != "" && b.RoomID != filter.RoomID:
			return false
		case filter.From != nil && !b.EndAt.After(*filter.From):
			return false
		case filter.To != nil && !b.StartAt.Before(*filter.To):
			return false
		}
		return true
	}), nil
}

func (m *MockBookingRepository) ListConfirmed(ctx context.Context, roomID string, from, to time.Time) ([]*models.Booking, error) {
	return m.filter(func(b *models.Booking) bool {
		return b.RoomID == roomID && b.Status == models.BookingConfirmed && models.Overlaps(b.StartAt, b.EndAt, from, to)
	}), nil
}

func (m *MockBookingRepository) filter(keep func(*models.Booking) bool) []*models.Booking {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []*models.Booking{}
	for _, b := range m.s.Bookings {
		if keep(b) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out
}

func (m *MockBookingRepository) CountActive(ctx context.Context, roomID string, now time.Time) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n := 0
	for _, b := range m.s.Bookings {
		if b.RoomID == roomID && b.Status != models.BookingCancelled && b.EndAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (m *MockBookingRepository) Count(ctx context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.Bookings), nil
}

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	s *Store
}

var _ repository.AuditRepository = (*MockAuditRepository)(nil)

func (m *MockAuditRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.AuditErr != nil {
		return m.s.AuditErr
	}
	m.s.Audit = append(m.s.Audit, entry)
	return nil
}

func (m *MockAuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLog, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	out := []*models.AuditLog{}
	for i := len(m.s.Audit) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.s.Audit[i]
		if filter.TargetType != "" && e.TargetType != filter.TargetType {
			continue
		}
		if filter.TargetID != "" && e.TargetID != filter.TargetID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	s *Store
}

var _ repository.SettingsRepository = (*MockSettingsRepository)(nil)

func (m *MockSettingsRepository) List(ctx context.Context) ([]models.SystemSetting, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]models.SystemSetting, 0, len(m.s.Settings))
	for _, st := range m.s.Settings {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MockSettingsRepository) Set(ctx context.Context, setting *models.SystemSetting, entry *models.AuditLog) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.revision++
	setting.Revision = m.s.revision
	setting.UpdatedAt = time.Now()
	m.s.Settings[setting.Key] = *setting
	m.s.Audit = append(m.s.Audit, entry)
	return nil
}
