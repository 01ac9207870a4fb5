package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taskflow/internal/models"
)

// MemoryStore implements UserStore and TaskStore in process. Used for
// DB_DRIVER=memory and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]models.User
	tasks map[string]models.Task
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]models.User),
		tasks: make(map[string]models.Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	now := m.now()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = cloneUser(*u)
	return nil
}

func (m *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, id string, patch models.UserPatch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Email != nil {
		for otherID, other := range m.users {
			if otherID != id && strings.EqualFold(other.Email, *patch.Email) {
				return nil, ErrDuplicate
			}
		}
		u.Email = *patch.Email
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.Contact != nil {
		u.Contact = *patch.Contact
	}
	if patch.Password != nil {
		u.Password = *patch.Password
	}
	if patch.ProfilePicture != nil {
		u.ProfilePicture = *patch.ProfilePicture
	}
	u.UpdatedAt = m.now()
	m.users[id] = u
	out := cloneUser(u)
	return &out, nil
}

func (m *MemoryStore) SetRefreshToken(_ context.Context, id string, token *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	if token == nil {
		u.RefreshToken = nil
	} else {
		v := *token
		u.RefreshToken = &v
	}
	m.users[id] = u
	return nil
}

func (m *MemoryStore) FindRefreshToken(_ context.Context, id string) (*string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.RefreshToken == nil {
		return nil, nil
	}
	v := *u.RefreshToken
	return &v, nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	for taskID, t := range m.tasks {
		if t.UserID == id {
			delete(m.tasks, taskID)
		}
	}
	return nil
}

func (m *MemoryStore) CreateTask(_ context.Context, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.tasks {
		if existing.UserID == t.UserID && existing.Name == t.Name {
			return ErrDuplicate
		}
	}
	now := m.now()
	t.CreatedAt, t.UpdatedAt = now, now
	m.tasks[t.ID] = cloneTask(*t)
	return nil
}

// owned harus dipanggil dengan lock.
func (m *MemoryStore) owned(id, ownerID string) (models.Task, bool) {
	t, ok := m.tasks[id]
	if !ok || t.UserID != ownerID {
		return models.Task{}, false
	}
	return t, true
}

func (m *MemoryStore) FindTask(_ context.Context, id, ownerID string) (*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.owned(id, ownerID)
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneTask(t)
	return &out, nil
}

func (m *MemoryStore) ListTasks(_ context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := []models.Task{}
	for _, t := range m.tasks {
		if t.UserID == ownerID && filter.Match(&t) {
			tasks = append(tasks, cloneTask(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

func (m *MemoryStore) UpdateTask(_ context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.owned(id, ownerID)
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		for otherID, other := range m.tasks {
			if otherID != id && other.UserID == ownerID && other.Name == *patch.Name {
				return nil, ErrDuplicate
			}
		}
		t.Name = *patch.Name
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Deadline != nil {
		d := *patch.Deadline
		t.Deadline = &d
	}
	t.UpdatedAt = m.now()
	m.tasks[id] = t
	out := cloneTask(t)
	return &out, nil
}

func (m *MemoryStore) ShiftStage(_ context.Context, id, ownerID string, delta int) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.owned(id, ownerID)
	if !ok {
		return nil, ErrNotFound
	}
	next, ok := t.Stage.Shift(delta)
	if !ok {
		return nil, ErrStageOutOfRange
	}
	t.Stage = next
	t.UpdatedAt = m.now()
	m.tasks[id] = t
	out := cloneTask(t)
	return &out, nil
}

func (m *MemoryStore) SetStage(_ context.Context, id, ownerID string, stage models.Stage) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.owned(id, ownerID)
	if !ok {
		return nil, ErrNotFound
	}
	if !stage.Valid() {
		return nil, ErrStageOutOfRange
	}
	t.Stage = stage
	t.UpdatedAt = m.now()
	m.tasks[id] = t
	out := cloneTask(t)
	return &out, nil
}

func (m *MemoryStore) DeleteTask(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.owned(id, ownerID); !ok {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *MemoryStore) DeleteTasksByOwner(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.tasks {
		if t.UserID == ownerID {
			delete(m.tasks, id)
		}
	}
	return nil
}

func cloneUser(u models.User) models.User {
	if u.RefreshToken != nil {
		v := *u.RefreshToken
		u.RefreshToken = &v
	}
	return u
}

func cloneTask(t models.Task) models.Task {
	if t.Deadline != nil {
		d := *t.Deadline
		t.Deadline = &d
	}
	return t
}
