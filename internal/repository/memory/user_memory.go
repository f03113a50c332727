package memory

import (
	"context"
	"strings"
	"sync"

	"sharelink/internal/model"
	"sharelink/internal/repository"
)

// UserMemory is an in-process implementation of repository.UserRepository.
type UserMemory struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]model.User
}

// NewUserMemory creates an empty UserMemory.
func NewUserMemory() *UserMemory {
	return &UserMemory{users: make(map[int64]model.User)}
}

var _ repository.UserRepository = (*UserMemory)(nil)

func (m *UserMemory) Create(_ context.Context, u *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return nil, repository.ErrDuplicateUser
		}
	}
	m.nextID++
	stored := *u
	stored.ID = m.nextID
	m.users[stored.ID] = stored
	return &stored, nil
}

func (m *UserMemory) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *UserMemory) FindByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}
