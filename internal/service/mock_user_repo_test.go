package service

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"indichess/internal/domain"
	"indichess/internal/repository"
)

// mockUserRepo imita el store real incluyendo el chequeo atómico de
// unicidad sobre name y email.
type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByName  map[string]string
	usersByEmail map[string]string
	createCalls  int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByName:  make(map[string]string),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if _, ok := m.usersByName[user.Name]; ok {
		return repository.ErrDuplicateName
	}
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	m.usersByID[user.ID] = user
	m.usersByName[user.Name] = user.ID
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(id)
}

func (m *mockUserRepo) GetByName(_ context.Context, name string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.usersByName[name]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.lookup(id)
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.lookup(id)
}

func (m *mockUserRepo) lookup(id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}
