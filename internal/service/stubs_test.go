package service

import (
	"context"
	"sync"

	"crm-console/internal/model"
	"crm-console/internal/organization"
	"crm-console/internal/repository"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uint]*model.User
}

func newMemUsers(users ...*model.User) *memUsers {
	m := &memUsers{users: make(map[uint]*model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) get(id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	cp.Roles = append([]model.Role(nil), u.Roles...)
	return &cp, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	var id uint
	for _, u := range m.users {
		if u.Email == email {
			id = u.ID
		}
	}
	m.mu.Unlock()
	return m.get(id)
}

func (m *memUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return m.get(id)
}

func (m *memUsers) FindAll(ctx context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for id := uint(1); len(out) < len(m.users); id++ {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) Update(ctx context.Context, user *model.User) error {
	return m.Create(ctx, user)
}

func (m *memUsers) UpdatePassword(ctx context.Context, userID uint, hashedPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Password = hashedPassword
	return nil
}

func (m *memUsers) UpdateTokenVersion(ctx context.Context, userID uint, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.TokenVersion = version
	return nil
}

func (m *memUsers) ReplaceRoles(ctx context.Context, userID uint, roles []model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Roles = roles
	return nil
}

type memRoles struct {
	roles map[uint]model.Role
}

func (m *memRoles) FindAll(ctx context.Context) ([]model.Role, error) {
	out := make([]model.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRoles) FindByID(ctx context.Context, id uint) (*model.Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, repository.ErrRoleNotFound
	}
	return &r, nil
}

func (m *memRoles) FindByIDs(ctx context.Context, ids []uint) ([]model.Role, error) {
	out := make([]model.Role, 0, len(ids))
	for _, id := range ids {
		if r, ok := m.roles[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRoles) ReplacePermissions(ctx context.Context, roleID uint, permissions []model.Permission) error {
	r := m.roles[roleID]
	r.Permissions = permissions
	m.roles[roleID] = r
	return nil
}

func (m *memRoles) SeedDefaults(ctx context.Context) error { return nil }

type noOrgs struct{}

func (noOrgs) List(ctx context.Context) ([]model.Organization, error) { return nil, nil }

func (noOrgs) FindByID(ctx context.Context, id uint) (*model.Organization, error) {
	return nil, organization.ErrNotFound
}
