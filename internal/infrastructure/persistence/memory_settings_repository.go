package persistence

import (
	"context"
	"sync"

	"github.com/zeroxtech/zeno/internal/domain/entity"
	"github.com/zeroxtech/zeno/internal/domain/repository"
	domainErrors "github.com/zeroxtech/zeno/pkg/errors"
)

// MemorySettingsRepository is an in-memory settings store for tests.
type MemorySettingsRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{values: make(map[string]string)}
}

var _ repository.SettingsRepository = (*MemorySettingsRepository)(nil)

func (r *MemorySettingsRepository) Get(_ context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[key], nil
}

func (r *MemorySettingsRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *MemorySettingsRepository) All(_ context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out, nil
}

func (r *MemorySettingsRepository) SeedDefaults(_ context.Context, defaults map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range defaults {
		if _, exists := r.values[k]; !exists {
			r.values[k] = v
		}
	}
	return nil
}

// MemoryAdminRepository is an in-memory admin credential store for tests.
type MemoryAdminRepository struct {
	mu     sync.RWMutex
	users  map[string]entity.AdminUser
	nextID int64
}

func NewMemoryAdminRepository() *MemoryAdminRepository {
	return &MemoryAdminRepository{users: make(map[string]entity.AdminUser), nextID: 1}
}

var _ repository.AdminRepository = (*MemoryAdminRepository)(nil)

func (r *MemoryAdminRepository) FindByUsername(_ context.Context, username string) (*entity.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	if !ok {
		return nil, domainErrors.NewNotFoundError("admin user not found")
	}
	return &user, nil
}

func (r *MemoryAdminRepository) Create(_ context.Context, user *entity.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = r.nextID
	r.nextID++
	r.users[user.Username] = *user
	return nil
}

func (r *MemoryAdminRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}
