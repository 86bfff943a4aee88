package repository

import (
	"context"
	"fmt"
	"sync"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
)

type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewMemoryProfileRepository(profiles ...domain.Profile) *MemoryProfileRepository {
	r := &MemoryProfileRepository{profiles: make(map[string]domain.Profile, len(profiles))}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

func (r *MemoryProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("profile with id %s not found", id))
	}
	return &p, nil
}

func (r *MemoryProfileRepository) Put(p domain.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = p
}
