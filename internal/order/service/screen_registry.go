package service

import (
	"sync"

	"tiffin/internal/infrastructure/metrics"
)

// ScreenRegistry tracks mounted screens so transitions can target one by id.
type ScreenRegistry struct {
	mu      sync.RWMutex
	screens map[string]*Screen
	metrics *metrics.Metrics
}

func NewScreenRegistry(m *metrics.Metrics) *ScreenRegistry {
	return &ScreenRegistry{
		screens: make(map[string]*Screen),
		metrics: m,
	}
}

func (r *ScreenRegistry) Add(s *Screen) {
	r.mu.Lock()
	r.screens[s.ID] = s
	count := len(r.screens)
	r.mu.Unlock()
	r.metrics.MountedScreens.Set(float64(count))
}

func (r *ScreenRegistry) Get(id string) (*Screen, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.screens[id]
	return s, ok
}

// Remove drops the screen from the registry and unmounts it.
func (r *ScreenRegistry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.screens[id]
	delete(r.screens, id)
	count := len(r.screens)
	r.mu.Unlock()

	if ok {
		s.Unmount()
	}
	r.metrics.MountedScreens.Set(float64(count))
}

// CloseAll unmounts every screen; used on shutdown.
func (r *ScreenRegistry) CloseAll() {
	r.mu.Lock()
	screens := r.screens
	r.screens = make(map[string]*Screen)
	r.mu.Unlock()

	for _, s := range screens {
		s.Unmount()
	}
	r.metrics.MountedScreens.Set(0)
}
