package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tiffin/internal/domain"
	"tiffin/internal/infrastructure/metrics"
	"tiffin/internal/order/cache"
	"tiffin/internal/order/view"
	"tiffin/internal/realtime"
)

type Subscriber interface {
	Subscribe(scope domain.Filter, handlers realtime.Handlers) *realtime.Subscription
}

type OrderLister interface {
	FindAll(ctx context.Context, filter domain.Filter) ([]domain.Order, error)
}

// Screen is one mounted view: a cache kept current by its own subscription.
type Screen struct {
	ID    string
	Actor domain.Actor
	View  view.View

	cache      *cache.LocalOrderCache
	reconciler *Reconciler
	hub        Subscriber
	store      OrderLister
	logger     *zap.Logger

	mu  sync.Mutex
	sub *realtime.Subscription
}

func NewScreen(
	actor domain.Actor,
	v view.View,
	hub Subscriber,
	store OrderLister,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Screen {
	id := uuid.NewString()
	c := cache.New(v.Matches)
	logger = logger.With(zap.String("screenId", id), zap.String("view", string(v.Name)), zap.String("actorId", actor.ID))
	return &Screen{
		ID:         id,
		Actor:      actor,
		View:       v,
		cache:      c,
		reconciler: NewReconciler(c, v, m, logger),
		hub:        hub,
		store:      store,
		logger:     logger,
	}
}

// Mount subscribes first and then loads the authoritative snapshot, so no change
// committed after the load can be missed. Every event handled while loading,
// including ones the view ignored, wins over snapshot rows no newer than it.
func (s *Screen) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.sub != nil {
		s.mu.Unlock()
		return nil
	}
	if s.cache.Closed() {
		s.mu.Unlock()
		return fmt.Errorf("screen %s already unmounted", s.ID)
	}
	s.cache.BeginLoad()
	s.sub = s.hub.Subscribe(s.View.Filter.Scope(), s.reconciler.Handlers())
	s.mu.Unlock()

	orders, err := s.store.FindAll(ctx, s.View.Filter)
	if err != nil {
		s.Unmount()
		return fmt.Errorf("loading %s view: %w", s.View.Name, err)
	}
	s.cache.Merge(orders)

	s.logger.Info("screen mounted", zap.Int("orders", len(orders)))
	return nil
}

// Refresh reloads the view from the store, replacing the cache content.
func (s *Screen) Refresh(ctx context.Context) error {
	orders, err := s.store.FindAll(ctx, s.View.Filter)
	if err != nil {
		return fmt.Errorf("refreshing %s view: %w", s.View.Name, err)
	}
	s.cache.Replace(orders)
	return nil
}

// Unmount closes the subscription and the cache. Results of writes still in
// flight are discarded. Calling it twice is harmless.
func (s *Screen) Unmount() {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if !s.cache.Closed() {
		s.cache.Close()
		s.logger.Info("screen unmounted")
	}
}

func (s *Screen) Cache() *cache.LocalOrderCache {
	return s.cache
}

// Orders projects the cache through the view.
func (s *Screen) Orders() []domain.Order {
	return s.View.Project(s.cache.Snapshot())
}

func (s *Screen) Changes() <-chan struct{} {
	return s.cache.Changes()
}
