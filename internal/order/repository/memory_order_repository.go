package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
)

// MemoryOrderRepository keeps orders in process memory. The conditional write
// checks and applies under one lock, so it linearizes concurrent claims exactly
// like the SQL stores.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	now    func() time.Time
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]domain.Order),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	out := order.Clone()
	return &out, nil
}

func (r *MemoryOrderRepository) FindAll(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []domain.Order
	for _, order := range r.orders {
		if filter.Matches(order) {
			orders = append(orders, order.Clone())
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
	return orders, nil
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	prepared, err := prepareNew(order, r.now())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[prepared.ID]; exists {
		return nil, errors.NewConflictError(fmt.Sprintf("order with id %s already exists", prepared.ID))
	}
	r.orders[prepared.ID] = prepared

	out := prepared.Clone()
	return &out, nil
}

func (r *MemoryOrderRepository) UpdateStatus(ctx context.Context, id string, guard domain.StatusGuard, change domain.StatusChange) (int64, error) {
	if change.UpdatedAt.IsZero() {
		change.UpdatedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok || !guard.Matches(order) {
		return 0, nil
	}
	r.orders[id] = change.Apply(order)
	return 1, nil
}

// Seed stores orders verbatim, bypassing creation rules, so tests can start
// from any lifecycle state.
func (r *MemoryOrderRepository) Seed(orders ...domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range orders {
		r.orders[o.ID] = o.Clone()
	}
}
