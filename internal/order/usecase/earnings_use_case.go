package usecase

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
)

type OrderFinder interface {
	FindAll(ctx context.Context, filter domain.Filter) ([]domain.Order, error)
}

// Earnings is the completed-order aggregate shown to deliverers (delivery fees)
// and vendors (sales).
type Earnings struct {
	ActorID         string
	Role            domain.Role
	CompletedOrders int
	Total           float64
	RefreshedAt     time.Time
}

type EarningsUseCase struct {
	store  OrderFinder
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]Earnings
}

func NewEarningsUseCase(store OrderFinder, logger *zap.Logger) *EarningsUseCase {
	return &EarningsUseCase{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		cache:  make(map[string]Earnings),
	}
}

// Get returns the last computed aggregate, computing it on first use.
func (uc *EarningsUseCase) Get(ctx context.Context, actor domain.Actor) (*Earnings, error) {
	uc.mu.RLock()
	e, ok := uc.cache[actor.ID]
	uc.mu.RUnlock()
	if ok {
		return &e, nil
	}
	return uc.Refresh(ctx, actor)
}

// Refresh recomputes the aggregate from the store.
func (uc *EarningsUseCase) Refresh(ctx context.Context, actor domain.Actor) (*Earnings, error) {
	filter := domain.Filter{Statuses: []domain.Status{domain.StatusCompleted}}
	switch actor.Role {
	case domain.RoleDeliverer:
		filter.DelivererID = actor.ID
	case domain.RoleVendor:
		filter.VendorID = actor.ID
	default:
		return nil, errors.NewForbiddenError("earnings are only available to vendors and deliverers")
	}

	orders, err := uc.store.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	e := Earnings{
		ActorID:         actor.ID,
		Role:            actor.Role,
		CompletedOrders: len(orders),
		RefreshedAt:     uc.now(),
	}
	for _, o := range orders {
		if actor.Role == domain.RoleDeliverer {
			e.Total += o.DeliveryFee
		} else {
			e.Total += o.TotalPrice
		}
	}

	uc.mu.Lock()
	uc.cache[actor.ID] = e
	uc.mu.Unlock()

	uc.logger.Debug("earnings refreshed", zap.String("actorId", actor.ID), zap.Int("completedOrders", e.CompletedOrders))
	return &e, nil
}

// OrderCompleted refreshes the aggregates of both parties paid by the order.
func (uc *EarningsUseCase) OrderCompleted(ctx context.Context, order domain.Order) error {
	parties := []domain.Actor{{ID: order.VendorID, Role: domain.RoleVendor}}
	if order.HasDeliverer() {
		parties = append(parties, domain.Actor{ID: *order.DelivererID, Role: domain.RoleDeliverer})
	}

	var errs []error
	for _, actor := range parties {
		if _, err := uc.Refresh(ctx, actor); err != nil {
			errs = append(errs, fmt.Errorf("refreshing %s %s: %w", actor.Role, actor.ID, err))
		}
	}
	return stderrors.Join(errs...)
}
