package usecase

import (
	"context"

	"go.uber.org/zap"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
	"tiffin/internal/order/view"
)

type OrderReader interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindAll(ctx context.Context, filter domain.Filter) ([]domain.Order, error)
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
}

type OrderQueryUseCase struct {
	store  OrderReader
	logger *zap.Logger
}

func NewOrderQueryUseCase(store OrderReader, logger *zap.Logger) *OrderQueryUseCase {
	return &OrderQueryUseCase{store: store, logger: logger}
}

// Get returns one order if actor takes part in it. Deliverers may also see
// orders still waiting for a deliverer.
func (uc *OrderQueryUseCase) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	order, err := uc.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	visible := order.VendorID == actor.ID ||
		order.CustomerID == actor.ID ||
		order.IsDeliveredBy(actor.ID) ||
		(actor.Role == domain.RoleDeliverer && order.Status == domain.StatusReadyForPickup && !order.HasDeliverer())
	if !visible {
		// Same answer as a missing order so ids cannot be probed.
		return nil, errors.NewNotFoundError("order not found")
	}
	return order, nil
}

// List loads and projects one named view for actor.
func (uc *OrderQueryUseCase) List(ctx context.Context, actor domain.Actor, name view.Name) ([]domain.Order, error) {
	v, err := view.For(actor, name)
	if err != nil {
		return nil, errors.NewValidationError(err.Error(), errors.ValidationDetail{Field: "view", Message: "unknown view for this role"})
	}

	orders, err := uc.store.FindAll(ctx, v.Filter)
	if err != nil {
		return nil, err
	}
	return v.Project(orders), nil
}

// Place creates an order for a customer. The total is computed from the items.
func (uc *OrderQueryUseCase) Place(ctx context.Context, actor domain.Actor, order domain.Order) (*domain.Order, error) {
	if actor.Role != domain.RoleCustomer {
		return nil, errors.NewForbiddenError("only customers place orders")
	}
	order.ID = ""
	order.CustomerID = actor.ID
	order.DelivererID = nil
	order.Status = domain.StatusCreated

	created, err := uc.store.Create(ctx, order)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("order placed", zap.String("orderId", created.ID), zap.String("actorId", actor.ID))
	return created, nil
}
