package order

import (
	"context"

	"go.uber.org/zap"

	"tiffin/internal/config"
	"tiffin/internal/domain"
	"tiffin/internal/infrastructure/metrics"
	"tiffin/internal/order/controller"
	"tiffin/internal/order/service"
	"tiffin/internal/order/usecase"
	"tiffin/internal/order/view"
	"tiffin/internal/realtime"
)

// Store is what the order module needs from whichever backend is configured.
type Store interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindAll(ctx context.Context, filter domain.Filter) ([]domain.Order, error)
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, guard domain.StatusGuard, change domain.StatusChange) (int64, error)
}

type Module struct {
	Controller *controller.OrderController
	Screens    *service.ScreenRegistry
}

func NewModule(store Store, hub *realtime.Hub, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *Module {
	earnings := usecase.NewEarningsUseCase(store, logger)
	transitions := usecase.NewTransitionUseCase(store, earnings, m, logger, cfg.Order.WriteTimeout)
	queries := usecase.NewOrderQueryUseCase(store, logger)

	screens := service.NewScreenRegistry(m)
	newScreen := func(actor domain.Actor, v view.View) *service.Screen {
		return service.NewScreen(actor, v, hub, store, m, logger)
	}

	return &Module{
		Controller: controller.NewOrderController(transitions, queries, earnings, screens, newScreen, logger),
		Screens:    screens,
	}
}
