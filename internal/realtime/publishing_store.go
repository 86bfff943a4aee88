package realtime

import (
	"context"

	"go.uber.org/zap"

	"tiffin/internal/domain"
)

// Store is the order entity store contract the decorator wraps.
type Store interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindAll(ctx context.Context, filter domain.Filter) ([]domain.Order, error)
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, guard domain.StatusGuard, change domain.StatusChange) (int64, error)
}

type Publisher interface {
	Publish(ev ChangeEvent)
}

// PublishingStore emits a change event after every committed write of the
// wrapped store. It is the change feed for stores that have none of their own.
type PublishingStore struct {
	Store
	publisher Publisher
	logger    *zap.Logger
}

func NewPublishingStore(store Store, publisher Publisher, logger *zap.Logger) *PublishingStore {
	return &PublishingStore{
		Store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *PublishingStore) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	created, err := s.Store.Create(ctx, order)
	if err != nil {
		return nil, err
	}

	record := created.Clone()
	s.publisher.Publish(ChangeEvent{Type: EventInsert, Record: &record})
	return created, nil
}

func (s *PublishingStore) UpdateStatus(ctx context.Context, id string, guard domain.StatusGuard, change domain.StatusChange) (int64, error) {
	affected, err := s.Store.UpdateStatus(ctx, id, guard, change)
	if err != nil || affected == 0 {
		return affected, err
	}

	// The write already committed; a failed re-read only costs this echo.
	record, err := s.Store.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn("reading order for change event failed", zap.String("orderId", id), zap.Error(err))
		return affected, nil
	}

	old := previousImage(*record, guard, change)
	s.publisher.Publish(ChangeEvent{Type: EventUpdate, Record: record, Old: &old})
	return affected, nil
}

// previousImage reconstructs the row as it was before a guarded write that
// matched: the guard pins the old status and, for claims, the empty deliverer.
func previousImage(record domain.Order, guard domain.StatusGuard, change domain.StatusChange) domain.Order {
	old := record.Clone()
	old.Status = guard.ExpectedStatus
	if guard.RequireUnassigned && change.DelivererID != nil {
		old.DelivererID = nil
	}
	if change.CompletedAt != nil {
		old.CompletedAt = nil
	}
	if change.PaymentMethod != nil {
		old.PaymentMethod = nil
	}
	return old
}
