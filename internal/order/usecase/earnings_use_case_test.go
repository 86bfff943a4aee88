package usecase

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
)

type mockOrderFinder struct {
	FindAllFunc func(ctx context.Context, filter domain.Filter) ([]domain.Order, error)
	calls       int
}

func (m *mockOrderFinder) FindAll(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
	m.calls++
	return m.FindAllFunc(ctx, filter)
}

func completedOrders() []domain.Order {
	a := testOrder("order-1", domain.StatusCompleted, domain.StringPtr(delivererA.ID))
	b := testOrder("order-2", domain.StatusCompleted, domain.StringPtr(delivererA.ID))
	b.TotalPrice = 120
	b.DeliveryFee = 25
	return []domain.Order{a, b}
}

func TestEarnings_DelivererSumsDeliveryFees(t *testing.T) {
	var seen domain.Filter
	store := &mockOrderFinder{
		FindAllFunc: func(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
			seen = filter
			return completedOrders(), nil
		},
	}

	uc := NewEarningsUseCase(store, zap.NewNop())
	e, err := uc.Refresh(context.Background(), delivererA)

	require.NoError(t, err)
	assert.Equal(t, 2, e.CompletedOrders)
	assert.InDelta(t, 65.0, e.Total, 0.001)
	assert.Equal(t, delivererA.ID, seen.DelivererID)
	assert.Empty(t, seen.VendorID)
	assert.Equal(t, []domain.Status{domain.StatusCompleted}, seen.Statuses)
}

func TestEarnings_VendorSumsOrderTotals(t *testing.T) {
	var seen domain.Filter
	store := &mockOrderFinder{
		FindAllFunc: func(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
			seen = filter
			return completedOrders(), nil
		},
	}

	uc := NewEarningsUseCase(store, zap.NewNop())
	e, err := uc.Refresh(context.Background(), vendor)

	require.NoError(t, err)
	assert.InDelta(t, 420.0, e.Total, 0.001)
	assert.Equal(t, vendor.ID, seen.VendorID)
	assert.Equal(t, domain.RoleVendor, e.Role)
}

func TestEarnings_CustomerIsForbidden(t *testing.T) {
	store := &mockOrderFinder{}

	uc := NewEarningsUseCase(store, zap.NewNop())
	_, err := uc.Get(context.Background(), customer)

	_, ok := errors.IsForbiddenError(err)
	assert.True(t, ok)
	assert.Zero(t, store.calls)
}

func TestEarnings_GetReusesLastRefresh(t *testing.T) {
	store := &mockOrderFinder{
		FindAllFunc: func(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
			return completedOrders(), nil
		},
	}
	uc := NewEarningsUseCase(store, zap.NewNop())

	first, err := uc.Get(context.Background(), delivererA)
	require.NoError(t, err)
	second, err := uc.Get(context.Background(), delivererA)
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, first.Total, second.Total)

	_, err = uc.Refresh(context.Background(), delivererA)
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestEarnings_StoreErrorIsReturned(t *testing.T) {
	store := &mockOrderFinder{
		FindAllFunc: func(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
			return nil, errors.NewTransientError("listing orders", stderrors.New("i/o timeout"))
		},
	}
	uc := NewEarningsUseCase(store, zap.NewNop())

	_, err := uc.Get(context.Background(), vendor)

	_, ok := errors.IsTransientError(err)
	assert.True(t, ok)
}

func TestEarnings_OrderCompletedRefreshesBothParties(t *testing.T) {
	var filters []domain.Filter
	store := &mockOrderFinder{
		FindAllFunc: func(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
			filters = append(filters, filter)
			return completedOrders(), nil
		},
	}
	uc := NewEarningsUseCase(store, zap.NewNop())

	err := uc.OrderCompleted(context.Background(), completedOrders()[0])

	require.NoError(t, err)
	require.Len(t, filters, 2)
	assert.Equal(t, vendor.ID, filters[0].VendorID)
	assert.Equal(t, delivererA.ID, filters[1].DelivererID)

	store.FindAllFunc = func(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
		t.Fatal("both aggregates were cached by the completion")
		return nil, nil
	}
	_, err = uc.Get(context.Background(), vendor)
	require.NoError(t, err)
	_, err = uc.Get(context.Background(), delivererA)
	require.NoError(t, err)
}

func TestEarnings_OrderCompletedWithoutDeliverer(t *testing.T) {
	store := &mockOrderFinder{
		FindAllFunc: func(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
			return nil, errors.NewTransientError("listing orders", stderrors.New("i/o timeout"))
		},
	}
	uc := NewEarningsUseCase(store, zap.NewNop())

	err := uc.OrderCompleted(context.Background(), testOrder("order-1", domain.StatusCompleted, nil))

	_, ok := errors.IsTransientError(err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.calls)
}
