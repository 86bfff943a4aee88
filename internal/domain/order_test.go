package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestOrder() Order {
	address := "12 Harbour Rd"
	return Order{
		ID:              "order-1",
		CustomerID:      "customer-1",
		VendorID:        "vendor-1",
		Items:           []OrderItem{{ProductID: "p-1", Name: "Dal", UnitPrice: 125.00, Quantity: 2}},
		TotalPrice:      250.00,
		DeliveryFee:     30.00,
		Status:          StatusReadyForPickup,
		DeliveryAddress: &address,
		CreatedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestOrder_DisplayNamePlaceholders(t *testing.T) {
	order := newTestOrder()

	assert.Equal(t, "Vendor", order.VendorDisplayName())
	assert.Equal(t, "Customer", order.CustomerDisplayName())

	order.VendorName = "Spice Route"
	order.CustomerName = "Asha"
	assert.Equal(t, "Spice Route", order.VendorDisplayName())
	assert.Equal(t, "Asha", order.CustomerDisplayName())
}

func TestOrder_CloneIsDeep(t *testing.T) {
	order := newTestOrder()
	order.DelivererID = StringPtr("deliverer-1")

	clone := order.Clone()
	clone.Items[0].Quantity = 9
	*clone.DelivererID = "deliverer-2"
	*clone.DeliveryAddress = "elsewhere"

	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "deliverer-1", *order.DelivererID)
	assert.Equal(t, "12 Harbour Rd", *order.DeliveryAddress)
}

func TestOrder_Equal(t *testing.T) {
	order := newTestOrder()

	assert.True(t, order.Equal(order.Clone()))

	moved := order.Clone()
	moved.Status = StatusDelivererAssigned
	assert.False(t, order.Equal(moved))

	assigned := order.Clone()
	assigned.DelivererID = StringPtr("deliverer-1")
	assert.False(t, order.Equal(assigned))

	completedAt := time.Now()
	done := order.Clone()
	done.CompletedAt = &completedAt
	assert.False(t, order.Equal(done))
}

func TestItemsTotal(t *testing.T) {
	items := []OrderItem{
		{ProductID: "p-1", UnitPrice: 100.00, Quantity: 2},
		{ProductID: "p-2", UnitPrice: 50.00, Quantity: 1},
	}

	assert.Equal(t, 250.00, ItemsTotal(items))
	assert.Equal(t, 0.0, ItemsTotal(nil))
}

func TestStatusChange_ApplyKeepsPriceAndItems(t *testing.T) {
	order := newTestOrder()
	order.Status = StatusDelivered
	order.DelivererID = StringPtr("deliverer-1")
	completedAt := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)

	done := StatusChange{
		Status:        StatusCompleted,
		CompletedAt:   &completedAt,
		PaymentMethod: StringPtr("cash"),
		UpdatedAt:     completedAt,
	}.Apply(order)

	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, 250.00, done.TotalPrice)
	assert.Equal(t, 30.00, done.DeliveryFee)
	assert.Equal(t, order.Items, done.Items)
	assert.Equal(t, completedAt, *done.CompletedAt)
	assert.Equal(t, "cash", *done.PaymentMethod)
	assert.Equal(t, StatusDelivered, order.Status)
}

func TestFilter_Matches(t *testing.T) {
	order := newTestOrder()

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "zero filter", filter: Filter{}, want: true},
		{name: "vendor match", filter: Filter{VendorID: "vendor-1"}, want: true},
		{name: "vendor mismatch", filter: Filter{VendorID: "vendor-2"}, want: false},
		{name: "status match", filter: Filter{Statuses: []Status{StatusReadyForPickup}}, want: true},
		{name: "status mismatch", filter: Filter{Statuses: []Status{StatusPreparing}}, want: false},
		{name: "unassigned", filter: Filter{Unassigned: true}, want: true},
		{name: "deliverer mismatch", filter: Filter{DelivererID: "deliverer-1"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(order))
		})
	}
}

func TestFilter_ScopeDropsStatusConstraints(t *testing.T) {
	filter := Filter{VendorID: "vendor-1", Statuses: []Status{StatusPreparing}, Unassigned: true}

	scope := filter.Scope()

	assert.Equal(t, Filter{VendorID: "vendor-1"}, scope)
}
