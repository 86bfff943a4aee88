package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tiffin/internal/domain"
)

func TestFromOrder_ActionsFollowOwnership(t *testing.T) {
	o := domain.Order{
		ID:         "order-1",
		CustomerID: "customer-1",
		VendorID:   "vendor-1",
		Status:     domain.StatusReadyForPickup,
		Items:      []domain.OrderItem{{ProductID: "p-1", Name: "Idli", UnitPrice: 40, Quantity: 3}},
		TotalPrice: 120,
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	deliverer := FromOrder(o, domain.Actor{ID: "deliverer-1", Role: domain.RoleDeliverer})
	assert.Equal(t, []string{string(domain.StatusDelivererAssigned)}, deliverer.Actions)
	assert.Equal(t, "Vendor", deliverer.VendorName)
	assert.Equal(t, "Customer", deliverer.CustomerName)
	assert.Len(t, deliverer.Items, 1)

	stranger := FromOrder(o, domain.Actor{ID: "vendor-2", Role: domain.RoleVendor})
	assert.Empty(t, stranger.Actions)
	assert.NotNil(t, stranger.Actions)

	o.DelivererID = domain.StringPtr("deliverer-2")
	o.Status = domain.StatusDelivererAssigned
	other := FromOrder(o, domain.Actor{ID: "deliverer-1", Role: domain.RoleDeliverer})
	assert.Empty(t, other.Actions)
}

func TestPlaceOrderRequest_ToOrder(t *testing.T) {
	addr := "12 MG Road"
	req := PlaceOrderRequest{
		VendorID:        "vendor-1",
		Items:           []OrderItemDTO{{ProductID: "p-1", Name: "Thali", UnitPrice: 180, Quantity: 1}},
		DeliveryFee:     30,
		DeliveryAddress: &addr,
	}

	o := req.ToOrder()

	assert.Equal(t, "vendor-1", o.VendorID)
	assert.Equal(t, 30.0, o.DeliveryFee)
	assert.Equal(t, "Thali", o.Items[0].Name)
	assert.Empty(t, o.CustomerID)
	assert.Equal(t, "12 MG Road", *o.DeliveryAddress)
}
