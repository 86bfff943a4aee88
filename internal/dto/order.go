package dto

import (
	"time"

	"tiffin/internal/domain"
)

type OrderItemDTO struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

type OrderResponse struct {
	ID              string         `json:"id"`
	Status          string         `json:"status"`
	CustomerID      string         `json:"customerId"`
	CustomerName    string         `json:"customerName"`
	VendorID        string         `json:"vendorId"`
	VendorName      string         `json:"vendorName"`
	DelivererID     *string        `json:"delivererId"`
	Items           []OrderItemDTO `json:"items"`
	TotalPrice      float64        `json:"totalPrice"`
	DeliveryFee     float64        `json:"deliveryFee"`
	PaymentMethod   *string        `json:"paymentMethod,omitempty"`
	DeliveryAddress *string        `json:"deliveryAddress,omitempty"`
	DeliveryLat     *float64       `json:"deliveryLat,omitempty"`
	DeliveryLng     *float64       `json:"deliveryLng,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	Actions         []string       `json:"actions"`
}

// FromOrder renders o for actor. Actions lists the statuses actor may move the
// order to right now.
func FromOrder(o domain.Order, actor domain.Actor) OrderResponse {
	items := make([]OrderItemDTO, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	actions := []string{}
	for _, to := range domain.AllowedTargets(actor.Role, o.Status) {
		rule, _ := domain.FindTransition(actor.Role, o.Status, to)
		if rule.OwnedBy(actor, o) {
			actions = append(actions, string(to))
		}
	}

	return OrderResponse{
		ID:              o.ID,
		Status:          string(o.Status),
		CustomerID:      o.CustomerID,
		CustomerName:    o.CustomerDisplayName(),
		VendorID:        o.VendorID,
		VendorName:      o.VendorDisplayName(),
		DelivererID:     o.DelivererID,
		Items:           items,
		TotalPrice:      o.TotalPrice,
		DeliveryFee:     o.DeliveryFee,
		PaymentMethod:   o.PaymentMethod,
		DeliveryAddress: o.DeliveryAddress,
		DeliveryLat:     o.DeliveryLat,
		DeliveryLng:     o.DeliveryLng,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		CompletedAt:     o.CompletedAt,
		Actions:         actions,
	}
}

func FromOrders(orders []domain.Order, actor domain.Actor) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = FromOrder(o, actor)
	}
	return out
}

type PlaceOrderRequest struct {
	VendorID        string         `json:"vendorId"`
	Items           []OrderItemDTO `json:"items"`
	DeliveryFee     float64        `json:"deliveryFee"`
	DeliveryAddress *string        `json:"deliveryAddress"`
	DeliveryLat     *float64       `json:"deliveryLat"`
	DeliveryLng     *float64       `json:"deliveryLng"`
}

func (r PlaceOrderRequest) ToOrder() domain.Order {
	items := make([]domain.OrderItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	return domain.Order{
		VendorID:        r.VendorID,
		Items:           items,
		DeliveryFee:     r.DeliveryFee,
		DeliveryAddress: r.DeliveryAddress,
		DeliveryLat:     r.DeliveryLat,
		DeliveryLng:     r.DeliveryLng,
	}
}
