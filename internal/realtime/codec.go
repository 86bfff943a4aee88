package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tiffin/internal/domain"
)

// wireEvent is the JSON envelope shared by the postgres trigger and the kafka
// relay. Field names follow the orders table columns.
type wireEvent struct {
	Type        string     `json:"type"`
	ID          string     `json:"id,omitempty"`
	Record      *wireOrder `json:"record,omitempty"`
	OldRecord   *wireOrder `json:"old_record,omitempty"`
	Source      string     `json:"source,omitempty"`
	CommittedAt time.Time  `json:"commit_timestamp"`
}

type wireOrder struct {
	ID              string     `json:"id"`
	CustomerID      string     `json:"customer_id"`
	VendorID        string     `json:"vendor_id"`
	DelivererID     *string    `json:"deliverer_id"`
	Items           []wireItem `json:"items,omitempty"`
	TotalPrice      float64    `json:"total_price"`
	DeliveryFee     float64    `json:"delivery_fee"`
	Status          string     `json:"status"`
	PaymentMethod   *string    `json:"payment_method"`
	DeliveryAddress *string    `json:"delivery_address"`
	DeliveryLat     *float64   `json:"delivery_lat"`
	DeliveryLng     *float64   `json:"delivery_lng"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	VendorName      string     `json:"vendor_name,omitempty"`
	CustomerName    string     `json:"customer_name,omitempty"`
}

type wireItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// Notification is a decoded wire envelope. Record may be absent when the
// producer only sent the row id and expects the consumer to read the row.
type Notification struct {
	Event ChangeEvent
	ID    string
}

func EncodeEvent(ev ChangeEvent) ([]byte, error) {
	w := wireEvent{
		Type:        string(ev.Type),
		ID:          ev.OrderID(),
		Source:      ev.Source,
		CommittedAt: ev.CommittedAt,
	}
	if ev.Record != nil {
		w.Record = toWireOrder(*ev.Record)
	}
	if ev.Old != nil {
		w.OldRecord = toWireOrder(*ev.Old)
	}
	return json.Marshal(w)
}

// DecodeEvent parses a wire envelope. Unknown event types and rows with an
// unknown status are rejected so callers can drop them.
func DecodeEvent(data []byte) (Notification, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Notification{}, fmt.Errorf("decoding change event: %w", err)
	}

	ev := ChangeEvent{
		Type:        EventType(strings.ToUpper(w.Type)),
		Source:      w.Source,
		CommittedAt: w.CommittedAt,
	}
	switch ev.Type {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return Notification{}, fmt.Errorf("unknown change event type %q", w.Type)
	}

	if w.Record != nil {
		o, err := fromWireOrder(*w.Record)
		if err != nil {
			return Notification{}, err
		}
		ev.Record = &o
	}
	if w.OldRecord != nil {
		o, err := fromWireOrder(*w.OldRecord)
		if err != nil {
			return Notification{}, err
		}
		ev.Old = &o
	}

	id := w.ID
	if id == "" {
		id = ev.OrderID()
	}
	if id == "" {
		return Notification{}, fmt.Errorf("change event without order id")
	}

	return Notification{Event: ev, ID: id}, nil
}

func toWireOrder(o domain.Order) *wireOrder {
	items := make([]wireItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = wireItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	return &wireOrder{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		VendorID:        o.VendorID,
		DelivererID:     o.DelivererID,
		Items:           items,
		TotalPrice:      o.TotalPrice,
		DeliveryFee:     o.DeliveryFee,
		Status:          string(o.Status),
		PaymentMethod:   o.PaymentMethod,
		DeliveryAddress: o.DeliveryAddress,
		DeliveryLat:     o.DeliveryLat,
		DeliveryLng:     o.DeliveryLng,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		CompletedAt:     o.CompletedAt,
		VendorName:      o.VendorName,
		CustomerName:    o.CustomerName,
	}
}

func fromWireOrder(w wireOrder) (domain.Order, error) {
	if w.ID == "" {
		return domain.Order{}, fmt.Errorf("change event row without id")
	}
	status, err := domain.ParseStatus(w.Status)
	if err != nil {
		return domain.Order{}, err
	}

	var items []domain.OrderItem
	if len(w.Items) > 0 {
		items = make([]domain.OrderItem, len(w.Items))
		for i, item := range w.Items {
			items[i] = domain.OrderItem{
				ProductID: item.ProductID,
				Name:      item.Name,
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
			}
		}
	}

	delivererID := w.DelivererID
	if delivererID != nil && *delivererID == "" {
		delivererID = nil
	}

	return domain.Order{
		ID:              w.ID,
		CustomerID:      w.CustomerID,
		VendorID:        w.VendorID,
		DelivererID:     delivererID,
		Items:           items,
		TotalPrice:      w.TotalPrice,
		DeliveryFee:     w.DeliveryFee,
		Status:          status,
		PaymentMethod:   w.PaymentMethod,
		DeliveryAddress: w.DeliveryAddress,
		DeliveryLat:     w.DeliveryLat,
		DeliveryLng:     w.DeliveryLng,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
		CompletedAt:     w.CompletedAt,
		VendorName:      w.VendorName,
		CustomerName:    w.CustomerName,
	}, nil
}
