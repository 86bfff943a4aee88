package domain

import "time"

type Order struct {
	ID              string
	CustomerID      string
	VendorID        string
	DelivererID     *string
	Items           []OrderItem
	TotalPrice      float64
	DeliveryFee     float64
	Status          Status
	PaymentMethod   *string
	DeliveryAddress *string
	DeliveryLat     *float64
	DeliveryLng     *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time

	// Joined from profiles; empty when the profile row is missing.
	VendorName   string
	CustomerName string
}

type OrderItem struct {
	ProductID string
	Name      string
	UnitPrice float64
	Quantity  int
}

const (
	PlaceholderVendorName   = "Vendor"
	PlaceholderCustomerName = "Customer"
)

func (o Order) VendorDisplayName() string {
	if o.VendorName == "" {
		return PlaceholderVendorName
	}
	return o.VendorName
}

func (o Order) CustomerDisplayName() string {
	if o.CustomerName == "" {
		return PlaceholderCustomerName
	}
	return o.CustomerName
}

func (o Order) HasDeliverer() bool {
	return o.DelivererID != nil && *o.DelivererID != ""
}

func (o Order) IsDeliveredBy(delivererID string) bool {
	return o.HasDeliverer() && *o.DelivererID == delivererID
}

// ItemsTotal sums unit price times quantity over the line items.
func ItemsTotal(items []OrderItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// Clone returns a deep copy so cached orders never share pointers with callers.
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	c.DelivererID = cloneString(o.DelivererID)
	c.PaymentMethod = cloneString(o.PaymentMethod)
	c.DeliveryAddress = cloneString(o.DeliveryAddress)
	c.DeliveryLat = cloneFloat(o.DeliveryLat)
	c.DeliveryLng = cloneFloat(o.DeliveryLng)
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

// Equal compares identifier and full content. Two deliveries of the same change
// notification compare equal.
func (o Order) Equal(other Order) bool {
	if o.ID != other.ID ||
		o.CustomerID != other.CustomerID ||
		o.VendorID != other.VendorID ||
		o.TotalPrice != other.TotalPrice ||
		o.DeliveryFee != other.DeliveryFee ||
		o.Status != other.Status ||
		o.VendorName != other.VendorName ||
		o.CustomerName != other.CustomerName ||
		!o.CreatedAt.Equal(other.CreatedAt) ||
		!o.UpdatedAt.Equal(other.UpdatedAt) {
		return false
	}
	if !equalString(o.DelivererID, other.DelivererID) ||
		!equalString(o.PaymentMethod, other.PaymentMethod) ||
		!equalString(o.DeliveryAddress, other.DeliveryAddress) ||
		!equalFloat(o.DeliveryLat, other.DeliveryLat) ||
		!equalFloat(o.DeliveryLng, other.DeliveryLng) {
		return false
	}
	if (o.CompletedAt == nil) != (other.CompletedAt == nil) {
		return false
	}
	if o.CompletedAt != nil && !o.CompletedAt.Equal(*other.CompletedAt) {
		return false
	}
	if len(o.Items) != len(other.Items) {
		return false
	}
	for i := range o.Items {
		if o.Items[i] != other.Items[i] {
			return false
		}
	}
	return true
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// StringPtr is a small helper for the nullable columns.
func StringPtr(s string) *string {
	return &s
}
