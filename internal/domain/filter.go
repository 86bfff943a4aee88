package domain

// Filter selects orders by owner columns, status set and assignment. Zero fields
// do not constrain; the zero Filter matches every order.
type Filter struct {
	VendorID    string
	DelivererID string
	CustomerID  string
	Statuses    []Status
	Unassigned  bool
}

func (f Filter) Matches(o Order) bool {
	if f.VendorID != "" && o.VendorID != f.VendorID {
		return false
	}
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	if f.DelivererID != "" && !o.IsDeliveredBy(f.DelivererID) {
		return false
	}
	if f.Unassigned && o.HasDeliverer() {
		return false
	}
	if len(f.Statuses) > 0 && !f.HasStatus(o.Status) {
		return false
	}
	return true
}

func (f Filter) HasStatus(s Status) bool {
	for _, st := range f.Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// Scope drops the status and assignment constraints, keeping only the owner
// columns. Change feeds subscribe by scope so updates that move an order out of
// a view are still delivered to it.
func (f Filter) Scope() Filter {
	return Filter{
		VendorID:    f.VendorID,
		DelivererID: f.DelivererID,
		CustomerID:  f.CustomerID,
	}
}
