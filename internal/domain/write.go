package domain

import "time"

// StatusGuard is the WHERE clause of a conditional status write.
type StatusGuard struct {
	ExpectedStatus    Status
	VendorID          string
	CustomerID        string
	DelivererID       string
	RequireUnassigned bool
}

// StatusChange is the SET clause of a conditional status write. Nil pointers
// leave the column untouched.
type StatusChange struct {
	Status        Status
	DelivererID   *string
	CompletedAt   *time.Time
	PaymentMethod *string
	UpdatedAt     time.Time
}

// GuardFor builds the write guard that enforces transition t for actor.
func GuardFor(t Transition, actor Actor) StatusGuard {
	g := StatusGuard{ExpectedStatus: t.From}
	switch t.Guard {
	case GuardCustomerOwner:
		g.CustomerID = actor.ID
	case GuardVendorOwner:
		g.VendorID = actor.ID
	case GuardVendorOwnerUnassigned:
		g.VendorID = actor.ID
		g.RequireUnassigned = true
	case GuardClaim:
		g.RequireUnassigned = true
	case GuardDelivererOwner:
		g.DelivererID = actor.ID
	}
	return g
}

func (g StatusGuard) Matches(o Order) bool {
	if o.Status != g.ExpectedStatus {
		return false
	}
	if g.VendorID != "" && o.VendorID != g.VendorID {
		return false
	}
	if g.CustomerID != "" && o.CustomerID != g.CustomerID {
		return false
	}
	if g.DelivererID != "" && !o.IsDeliveredBy(g.DelivererID) {
		return false
	}
	if g.RequireUnassigned && o.HasDeliverer() {
		return false
	}
	return true
}

// Apply returns a copy of o with the change written. Price and items are never
// touched.
func (c StatusChange) Apply(o Order) Order {
	out := o.Clone()
	out.Status = c.Status
	if c.DelivererID != nil {
		out.DelivererID = cloneString(c.DelivererID)
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	if c.PaymentMethod != nil {
		out.PaymentMethod = cloneString(c.PaymentMethod)
	}
	if !c.UpdatedAt.IsZero() {
		out.UpdatedAt = c.UpdatedAt
	}
	return out
}
