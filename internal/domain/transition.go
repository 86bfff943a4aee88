package domain

// Guard names the write condition a transition carries on top of the
// expected source status.
type Guard string

const (
	// GuardCustomerOwner requires customer_id = actor.
	GuardCustomerOwner Guard = "customer_owner"
	// GuardVendorOwner requires vendor_id = actor.
	GuardVendorOwner Guard = "vendor_owner"
	// GuardVendorOwnerUnassigned requires vendor_id = actor and no deliverer yet.
	GuardVendorOwnerUnassigned Guard = "vendor_owner_unassigned"
	// GuardClaim requires deliverer_id IS NULL and sets it to the actor.
	GuardClaim Guard = "claim"
	// GuardDelivererOwner requires deliverer_id = actor.
	GuardDelivererOwner Guard = "deliverer_owner"
)

type Transition struct {
	Role  Role
	From  Status
	To    Status
	Guard Guard
	// RequiresPayment gates delivered -> completed on a payment confirmation.
	RequiresPayment bool
}

// Transitions is the complete transition table. Anything not listed is illegal;
// in particular nothing leaves completed or cancelled.
var Transitions = []Transition{
	{Role: RoleCustomer, From: StatusCreated, To: StatusAwaitingVendorAcceptance, Guard: GuardCustomerOwner},
	{Role: RoleCustomer, From: StatusCreated, To: StatusCancelled, Guard: GuardCustomerOwner},
	{Role: RoleCustomer, From: StatusAwaitingVendorAcceptance, To: StatusCancelled, Guard: GuardCustomerOwner},

	{Role: RoleVendor, From: StatusAwaitingVendorAcceptance, To: StatusPreparing, Guard: GuardVendorOwner},
	{Role: RoleVendor, From: StatusAwaitingVendorAcceptance, To: StatusCancelled, Guard: GuardVendorOwner},
	{Role: RoleVendor, From: StatusPreparing, To: StatusReadyForPickup, Guard: GuardVendorOwner},
	{Role: RoleVendor, From: StatusPreparing, To: StatusCancelled, Guard: GuardVendorOwnerUnassigned},
	{Role: RoleVendor, From: StatusReadyForPickup, To: StatusCancelled, Guard: GuardVendorOwnerUnassigned},
	{Role: RoleVendor, From: StatusDelivered, To: StatusCompleted, Guard: GuardVendorOwner, RequiresPayment: true},

	{Role: RoleDeliverer, From: StatusReadyForPickup, To: StatusDelivererAssigned, Guard: GuardClaim},
	{Role: RoleDeliverer, From: StatusDelivererAssigned, To: StatusPickedUp, Guard: GuardDelivererOwner},
	{Role: RoleDeliverer, From: StatusPickedUp, To: StatusOutForDelivery, Guard: GuardDelivererOwner},
	{Role: RoleDeliverer, From: StatusPickedUp, To: StatusDelivered, Guard: GuardDelivererOwner},
	{Role: RoleDeliverer, From: StatusOutForDelivery, To: StatusDelivered, Guard: GuardDelivererOwner},
	{Role: RoleDeliverer, From: StatusDelivered, To: StatusCompleted, Guard: GuardDelivererOwner, RequiresPayment: true},
}

func FindTransition(role Role, from, to Status) (Transition, bool) {
	for _, t := range Transitions {
		if t.Role == role && t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// RoleCanReach reports whether role may move an order into to from any status.
func RoleCanReach(role Role, to Status) bool {
	for _, t := range Transitions {
		if t.Role == role && t.To == to {
			return true
		}
	}
	return false
}

func AllowedTargets(role Role, from Status) []Status {
	var targets []Status
	for _, t := range Transitions {
		if t.Role == role && t.From == from {
			targets = append(targets, t.To)
		}
	}
	return targets
}

// OwnedBy reports whether the actor satisfies the ownership part of the guard
// for this order. The claim guard has no owner yet and only checks assignment.
func (t Transition) OwnedBy(actor Actor, o Order) bool {
	switch t.Guard {
	case GuardCustomerOwner:
		return o.CustomerID == actor.ID
	case GuardVendorOwner:
		return o.VendorID == actor.ID
	case GuardVendorOwnerUnassigned:
		return o.VendorID == actor.ID && !o.HasDeliverer()
	case GuardClaim:
		return !o.HasDeliverer()
	case GuardDelivererOwner:
		return o.IsDeliveredBy(actor.ID)
	}
	return false
}
