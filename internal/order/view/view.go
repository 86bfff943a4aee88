// Package view derives the named order lists each role works from.
package view

import (
	"fmt"
	"sort"

	"tiffin/internal/domain"
)

type Name string

const (
	Incoming  Name = "incoming"
	Available Name = "available"
	Active    Name = "active"
	History   Name = "history"
)

var vendorActive = []domain.Status{
	domain.StatusPreparing,
	domain.StatusReadyForPickup,
	domain.StatusDelivererAssigned,
	domain.StatusPickedUp,
	domain.StatusOutForDelivery,
	domain.StatusDelivered,
}

var delivererActive = []domain.Status{
	domain.StatusDelivererAssigned,
	domain.StatusPickedUp,
	domain.StatusOutForDelivery,
	domain.StatusDelivered,
}

var customerActive = []domain.Status{
	domain.StatusCreated,
	domain.StatusAwaitingVendorAcceptance,
	domain.StatusPreparing,
	domain.StatusReadyForPickup,
	domain.StatusDelivererAssigned,
	domain.StatusPickedUp,
	domain.StatusOutForDelivery,
	domain.StatusDelivered,
}

var terminal = []domain.Status{domain.StatusCompleted, domain.StatusCancelled}

// View is one named list for one actor.
type View struct {
	Name   Name
	Filter domain.Filter
}

// Names lists the views a role can open.
func Names(role domain.Role) []Name {
	switch role {
	case domain.RoleVendor:
		return []Name{Incoming, Active, History}
	case domain.RoleDeliverer:
		return []Name{Available, Active, History}
	case domain.RoleCustomer:
		return []Name{Active, History}
	}
	return nil
}

// For builds the view called name for actor. Views of one actor never share an
// order.
func For(actor domain.Actor, name Name) (View, error) {
	var f domain.Filter
	switch actor.Role {
	case domain.RoleVendor:
		f.VendorID = actor.ID
		switch name {
		case Incoming:
			f.Statuses = []domain.Status{domain.StatusAwaitingVendorAcceptance}
		case Active:
			f.Statuses = vendorActive
		case History:
			f.Statuses = terminal
		default:
			return View{}, unknown(actor.Role, name)
		}
	case domain.RoleDeliverer:
		switch name {
		case Available:
			f.Statuses = []domain.Status{domain.StatusReadyForPickup}
			f.Unassigned = true
		case Active:
			f.DelivererID = actor.ID
			f.Statuses = delivererActive
		case History:
			f.DelivererID = actor.ID
			f.Statuses = []domain.Status{domain.StatusCompleted}
		default:
			return View{}, unknown(actor.Role, name)
		}
	case domain.RoleCustomer:
		f.CustomerID = actor.ID
		switch name {
		case Active:
			f.Statuses = customerActive
		case History:
			f.Statuses = terminal
		default:
			return View{}, unknown(actor.Role, name)
		}
	default:
		return View{}, fmt.Errorf("unknown role %q", actor.Role)
	}

	return View{Name: name, Filter: f}, nil
}

func unknown(role domain.Role, name Name) error {
	return fmt.Errorf("no view %q for role %s", name, role)
}

func (v View) Matches(o domain.Order) bool {
	return v.Filter.Matches(o)
}

// Project returns the orders of this view, newest first with ties broken by id.
// It never mutates its input.
func (v View) Project(orders []domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if v.Matches(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
