package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
)

const orderColumns = `
		o.id, o.customer_id, o.vendor_id, o.deliverer_id, o.total_price, o.delivery_fee,
		o.status, o.payment_method, o.delivery_address, o.delivery_lat, o.delivery_lng,
		o.created_at, o.updated_at, o.completed_at,
		COALESCE(v.display_name, ''), COALESCE(c.display_name, '')`

const orderFrom = `
	FROM orders o
	LEFT JOIN profiles v ON v.id = o.vendor_id
	LEFT JOIN profiles c ON c.id = o.customer_id`

const orderBy = ` ORDER BY o.created_at DESC, o.id`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanOrder reads one row selected with orderColumns and normalizes its status.
func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	err := row.Scan(
		&order.ID, &order.CustomerID, &order.VendorID, &order.DelivererID,
		&order.TotalPrice, &order.DeliveryFee, &status, &order.PaymentMethod,
		&order.DeliveryAddress, &order.DeliveryLat, &order.DeliveryLng,
		&order.CreatedAt, &order.UpdatedAt, &order.CompletedAt,
		&order.VendorName, &order.CustomerName,
	)
	if err != nil {
		return domain.Order{}, err
	}

	order.Status, err = domain.ParseStatus(status)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s: %w", order.ID, err)
	}
	if order.DelivererID != nil && *order.DelivererID == "" {
		order.DelivererID = nil
	}
	return order, nil
}

// sqlBuilder accumulates positional arguments for one statement.
type sqlBuilder struct {
	placeholder func(n int) string
	args        []any
}

func newMySQLBuilder() *sqlBuilder {
	return &sqlBuilder{placeholder: func(int) string { return "?" }}
}

func newPostgresBuilder() *sqlBuilder {
	return &sqlBuilder{placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return b.placeholder(len(b.args))
}

func (b *sqlBuilder) list(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = b.arg(v)
	}
	return strings.Join(parts, ", ")
}

// statusIn matches a status column against every spelling of the given statuses,
// so rows still carrying a legacy string are found.
func (b *sqlBuilder) statusIn(column string, statuses ...domain.Status) string {
	var spellings []string
	for _, s := range statuses {
		spellings = append(spellings, domain.StatusSpellings(s)...)
	}
	return "LOWER(" + column + ") IN (" + b.list(spellings) + ")"
}

func (b *sqlBuilder) where(f domain.Filter) string {
	var conds []string
	if f.VendorID != "" {
		conds = append(conds, "o.vendor_id = "+b.arg(f.VendorID))
	}
	if f.CustomerID != "" {
		conds = append(conds, "o.customer_id = "+b.arg(f.CustomerID))
	}
	if f.DelivererID != "" {
		conds = append(conds, "o.deliverer_id = "+b.arg(f.DelivererID))
	}
	if f.Unassigned {
		conds = append(conds, "(o.deliverer_id IS NULL OR o.deliverer_id = '')")
	}
	if len(f.Statuses) > 0 {
		conds = append(conds, b.statusIn("o.status", f.Statuses...))
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// updateStatus renders the conditional write. The WHERE clause always pins the
// expected status; owner and claim guards are added on top.
func (b *sqlBuilder) updateStatus(id string, g domain.StatusGuard, c domain.StatusChange) string {
	sets := []string{
		"status = " + b.arg(string(c.Status)),
		"updated_at = " + b.arg(c.UpdatedAt),
	}
	if c.DelivererID != nil {
		sets = append(sets, "deliverer_id = "+b.arg(*c.DelivererID))
	}
	if c.CompletedAt != nil {
		sets = append(sets, "completed_at = "+b.arg(*c.CompletedAt))
	}
	if c.PaymentMethod != nil {
		sets = append(sets, "payment_method = "+b.arg(*c.PaymentMethod))
	}

	conds := []string{
		"id = " + b.arg(id),
		b.statusIn("status", g.ExpectedStatus),
	}
	if g.VendorID != "" {
		conds = append(conds, "vendor_id = "+b.arg(g.VendorID))
	}
	if g.CustomerID != "" {
		conds = append(conds, "customer_id = "+b.arg(g.CustomerID))
	}
	if g.DelivererID != "" {
		conds = append(conds, "deliverer_id = "+b.arg(g.DelivererID))
	}
	if g.RequireUnassigned {
		conds = append(conds, "(deliverer_id IS NULL OR deliverer_id = '')")
	}

	return "UPDATE orders SET " + strings.Join(sets, ", ") + " WHERE " + strings.Join(conds, " AND ")
}

// prepareNew validates an order about to be created and fills in the id, the
// computed total and the timestamps.
func prepareNew(order domain.Order, now time.Time) (domain.Order, error) {
	var details []errors.ValidationDetail
	if order.CustomerID == "" {
		details = append(details, errors.ValidationDetail{Field: "customerId", Message: "is required"})
	}
	if order.VendorID == "" {
		details = append(details, errors.ValidationDetail{Field: "vendorId", Message: "is required"})
	}
	if len(order.Items) == 0 {
		details = append(details, errors.ValidationDetail{Field: "items", Message: "must not be empty"})
	}
	for i, item := range order.Items {
		if item.Quantity <= 0 {
			details = append(details, errors.ValidationDetail{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be positive"})
		}
		if item.UnitPrice < 0 {
			details = append(details, errors.ValidationDetail{Field: fmt.Sprintf("items[%d].unitPrice", i), Message: "must not be negative"})
		}
	}
	switch order.Status {
	case domain.StatusUnknown:
		order.Status = domain.StatusCreated
	case domain.StatusCreated, domain.StatusAwaitingVendorAcceptance:
	default:
		details = append(details, errors.ValidationDetail{Field: "status", Message: "new orders start as created or awaiting_vendor_acceptance"})
	}
	if order.HasDeliverer() {
		details = append(details, errors.ValidationDetail{Field: "delivererId", Message: "must be empty on a new order"})
	}
	if len(details) > 0 {
		return domain.Order{}, errors.NewValidationError("invalid order", details...)
	}

	out := order.Clone()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	out.DelivererID = nil
	out.CompletedAt = nil
	out.TotalPrice = domain.ItemsTotal(out.Items)
	out.CreatedAt = now
	out.UpdatedAt = now
	return out, nil
}
