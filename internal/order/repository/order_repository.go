package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
)

type MySQLOrderRepository struct {
	db    *sql.DB
	items *MySQLOrderItemRepository
	now   func() time.Time
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{
		db:    db,
		items: NewMySQLOrderItemRepository(db),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT` + orderColumns + orderFrom + ` WHERE o.id = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, classifyMySQLError("querying order by id", err)
	}

	items, err := r.items.FindByOrderIDs(ctx, []string{id})
	if err != nil {
		return nil, classifyMySQLError("querying order items", err)
	}
	order.Items = items[id]

	return &order, nil
}

func (r *MySQLOrderRepository) FindAll(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
	b := newMySQLBuilder()
	query := `SELECT` + orderColumns + orderFrom + b.where(filter) + orderBy

	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, classifyMySQLError("querying orders", err)
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []string
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyMySQLError("iterating orders", err)
	}

	items, err := r.items.FindByOrderIDs(ctx, ids)
	if err != nil {
		return nil, classifyMySQLError("querying order items", err)
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

// Create inserts the order and its line items in one transaction. The total is
// computed from the items and never written again.
func (r *MySQLOrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	prepared, err := prepareNew(order, r.now())
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classifyMySQLError("beginning transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, customer_id, vendor_id, total_price, delivery_fee, status,
			delivery_address, delivery_lat, delivery_lng, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		prepared.ID, prepared.CustomerID, prepared.VendorID, prepared.TotalPrice, prepared.DeliveryFee,
		string(prepared.Status), prepared.DeliveryAddress, prepared.DeliveryLat, prepared.DeliveryLng,
		prepared.CreatedAt, prepared.UpdatedAt,
	)
	if err != nil {
		return nil, classifyMySQLError("inserting order", err)
	}

	for _, item := range prepared.Items {
		if _, err := r.items.Insert(ctx, tx, prepared.ID, item); err != nil {
			return nil, classifyMySQLError("inserting order items", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, classifyMySQLError("committing order", err)
	}

	return r.FindByID(ctx, prepared.ID)
}

// UpdateStatus runs the conditional write and reports how many rows matched.
// Zero means the guard failed; it is not an error.
func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, id string, guard domain.StatusGuard, change domain.StatusChange) (int64, error) {
	if change.UpdatedAt.IsZero() {
		change.UpdatedAt = r.now()
	}

	b := newMySQLBuilder()
	query := b.updateStatus(id, guard, change)

	result, err := r.db.ExecContext(ctx, query, b.args...)
	if err != nil {
		return 0, classifyMySQLError("updating order status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	return rowsAffected, nil
}

// classifyMySQLError marks deadlocks, lock wait timeouts and dropped connections
// as transient.
func classifyMySQLError(op string, err error) error {
	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) && (mysqlErr.Number == 1213 || mysqlErr.Number == 1205) {
		return errors.NewTransientError(op, err)
	}
	if stderrors.Is(err, driver.ErrBadConn) || stderrors.Is(err, mysql.ErrInvalidConn) ||
		stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTransientError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
