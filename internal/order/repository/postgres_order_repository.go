package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
)

type PostgresOrderRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresOrderRepository(pool *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *PostgresOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT` + orderColumns + orderFrom + ` WHERE o.id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, classifyPostgresError("querying order by id", err)
	}

	items, err := r.findItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]

	return &order, nil
}

func (r *PostgresOrderRepository) FindAll(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
	b := newPostgresBuilder()
	query := `SELECT` + orderColumns + orderFrom + b.where(filter) + orderBy

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, classifyPostgresError("querying orders", err)
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
		return nil, classifyPostgresError("iterating orders", err)
	}

	items, err := r.findItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

func (r *PostgresOrderRepository) findItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	items := make(map[string][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return items, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT order_id, product_id, name, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`, orderIDs)
	if err != nil {
		return nil, classifyPostgresError("querying order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPostgresError("iterating order items", err)
	}

	return items, nil
}

func (r *PostgresOrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	prepared, err := prepareNew(order, r.now())
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, classifyPostgresError("beginning transaction", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, vendor_id, total_price, delivery_fee, status,
			delivery_address, delivery_lat, delivery_lng, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		prepared.ID, prepared.CustomerID, prepared.VendorID, prepared.TotalPrice, prepared.DeliveryFee,
		string(prepared.Status), prepared.DeliveryAddress, prepared.DeliveryLat, prepared.DeliveryLng,
		prepared.CreatedAt, prepared.UpdatedAt,
	)
	if err != nil {
		return nil, classifyPostgresError("inserting order", err)
	}

	batch := &pgx.Batch{}
	for _, item := range prepared.Items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, name, unit_price, quantity) VALUES ($1, $2, $3, $4, $5)`,
			prepared.ID, item.ProductID, item.Name, item.UnitPrice, item.Quantity)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, classifyPostgresError("inserting order items", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPostgresError("committing order", err)
	}

	return r.FindByID(ctx, prepared.ID)
}

func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, guard domain.StatusGuard, change domain.StatusChange) (int64, error) {
	if change.UpdatedAt.IsZero() {
		change.UpdatedAt = r.now()
	}

	b := newPostgresBuilder()
	tag, err := r.pool.Exec(ctx, b.updateStatus(id, guard, change), b.args...)
	if err != nil {
		return 0, classifyPostgresError("updating order status", err)
	}

	return tag.RowsAffected(), nil
}

// classifyPostgresError marks serialization failures, deadlocks, lock timeouts
// and connection timeouts as transient.
func classifyPostgresError(op string, err error) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return errors.NewTransientError(op, err)
		}
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return errors.NewTransientError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id text PRIMARY KEY,
		role text NOT NULL,
		display_name text NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id text PRIMARY KEY,
		customer_id text NOT NULL,
		vendor_id text NOT NULL,
		deliverer_id text,
		total_price numeric(10,2) NOT NULL DEFAULT 0,
		delivery_fee numeric(10,2) NOT NULL DEFAULT 0,
		status text NOT NULL DEFAULT 'created',
		payment_method text,
		delivery_address text,
		delivery_lat double precision,
		delivery_lng double precision,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now(),
		completed_at timestamptz
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_vendor ON orders (vendor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_deliverer ON orders (deliverer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders (customer_id)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id bigserial PRIMARY KEY,
		order_id text NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id text NOT NULL,
		name text NOT NULL DEFAULT '',
		unit_price numeric(10,2) NOT NULL,
		quantity integer NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)`,
}

// EnsurePostgresSchema creates the order tables when they are missing.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring postgres schema: %w", err)
		}
	}
	return nil
}
