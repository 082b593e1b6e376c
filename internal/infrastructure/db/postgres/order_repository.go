package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
)

const (
	uniqueViolation       = "23505"
	orderNumberConstraint = "orders_order_number_key"
	orderColumns          = `id, subject_id, order_number, total_cents, status, payment_status, payment_method, fulfillment, scheduled_for, note, created_at, updated_at`
)

// OrderRepository stores order aggregates in the orders and order_items
// tables. Writes require a transaction from UnitOfWork; reads use it when
// present and fall back to the pool.
type OrderRepository struct {
	pool *pgxpool.Pool
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) q(ctx context.Context) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return r.pool
}

// Insert writes the header and its items. Items are sent as one batch.
func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (subject_id, order_number, total_cents, status, payment_status, payment_method, fulfillment, scheduled_for, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		o.SubjectID,
		o.Number,
		int64(o.TotalAmount),
		o.Status,
		o.PaymentStatus,
		o.PaymentMethod,
		o.Fulfillment,
		o.ScheduledFor,
		o.Note,
		o.CreatedAt,
		o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		if isUniqueViolation(err, orderNumberConstraint) {
			return domain.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, position, item_id, quantity, unit_price_cents, subtotal_cents)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			o.ID, i, it.ItemID, it.Quantity, int64(it.UnitPrice), int64(it.Subtotal))
	}
	br := tx.SendBatch(ctx, batch)
	for i := range o.Items {
		if err := br.QueryRow().Scan(&o.Items[i].ID); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
		o.Items[i].OrderID = o.ID
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

// GetForUpdate loads the header with a row lock held until the transaction ends.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order for update: %w", err)
	}
	return o, nil
}

// UpdateStatus writes the supplied fields and updated_at only.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, change ports.StatusChange) (*domain.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, `
		UPDATE orders
		SET status         = COALESCE($2, status),
		    payment_status = COALESCE($3, payment_status),
		    updated_at     = $4
		WHERE id = $1
		RETURNING `+orderColumns,
		id, change.Status, change.PaymentStatus, change.UpdatedAt,
	)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	q := r.q(ctx)
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}

	items, err := r.itemsFor(ctx, q, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

// List returns one page ordered newest first, with items attached.
func (r *OrderRepository) List(ctx context.Context, f ports.ListOrdersFilter) ([]*domain.Order, int64, error) {
	q := r.q(ctx)

	var subject *int64
	if f.SubjectID != 0 {
		subject = &f.SubjectID
	}
	var status *string
	if f.Status != "" {
		status = &f.Status
	}
	const where = `WHERE ($1::bigint IS NULL OR subject_id = $1) AND ($2::text IS NULL OR status = $2)`

	var total int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM orders `+where, subject, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	offset := max(f.Page-1, 0) * f.Limit
	rows, err := q.Query(ctx, `SELECT `+orderColumns+` FROM orders `+where+` ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`,
		subject, status, f.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan orders: %w", err)
	}

	if len(orders) == 0 {
		return []*domain.Order{}, total, nil
	}
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := r.itemsFor(ctx, q, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, o := range orders {
		o.Items = items[o.ID]
	}
	return orders, total, nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, q querier, orderIDs []int64) (map[int64][]domain.LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, item_id, quantity, unit_price_cents, subtotal_cents
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.LineItem, len(orderIDs))
	for rows.Next() {
		var (
			it              domain.LineItem
			price, subtotal int64
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemID, &it.Quantity, &price, &subtotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.UnitPrice = domain.Money(price)
		it.Subtotal = domain.Money(subtotal)
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o            domain.Order
		total        int64
		scheduledFor *time.Time
	)
	err := row.Scan(
		&o.ID, &o.SubjectID, &o.Number, &total, &o.Status, &o.PaymentStatus,
		&o.PaymentMethod, &o.Fulfillment, &scheduledFor, &o.Note, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.TotalAmount = domain.Money(total)
	if scheduledFor != nil {
		t := scheduledFor.UTC()
		o.ScheduledFor = &t
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}
