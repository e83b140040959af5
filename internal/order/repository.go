package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/logger"
	"storefront-be/internal/product"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// CreateWithStock decrements stock for every item and inserts the
	// order in one transaction. A short item rolls everything back with
	// ErrInsufficientStock.
	CreateWithStock(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// ListVisible returns COD or paid orders, newest first; nil userID
	// means every user.
	ListVisible(ctx context.Context, userID *uint) ([]*Order, error)
	// Transition moves the order from -> to only if it is still in from.
	Transition(ctx context.Context, id uuid.UUID, from, to Status) error
	MarkPaid(ctx context.Context, id uuid.UUID) error
	// DiscardProvisional deletes a pending-payment order and restores its
	// stock. Missing or already settled orders are left alone.
	DiscardProvisional(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `o.id, o.user_id, u.email, u.name, o.amount, o.address,
	o.payment_type, o.is_paid, o.payment_status, o.status, o.created_at, o.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.UserEmail, &o.UserName, &o.Amount, &o.Address,
		&o.PaymentType, &o.IsPaid, &o.PaymentStatus, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) CreateWithStock(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateWithStock"),
		zap.String("order_id", o.ID.String()),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range o.Items {
		ok, err := product.DecrementStock(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			log.Info("stock check lost", zap.String("product_id", item.ProductID.String()))
			return ErrInsufficientStock
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			id, user_id, amount, address, payment_type,
			is_paid, payment_status, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at
	`,
		o.ID, o.UserID, o.Amount, o.Address, o.PaymentType,
		o.IsPaid, o.PaymentStatus, o.Status,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, product_name, unit_price, quantity
			) VALUES ($1,$2,$3,$4,$5)
		`,
			o.ID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1
	`, id)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) ListVisible(ctx context.Context, userID *uint) ([]*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE (o.payment_type = 'COD' OR o.is_paid)`
	args := []any{}
	if userID != nil {
		query += ` AND o.user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY o.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) attachItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[uuid.UUID]*Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
		byID[o.ID] = o
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY id
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID uuid.UUID
		var item OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to Status) error {
	delivered := to == StatusDelivered

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    is_paid = is_paid OR $2,
		    payment_status = CASE WHEN $2 THEN 'PAID' ELSE payment_status END,
		    updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, to, delivered, id, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrIllegalTransition
	}
	return nil
}

// MarkPaid touches only the payment columns.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET is_paid = TRUE, payment_status = $1, updated_at = NOW()
		WHERE id = $2
	`, PaymentPaid, id)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) DiscardProvisional(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var status PaymentStatus
	err = tx.QueryRowContext(ctx,
		`SELECT payment_status FROM orders WHERE id = $1 FOR UPDATE`, id,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if status != PaymentPending {
		return false, nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT product_id, quantity FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return false, err
	}
	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			rows.Close()
			return false, err
		}
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}

	for _, item := range items {
		if err := product.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return false, err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return false, fmt.Errorf("delete provisional order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
