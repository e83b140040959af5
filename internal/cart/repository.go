package cart

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	Get(ctx context.Context, userID uint) (Items, error)
	Replace(ctx context.Context, userID uint, items Items) error
	ClearCart(ctx context.Context, userID uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, userID uint) (Items, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, quantity FROM carts WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := Items{}
	for rows.Next() {
		var productID uuid.UUID
		var qty int
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		items[productID] = qty
	}
	return items, rows.Err()
}

// Replace swaps the whole cart in one transaction.
func (r *repository) Replace(ctx context.Context, userID uint, items Items) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("reset cart: %w", err)
	}

	for productID, qty := range items {
		if qty <= 0 {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO carts (user_id, product_id, quantity) VALUES ($1, $2, $3)`,
			userID, productID, qty,
		)
		if err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}

	return tx.Commit()
}

// ClearCart empties the cart; an already empty cart is not an error.
func (r *repository) ClearCart(ctx context.Context, userID uint) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		logger.FromCtx(ctx).Error("failed to clear cart",
			zap.String("layer", "repository"),
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrFailedClearCart, err)
	}
	return nil
}
