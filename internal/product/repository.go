package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) error
	SetInStock(ctx context.Context, id uuid.UUID, inStock bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productColumns = `id, name, description, category, price, offer_price, stock, in_stock, images, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	var images pq.StringArray
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category,
		&p.Price, &p.OfferPrice, &p.Stock, &p.InStock,
		&images, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Images = []string(images)
	return &p, nil
}

func (r *repository) Create(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.InStock = p.Stock > 0

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (
			id, name, description, category, price,
			offer_price, stock, in_stock, images
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at
	`,
		p.ID, p.Name, p.Description, p.Category, p.Price,
		p.OfferPrice, p.Stock, p.InStock, pq.Array(p.Images),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to insert product",
			zap.String("layer", "repository"),
			zap.String("product_id", p.ID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// GetByIDs returns the products that exist; missing ids are simply absent.
func (r *repository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error) {
	out := make(map[uuid.UUID]*Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[])`,
		pq.Array(keys),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) error {
	if params.Empty() {
		return ErrNothingToUpdate
	}

	sets := []string{}
	args := []any{}
	argIndex := 1

	if params.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argIndex))
		args = append(args, *params.Name)
		argIndex++
	}
	if params.Category != nil {
		sets = append(sets, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *params.Category)
		argIndex++
	}
	if params.OfferPrice != nil {
		sets = append(sets, fmt.Sprintf("offer_price = $%d", argIndex))
		args = append(args, *params.OfferPrice)
		argIndex++
	}
	if params.Stock != nil {
		// in_stock follows every stock write
		sets = append(sets, fmt.Sprintf("stock = $%d, in_stock = $%d > 0", argIndex, argIndex))
		args = append(args, *params.Stock)
		argIndex++
	}

	query := "UPDATE products SET " + strings.Join(sets, ", ") +
		fmt.Sprintf(", updated_at = NOW() WHERE id = $%d", argIndex)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetInStock toggles availability; a product with no stock stays unavailable.
func (r *repository) SetInStock(ctx context.Context, id uuid.UUID, inStock bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET in_stock = ($1 AND stock > 0), updated_at = NOW()
		WHERE id = $2
	`, inStock, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DecrementStock takes qty units from the product only if that many are
// available, in one conditional statement. It reports false when the
// product is missing or short.
func DecrementStock(ctx context.Context, exec Execer, id uuid.UUID, qty int) (bool, error) {
	res, err := exec.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $1,
		    in_stock = (stock - $1) > 0,
		    updated_at = NOW()
		WHERE id = $2 AND stock >= $1
	`, qty, id)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// RestoreStock gives qty units back. A product deleted in the meantime is
// left alone.
func RestoreStock(ctx context.Context, exec Execer, id uuid.UUID, qty int) error {
	_, err := exec.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $1,
		    in_stock = TRUE,
		    updated_at = NOW()
		WHERE id = $2
	`, qty, id)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
