package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agriconnect/marketplace-service/internal/domain"
	"github.com/agriconnect/marketplace-service/pkg/apperrors"
)

// ProductRepository encapsulates product persistence. ReserveStock and
// RestoreStock are the only mutators of stock; implementations must make
// them atomic with respect to concurrent callers on the same product.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Product, error)
	Delete(ctx context.Context, id string) error
	ReserveStock(ctx context.Context, id string, quantity int) (*domain.Product, error)
	RestoreStock(ctx context.Context, id string, quantity int) (*domain.Product, error)
}

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository instantiates repository.
func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	const query = `
        INSERT INTO products (owner_id, name, description, price, stock)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		product.OwnerID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const query = `
        SELECT id, owner_id, name, description, price, stock, created_at, updated_at
        FROM products WHERE id=$1`

	var product domain.Product
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.OwnerID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	const query = `
        SELECT id, owner_id, name, description, price, stock, created_at, updated_at
        FROM products ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *productRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Product, error) {
	const query = `
        SELECT id, owner_id, name, description, price, stock, created_at, updated_at
        FROM products WHERE owner_id=$1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ReserveStock locks the product row, verifies availability and decrements
// stock in a single transaction. Returns the updated product.
func (r *productRepository) ReserveStock(ctx context.Context, id string, quantity int) (*domain.Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var stock int
	if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, id).Scan(&stock); err != nil {
		return nil, err
	}
	if stock < quantity {
		return nil, apperrors.NewInsufficientStock(id, quantity, stock)
	}

	product, err := adjustStock(ctx, tx, id, -quantity)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return product, nil
}

// RestoreStock returns previously reserved units to the product.
func (r *productRepository) RestoreStock(ctx context.Context, id string, quantity int) (*domain.Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var stock int
	if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, id).Scan(&stock); err != nil {
		return nil, err
	}

	product, err := adjustStock(ctx, tx, id, quantity)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return product, nil
}

func adjustStock(ctx context.Context, tx pgx.Tx, id string, delta int) (*domain.Product, error) {
	const query = `
        UPDATE products SET stock = stock + $2, updated_at = NOW()
        WHERE id=$1
        RETURNING id, owner_id, name, description, price, stock, created_at, updated_at`

	var product domain.Product
	if err := tx.QueryRow(ctx, query, id, delta).Scan(
		&product.ID,
		&product.OwnerID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &product, nil
}

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	var result []domain.Product
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID,
			&product.OwnerID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.Stock,
			&product.CreatedAt,
			&product.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, product)
	}
	return result, rows.Err()
}
