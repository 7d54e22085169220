package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bigman/internal/models"
)

func (db *DB) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `INSERT INTO products (name, description, price_cents, image_url, stock, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		product.Name,
		product.Description,
		product.PriceCents,
		product.ImageURL,
		product.Stock,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	product.ID = id
	product.CreatedAt = now
	product.UpdatedAt = now

	return nil
}

func (db *DB) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT id, name, description, price_cents, image_url, stock, created_at, updated_at
              FROM products WHERE id = ?`
	var p models.Product
	err := db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.ImageURL,
		&p.Stock, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (db *DB) ListProducts(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT id, name, description, price_cents, image_url, stock, created_at, updated_at
              FROM products ORDER BY name ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var p models.Product
		err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.ImageURL,
			&p.Stock, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}

func (db *DB) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `UPDATE products SET name = ?, description = ?, price_cents = ?, image_url = ?, stock = ?, updated_at = ?
              WHERE id = ?`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		product.Name,
		product.Description,
		product.PriceCents,
		product.ImageURL,
		product.Stock,
		now,
		product.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	product.UpdatedAt = now
	return nil
}

func (db *DB) DeleteProduct(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
