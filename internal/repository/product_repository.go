// Package repository contains data access logic for the storefront. This file
// defines the product repository. Products are the catalog entries; the
// is_featured flag selects the subset served from the featured snapshot.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/storefront/internal/model"
)

const productColumns = "id,name,description,price,image,category,is_featured,created_at,updated_at"

// ProductRepo manages persistence for products.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo constructs a ProductRepo.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// ListAll returns every product, newest first.
func (r *ProductRepo) ListAll(ctx context.Context) ([]model.Product, error) {
	return r.query(ctx, "SELECT "+productColumns+" FROM products ORDER BY created_at DESC")
}

// ListFeatured returns the products flagged as featured.
func (r *ProductRepo) ListFeatured(ctx context.Context) ([]model.Product, error) {
	return r.query(ctx, "SELECT "+productColumns+" FROM products WHERE is_featured = 1 ORDER BY created_at DESC")
}

// ListByCategory returns products in a category.
func (r *ProductRepo) ListByCategory(ctx context.Context, category string) ([]model.Product, error) {
	return r.query(ctx, "SELECT "+productColumns+" FROM products WHERE category = ? ORDER BY created_at DESC", category)
}

// Recommended returns up to n randomly sampled products.
func (r *ProductRepo) Recommended(ctx context.Context, n int) ([]model.Product, error) {
	return r.query(ctx, "SELECT "+productColumns+" FROM products ORDER BY RAND() LIMIT ?", n)
}

// GetByID fetches a product or returns ErrNotFound.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (model.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ? LIMIT 1", id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, ErrNotFound
	}
	return p, err
}

// Create inserts a new product, assigning its ID, and returns the stored row.
func (r *ProductRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	p.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO products (id, name, description, price, image, category, is_featured) VALUES (?,?,?,?,?,?,?)",
		p.ID, p.Name, p.Description, p.Price, p.Image, p.Category, p.IsFeatured)
	if err != nil {
		return model.Product{}, err
	}
	return r.GetByID(ctx, p.ID)
}

// Delete removes a product.  It returns ErrNotFound when no row matched.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleFeatured flips the featured flag and returns the updated product.
func (r *ProductRepo) ToggleFeatured(ctx context.Context, id string) (model.Product, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE products SET is_featured = NOT is_featured WHERE id = ?", id)
	if err != nil {
		return model.Product{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Product{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Count returns the number of products.
func (r *ProductRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n)
	return n, err
}

func (r *ProductRepo) query(ctx context.Context, q string, args ...any) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (model.Product, error) {
	var p model.Product
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Image, &p.Category, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
