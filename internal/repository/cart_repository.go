package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/storefront/internal/model"
)

// CartRepo persists cart lines.  A user holds at most one line per product.
type CartRepo struct{ DB *sql.DB }

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{DB: db} }

// Items returns the raw cart lines of a user in insertion order.
func (r *CartRepo) Items(ctx context.Context, userID string) ([]model.CartItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT product_id, quantity, created_at FROM cart_items WHERE user_id=? ORDER BY created_at, product_id",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.CartItem, 0)
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Lines returns the cart joined with product details.
func (r *CartRepo) Lines(ctx context.Context, userID string) ([]model.CartLine, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.price, p.image, p.category, p.is_featured, p.created_at, p.updated_at, c.quantity
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.user_id = ?
		ORDER BY c.created_at, c.product_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]model.CartLine, 0)
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.Price, &l.Image, &l.Category,
			&l.IsFeatured, &l.CreatedAt, &l.UpdatedAt, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// Add puts one unit of a product in the cart, incrementing an existing line.
func (r *CartRepo) Add(ctx context.Context, userID, productID string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO cart_items (user_id, product_id, quantity) VALUES (?,?,1) ON DUPLICATE KEY UPDATE quantity = quantity + 1",
		userID, productID)
	return err
}

// SetQuantity sets the quantity of an existing line; zero or less removes it.
// It returns ErrNotFound when the product is not in the cart.
func (r *CartRepo) SetQuantity(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return r.Remove(ctx, userID, productID)
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE cart_items SET quantity=? WHERE user_id=? AND product_id=?", qty, userID, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports zero affected rows when the value is unchanged.
		var exists int
		err := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM cart_items WHERE user_id=? AND product_id=?", userID, productID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Remove deletes one product line from the cart.  Removing an absent line
// is not an error.
func (r *CartRepo) Remove(ctx context.Context, userID, productID string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id=? AND product_id=?", userID, productID)
	return err
}

// Clear empties the cart.
func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id=?", userID)
	return err
}
