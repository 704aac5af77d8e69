package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/storefront/internal/model"
)

// OrderRepo answers the read-only sales queries behind the analytics
// dashboard.  Orders themselves are written by the checkout integration.
type OrderRepo struct{ DB *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

// Totals returns the number of orders and the summed revenue.
func (r *OrderRepo) Totals(ctx context.Context) (sales int64, revenue float64, err error) {
	err = r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM orders").Scan(&sales, &revenue)
	return sales, revenue, err
}

// DailySales returns one entry per calendar day (UTC) in [start, end],
// including days without orders.
func (r *OrderRepo) DailySales(ctx context.Context, start, end time.Time) ([]model.DailySales, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT DATE_FORMAT(created_at, '%Y-%m-%d') AS day, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE created_at BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := map[string]model.DailySales{}
	for rows.Next() {
		var d model.DailySales
		if err := rows.Scan(&d.Date, &d.Sales, &d.Revenue); err != nil {
			return nil, err
		}
		found[d.Date] = d
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	days := DatesInRange(start, end)
	out := make([]model.DailySales, 0, len(days))
	for _, day := range days {
		d, ok := found[day]
		if !ok {
			d = model.DailySales{Date: day}
		}
		out = append(out, d)
	}
	return out, nil
}

// DatesInRange lists the UTC calendar days from start to end inclusive.
func DatesInRange(start, end time.Time) []string {
	start, end = start.UTC(), end.UTC()
	cur := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	var out []string
	for !cur.After(end) {
		out = append(out, cur.Format("2006-01-02"))
		cur = cur.AddDate(0, 0, 1)
	}
	return out
}
