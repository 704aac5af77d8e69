package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront/internal/model"
)

// Counter is satisfied by the user and product repositories.
type Counter interface {
    Count(ctx context.Context) (int64, error)
}

// SalesReader is satisfied by the order repository.
type SalesReader interface {
    Totals(ctx context.Context) (int64, float64, error)
    DailySales(ctx context.Context, start, end time.Time) ([]model.DailySales, error)
}

// AnalyticsHandler serves the admin dashboard numbers.
type AnalyticsHandler struct {
    Users    Counter
    Products Counter
    Orders   SalesReader
    Now      func() time.Time
}

func NewAnalyticsHandler(users, products Counter, orders SalesReader) *AnalyticsHandler {
    return &AnalyticsHandler{Users: users, Products: products, Orders: orders, Now: time.Now}
}

// Get returns store totals and the daily sales of the last seven days.
func (h *AnalyticsHandler) Get(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    var summary model.SalesSummary
    var err error
    if summary.Users, err = h.Users.Count(ctx); err != nil {
        return unavailable(c, "analytics: count users", err)
    }
    if summary.Products, err = h.Products.Count(ctx); err != nil {
        return unavailable(c, "analytics: count products", err)
    }
    if summary.TotalSales, summary.TotalRevenue, err = h.Orders.Totals(ctx); err != nil {
        return unavailable(c, "analytics: totals", err)
    }

    end := h.Now().UTC()
    daily, err := h.Orders.DailySales(ctx, end.AddDate(0, 0, -7), end)
    if err != nil {
        return unavailable(c, "analytics: daily sales", err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "analyticsData":  summary,
        "dailySalesData": daily,
    })
}
