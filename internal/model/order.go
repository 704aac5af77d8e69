package model

// SalesSummary aggregates store-wide totals for the analytics dashboard.
type SalesSummary struct {
    Users        int64   `json:"users"`
    Products     int64   `json:"products"`
    TotalSales   int64   `json:"totalSales"`
    TotalRevenue float64 `json:"totalRevenue"`
}

// DailySales is one day of order volume.  Date is formatted YYYY-MM-DD (UTC).
type DailySales struct {
    Date    string  `json:"date"`
    Sales   int64   `json:"sales"`
    Revenue float64 `json:"revenue"`
}
