package model

import "time"

// Product represents a catalog entry as stored in the `products` table.
// It is also the element type of the cached featured-products snapshot, so
// its json tags define the cached wire format.
type Product struct {
    ID          string    `json:"id"`          // products.id
    Name        string    `json:"name"`        // products.name
    Description string    `json:"description"` // products.description
    Price       float64   `json:"price"`       // products.price
    Image       string    `json:"image"`       // products.image (public URL, may be empty)
    Category    string    `json:"category"`    // products.category
    IsFeatured  bool      `json:"isFeatured"`  // products.is_featured
    CreatedAt   time.Time `json:"createdAt"`   // products.created_at
    UpdatedAt   time.Time `json:"updatedAt"`   // products.updated_at
}

// CartLine is a product joined with the quantity the user holds in their cart.
type CartLine struct {
    Product
    Quantity int `json:"quantity"`
}
