package model

import "time"

// Role names stored in users.role.
const (
    RoleCustomer = "customer"
    RoleAdmin    = "admin"
)

// User represents an application user record as stored in the
// `users` table, with the cart rows from `cart_items` attached when the
// repository loads them.  PasswordHash always holds a bcrypt digest; it is
// left empty when a user is loaded for use as a request principal.
//
// Fields:
//  ID           – opaque UUID string.
//  Name         – display name.
//  Email        – unique, trimmed and lower-cased address.
//  PasswordHash – bcrypt hashed password.
//  Role         – customer or admin.
//  Cart         – ordered cart lines (oldest first).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           string     // users.id
    Name         string     // users.name
    Email        string     // users.email
    PasswordHash string     // users.password_hash
    Role         string     // users.role
    Cart         []CartItem // cart_items rows for this user
    CreatedAt    time.Time  // users.created_at
    UpdatedAt    time.Time  // users.updated_at
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// PublicUser is the projection of a user returned to clients.  It never
// carries the password hash.
type PublicUser struct {
    ID    string `json:"id"`
    Name  string `json:"name"`
    Email string `json:"email"`
    Role  string `json:"role"`
}

// Public returns the client-facing projection of u.
func (u User) Public() PublicUser {
    return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// CartItem models a row in the `cart_items` table.  Quantity is always at
// least one; a line whose quantity would drop to zero is deleted instead.
type CartItem struct {
    ProductID string    // cart_items.product_id
    Quantity  int       // cart_items.quantity
    AddedAt   time.Time // cart_items.created_at
}
