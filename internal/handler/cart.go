package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront/internal/middleware"
    "github.com/iliyamo/storefront/internal/model"
    "github.com/iliyamo/storefront/internal/repository"
)

// CartStore is the cart repository as the handler uses it.
type CartStore interface {
    Lines(ctx context.Context, userID string) ([]model.CartLine, error)
    Add(ctx context.Context, userID, productID string) error
    SetQuantity(ctx context.Context, userID, productID string, qty int) error
    Remove(ctx context.Context, userID, productID string) error
    Clear(ctx context.Context, userID string) error
}

// CartHandler serves the caller's cart.  Every mutation answers with the
// cart as it stands afterwards.
type CartHandler struct {
    Cart     CartStore
    Products ProductReader
}

func NewCartHandler(cart CartStore, products ProductReader) *CartHandler {
    return &CartHandler{Cart: cart, Products: products}
}

type cartProductReq struct {
    ProductID string `json:"productId"`
}
type cartQuantityReq struct {
    Quantity *int `json:"quantity"`
}

// Get lists the cart with product details.
func (h *CartHandler) Get(c echo.Context) error {
    u, ok := middleware.Principal(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    return h.respond(ctx, c, u.ID)
}

// Add puts one unit of a product in the cart.
func (h *CartHandler) Add(c echo.Context) error {
    u, ok := middleware.Principal(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req cartProductReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.ProductID) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "productId required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    exists, err := productExists(ctx, h.Products, req.ProductID)
    if err != nil {
        return unavailable(c, "cart add: load product", err)
    }
    if !exists {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
    }
    if err := h.Cart.Add(ctx, u.ID, req.ProductID); err != nil {
        return unavailable(c, "cart add", err)
    }
    return h.respond(ctx, c, u.ID)
}

// Remove drops one product, or empties the cart when no productId is given.
func (h *CartHandler) Remove(c echo.Context) error {
    u, ok := middleware.Principal(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req cartProductReq
    // An empty body means "clear everything".
    _ = c.Bind(&req)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    var err error
    if id := strings.TrimSpace(req.ProductID); id != "" {
        err = h.Cart.Remove(ctx, u.ID, id)
    } else {
        err = h.Cart.Clear(ctx, u.ID)
    }
    if err != nil {
        return unavailable(c, "cart remove", err)
    }
    return h.respond(ctx, c, u.ID)
}

// UpdateQuantity sets the quantity of one line; zero removes it.
func (h *CartHandler) UpdateQuantity(c echo.Context) error {
    u, ok := middleware.Principal(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req cartQuantityReq
    if err := c.Bind(&req); err != nil || req.Quantity == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity required"})
    }
    if *req.Quantity < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must not be negative"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    err := h.Cart.SetQuantity(ctx, u.ID, c.Param("id"), *req.Quantity)
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found in cart"})
    }
    if err != nil {
        return unavailable(c, "cart update", err)
    }
    return h.respond(ctx, c, u.ID)
}

func (h *CartHandler) respond(ctx context.Context, c echo.Context, userID string) error {
    lines, err := h.Cart.Lines(ctx, userID)
    if err != nil {
        return unavailable(c, "cart lines", err)
    }
    return c.JSON(http.StatusOK, lines)
}
