package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront/internal/model"
    "github.com/iliyamo/storefront/internal/repository"
    "github.com/iliyamo/storefront/internal/service"
)

// recommendationCount is how many random products the recommendations
// route returns.
const recommendationCount = 3

// ProductReader is the read side of the product repository.
type ProductReader interface {
    ListAll(ctx context.Context) ([]model.Product, error)
    ListByCategory(ctx context.Context, category string) ([]model.Product, error)
    Recommended(ctx context.Context, n int) ([]model.Product, error)
    GetByID(ctx context.Context, id string) (model.Product, error)
}

// ProductHandler serves the catalog.  Reads that bypass the featured
// snapshot go straight to the repository; mutations go through the catalog
// service so the snapshot stays current.
type ProductHandler struct {
    Products ProductReader
    Catalog  *service.CatalogService
}

func NewProductHandler(products ProductReader, catalog *service.CatalogService) *ProductHandler {
    return &ProductHandler{Products: products, Catalog: catalog}
}

type createProductReq struct {
    Name        string  `json:"name"`
    Description string  `json:"description"`
    Price       float64 `json:"price"`
    Image       string  `json:"image"`
    Category    string  `json:"category"`
}

// List returns every product (admin).
func (h *ProductHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    list, err := h.Products.ListAll(ctx)
    if err != nil {
        return unavailable(c, "list products", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"products": list})
}

// Featured returns the featured list from the read-through cache.
func (h *ProductHandler) Featured(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    list, err := h.Catalog.FeaturedProducts(ctx)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, list)
}

// Recommendations returns a few random products.
func (h *ProductHandler) Recommendations(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    list, err := h.Products.Recommended(ctx, recommendationCount)
    if err != nil {
        return unavailable(c, "recommended products", err)
    }
    return c.JSON(http.StatusOK, list)
}

// ByCategory lists the products of one category.
func (h *ProductHandler) ByCategory(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    list, err := h.Products.ListByCategory(ctx, c.Param("category"))
    if err != nil {
        return unavailable(c, "list category", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"products": list})
}

// Create adds a product (admin).
func (h *ProductHandler) Create(c echo.Context) error {
    var req createProductReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
    defer cancel()

    p, err := h.Catalog.CreateProduct(ctx, service.CreateProductInput{
        Name:        req.Name,
        Description: req.Description,
        Price:       req.Price,
        Image:       req.Image,
        Category:    req.Category,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, p)
}

// ToggleFeatured flips the featured flag (admin).
func (h *ProductHandler) ToggleFeatured(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    p, err := h.Catalog.ToggleFeatured(ctx, c.Param("id"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, p)
}

// Delete removes a product (admin).
func (h *ProductHandler) Delete(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    if err := h.Catalog.DeleteProduct(ctx, c.Param("id")); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "product deleted successfully"})
}

// productExists is shared with the cart handler.
func productExists(ctx context.Context, products ProductReader, id string) (bool, error) {
    _, err := products.GetByID(ctx, id)
    if errors.Is(err, repository.ErrNotFound) {
        return false, nil
    }
    return err == nil, err
}

func unavailable(c echo.Context, op string, err error) error {
    c.Logger().Errorf("%s: %v", op, err)
    return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
}
