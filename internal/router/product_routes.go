package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront/internal/handler"
)

// RegisterProducts registers the catalog under /api/products.  Reads are
// public except the full listing; every mutation is admin only.  The
// category listing sits behind the short-lived response cache.
func RegisterProducts(api *echo.Group, p *handler.ProductHandler, g guards, cache echo.MiddlewareFunc) {
	products := api.Group("/products")

	// ---- Public ----
	products.GET("/featured", p.Featured)
	products.GET("/recommendations", p.Recommendations)
	products.GET("/category/:category", p.ByCategory, cache)

	// ---- Admin ----
	products.GET("", p.List, g.auth, g.admin)
	products.POST("", p.Create, g.auth, g.admin)
	products.PATCH("/:id", p.ToggleFeatured, g.auth, g.admin)
	products.PATCH("/:id/toggle-featured", p.ToggleFeatured, g.auth, g.admin) // alias
	products.DELETE("/:id", p.Delete, g.auth, g.admin)
}

// RegisterAnalytics registers the admin dashboard endpoint.
func RegisterAnalytics(api *echo.Group, a *handler.AnalyticsHandler, g guards) {
	api.GET("/analytics", a.Get, g.auth, g.admin)
}
