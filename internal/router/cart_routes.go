package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront/internal/handler"
)

// RegisterCart registers the caller's cart under /api/cart.  All routes
// require a valid access token; any role may hold a cart.
func RegisterCart(api *echo.Group, h *handler.CartHandler, g guards) {
	cart := api.Group("/cart", g.auth)
	cart.GET("", h.Get)
	cart.POST("", h.Add)
	cart.DELETE("", h.Remove)
	cart.PUT("/:id", h.UpdateQuantity)
}
