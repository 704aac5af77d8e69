package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireAdmin rejects requests whose principal is not an admin.  It must
// run after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            u, ok := Principal(c)
            if !ok || !u.IsAdmin() {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied - admin only"})
            }
            return next(c)
        }
    }
}
