package middleware

// identity.go holds the context keys RequireAuth fills and the helpers that
// read them back.  The rate limiter keys anonymous callers as "anon".

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront/internal/model"
)

const (
    ctxUser   = "user"
    ctxUserID = "user_id"
    ctxRole   = "role"
)

func setPrincipal(c echo.Context, u model.User) {
    u.PasswordHash = ""
    c.Set(ctxUser, u)
    c.Set(ctxUserID, u.ID)
    c.Set(ctxRole, u.Role)
}

// Principal returns the authenticated user stored by RequireAuth.
func Principal(c echo.Context) (model.User, bool) {
    u, ok := c.Get(ctxUser).(model.User)
    return u, ok
}

func currentUserID(c echo.Context) string {
    if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
        return s
    }
    return "anon"
}
