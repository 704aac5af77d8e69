package middleware

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

// AccessCookie is the cookie carrying the access token.
const AccessCookie = "accessToken"

// PrincipalLoader loads the user an access token names, without the
// password hash.
type PrincipalLoader interface {
    GetPrincipal(ctx context.Context, id string) (model.User, error)
}

// RequireAuth validates the access token cookie and loads the principal it
// names.  Handlers behind it read the user with Principal(c); the raw id and
// role are also stored under "user_id" and "role" for the rate limiter.
//
// Clients can tell an expired token (refresh and retry) from any other
// failure (log in again) by the "code" field of the 401 body.
func RequireAuth(tokens *service.TokenService, users PrincipalLoader) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            cookie, err := c.Cookie(AccessCookie)
            if err != nil || cookie.Value == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no access token provided"})
            }

            id, err := tokens.VerifyAccess(cookie.Value)
            if errors.Is(err, service.ErrTokenExpired) {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "error": "access token expired",
                    "code":  "token_expired",
                })
            }
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "error": "invalid access token",
                    "code":  "token_invalid",
                })
            }

            ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
            defer cancel()
            u, err := users.GetPrincipal(ctx, id)
            if errors.Is(err, repository.ErrNotFound) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user not found"})
            }
            if err != nil {
                c.Logger().Errorf("auth: load principal %s: %v", id, err)
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
            }

            setPrincipal(c, u)
            return next(c)
        }
    }
}
