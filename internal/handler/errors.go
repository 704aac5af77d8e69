package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront/internal/service"
)

// statusFor maps the service error taxonomy onto HTTP.  A conflict is a 400
// because clients of the signup form expect it.
var statusFor = []struct {
    err    error
    status int
}{
    {service.ErrValidation, http.StatusBadRequest},
    {service.ErrConflict, http.StatusBadRequest},
    {service.ErrUnauthorized, http.StatusUnauthorized},
    {service.ErrForbidden, http.StatusForbidden},
    {service.ErrNotFound, http.StatusNotFound},
    {service.ErrUnavailable, http.StatusServiceUnavailable},
}

// writeError renders a service error as {"error": message}.  Client errors
// carry the message the service attached after the sentinel; unavailability
// and anything unclassified are logged and answered generically.
func writeError(c echo.Context, err error) error {
    for _, m := range statusFor {
        if !errors.Is(err, m.err) {
            continue
        }
        if m.status == http.StatusServiceUnavailable {
            c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
            return c.JSON(m.status, echo.Map{"error": "service unavailable"})
        }
        return c.JSON(m.status, echo.Map{"error": publicMessage(err, m.err)})
    }
    c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

// publicMessage strips the sentinel prefix and any wrapped detail, so
// "conflict: user already exists" becomes "user already exists".
func publicMessage(err, sentinel error) string {
    msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
    if i := strings.Index(msg, ": "); i >= 0 {
        msg = msg[:i]
    }
    if msg == "" {
        return sentinel.Error()
    }
    return msg
}
