package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront/internal/config"
    "github.com/iliyamo/storefront/internal/middleware"
    "github.com/iliyamo/storefront/internal/service"
)

// RefreshCookie is the cookie carrying the refresh token.
const RefreshCookie = "refreshToken"

// CookieWriter sets and clears the auth cookies.  Both are HttpOnly,
// SameSite=Strict and scoped to "/"; Secure is set only in production.
type CookieWriter struct {
    secure     bool
    accessTTL  time.Duration
    refreshTTL time.Duration
}

func NewCookieWriter(cfg config.Config) CookieWriter {
    return CookieWriter{secure: cfg.IsProduction(), accessTTL: cfg.AccessTTL, refreshTTL: cfg.RefreshTTL}
}

func (w CookieWriter) cookie(name, value string, maxAge int) *http.Cookie {
    return &http.Cookie{
        Name:     name,
        Value:    value,
        Path:     "/",
        MaxAge:   maxAge,
        HttpOnly: true,
        Secure:   w.secure,
        SameSite: http.SameSiteStrictMode,
    }
}

// SetPair writes both cookies after signup or login.
func (w CookieWriter) SetPair(c echo.Context, pair service.TokenPair) {
    w.SetAccess(c, pair.Access.Token)
    c.SetCookie(w.cookie(RefreshCookie, pair.Refresh.Token, int(w.refreshTTL/time.Second)))
}

// SetAccess rewrites only the access cookie.
func (w CookieWriter) SetAccess(c echo.Context, token string) {
    c.SetCookie(w.cookie(middleware.AccessCookie, token, int(w.accessTTL/time.Second)))
}

// Clear expires both cookies.
func (w CookieWriter) Clear(c echo.Context) {
    c.SetCookie(w.cookie(middleware.AccessCookie, "", -1))
    c.SetCookie(w.cookie(RefreshCookie, "", -1))
}
