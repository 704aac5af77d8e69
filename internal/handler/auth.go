package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront/internal/middleware"
    "github.com/iliyamo/storefront/internal/service"
)

// AuthHandler exposes the authentication flow over HTTP.  Tokens travel
// only in cookies; response bodies carry the public user projection.
type AuthHandler struct {
    Auth    *service.AuthService
    Cookies CookieWriter
}

func NewAuthHandler(auth *service.AuthService, cookies CookieWriter) *AuthHandler {
    return &AuthHandler{Auth: auth, Cookies: cookies}
}

// ----- DTOs -----

type signupReq struct {
    Name     string `json:"name"`
    Email    string `json:"email"`
    Password string `json:"password"`
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type changePasswordReq struct {
    CurrentPassword string `json:"currentPassword"`
    NewPassword     string `json:"newPassword"`
}

// Signup: create a customer, start a session, 201 with the user.
func (h *AuthHandler) Signup(c echo.Context) error {
    var req signupReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Auth.Signup(ctx, service.SignupInput{Name: req.Name, Email: req.Email, Password: req.Password})
    if err != nil {
        return writeError(c, err)
    }
    h.Cookies.SetPair(c, res.Tokens)
    return c.JSON(http.StatusCreated, res.User)
}

// Login: verify credentials and replace the user's session.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Auth.Login(ctx, req.Email, req.Password)
    if err != nil {
        return writeError(c, err)
    }
    h.Cookies.SetPair(c, res.Tokens)
    return c.JSON(http.StatusOK, res.User)
}

// Logout: revoke the session named by the refresh cookie, if any, and
// clear both cookies.  Always 200.
func (h *AuthHandler) Logout(c echo.Context) error {
    if ck, err := c.Cookie(RefreshCookie); err == nil && ck.Value != "" {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
        defer cancel()
        h.Auth.Logout(ctx, ck.Value)
    }
    h.Cookies.Clear(c)
    return c.JSON(http.StatusOK, echo.Map{"message": "logged out successfully"})
}

// RefreshToken: mint a new access token from the refresh cookie.  The
// refresh token is not rotated and no cookie is written on failure.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
    ck, err := c.Cookie(RefreshCookie)
    if err != nil || ck.Value == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no refresh token provided"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    access, err := h.Auth.RefreshAccess(ctx, ck.Value)
    if err != nil {
        return writeError(c, err)
    }
    h.Cookies.SetAccess(c, access.Token)
    return c.JSON(http.StatusOK, echo.Map{"message": "token refreshed successfully"})
}

// Profile returns the authenticated user.
func (h *AuthHandler) Profile(c echo.Context) error {
    u, ok := middleware.Principal(c)
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
    }
    return c.JSON(http.StatusOK, u.Public())
}

// ChangePassword replaces the caller's password and ends their session.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
    u, ok := middleware.Principal(c)
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
    }
    var req changePasswordReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Auth.ChangePassword(ctx, u.ID, req.CurrentPassword, req.NewPassword); err != nil {
        return writeError(c, err)
    }
    h.Cookies.Clear(c)
    return c.JSON(http.StatusOK, echo.Map{"message": "password updated, please log in again"})
}
