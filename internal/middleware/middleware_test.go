package middleware

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/storefront/internal/config"
    "github.com/iliyamo/storefront/internal/model"
    "github.com/iliyamo/storefront/internal/repository"
    "github.com/iliyamo/storefront/internal/service"
    "github.com/iliyamo/storefront/internal/utils"
)

var testCfg = config.Config{
    AccessSecret:  "access-secret",
    RefreshSecret: "refresh-secret",
    AccessTTL:     15 * time.Minute,
    RefreshTTL:    7 * 24 * time.Hour,
}

type principals struct {
    users map[string]model.User
    err   error
}

func (p principals) GetPrincipal(_ context.Context, id string) (model.User, error) {
    if p.err != nil {
        return model.User{}, p.err
    }
    u, ok := p.users[id]
    if !ok {
        return model.User{}, repository.ErrNotFound
    }
    return u, nil
}

func whoami(c echo.Context) error {
    u, ok := Principal(c)
    if !ok {
        return c.NoContent(http.StatusTeapot)
    }
    return c.JSON(http.StatusOK, u.Public())
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func withAccess(req *http.Request, token string) *http.Request {
    req.AddCookie(&http.Cookie{Name: AccessCookie, Value: token})
    return req
}

func newGuarded(loader PrincipalLoader) (*echo.Echo, *service.TokenService) {
    tokens := service.NewTokenService(testCfg)
    e := echo.New()
    e.GET("/me", whoami, RequireAuth(tokens, loader))
    e.GET("/admin", whoami, RequireAuth(tokens, loader), RequireAdmin())
    return e, tokens
}

func TestRequireAuth(t *testing.T) {
    loader := principals{users: map[string]model.User{
        "u1": {ID: "u1", Name: "Ann", Email: "ann@x.com", Role: model.RoleCustomer, PasswordHash: "leak"},
    }}
    e, tokens := newGuarded(loader)

    t.Run("no cookie", func(t *testing.T) {
        rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
        assert.Equal(t, http.StatusUnauthorized, rec.Code)
        assert.Contains(t, rec.Body.String(), "no access token provided")
    })

    t.Run("valid", func(t *testing.T) {
        pair, err := tokens.IssuePair("u1")
        require.NoError(t, err)
        rec := serve(e, withAccess(httptest.NewRequest(http.MethodGet, "/me", nil), pair.Access.Token))
        require.Equal(t, http.StatusOK, rec.Code)
        assert.JSONEq(t, `{"id":"u1","name":"Ann","email":"ann@x.com","role":"customer"}`, rec.Body.String())
    })

    t.Run("expired", func(t *testing.T) {
        tok, err := utils.NewToken([]byte(testCfg.AccessSecret), "u1", -time.Minute)
        require.NoError(t, err)
        rec := serve(e, withAccess(httptest.NewRequest(http.MethodGet, "/me", nil), tok.Token))
        assert.Equal(t, http.StatusUnauthorized, rec.Code)
        assert.Contains(t, rec.Body.String(), `"code":"token_expired"`)
    })

    t.Run("refresh token is not an access token", func(t *testing.T) {
        pair, err := tokens.IssuePair("u1")
        require.NoError(t, err)
        rec := serve(e, withAccess(httptest.NewRequest(http.MethodGet, "/me", nil), pair.Refresh.Token))
        assert.Equal(t, http.StatusUnauthorized, rec.Code)
        assert.Contains(t, rec.Body.String(), `"code":"token_invalid"`)
    })

    t.Run("unknown user", func(t *testing.T) {
        pair, err := tokens.IssuePair("ghost")
        require.NoError(t, err)
        rec := serve(e, withAccess(httptest.NewRequest(http.MethodGet, "/me", nil), pair.Access.Token))
        assert.Equal(t, http.StatusUnauthorized, rec.Code)
    })
}

func TestRequireAuth_StoreDown(t *testing.T) {
    e, tokens := newGuarded(principals{err: errors.New("connection refused")})
    pair, err := tokens.IssuePair("u1")
    require.NoError(t, err)

    rec := serve(e, withAccess(httptest.NewRequest(http.MethodGet, "/me", nil), pair.Access.Token))
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
    loader := principals{users: map[string]model.User{
        "c": {ID: "c", Role: model.RoleCustomer},
        "a": {ID: "a", Role: model.RoleAdmin},
    }}
    e, tokens := newGuarded(loader)

    customer, err := tokens.IssuePair("c")
    require.NoError(t, err)
    rec := serve(e, withAccess(httptest.NewRequest(http.MethodGet, "/admin", nil), customer.Access.Token))
    assert.Equal(t, http.StatusForbidden, rec.Code)

    admin, err := tokens.IssuePair("a")
    require.NoError(t, err)
    rec = serve(e, withAccess(httptest.NewRequest(http.MethodGet, "/admin", nil), admin.Access.Token))
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Minute,
        TTL:            10 * time.Minute,
        KeyStrategy:    "ip_route",
        Prefix:         "rl:test",
    }
    e := echo.New()
    e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimit(cfg, rdb))

    for i := 0; i < 2; i++ {
        rec := serve(e, httptest.NewRequest(http.MethodPost, "/login", nil))
        require.Equal(t, http.StatusOK, rec.Code)
        assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
    }
    rec := serve(e, httptest.NewRequest(http.MethodPost, "/login", nil))
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimit_FailsOpen(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
    mr.Close()

    e := echo.New()
    e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
        RateLimit(config.RateLimitConfig{Enabled: true, Capacity: 1, Prefix: "rl"}, rdb))

    for i := 0; i < 3; i++ {
        rec := serve(e, httptest.NewRequest(http.MethodPost, "/login", nil))
        assert.Equal(t, http.StatusOK, rec.Code)
    }
}

func TestResponseCache(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    cfg := config.CacheConfig{
        Enabled:     true,
        Methods:     map[string]bool{http.MethodGet: true},
        TTL:         time.Minute,
        KeyStrategy: "route_query",
        Prefix:      "cache",
    }
    calls := 0
    e := echo.New()
    e.GET("/category/:category", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"category": c.Param("category")})
    }, ResponseCache(cfg, rdb))

    first := serve(e, httptest.NewRequest(http.MethodGet, "/category/jeans", nil))
    require.Equal(t, http.StatusOK, first.Code)
    assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

    second := serve(e, httptest.NewRequest(http.MethodGet, "/category/jeans", nil))
    require.Equal(t, http.StatusOK, second.Code)
    assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
    assert.Equal(t, first.Body.String(), second.Body.String())
    assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))

    other := serve(e, httptest.NewRequest(http.MethodGet, "/category/hats", nil))
    assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
    assert.Equal(t, 2, calls)

    mr.FastForward(2 * time.Minute)
    serve(e, httptest.NewRequest(http.MethodGet, "/category/jeans", nil))
    assert.Equal(t, 3, calls)
}

func TestResponseCache_SkipsErrors(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute, Prefix: "cache"}
    e := echo.New()
    e.GET("/broken", func(c echo.Context) error {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "boom"})
    }, ResponseCache(cfg, rdb))

    serve(e, httptest.NewRequest(http.MethodGet, "/broken", nil))
    rec := serve(e, httptest.NewRequest(http.MethodGet, "/broken", nil))
    assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
    assert.Empty(t, mr.Keys())
}
