package router

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/storefront/internal/config"
	"github.com/iliyamo/storefront/internal/handler"
	"github.com/iliyamo/storefront/internal/model"
	"github.com/iliyamo/storefront/internal/queue"
	"github.com/iliyamo/storefront/internal/repository"
	"github.com/iliyamo/storefront/internal/service"
)

// memUsers is an in-memory user store that also loads principals.
type memUsers struct {
	mu   sync.Mutex
	byID map[string]model.User
	next int
}

func (m *memUsers) Create(_ context.Context, name, email, hash, role string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, u := range m.byID {
		if u.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	m.next++
	u := model.User{ID: fmt.Sprintf("u%d", m.next), Name: name, Email: email, PasswordHash: hash, Role: role}
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetPrincipal(ctx context.Context, id string) (model.User, error) {
	u, err := m.GetByID(ctx, id)
	u.PasswordHash = ""
	return u, err
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	m.byID[id] = u
	return nil
}

type noProducts struct{}

func (noProducts) ListFeatured(context.Context) ([]model.Product, error) { return []model.Product{}, nil }
func (noProducts) ListAll(context.Context) ([]model.Product, error)      { return []model.Product{}, nil }
func (noProducts) ListByCategory(context.Context, string) ([]model.Product, error) {
	return []model.Product{}, nil
}
func (noProducts) Recommended(context.Context, int) ([]model.Product, error) {
	return []model.Product{}, nil
}
func (noProducts) GetByID(context.Context, string) (model.Product, error) {
	return model.Product{}, repository.ErrNotFound
}
func (noProducts) Create(_ context.Context, p model.Product) (model.Product, error) { return p, nil }
func (noProducts) Delete(context.Context, string) error                           { return repository.ErrNotFound }
func (noProducts) ToggleFeatured(context.Context, string) (model.Product, error) {
	return model.Product{}, repository.ErrNotFound
}

type app struct {
	e     http.Handler
	users *memUsers
}

func newApp(t *testing.T) app {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := config.Config{
		Env:           "dev",
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
	logger := log.New("test")
	logger.SetOutput(io.Discard)

	users := &memUsers{byID: map[string]model.User{}}
	tokens := service.NewTokenService(cfg)
	sessions := service.NewRedisSessionStore(rdb, cfg.RefreshTTL)
	auth := service.NewAuthService(users, tokens, sessions, queue.NopPublisher{}, cfg.BcryptCost, logger)
	catalog := service.NewCatalogService(noProducts{}, nil, nil, "featured_products", logger)

	e := New(Deps{
		RateLimit:  config.RateLimitConfig{Enabled: false},
		Cache:      config.CacheConfig{Enabled: false},
		Redis:      rdb,
		Tokens:     tokens,
		Principals: users,
		Auth:       handler.NewAuthHandler(auth, handler.NewCookieWriter(cfg)),
		Products:   handler.NewProductHandler(noProducts{}, catalog),
		Cart:       handler.NewCartHandler(nil, noProducts{}),
		Analytics:  handler.NewAnalyticsHandler(nil, nil, nil),
	})
	e.Logger.SetOutput(io.Discard)
	return app{e: e, users: users}
}

// client replays the cookies the server sets, like a browser would.
type client struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, h http.Handler) *client {
	return &client{t: t, h: h, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = &http.Cookie{Name: ck.Name, Value: ck.Value}
	}
	return rec
}

func TestAuthFlow_Ann(t *testing.T) {
	a := newApp(t)
	c := newClient(t, a.e)

	rec := c.do(http.MethodPost, "/api/auth/signup", `{"name":"Ann","email":"ann@x.com","password":"pw12345"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"customer"`)
	assert.NotContains(t, rec.Body.String(), "password")
	require.Contains(t, c.cookies, "accessToken")
	require.Contains(t, c.cookies, "refreshToken")
	stolen := c.cookies["refreshToken"].Value

	rec = c.do(http.MethodGet, "/api/auth/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"ann@x.com"`)

	rec = c.do(http.MethodPost, "/api/auth/refresh-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"token refreshed successfully"}`, rec.Body.String())

	rec = c.do(http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"logged out successfully"}`, rec.Body.String())
	assert.Empty(t, c.cookies)

	// The old refresh token no longer works, even when replayed.
	replay := newClient(t, a.e)
	replay.cookies["refreshToken"] = &http.Cookie{Name: "refreshToken", Value: stolen}
	rec = replay.do(http.MethodPost, "/api/auth/refresh-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestRefresh_WithoutCookie(t *testing.T) {
	a := newApp(t)
	rec := newClient(t, a.e).do(http.MethodPost, "/api/auth/refresh-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogout_WithoutCookie(t *testing.T) {
	a := newApp(t)
	rec := newClient(t, a.e).do(http.MethodPost, "/api/auth/logout", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignup_DuplicateIs400(t *testing.T) {
	a := newApp(t)
	c := newClient(t, a.e)
	body := `{"name":"A","email":"a@x.com","password":"secret1"}`

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/auth/signup", body).Code)
	rec := c.do(http.MethodPost, "/api/auth/signup", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"user already exists"}`, rec.Body.String())
}

func TestLogin_WrongPassword(t *testing.T) {
	a := newApp(t)
	c := newClient(t, a.e)
	require.Equal(t, http.StatusCreated,
		c.do(http.MethodPost, "/api/auth/signup", `{"name":"A","email":"a@x.com","password":"secret1"}`).Code)

	fresh := newClient(t, a.e)
	rec := fresh.do(http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, fresh.cookies)
}

func TestAdminRoutesGuarded(t *testing.T) {
	a := newApp(t)
	c := newClient(t, a.e)

	rec := c.do(http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Equal(t, http.StatusCreated,
		c.do(http.MethodPost, "/api/auth/signup", `{"name":"A","email":"a@x.com","password":"secret1"}`).Code)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/api/products", "").Code)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/api/analytics", "").Code)

	// Promote and retry.
	u, err := a.users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	u.Role = model.RoleAdmin
	a.users.byID[u.ID] = u

	rec = c.do(http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"products":[]}`, rec.Body.String())
}

func TestPublicRoutes(t *testing.T) {
	a := newApp(t)
	c := newClient(t, a.e)

	rec := c.do(http.MethodGet, "/api/products/featured", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = c.do(http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	rec = c.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
