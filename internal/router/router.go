package router // package router wires handlers and guards onto the echo instance

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/storefront/internal/config"
	"github.com/iliyamo/storefront/internal/handler"
	"github.com/iliyamo/storefront/internal/middleware"
	"github.com/iliyamo/storefront/internal/service"
)

// Deps is everything the routes need.  Redis may be nil, in which case rate
// limiting and the response cache are disabled.
type Deps struct {
	RateLimit  config.RateLimitConfig
	Cache      config.CacheConfig
	Redis      *redis.Client
	DB         handler.Pinger
	Tokens     *service.TokenService
	Principals middleware.PrincipalLoader
	Auth       *handler.AuthHandler
	Products   *handler.ProductHandler
	Cart       *handler.CartHandler
	Analytics  *handler.AnalyticsHandler
}

// guards bundles the two route guards so each route file applies them the
// same way.
type guards struct {
	auth  echo.MiddlewareFunc
	admin echo.MiddlewareFunc
}

// New builds the echo instance with the common middleware and every route
// registered under /api.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				c.Logger().Errorf("%s %s %d %s: %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			c.Logger().Infof("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(echomw.BodyLimit("10M"))

	g := guards{
		auth:  middleware.RequireAuth(d.Tokens, d.Principals),
		admin: middleware.RequireAdmin(),
	}

	RegisterRoutes(e, d.DB)
	api := e.Group("/api")
	RegisterAuth(api, d.Auth, g, ratelimiter(d))
	RegisterProducts(api, d.Products, g, responseCache(d))
	RegisterCart(api, d.Cart, g)
	RegisterAnalytics(api, d.Analytics, g)
	return e
}

// RegisterRoutes registers routes outside /api.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the authentication routes.  The credential
// endpoints sit behind the rate limiter; logout does not, so a throttled
// client can still end its session.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, g guards, limit echo.MiddlewareFunc) {
	auth := api.Group("/auth")
	auth.POST("/signup", a.Signup, limit)
	auth.POST("/login", a.Login, limit)
	auth.POST("/refresh-token", a.RefreshToken, limit)
	auth.POST("/logout", a.Logout)
	auth.GET("/profile", a.Profile, g.auth)
	auth.PUT("/password", a.ChangePassword, limit, g.auth)
}

func ratelimiter(d Deps) echo.MiddlewareFunc {
	if d.Redis == nil {
		return middleware.RateLimit(d.RateLimit, nil)
	}
	return middleware.RateLimit(d.RateLimit, d.Redis)
}

func responseCache(d Deps) echo.MiddlewareFunc {
	if d.Redis == nil {
		return middleware.ResponseCache(d.Cache, nil)
	}
	return middleware.ResponseCache(d.Cache, d.Redis)
}

// errorHandler renders errors that escape handlers (routing misses, bind
// failures, recovered panics) in the same {"error": ...} shape as handlers.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(status)
		}
	} else {
		c.Logger().Errorf("unhandled error: %v", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, echo.Map{"error": msg})
	}
	if err != nil {
		c.Logger().Errorf("write error response: %v", err)
	}
}
