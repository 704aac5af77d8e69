package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/storefront/internal/config"
)

// bodyRecorder tees the response body into a bounded buffer while still
// writing it to the client.
type bodyRecorder struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    r.size += int64(len(b))
    if r.limit <= 0 || r.size <= r.limit {
        r.buf.Write(b)
    }
    return r.ResponseWriter.Write(b)
}

// overflowed reports whether the body outgrew the buffer, in which case the
// response is not stored.
func (r *bodyRecorder) overflowed() bool {
    return r.limit > 0 && r.size > r.limit
}

// cachedResponse is the Redis value of one stored response.
type cachedResponse struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

// responseKey derives the Redis key for a request from the configured
// strategy.  The parts are hashed so arbitrary query strings stay short.
func responseKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", c.Path()}
    case "path":
        parts = []string{"path", r.URL.Path}
    case "method_route_query":
        parts = []string{"method", r.Method, "path", r.URL.Path, "q", r.URL.RawQuery}
    default: // route_query
        parts = []string{"path", r.URL.Path, "q", r.URL.RawQuery}
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// ResponseCache serves repeated public reads from Redis for cfg.TTL.  Only
// 200 responses for the configured methods are stored.  A nil client or a
// disabled config yields a pass-through middleware, and Redis errors fall
// through to the handler.
func ResponseCache(cfg config.CacheConfig, rdb redis.Cmdable) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[c.Request().Method] {
                return next(c)
            }
            key := responseKey(cfg, c)
            res := c.Response()

            if raw, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil && hit.Status != 0 {
                    for k, vals := range hit.Header {
                        if strings.EqualFold(k, echo.HeaderContentLength) {
                            continue
                        }
                        for _, v := range vals {
                            res.Header().Add(k, v)
                        }
                    }
                    res.Header().Set("X-Cache", "HIT")
                    res.WriteHeader(hit.Status)
                    _, err := res.Write(hit.Body)
                    return err
                }
            } else if !errors.Is(err, redis.Nil) {
                c.Logger().Warnf("response cache: read %s: %v", key, err)
            }

            rec := &bodyRecorder{ResponseWriter: res.Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
            res.Writer = rec
            res.Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflowed() {
                return nil
            }

            header := res.Header().Clone()
            header.Del("X-Cache")
            payload, err := json.Marshal(cachedResponse{Status: rec.status, Header: header, Body: rec.buf.Bytes()})
            if err != nil {
                return nil
            }
            ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
            defer cancel()
            if err := rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
                c.Logger().Warnf("response cache: write %s: %v", key, err)
            }
            return nil
        }
    }
}
