package config

// Redis backs the session store, the featured-products snapshot, the auth
// rate limiter and the response cache.  When the server cannot be reached at
// startup callers degrade: the featured snapshot falls back to direct reads,
// rate limiting fails open, and the session store reports unavailability.

import (
    "context"
    "crypto/tls"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisOptions resolves connection options.  A redis:// or rediss:// URL
// (REDIS_URL) takes precedence; otherwise the discrete variables are used:
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand (used when host/port are not both set)
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
func RedisOptions(url string) (*redis.Options, error) {
    if url != "" {
        return redis.ParseURL(url)
    }
    host := os.Getenv("REDIS_HOST")
    port := os.Getenv("REDIS_PORT")
    addr := os.Getenv("REDIS_ADDR")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
        if n, err := strconv.Atoi(dbStr); err == nil {
            dbNum = n
        }
    }
    var tlsConf *tls.Config
    if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return &redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        dbNum,
        TLSConfig: tlsConf,
    }, nil
}

// NewRedisClient instantiates a Redis client and pings it with a short
// timeout.  The client is returned even when the ping fails: go-redis
// reconnects lazily, so callers log the error and keep running with their
// degraded behavior until the server comes back.
func NewRedisClient(url string) (*redis.Client, error) {
    opts, err := RedisOptions(url)
    if err != nil {
        return nil, err
    }
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    return client, client.Ping(ctx).Err()
}
