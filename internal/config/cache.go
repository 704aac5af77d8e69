package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// CacheConfig covers both caching layers.  FeaturedKey names the
// read-through snapshot of featured products, which never expires and is
// rewritten on catalog changes.  The remaining fields drive the HTTP
// response cache used for public listing routes: Methods lists the HTTP
// methods to cache, TTL bounds staleness, KeyStrategy picks which parts of
// the request form the key.  When Enabled is false or Redis is unreachable
// both layers fall back to no-op implementations.
type CacheConfig struct {
    Enabled      bool
    FeaturedKey  string
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.  Defaults
// are used when variables are not set.  All methods are upper-cased.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      getenv("CACHE_ENABLED", "true") == "true",
        FeaturedKey:  getenv("CACHE_FEATURED_KEY", "featured_products"),
        Methods:      parseMethods(getenv("CACHE_METHODS", "GET")),
        TTL:          parseDur(getenv("CACHE_TTL", "30s")),
        KeyStrategy:  getenv("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       getenv("CACHE_PREFIX", "cache"),
        MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
    }
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func atoi(s string) int {
    i, _ := strconv.Atoi(s)
    return i
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
