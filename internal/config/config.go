package config // package config loads application configuration from environment variables

import (
    "errors"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  It is built once at
// startup and passed explicitly to the components that need it; nothing
// below cmd/ reads the process environment on its own.
type Config struct {
    Env           string        // application environment (e.g. "dev", "production")
    Port          string        // HTTP port to listen on
    DBDSN         string        // full MySQL DSN; built from the DB_* parts when unset
    AccessSecret  string        // HMAC secret for access tokens
    RefreshSecret string        // HMAC secret for refresh tokens (must differ from AccessSecret)
    AccessTTL     time.Duration // access token lifetime
    RefreshTTL    time.Duration // refresh token and session record lifetime
    BcryptCost    int           // bcrypt cost for password hashing
    RedisURL      string        // redis://… connection string; see NewRedisClient
    RabbitMQURL   string        // AMQP URL for auth events; empty disables publishing
    Minio         MinioConfig
}

// MinioConfig configures product image storage.  Storage is disabled when
// Endpoint is empty.
type MinioConfig struct {
    Endpoint  string
    AccessKey string
    SecretKey string
    Bucket    string
    UseSSL    bool
    PublicURL string // base URL prepended to object keys in product.image
}

// IsProduction reports whether cookies must carry the Secure attribute.
func (c Config) IsProduction() bool {
    switch strings.ToLower(c.Env) {
    case "production", "prod":
        return true
    }
    return false
}

// Load reads configuration values from the environment (after loading a
// .env file when one exists) and returns a Config.  All missing or invalid
// required variables are reported together.
func Load() (Config, error) {
    _ = godotenv.Load()
    return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (Config, error) {
    var errs []error
    req := func(key string) string {
        v := strings.TrimSpace(os.Getenv(key))
        if v == "" {
            errs = append(errs, fmt.Errorf("missing required env var: %s", key))
        }
        return v
    }

    cfg := Config{
        Env:           getenv("APP_ENV", "dev"),
        Port:          getenv("APP_PORT", "5000"),
        DBDSN:         os.Getenv("DB_DSN"),
        AccessSecret:  req("ACCESS_TOKEN_SECRET"),
        RefreshSecret: req("REFRESH_TOKEN_SECRET"),
        AccessTTL:     envDur("ACCESS_TOKEN_TTL", 15*time.Minute),
        RefreshTTL:    envDur("REFRESH_TOKEN_TTL", 7*24*time.Hour),
        BcryptCost:    envInt("BCRYPT_COST", 10),
        RedisURL:      os.Getenv("REDIS_URL"),
        RabbitMQURL:   firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
        Minio: MinioConfig{
            Endpoint:  os.Getenv("MINIO_ENDPOINT"),
            AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
            SecretKey: os.Getenv("MINIO_SECRET_KEY"),
            Bucket:    getenv("MINIO_BUCKET", "products"),
            UseSSL:    envBool("MINIO_USE_SSL", false),
            PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
        },
    }
    if cfg.DBDSN == "" {
        cfg.DBDSN = mysqlDSN(req("DB_USER"), os.Getenv("DB_PASS"), getenv("DB_HOST", "localhost"),
            getenv("DB_PORT", "3306"), req("DB_NAME"))
    }
    if cfg.AccessSecret != "" && cfg.AccessSecret == cfg.RefreshSecret {
        errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
    }
    if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
        errs = append(errs, errors.New("token TTLs must be positive"))
    }
    return cfg, errors.Join(errs...)
}

// mysqlDSN builds a go-sql-driver DSN.  parseTime=true maps DATETIME to
// time.Time and loc=UTC keeps times consistent.
func mysqlDSN(user, pass, host, port, name string) string {
    auth := user
    if pass != "" {
        auth = fmt.Sprintf("%s:%s", user, pass)
    }
    return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC", auth, host, port, name)
}

func firstNonEmpty(vals ...string) string {
    for _, v := range vals {
        if v != "" {
            return v
        }
    }
    return ""
}
