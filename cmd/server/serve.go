package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/storefront/internal/cache"
	"github.com/iliyamo/storefront/internal/config"
	"github.com/iliyamo/storefront/internal/database"
	"github.com/iliyamo/storefront/internal/handler"
	"github.com/iliyamo/storefront/internal/queue"
	"github.com/iliyamo/storefront/internal/repository"
	"github.com/iliyamo/storefront/internal/router"
	"github.com/iliyamo/storefront/internal/service"
	"github.com/iliyamo/storefront/internal/storage"
)

var serveFlags struct {
	migrate       bool
	auditLog      string
	auditConsumer bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().BoolVar(&serveFlags.migrate, "migrate", false, "apply pending migrations before serving")
		c.Flags().StringVar(&serveFlags.auditLog, "audit-log", "logs/auth.log", "file the auth audit consumer appends to")
		c.Flags().BoolVar(&serveFlags.auditConsumer, "audit-consumer", true, "consume auth events into the audit log when RABBITMQ_URL is set")
	}
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if serveFlags.migrate {
		if err := database.Migrate(db, database.Up); err != nil {
			return err
		}
	}

	// Redis is required for sessions; the server still starts without it so
	// the catalog stays readable.
	rdb, err := config.NewRedisClient(cfg.RedisURL)
	if rdb == nil {
		return err
	}
	if err != nil {
		log.Printf("redis unreachable, continuing degraded: %v", err)
	}
	defer rdb.Close()

	logger := glog.New("storefront")
	logger.SetLevel(glog.INFO)

	images := imageStore(cmd.Context(), cfg.Minio)
	events := queue.NewPublisher(cfg.RabbitMQURL)

	users := repository.NewUserRepo(db)
	products := repository.NewProductRepo(db)
	cart := repository.NewCartRepo(db)
	orders := repository.NewOrderRepo(db)

	tokens := service.NewTokenService(cfg)
	sessions := service.NewRedisSessionStore(rdb, cfg.RefreshTTL)
	auth := service.NewAuthService(users, tokens, sessions, events, cfg.BcryptCost, logger)

	var featured cache.Cache = cache.Nop{}
	if cacheCfg.Enabled {
		featured = cache.New(rdb)
	}
	catalog := service.NewCatalogService(products, featured, images, cacheCfg.FeaturedKey, logger)

	e := router.New(router.Deps{
		RateLimit:  rateCfg,
		Cache:      cacheCfg,
		Redis:      rdb,
		DB:         db,
		Tokens:     tokens,
		Principals: users,
		Auth:       handler.NewAuthHandler(auth, handler.NewCookieWriter(cfg)),
		Products:   handler.NewProductHandler(products, catalog),
		Cart:       handler.NewCartHandler(cart, products),
		Analytics:  handler.NewAnalyticsHandler(users, products, orders),
	})
	e.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RabbitMQURL != "" && serveFlags.auditConsumer {
		go func() {
			if err := queue.StartAuthAuditConsumer(ctx, cfg.RabbitMQURL, serveFlags.auditLog); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("auth audit consumer stopped: %v", err)
			}
		}()
	}

	return start(ctx, e, ":"+cfg.Port, cfg.Env)
}

// start serves until ctx is cancelled, then drains in-flight requests.
func start(ctx context.Context, e *echo.Echo, addr, env string) error {
	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (env=%s)", addr, env)
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Printf("shutting down")
	return e.Shutdown(shutdownCtx)
}

// imageStore returns the MinIO store when configured and reachable, else the
// no-op store that rejects inline uploads.
func imageStore(ctx context.Context, cfg config.MinioConfig) storage.ImageStore {
	if cfg.Endpoint == "" {
		return storage.Nop{}
	}
	store, err := storage.NewMinioStore(cfg)
	if err != nil {
		log.Printf("image storage disabled: %v", err)
		return storage.Nop{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		log.Printf("image storage: ensure bucket %s: %v", cfg.Bucket, err)
	}
	return store
}
