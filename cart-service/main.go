package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	httpAdapter "github.com/Pranjal-Rawat/Jackson-G-Store/cart-service/adapters/http"
	"github.com/Pranjal-Rawat/Jackson-G-Store/cart-service/adapters/memory"
	redisAdapter "github.com/Pranjal-Rawat/Jackson-G-Store/cart-service/adapters/redis"
	"github.com/Pranjal-Rawat/Jackson-G-Store/cart-service/ports"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/config"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/logging"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/telemetry"
)

func main() {
	cfg, err := config.Load("cart-service")
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.Telemetry)
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// 1. Cart storage
	var persister ports.Persister
	if cfg.Redis.Addr == "" {
		logger.Warn("REDIS_ADDR empty, carts are kept in memory")
		persister = memory.NewPersister()
	} else {
		client := redisAdapter.NewClient(cfg.Redis.Addr)
		defer func() { _ = client.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal("redis ping", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		persister = redisAdapter.NewPersister(client, cfg.Redis.Namespace, cfg.Redis.CartTTL)
	}

	// 2. HTTP
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(logger))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	httpAdapter.NewCartHandler(persister, logger.Named("cart")).Register(r)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           otelhttp.NewHandler(r, cfg.ServiceName),
		ReadHeaderTimeout: cfg.HTTP.RequestTimeout,
	}
	go func() {
		logger.Info("cart service listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}
