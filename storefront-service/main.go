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
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	inventoryMongo "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/adapters/mongo"
	"github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/service"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/config"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/logging"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/mongodb"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/telemetry"
	httpAdapter "github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/adapters/http"
	mongoAdapter "github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/adapters/mongo"
	temporalAdapter "github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/adapters/temporal"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/checkout"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/ports"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/workflows"
)

func main() {
	cfg, err := config.Load("storefront-service")
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config",
		zap.String("mongo_db", cfg.Mongo.Database),
		zap.Bool("temporal", cfg.Temporal.Enabled),
		zap.String("temporal_host", cfg.Temporal.HostPort),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.Telemetry)
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// 1. Connect MongoDB
	dbClient, db, err := mongodb.Connect(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer func() { _ = dbClient.Disconnect(context.Background()) }()

	// 2. Wiring Adapters
	products := mongoAdapter.NewMongoProductRepository(db)
	if err := products.EnsureIndexes(ctx); err != nil {
		logger.Fatal("product indexes", zap.Error(err))
	}
	events := inventoryMongo.NewEventRepository(db)
	if err := events.EnsureIndexes(ctx); err != nil {
		logger.Fatal("stock event indexes", zap.Error(err))
	}
	stock := service.NewStockService(inventoryMongo.NewStockRepository(db), events, logger.Named("stock"))
	verifier := checkout.NewVerifier(products, cfg.Store)

	// 3. Checkout: Temporal workflow when a cluster is configured,
	// in process otherwise.
	var checkouter ports.Checkouter = checkout.NewDirect(verifier, stock, logger.Named("checkout"))
	if cfg.Temporal.Enabled {
		temporalClient, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    logging.NewTemporalLogger(logger),
		})
		if err != nil {
			logger.Fatal("unable to create temporal client", zap.Error(err))
		}
		defer temporalClient.Close()

		w := worker.New(temporalClient, workflows.QueueStorefront, worker.Options{})
		w.RegisterWorkflow(workflows.CheckoutWorkflow)
		w.RegisterActivity(temporalAdapter.NewStorefrontActivities(verifier))

		go func() {
			if err := w.Run(worker.InterruptCh()); err != nil {
				logger.Fatal("unable to start workflow worker", zap.Error(err))
			}
		}()
		checkouter = workflows.NewWorkflowCheckouter(temporalClient)
	}

	// 4. Start HTTP Server
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	store := httpAdapter.NewStoreHandler(products, stock, verifier, checkouter, logger.Named("http"))
	store.Timeout = cfg.HTTP.RequestTimeout
	admin := httpAdapter.NewAdminHandler(products, mongoAdapter.NewMongoSalesViewRepository(db), events, logger.Named("admin"))
	admin.Timeout = cfg.HTTP.RequestTimeout

	r := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Store:         store,
		Admin:         admin,
		Sitemap:       httpAdapter.NewSitemapHandler(products, cfg.Store.BaseURL, logger.Named("sitemap")),
		AdminUser:     cfg.Admin.Username,
		AdminPassword: cfg.Admin.Password,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           otelhttp.NewHandler(r, cfg.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("storefront listening", zap.String("addr", cfg.HTTP.Addr))
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
