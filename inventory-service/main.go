package main

import (
	"context"
	"log"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	mongoAdapter "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/adapters/mongo"
	temporalAdapter "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/adapters/temporal"
	"github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/service"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/config"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/logging"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/mongodb"
)

// TaskQueue is shared with the storefront's checkout workflow.
const TaskQueue = "inventory-queue"

func main() {
	cfg, err := config.Load("inventory-service")
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	// 1. Connect MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	dbClient, db, err := mongodb.Connect(ctx, cfg.Mongo)
	cancel()
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer func() { _ = dbClient.Disconnect(context.Background()) }()

	// 2. Connect Temporal
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Fatal("unable to create temporal client", zap.Error(err))
	}
	defer temporalClient.Close()

	// 3. Setup Adapters
	events := mongoAdapter.NewEventRepository(db)
	if err := events.EnsureIndexes(context.Background()); err != nil {
		logger.Fatal("stock event indexes", zap.Error(err))
	}
	stock := mongoAdapter.NewStockRepository(db)
	svc := service.NewStockService(stock, events, logger.Named("stock"))
	activities := temporalAdapter.NewInventoryActivities(svc)

	// 4. Start Worker
	w := worker.New(temporalClient, TaskQueue, worker.Options{})
	w.RegisterActivity(activities.ReserveStock)

	logger.Info("inventory worker started", zap.String("task_queue", TaskQueue))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("unable to start worker", zap.Error(err))
	}
}
