package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	inventoryMongo "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/adapters/mongo"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/config"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/logging"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/mongodb"
	"github.com/Pranjal-Rawat/Jackson-G-Store/projector-service/projector"
)

func main() {
	cfg, err := config.Load("projector-service")
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

	// Change streams need a replica set; use directConnection=true locally.
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	client, db, err := mongodb.Connect(connectCtx, cfg.Mongo)
	cancel()
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	p := projector.New(db, inventoryMongo.EventsCollection, logger.Named("projector"))
	if err := p.EnsureIndexes(ctx); err != nil {
		logger.Fatal("sales view indexes", zap.Error(err))
	}

	logger.Info("projector starting", zap.String("database", cfg.Mongo.Database))
	if err := p.Run(ctx); err != nil {
		logger.Fatal("projector stopped", zap.Error(err))
	}
	logger.Info("projector stopped")
}
