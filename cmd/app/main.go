package main

import (
	"context"
	"log"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/chris/escrow-contracts/pkg/bootstrap"
	"github.com/chris/escrow-contracts/pkg/config"
	"github.com/chris/escrow-contracts/pkg/handlers"
	"github.com/chris/escrow-contracts/pkg/handlers/contracts"
	"github.com/chris/escrow-contracts/pkg/handlers/payments"
	"github.com/chris/escrow-contracts/pkg/webhooks"
	"go.uber.org/zap"
)

func main() {
	envLoaded := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}
	defer logger.Sync()

	if !envLoaded {
		logger.Info("No .env file found, using environment variables")
	}

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatal("unable to load SDK config", zap.Error(err))
	}

	store, closeStore, err := bootstrap.NewStore(ctx, cfg, awsCfg)
	if err != nil {
		logger.Fatal("unable to open contract store", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer closeStore()

	svc := bootstrap.NewService(cfg, awsCfg, store, logger)

	handler := handlers.NewApiHandler(
		contracts.NewContractsHandler(svc, logger),
		payments.NewPaymentsHandler(webhooks.NewProcessor(svc, logger), cfg.PaymentWebhookSecret, logger),
	)
	router := handlers.NewRouter(handler, cfg.JWTSecret, logger)

	logger.Info("Starting server", zap.String("port", cfg.HTTPPort), zap.String("backend", cfg.StorageBackend))

	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
