// Package bootstrap wires configuration into the store, publisher and
// service shared by the HTTP server and the payment lambda.
package bootstrap

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/escrow-contracts/pkg/accesscode"
	"github.com/chris/escrow-contracts/pkg/config"
	"github.com/chris/escrow-contracts/pkg/escrow"
	"github.com/chris/escrow-contracts/pkg/events"
	"github.com/chris/escrow-contracts/pkg/storage"
	dydbstore "github.com/chris/escrow-contracts/pkg/storage/dynamodb"
	"github.com/chris/escrow-contracts/pkg/storage/memory"
	pgstore "github.com/chris/escrow-contracts/pkg/storage/postgres"
	"go.uber.org/zap"
)

// NewStore opens the configured backend. The returned close func releases
// any pooled connections.
func NewStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (storage.ContractStore, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendDynamoDB:
		client := dynamodb.NewFromConfig(awsCfg)
		store := dydbstore.New(client, cfg.DynamoDB.ContractsTable, cfg.DynamoDB.AccessCodesTable, cfg.DynamoDB.CountersTable)
		return store, func() {}, nil
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := pgstore.New(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	case config.BackendMemory:
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// NewPublisher returns an SQS publisher, or a no-op one when no queue is set.
func NewPublisher(cfg *config.Config, awsCfg aws.Config) events.Publisher {
	if cfg.EventsQueueURL == "" {
		return &events.NoOpPublisher{}
	}
	return events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.EventsQueueURL)
}

// NewRand seeds the access code source, pinned when a seed is configured.
func NewRand(cfg *config.Config) *rand.Rand {
	if cfg.AccessCodeSeed != 0 {
		return rand.New(rand.NewPCG(cfg.AccessCodeSeed, cfg.AccessCodeSeed))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewService builds the escrow service over store.
func NewService(cfg *config.Config, awsCfg aws.Config, store storage.ContractStore, logger *zap.Logger) *escrow.Service {
	gen := accesscode.NewGenerator(store, NewRand(cfg), logger)
	return escrow.NewService(store, gen, logger, escrow.WithPublisher(NewPublisher(cfg, awsCfg)))
}
