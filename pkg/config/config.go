package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Storage backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	HTTPPort       string
	StorageBackend string
	LogLevel       zapcore.Level

	DynamoDB DynamoDBConfig
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string
	// EventsQueueURL is optional; contract events are dropped when empty.
	EventsQueueURL string

	JWTSecret            []byte
	PaymentWebhookSecret []byte

	// AccessCodeSeed pins the code generator's random source when non-zero.
	AccessCodeSeed uint64
}

type DynamoDBConfig struct {
	ContractsTable   string
	AccessCodesTable string
	CountersTable    string
}

// LoadDotEnv loads a .env file into the environment and reports whether one
// was found. Deployed environments usually have none.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

func Load() (*Config, error) {
	level, err := zapcore.ParseLevel(getEnvString("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	seed, err := getEnvUint("ACCESS_CODE_SEED", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:       getEnvString("HTTP_PORT", "8080"),
		StorageBackend: getEnvString("STORAGE_BACKEND", BackendDynamoDB),
		LogLevel:       level,
		DynamoDB: DynamoDBConfig{
			ContractsTable:   os.Getenv("DYNAMODB_CONTRACTS_TABLE_NAME"),
			AccessCodesTable: os.Getenv("DYNAMODB_ACCESS_CODES_TABLE_NAME"),
			CountersTable:    os.Getenv("DYNAMODB_COUNTERS_TABLE_NAME"),
		},
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		EventsQueueURL:       os.Getenv("EVENTS_QUEUE_URL"),
		JWTSecret:            []byte(os.Getenv("JWT_SECRET")),
		PaymentWebhookSecret: []byte(os.Getenv("PAYMENT_WEBHOOK_SECRET")),
		AccessCodeSeed:       seed,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendDynamoDB:
		if c.DynamoDB.ContractsTable == "" || c.DynamoDB.AccessCodesTable == "" || c.DynamoDB.CountersTable == "" {
			return errors.New("one or more DynamoDB table name environment variables are not set")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if len(c.JWTSecret) == 0 {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.PaymentWebhookSecret) == 0 {
		return errors.New("PAYMENT_WEBHOOK_SECRET is required")
	}
	return nil
}

// NewLogger builds the production zap logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(c.LogLevel)
	return zc.Build()
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) (uint64, error) {
	if value := os.Getenv(key); value != "" {
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %q (%w)", key, value, err)
		}
		return v, nil
	}
	return defaultValue, nil
}
