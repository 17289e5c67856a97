package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/chris/escrow-contracts/pkg/bootstrap"
	"github.com/chris/escrow-contracts/pkg/config"
	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/chris/escrow-contracts/pkg/webhooks"
	"go.uber.org/zap"
)

// EventProcessor applies one decoded payment event.
type EventProcessor interface {
	Process(ctx context.Context, e webhooks.PaymentEvent) (webhooks.Outcome, error)
}

type paymentHandler struct {
	processor EventProcessor
	logger    *zap.Logger
}

// newPaymentHandler builds dependencies once per execution environment.
func newPaymentHandler() *paymentHandler {
	// Load environment variables from .env file (useful for local testing).
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatal("unable to load SDK config", zap.Error(err))
	}

	// The pool lives for the lifetime of the execution environment.
	store, _, err := bootstrap.NewStore(ctx, cfg, awsCfg)
	if err != nil {
		logger.Fatal("unable to open contract store", zap.Error(err))
	}

	svc := bootstrap.NewService(cfg, awsCfg, store, logger)
	return &paymentHandler{processor: webhooks.NewProcessor(svc, logger), logger: logger}
}

// HandleRequest applies payment events from SQS. Messages that can never
// succeed are logged and dropped; transient failures are reported back so
// SQS redelivers only those records.
func (h *paymentHandler) HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, message := range sqsEvent.Records {
		logger := h.logger.With(zap.String("message_id", message.MessageId))

		var e webhooks.PaymentEvent
		if err := json.Unmarshal([]byte(message.Body), &e); err != nil {
			logger.Error("failed to unmarshal payment event", zap.Error(err))
			continue
		}

		outcome, err := h.processor.Process(ctx, e)
		switch {
		case err == nil:
			logger.Info("processed payment event", zap.String("event_id", e.EventID), zap.String("outcome", string(outcome)))
		case permanent(err):
			logger.Error("dropping payment event", zap.String("event_id", e.EventID), zap.Error(err))
		default:
			logger.Error("failed to process payment event", zap.String("event_id", e.EventID), zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: message.MessageId})
		}
	}
	return resp, nil
}

func permanent(err error) bool {
	return errors.Is(err, webhooks.ErrMissingContract) ||
		errors.Is(err, contract.ErrNotFound) ||
		errors.Is(err, contract.ErrPermissionDenied)
}

func main() {
	lambda.Start(newPaymentHandler().HandleRequest)
}
