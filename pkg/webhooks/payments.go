// Package webhooks turns payment provider notifications into contract transitions.
package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/chris/escrow-contracts/pkg/metrics"
	"go.uber.org/zap"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Signature"

// EventType names a payment provider notification.
type EventType string

const (
	// PaymentConfirmed means the buyer's funds are held by the provider.
	PaymentConfirmed EventType = "payment.confirmed"
	// PayoutCompleted means the seller has been paid out.
	PayoutCompleted EventType = "payout.completed"
)

// ErrInvalidSignature is returned when the signature is missing or does not match the body.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrMissingContract is returned when an event names neither a contract id nor an access code.
var ErrMissingContract = errors.New("payment event names no contract")

// PaymentEvent is the body of a payment notification, delivered by webhook or SQS.
type PaymentEvent struct {
	EventID    string    `json:"event_id"`
	Type       EventType `json:"type"`
	ContractID int64     `json:"contract_id,omitempty"`
	AccessCode string    `json:"access_code,omitempty"`
}

// Transition returns the contract transition an event type drives.
func (t EventType) Transition() (contract.Transition, bool) {
	switch t {
	case PaymentConfirmed:
		return contract.LockFunds, true
	case PayoutCompleted:
		return contract.Complete, true
	}
	return "", false
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against the HMAC-SHA256 of body.
func Verify(secret, body []byte, signature string) error {
	if len(secret) == 0 {
		return fmt.Errorf("webhook verifier secret is empty")
	}
	provided, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(provided) == 0 {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return ErrInvalidSignature
	}
	return nil
}

// Outcome is what processing did with an event.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	// OutcomeIgnored covers event types that drive no transition.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDuplicate covers redeliveries whose transition is no longer legal.
	OutcomeDuplicate Outcome = "duplicate"
)

// Transitioner is the part of the escrow service the processor drives.
type Transitioner interface {
	ApplyTransition(ctx context.Context, id int64, t contract.Transition, actor contract.Actor) (*contract.Contract, error)
	LookupByAccessCode(ctx context.Context, code string) (*contract.Contract, error)
}

// Processor applies payment events to contracts as the system actor.
type Processor struct {
	svc    Transitioner
	logger *zap.Logger
}

// NewProcessor creates a new Processor.
func NewProcessor(svc Transitioner, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{svc: svc, logger: logger}
}

// Process applies e. A transition that is illegal from the current state is
// acknowledged as a duplicate so redeliveries settle.
func (p *Processor) Process(ctx context.Context, e PaymentEvent) (Outcome, error) {
	logger := p.logger.With(zap.String("event_id", e.EventID), zap.String("type", string(e.Type)))

	t, ok := e.Type.Transition()
	if !ok {
		metrics.PaymentEvents.WithLabelValues(string(e.Type), string(OutcomeIgnored)).Inc()
		logger.Info("ignoring payment event")
		return OutcomeIgnored, nil
	}

	id := e.ContractID
	if id == 0 {
		if e.AccessCode == "" {
			metrics.PaymentEvents.WithLabelValues(string(e.Type), metrics.OutcomeError).Inc()
			return "", ErrMissingContract
		}
		c, err := p.svc.LookupByAccessCode(ctx, e.AccessCode)
		if err != nil {
			metrics.PaymentEvents.WithLabelValues(string(e.Type), metrics.OutcomeError).Inc()
			return "", err
		}
		id = c.ID
	}

	c, err := p.svc.ApplyTransition(ctx, id, t, contract.SystemActor())
	if errors.Is(err, contract.ErrInvalidTransition) {
		metrics.PaymentEvents.WithLabelValues(string(e.Type), string(OutcomeDuplicate)).Inc()
		logger.Warn("payment event does not apply to contract state", zap.Int64("contract_id", id), zap.Error(err))
		return OutcomeDuplicate, nil
	}
	if err != nil {
		metrics.PaymentEvents.WithLabelValues(string(e.Type), metrics.OutcomeError).Inc()
		return "", err
	}

	metrics.PaymentEvents.WithLabelValues(string(e.Type), string(OutcomeApplied)).Inc()
	logger.Info("payment event applied", zap.Int64("contract_id", id), zap.String("status", string(c.Status())))
	return OutcomeApplied, nil
}
