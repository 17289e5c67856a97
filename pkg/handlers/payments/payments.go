package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/chris/escrow-contracts/pkg/api"
	"github.com/chris/escrow-contracts/pkg/mapping"
	"github.com/chris/escrow-contracts/pkg/webhooks"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// EventProcessor applies a verified payment event.
type EventProcessor interface {
	Process(ctx context.Context, e webhooks.PaymentEvent) (webhooks.Outcome, error)
}

// PaymentsHandler receives payment provider webhooks.
type PaymentsHandler struct {
	Processor EventProcessor
	Secret    []byte
	Logger    *zap.Logger
}

// NewPaymentsHandler creates a new PaymentsHandler.
func NewPaymentsHandler(processor EventProcessor, secret []byte, logger *zap.Logger) *PaymentsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentsHandler{Processor: processor, Secret: secret, Logger: logger}
}

// ReceivePaymentEvent verifies the X-Signature header over the raw body and
// applies the event.
func (h *PaymentsHandler) ReceivePaymentEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read request body: %v", err), http.StatusBadRequest)
		return
	}

	if err := webhooks.Verify(h.Secret, body, r.Header.Get(webhooks.SignatureHeader)); err != nil {
		h.Logger.Warn("rejecting payment webhook", zap.Error(err))
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event webhooks.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	outcome, err := h.Processor.Process(r.Context(), event)
	if err != nil {
		if errors.Is(err, webhooks.ErrMissingContract) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		status, apiErr := mapping.ToApiError(err)
		if status >= http.StatusInternalServerError {
			h.Logger.Error("failed to process payment event", zap.String("event_id", event.EventID), zap.Error(err))
		}
		h.writeJSON(w, status, apiErr)
		return
	}

	h.writeJSON(w, http.StatusOK, api.PaymentEventAck{EventId: event.EventID, Outcome: string(outcome)})
}

func (h *PaymentsHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("failed to write response", zap.Error(err))
	}
}
