package payments

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chris/escrow-contracts/pkg/webhooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var secret = []byte("whsec")

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Process(ctx context.Context, e webhooks.PaymentEvent) (webhooks.Outcome, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(webhooks.Outcome), args.Error(1)
}

func signedRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewBufferString(body))
	req.Header.Set(webhooks.SignatureHeader, webhooks.Sign(secret, []byte(body)))
	return req
}

func TestReceivePaymentEvent(t *testing.T) {
	event := webhooks.PaymentEvent{EventID: "evt_1", Type: webhooks.PaymentConfirmed, ContractID: 9}
	body := `{"event_id":"evt_1","type":"payment.confirmed","contract_id":9}`

	t.Run("Success", func(t *testing.T) {
		p := new(mockProcessor)
		p.On("Process", mock.Anything, event).Return(webhooks.OutcomeApplied, nil)
		h := NewPaymentsHandler(p, secret, nil)
		rr := httptest.NewRecorder()

		h.ReceivePaymentEvent(rr, signedRequest(body))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"event_id":"evt_1","outcome":"applied"}`, rr.Body.String())
		p.AssertExpectations(t)
	})

	t.Run("Missing Signature", func(t *testing.T) {
		p := new(mockProcessor)
		h := NewPaymentsHandler(p, secret, nil)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()

		h.ReceivePaymentEvent(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		p.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		h := NewPaymentsHandler(new(mockProcessor), secret, nil)
		rr := httptest.NewRecorder()

		h.ReceivePaymentEvent(rr, signedRequest(`{"event_id":`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Missing Contract", func(t *testing.T) {
		p := new(mockProcessor)
		p.On("Process", mock.Anything, mock.Anything).Return(webhooks.Outcome(""), webhooks.ErrMissingContract)
		h := NewPaymentsHandler(p, secret, nil)
		rr := httptest.NewRecorder()

		h.ReceivePaymentEvent(rr, signedRequest(`{"event_id":"evt_2","type":"payment.confirmed"}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Store Failure", func(t *testing.T) {
		p := new(mockProcessor)
		p.On("Process", mock.Anything, event).Return(webhooks.Outcome(""), errors.New("dynamodb unavailable"))
		h := NewPaymentsHandler(p, secret, nil)
		rr := httptest.NewRecorder()

		h.ReceivePaymentEvent(rr, signedRequest(body))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
