package webhooks

import (
	"context"
	"errors"
	"testing"

	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTransitioner struct {
	mock.Mock
}

func (m *mockTransitioner) ApplyTransition(ctx context.Context, id int64, t contract.Transition, actor contract.Actor) (*contract.Contract, error) {
	args := m.Called(ctx, id, t, actor)
	c, _ := args.Get(0).(*contract.Contract)
	return c, args.Error(1)
}

func (m *mockTransitioner) LookupByAccessCode(ctx context.Context, code string) (*contract.Contract, error) {
	args := m.Called(ctx, code)
	c, _ := args.Get(0).(*contract.Contract)
	return c, args.Error(1)
}

func inState(t *testing.T, s contract.Status) *contract.Contract {
	t.Helper()
	c, err := contract.Restore(contract.Contract{ID: 5, SellerID: 42}, s, nil)
	require.NoError(t, err)
	return c
}

func TestVerify(t *testing.T) {
	secret := []byte("whsec")
	body := []byte(`{"event_id":"evt_1","type":"payment.confirmed","contract_id":5}`)

	assert.NoError(t, Verify(secret, body, Sign(secret, body)))
	assert.ErrorIs(t, Verify(secret, body, Sign([]byte("other"), body)), ErrInvalidSignature)
	assert.ErrorIs(t, Verify(secret, append(body, ' '), Sign(secret, body)), ErrInvalidSignature)
	assert.ErrorIs(t, Verify(secret, body, ""), ErrInvalidSignature)
	assert.ErrorIs(t, Verify(secret, body, "not-hex"), ErrInvalidSignature)
	assert.Error(t, Verify(nil, body, Sign(secret, body)))
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("Payment Confirmed Locks Funds", func(t *testing.T) {
		svc := new(mockTransitioner)
		svc.On("ApplyTransition", mock.Anything, int64(5), contract.LockFunds, contract.SystemActor()).
			Return(inState(t, contract.LOCKED), nil).Once()

		outcome, err := NewProcessor(svc, nil).Process(ctx, PaymentEvent{EventID: "evt_1", Type: PaymentConfirmed, ContractID: 5})

		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		svc.AssertExpectations(t)
	})

	t.Run("Payout Completed By Access Code", func(t *testing.T) {
		svc := new(mockTransitioner)
		svc.On("LookupByAccessCode", mock.Anything, "abcdef").Return(inState(t, contract.RELEASED), nil).Once()
		svc.On("ApplyTransition", mock.Anything, int64(5), contract.Complete, contract.SystemActor()).
			Return(inState(t, contract.COMPLETED), nil).Once()

		outcome, err := NewProcessor(svc, nil).Process(ctx, PaymentEvent{EventID: "evt_2", Type: PayoutCompleted, AccessCode: "abcdef"})

		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		svc.AssertExpectations(t)
	})

	t.Run("Redelivery Is Acknowledged", func(t *testing.T) {
		svc := new(mockTransitioner)
		svc.On("ApplyTransition", mock.Anything, int64(5), contract.LockFunds, mock.Anything).
			Return(nil, &contract.InvalidTransitionError{Transition: contract.LockFunds, Current: contract.LOCKED}).Once()

		outcome, err := NewProcessor(svc, nil).Process(ctx, PaymentEvent{EventID: "evt_1", Type: PaymentConfirmed, ContractID: 5})

		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, outcome)
		svc.AssertExpectations(t)
	})

	t.Run("Unknown Type Ignored", func(t *testing.T) {
		svc := new(mockTransitioner)

		outcome, err := NewProcessor(svc, nil).Process(ctx, PaymentEvent{EventID: "evt_3", Type: "charge.refunded", ContractID: 5})

		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, outcome)
		svc.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Missing Contract", func(t *testing.T) {
		_, err := NewProcessor(new(mockTransitioner), nil).Process(ctx, PaymentEvent{EventID: "evt_4", Type: PaymentConfirmed})

		assert.ErrorIs(t, err, ErrMissingContract)
	})

	t.Run("Not Found Surfaces", func(t *testing.T) {
		svc := new(mockTransitioner)
		svc.On("ApplyTransition", mock.Anything, int64(9), contract.LockFunds, mock.Anything).
			Return(nil, contract.ErrNotFound).Once()

		_, err := NewProcessor(svc, nil).Process(ctx, PaymentEvent{EventID: "evt_5", Type: PaymentConfirmed, ContractID: 9})

		assert.ErrorIs(t, err, contract.ErrNotFound)
	})

	t.Run("Store Failure Surfaces", func(t *testing.T) {
		svc := new(mockTransitioner)
		svc.On("ApplyTransition", mock.Anything, int64(5), contract.LockFunds, mock.Anything).
			Return(nil, errors.New("throttled")).Once()

		_, err := NewProcessor(svc, nil).Process(ctx, PaymentEvent{EventID: "evt_6", Type: PaymentConfirmed, ContractID: 5})

		assert.Error(t, err)
	})
}
