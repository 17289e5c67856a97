package escrow

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chris/escrow-contracts/pkg/accesscode"
	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/chris/escrow-contracts/pkg/events"
	eventmocks "github.com/chris/escrow-contracts/pkg/events/mocks"
	"github.com/chris/escrow-contracts/pkg/storage"
	"github.com/chris/escrow-contracts/pkg/storage/memory"
	"github.com/chris/escrow-contracts/pkg/storage/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixedCode string

func (f fixedCode) Generate(context.Context) (string, error) { return string(f), nil }

func details() contract.Details {
	return contract.Details{
		Title:     "Bicicleta",
		Price:     decimal.NewFromInt(100),
		Condition: contract.ConditionNew,
	}
}

func newService(t *testing.T, opts ...Option) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	gen := accesscode.NewGenerator(store, rand.New(rand.NewPCG(7, 11)), nil)
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return NewService(store, gen, zap.NewNop(), opts...), store
}

// locked creates a contract for seller 42, binds buyer 7 and confirms payment.
func locked(t *testing.T, s *Service) *contract.Contract {
	t.Helper()
	ctx := context.Background()
	c, err := s.CreateContract(ctx, contract.User(42), details())
	require.NoError(t, err)
	_, err = s.BindBuyer(ctx, c.ID, contract.User(7))
	require.NoError(t, err)
	c, err = s.ApplyTransition(ctx, c.ID, contract.LockFunds, contract.SystemActor())
	require.NoError(t, err)
	return c
}

func TestCreateContract(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		s, store := newService(t)

		c, err := s.CreateContract(context.Background(), contract.User(42), details())

		require.NoError(t, err)
		assert.Equal(t, contract.AWAITING_PAYMENT, c.Status())
		assert.Len(t, c.AccessCode, accesscode.Length)
		assert.Equal(t, fmt.Sprintf("kiwiapp://product/%d", c.ID), c.QRPayload)
		assert.Equal(t, int64(42), c.SellerID)

		stored, err := store.GetContract(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, contract.AWAITING_PAYMENT, stored.Status())
	})

	t.Run("Anonymous", func(t *testing.T) {
		s, _ := newService(t)

		_, err := s.CreateContract(context.Background(), contract.Anonymous(), details())

		assert.ErrorIs(t, err, contract.ErrPermissionDenied)
	})

	t.Run("Invalid Details", func(t *testing.T) {
		s, _ := newService(t)
		d := details()
		d.Price = decimal.NewFromInt(-1)

		_, err := s.CreateContract(context.Background(), contract.User(42), d)

		assert.ErrorIs(t, err, contract.ErrInvalidDetails)
	})

	t.Run("Access Code Collision On Insert", func(t *testing.T) {
		store := memory.New()
		s := NewService(store, fixedCode("ABCDEF"), nil)

		_, err := s.CreateContract(context.Background(), contract.User(42), details())
		require.NoError(t, err)
		_, err = s.CreateContract(context.Background(), contract.User(43), details())

		assert.ErrorIs(t, err, storage.ErrAccessCodeTaken)
	})

	t.Run("Publishes Event", func(t *testing.T) {
		publisher := new(eventmocks.Publisher)
		s, _ := newService(t, WithPublisher(publisher))
		publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
			return e.Type == events.TypeContractCreated && e.Status == contract.AWAITING_PAYMENT
		})).Return(nil).Once()

		_, err := s.CreateContract(context.Background(), contract.User(42), details())

		require.NoError(t, err)
		publisher.AssertExpectations(t)
	})

	t.Run("Publish Failure Is Logged", func(t *testing.T) {
		publisher := new(eventmocks.Publisher)
		publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("queue down")).Once()
		core, logs := observer.New(zap.ErrorLevel)
		store := memory.New()
		s := NewService(store, fixedCode("ABCDEF"), zap.New(core), WithPublisher(publisher))

		_, err := s.CreateContract(context.Background(), contract.User(42), details())

		require.NoError(t, err)
		assert.Equal(t, 1, logs.FilterMessage("failed to publish contract event").Len())
	})

	t.Run("Store Error", func(t *testing.T) {
		store := new(mocks.Storage)
		store.On("NextContractID", mock.Anything).Return(int64(0), errors.New("counter unavailable")).Once()
		s := NewService(store, fixedCode("ABCDEF"), nil)

		_, err := s.CreateContract(context.Background(), contract.User(42), details())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to allocate contract id")
		store.AssertExpectations(t)
	})
}

func TestApplyTransition(t *testing.T) {
	ctx := context.Background()

	t.Run("Happy Path", func(t *testing.T) {
		s, _ := newService(t)
		c := locked(t, s)

		_, err := s.ApplyTransition(ctx, c.ID, contract.MarkInTransit, contract.Actor{Identity: contract.User(42)})
		require.NoError(t, err)
		_, err = s.ApplyTransition(ctx, c.ID, contract.ReleaseFunds, contract.Actor{Identity: contract.User(7)})
		require.NoError(t, err)
		done, err := s.ApplyTransition(ctx, c.ID, contract.Complete, contract.SystemActor())
		require.NoError(t, err)

		assert.Equal(t, contract.COMPLETED, done.Status())
	})

	t.Run("Invalid Transition", func(t *testing.T) {
		s, store := newService(t)
		c := locked(t, s)

		_, err := s.ApplyTransition(ctx, c.ID, contract.Refund, contract.SystemActor())

		var iterr *contract.InvalidTransitionError
		require.ErrorAs(t, err, &iterr)
		assert.Equal(t, contract.LOCKED, iterr.Current)
		stored, err := store.GetContract(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, contract.LOCKED, stored.Status())
	})

	t.Run("Permission Checked Before State", func(t *testing.T) {
		s, _ := newService(t)
		c := locked(t, s)

		_, err := s.ApplyTransition(ctx, c.ID, contract.Refund, contract.Actor{Identity: contract.User(7)})

		assert.ErrorIs(t, err, contract.ErrPermissionDenied)
	})

	t.Run("Not Found", func(t *testing.T) {
		s, _ := newService(t)

		_, err := s.ApplyTransition(ctx, 404, contract.LockFunds, contract.SystemActor())

		assert.ErrorIs(t, err, contract.ErrNotFound)
	})

	t.Run("Unknown Transition", func(t *testing.T) {
		s, _ := newService(t)

		_, err := s.ApplyTransition(ctx, 1, contract.Transition("ship"), contract.SystemActor())

		assert.ErrorIs(t, err, contract.ErrUnknownTransition)
	})

	t.Run("Lost Race Still Legal", func(t *testing.T) {
		// The stored status moved under us to a state from which the transition is still legal.
		c, err := contract.Restore(contract.Contract{ID: 1, SellerID: 42}, contract.LOCKED, nil)
		require.NoError(t, err)
		fresh, err := contract.Restore(contract.Contract{ID: 1, SellerID: 42}, contract.IN_TRANSIT, nil)
		require.NoError(t, err)

		store := new(mocks.Storage)
		store.On("GetContract", mock.Anything, int64(1)).Return(c, nil).Once()
		store.On("UpdateContractStatus", mock.Anything, mock.Anything, contract.LOCKED).Return(storage.ErrStaleContract).Once()
		store.On("GetContract", mock.Anything, int64(1)).Return(fresh, nil).Once()
		s := NewService(store, fixedCode("ABCDEF"), nil)

		_, err = s.ApplyTransition(ctx, 1, contract.Dispute, contract.SystemActor())

		assert.ErrorIs(t, err, storage.ErrStaleContract)
		store.AssertExpectations(t)
	})

	t.Run("Publishes Status Change", func(t *testing.T) {
		publisher := new(eventmocks.Publisher)
		publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
		s, _ := newService(t, WithPublisher(publisher))
		c := locked(t, s)

		_, err := s.ApplyTransition(ctx, c.ID, contract.Dispute, contract.Actor{Identity: contract.User(7)})

		require.NoError(t, err)
		publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
			return e.Type == events.TypeContractStatusChanged && e.Transition == "dispute" && e.Status == contract.DISPUTED
		}))
	})
}

func TestConcurrentConflictingTransitions(t *testing.T) {
	for round := 0; round < 50; round++ {
		s, store := newService(t)
		c := locked(t, s)

		var succeeded, invalid atomic.Int32
		var g errgroup.Group
		attempt := func(tr contract.Transition, who int64) func() error {
			return func() error {
				_, err := s.ApplyTransition(context.Background(), c.ID, tr, contract.Actor{Identity: contract.User(who)})
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.Is(err, contract.ErrInvalidTransition):
					invalid.Add(1)
				default:
					return err
				}
				return nil
			}
		}
		g.Go(attempt(contract.Dispute, 42))
		g.Go(attempt(contract.ReleaseFunds, 7))
		require.NoError(t, g.Wait())

		assert.Equal(t, int32(1), succeeded.Load())
		assert.Equal(t, int32(1), invalid.Load())
		stored, err := store.GetContract(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Contains(t, []contract.Status{contract.DISPUTED, contract.RELEASED}, stored.Status())
	}
}

func TestBindBuyer(t *testing.T) {
	ctx := context.Background()

	t.Run("Binds First Authenticated Stranger", func(t *testing.T) {
		s, _ := newService(t)
		c, err := s.CreateContract(ctx, contract.User(42), details())
		require.NoError(t, err)

		got, err := s.BindBuyer(ctx, c.ID, contract.User(7))
		require.NoError(t, err)
		buyer, ok := got.BuyerID()
		assert.True(t, ok)
		assert.Equal(t, int64(7), buyer)
		assert.Equal(t, contract.AWAITING_PAYMENT, got.Status())

		again, err := s.BindBuyer(ctx, c.ID, contract.User(7))
		require.NoError(t, err)
		buyer, _ = again.BuyerID()
		assert.Equal(t, int64(7), buyer)

		_, err = s.BindBuyer(ctx, c.ID, contract.User(8))
		assert.ErrorIs(t, err, contract.ErrPermissionDenied)
	})

	t.Run("Seller Never Binds", func(t *testing.T) {
		s, _ := newService(t)
		c, err := s.CreateContract(ctx, contract.User(42), details())
		require.NoError(t, err)

		got, err := s.BindBuyer(ctx, c.ID, contract.User(42))

		require.NoError(t, err)
		_, ok := got.BuyerID()
		assert.False(t, ok)
	})

	t.Run("Anonymous By ID Denied", func(t *testing.T) {
		s, _ := newService(t)
		c, err := s.CreateContract(ctx, contract.User(42), details())
		require.NoError(t, err)

		_, err = s.BindBuyer(ctx, c.ID, contract.Anonymous())

		assert.ErrorIs(t, err, contract.ErrPermissionDenied)
	})

	t.Run("Not Found Is Distinct From Denied", func(t *testing.T) {
		s, _ := newService(t)

		_, err := s.BindBuyer(ctx, 404, contract.User(7))

		assert.ErrorIs(t, err, contract.ErrNotFound)
		assert.NotErrorIs(t, err, contract.ErrPermissionDenied)
	})

	t.Run("By Access Code Normalises", func(t *testing.T) {
		s, _ := newService(t)
		c, err := s.CreateContract(ctx, contract.User(42), details())
		require.NoError(t, err)

		got, err := s.BindBuyerByAccessCode(ctx, "  "+strings.ToLower(c.AccessCode)+"\n", contract.User(7))

		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
		buyer, ok := got.BuyerID()
		assert.True(t, ok)
		assert.Equal(t, int64(7), buyer)
	})

	t.Run("Anonymous By Access Code", func(t *testing.T) {
		s, _ := newService(t)
		c, err := s.CreateContract(ctx, contract.User(42), details())
		require.NoError(t, err)

		got, err := s.BindBuyerByAccessCode(ctx, c.AccessCode, contract.Anonymous())
		require.NoError(t, err)
		_, ok := got.BuyerID()
		assert.False(t, ok)

		_, err = s.BindBuyer(ctx, c.ID, contract.User(7))
		require.NoError(t, err)
		_, err = s.BindBuyerByAccessCode(ctx, c.AccessCode, contract.Anonymous())
		assert.ErrorIs(t, err, contract.ErrPermissionDenied)
	})
}

func TestConcurrentBindBuyer(t *testing.T) {
	ctx := context.Background()
	s, store := newService(t)
	c, err := s.CreateContract(ctx, contract.User(42), details())
	require.NoError(t, err)

	const requesters = 32
	var (
		mu      sync.Mutex
		winners []int64
		denied  int
	)
	var g errgroup.Group
	for i := 0; i < requesters; i++ {
		who := int64(100 + i)
		g.Go(func() error {
			got, err := s.BindBuyer(ctx, c.ID, contract.User(who))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				buyer, _ := got.BuyerID()
				if buyer != who {
					return fmt.Errorf("requester %d granted contract bound to %d", who, buyer)
				}
				winners = append(winners, who)
			case errors.Is(err, contract.ErrPermissionDenied):
				denied++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, winners, 1)
	assert.Equal(t, requesters-1, denied)

	stored, err := store.GetContract(ctx, c.ID)
	require.NoError(t, err)
	buyer, ok := stored.BuyerID()
	assert.True(t, ok)
	assert.Equal(t, winners[0], buyer)

	// The winner retrying is granted read access without any change.
	again, err := s.BindBuyer(ctx, c.ID, contract.User(winners[0]))
	require.NoError(t, err)
	buyer, _ = again.BuyerID()
	assert.Equal(t, winners[0], buyer)
}

func TestBindBuyerLostRace(t *testing.T) {
	ctx := context.Background()
	unbound, err := contract.Restore(contract.Contract{ID: 1, SellerID: 42}, contract.AWAITING_PAYMENT, nil)
	require.NoError(t, err)
	winner := int64(7)
	bound, err := contract.Restore(contract.Contract{ID: 1, SellerID: 42}, contract.AWAITING_PAYMENT, &winner)
	require.NoError(t, err)

	store := new(mocks.Storage)
	store.On("GetContract", mock.Anything, int64(1)).Return(unbound, nil).Once()
	store.On("AssignBuyer", mock.Anything, int64(1), int64(8), mock.Anything).Return(nil, storage.ErrBuyerAlreadyAssigned).Once()
	store.On("GetContract", mock.Anything, int64(1)).Return(bound, nil).Once()
	s := NewService(store, fixedCode("ABCDEF"), nil)

	_, err = s.BindBuyer(ctx, 1, contract.User(8))

	assert.ErrorIs(t, err, contract.ErrPermissionDenied)
	store.AssertExpectations(t)
}

func TestConcurrentCreationsGetUniqueCodes(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	const creations = 200
	codes := make([]string, creations)
	var g errgroup.Group
	g.SetLimit(16)
	for i := 0; i < creations; i++ {
		g.Go(func() error {
			c, err := s.CreateContract(ctx, contract.User(int64(i+1)), details())
			if err != nil {
				return err
			}
			codes[i] = c.AccessCode
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]bool, creations)
	for _, code := range codes {
		assert.False(t, seen[code], "duplicate access code %s", code)
		assert.True(t, accesscode.Valid(code))
		seen[code] = true
	}
}

func TestLookupByAccessCode(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	c, err := s.CreateContract(ctx, contract.User(42), details())
	require.NoError(t, err)

	got, err := s.LookupByAccessCode(ctx, strings.ToLower(c.AccessCode))
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = s.LookupByAccessCode(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, contract.ErrNotFound)

	_, err = s.LookupByAccessCode(ctx, "   ")
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestListForParticipant(t *testing.T) {
	ctx := context.Background()
	clock := now
	s, _ := newService(t, WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))

	sold, err := s.CreateContract(ctx, contract.User(42), details())
	require.NoError(t, err)
	bought, err := s.CreateContract(ctx, contract.User(43), details())
	require.NoError(t, err)
	_, err = s.BindBuyer(ctx, bought.ID, contract.User(42))
	require.NoError(t, err)

	got, err := s.ListForParticipant(ctx, 42)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, bought.ID, got[0].Contract.ID)
	assert.Equal(t, contract.RoleBuyer, got[0].Role)
	require.NotNil(t, got[0].OtherPartyID)
	assert.Equal(t, int64(43), *got[0].OtherPartyID)
	assert.Equal(t, sold.ID, got[1].Contract.ID)
	assert.Equal(t, contract.RoleSeller, got[1].Role)
	assert.Nil(t, got[1].OtherPartyID)

	selling, err := s.ListBySeller(ctx, 42)
	require.NoError(t, err)
	require.Len(t, selling, 1)
	assert.Equal(t, sold.ID, selling[0].ID)
}
