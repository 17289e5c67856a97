// Package escrow runs contract operations against storage as single atomic
// units: creation, transitions and buyer binding.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/chris/escrow-contracts/pkg/accesscode"
	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/chris/escrow-contracts/pkg/events"
	"github.com/chris/escrow-contracts/pkg/metrics"
	"github.com/chris/escrow-contracts/pkg/storage"
	"go.uber.org/zap"
)

// CodeGenerator issues access codes for new contracts.
type CodeGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// Service implements the contract operations on top of a ContractStore.
type Service struct {
	store     storage.ContractStore
	codes     CodeGenerator
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher sets the publisher that receives contract events.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates a new Service.
func NewService(store storage.ContractStore, codes CodeGenerator, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:     store,
		codes:     codes,
		publisher: &events.NoOpPublisher{},
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateContract allocates an id and access code, builds the contract in DRAFT,
// publishes it and stores it in AWAITING_PAYMENT with a single insert.
func (s *Service) CreateContract(ctx context.Context, seller contract.Identity, d contract.Details) (*contract.Contract, error) {
	if !seller.Authenticated {
		return nil, contract.ErrPermissionDenied
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	id, err := s.store.NextContractID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate contract id: %w", err)
	}

	code, err := s.codes.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access code: %w", err)
	}

	now := s.now()
	c, err := contract.New(id, seller.UserID, code, d, now)
	if err != nil {
		return nil, err
	}
	if err := c.Publish(now); err != nil {
		return nil, err
	}

	if err := s.store.InsertContract(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to insert contract: %w", err)
	}

	metrics.ContractsCreated.Inc()
	s.logger.Info("contract created",
		zap.Int64("contract_id", c.ID),
		zap.Int64("seller_id", c.SellerID),
		zap.String("access_code", c.AccessCode),
	)
	s.publish(ctx, events.New(events.TypeContractCreated, c))

	return c, nil
}

// ApplyTransition authorises actor for t, applies t to the stored contract and
// persists the new status conditionally on the status it was read in.
func (s *Service) ApplyTransition(ctx context.Context, id int64, t contract.Transition, actor contract.Actor) (*contract.Contract, error) {
	if _, err := contract.ParseTransition(string(t)); err != nil {
		return nil, err
	}

	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.Authorize(t, actor); err != nil {
		metrics.Transitions.WithLabelValues(string(t), metrics.OutcomeDenied).Inc()
		return nil, err
	}

	expected := c.Status()
	if err := c.Apply(t, s.now()); err != nil {
		metrics.Transitions.WithLabelValues(string(t), metrics.OutcomeRejected).Inc()
		return nil, err
	}

	err = s.store.UpdateContractStatus(ctx, c, expected)
	if errors.Is(err, storage.ErrStaleContract) {
		metrics.Transitions.WithLabelValues(string(t), metrics.OutcomeConflict).Inc()
		return nil, s.lostTransition(ctx, id, t)
	}
	if err != nil {
		metrics.Transitions.WithLabelValues(string(t), metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("failed to persist %s on contract %d: %w", t, id, err)
	}

	metrics.Transitions.WithLabelValues(string(t), metrics.OutcomeApplied).Inc()
	s.logger.Info("contract transitioned",
		zap.Int64("contract_id", id),
		zap.String("transition", string(t)),
		zap.String("from", string(expected)),
		zap.String("to", string(c.Status())),
	)
	s.publish(ctx, events.StatusChanged(c, t))

	return c, nil
}

// lostTransition re-reads a contract whose conditional update lost a race. If
// t is now illegal the caller gets an InvalidTransitionError against the fresh
// state; otherwise the conflict is reported as stale and may be retried.
func (s *Service) lostTransition(ctx context.Context, id int64, t contract.Transition) error {
	fresh, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !t.AllowedFrom(fresh.Status()) {
		return &contract.InvalidTransitionError{Transition: t, Current: fresh.Status()}
	}
	return fmt.Errorf("contract %d: %w", id, storage.ErrStaleContract)
}

// BindBuyer resolves access for who on the contract with the given id, binding
// who as buyer when the contract has none. Anonymous callers are denied.
func (s *Service) BindBuyer(ctx context.Context, id int64, who contract.Identity) (*contract.Contract, error) {
	if !who.Authenticated {
		metrics.BuyerBindings.WithLabelValues(metrics.OutcomeDenied).Inc()
		return nil, contract.ErrPermissionDenied
	}
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.bind(ctx, c, who)
}

// BindBuyerByAccessCode is BindBuyer for a contract reached by its access code.
// The code is normalised first. Anonymous callers may read unbound contracts.
func (s *Service) BindBuyerByAccessCode(ctx context.Context, code string, who contract.Identity) (*contract.Contract, error) {
	c, err := s.LookupByAccessCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.bind(ctx, c, who)
}

func (s *Service) bind(ctx context.Context, c *contract.Contract, who contract.Identity) (*contract.Contract, error) {
	access, err := c.Access(who)
	if err != nil {
		metrics.BuyerBindings.WithLabelValues(metrics.OutcomeDenied).Inc()
		return nil, err
	}
	if access == contract.AccessRead {
		metrics.BuyerBindings.WithLabelValues(metrics.OutcomeGranted).Inc()
		return c, nil
	}

	bound, err := s.store.AssignBuyer(ctx, c.ID, who.UserID, s.now())
	switch {
	case errors.Is(err, storage.ErrBuyerAlreadyAssigned):
		// Lost the race: decide once more against the winner.
		fresh, err := s.get(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		access, err := fresh.Access(who)
		if err != nil {
			metrics.BuyerBindings.WithLabelValues(metrics.OutcomeDenied).Inc()
			return nil, err
		}
		if access != contract.AccessRead {
			metrics.BuyerBindings.WithLabelValues(metrics.OutcomeConflict).Inc()
			return nil, fmt.Errorf("contract %d: %w", c.ID, storage.ErrStaleContract)
		}
		metrics.BuyerBindings.WithLabelValues(metrics.OutcomeGranted).Inc()
		return fresh, nil
	case errors.Is(err, storage.ErrContractNotFound):
		return nil, fmt.Errorf("%w: %w", contract.ErrNotFound, err)
	case err != nil:
		metrics.BuyerBindings.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("failed to bind buyer to contract %d: %w", c.ID, err)
	}

	metrics.BuyerBindings.WithLabelValues(metrics.OutcomeBound).Inc()
	s.logger.Info("buyer bound",
		zap.Int64("contract_id", bound.ID),
		zap.Int64("buyer_id", who.UserID),
	)
	s.publish(ctx, events.New(events.TypeContractBuyerBound, bound))

	return bound, nil
}

// LookupByAccessCode finds a contract by its normalised access code without any
// access decision.
func (s *Service) LookupByAccessCode(ctx context.Context, code string) (*contract.Contract, error) {
	code = accesscode.Normalize(code)
	if code == "" {
		return nil, fmt.Errorf("%w: empty access code", contract.ErrNotFound)
	}
	c, err := s.store.GetContractByAccessCode(ctx, code)
	if errors.Is(err, storage.ErrContractNotFound) {
		return nil, fmt.Errorf("%w: %w", contract.ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up contract by access code: %w", err)
	}
	return c, nil
}

// GetContract loads a contract by id without any access decision.
func (s *Service) GetContract(ctx context.Context, id int64) (*contract.Contract, error) {
	return s.get(ctx, id)
}

// ListBySeller returns the seller's contracts, newest first.
func (s *Service) ListBySeller(ctx context.Context, sellerID int64) ([]*contract.Contract, error) {
	contracts, err := s.store.ListContractsBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts for seller %d: %w", sellerID, err)
	}
	return contracts, nil
}

// Participation is a contract seen from one of its parties.
type Participation struct {
	Contract *contract.Contract
	Role     contract.Role
	// OtherPartyID is the counterparty, absent while a seller's contract has no buyer.
	OtherPartyID *int64
}

// ListForParticipant returns every contract userID sells or is bound to as
// buyer, newest first.
func (s *Service) ListForParticipant(ctx context.Context, userID int64) ([]Participation, error) {
	selling, err := s.store.ListContractsBySeller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts for seller %d: %w", userID, err)
	}
	buying, err := s.store.ListContractsByBuyer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts for buyer %d: %w", userID, err)
	}

	out := make([]Participation, 0, len(selling)+len(buying))
	for _, c := range selling {
		p := Participation{Contract: c, Role: contract.RoleSeller}
		if buyer, ok := c.BuyerID(); ok {
			p.OtherPartyID = &buyer
		}
		out = append(out, p)
	}
	for _, c := range buying {
		seller := c.SellerID
		out = append(out, Participation{Contract: c, Role: contract.RoleBuyer, OtherPartyID: &seller})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Contract, out[j].Contract
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func (s *Service) get(ctx context.Context, id int64) (*contract.Contract, error) {
	c, err := s.store.GetContract(ctx, id)
	if errors.Is(err, storage.ErrContractNotFound) {
		return nil, fmt.Errorf("%w: %w", contract.ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract %d: %w", id, err)
	}
	return c, nil
}

// publish never fails the operation that produced the event.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("failed to publish contract event",
			zap.String("event_id", e.ID),
			zap.String("type", string(e.Type)),
			zap.Int64("contract_id", e.ContractID),
			zap.Error(err),
		)
	}
}
