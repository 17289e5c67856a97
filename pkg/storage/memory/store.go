// Package memory is an in-process contract store. It serialises every
// operation behind one mutex, which gives the same atomicity the DynamoDB and
// Postgres stores get from conditional writes.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/chris/escrow-contracts/pkg/storage"
)

// Store implements the Storage interface in memory.
type Store struct {
	mu     sync.Mutex
	lastID int64
	byID   map[int64]*contract.Contract
	byCode map[string]int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		byID:   make(map[int64]*contract.Contract),
		byCode: make(map[string]int64),
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

func (s *Store) NextContractID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID, nil
}

func (s *Store) AccessCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byCode[code]
	return ok, nil
}

func (s *Store) InsertContract(_ context.Context, c *contract.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[c.ID]; ok {
		return storage.ErrContractExists
	}
	if _, ok := s.byCode[c.AccessCode]; ok {
		return storage.ErrAccessCodeTaken
	}
	s.byID[c.ID] = c.Clone()
	s.byCode[c.AccessCode] = c.ID
	if c.ID > s.lastID {
		s.lastID = c.ID
	}
	return nil
}

func (s *Store) GetContract(_ context.Context, id int64) (*contract.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("contract with ID %d: %w", id, storage.ErrContractNotFound)
	}
	return c.Clone(), nil
}

func (s *Store) GetContractByAccessCode(_ context.Context, code string) (*contract.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCode[code]
	if !ok {
		return nil, fmt.Errorf("contract with access code %s: %w", code, storage.ErrContractNotFound)
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) UpdateContractStatus(_ context.Context, c *contract.Contract, expected contract.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[c.ID]
	if !ok || stored.Status() != expected {
		return storage.ErrStaleContract
	}
	buyer, bound := stored.BuyerID()
	var buyerID *int64
	if bound {
		buyerID = &buyer
	}
	fields := *stored
	fields.QRPayload = c.QRPayload
	fields.UpdatedAt = c.UpdatedAt
	updated, err := contract.Restore(fields, c.Status(), buyerID)
	if err != nil {
		return err
	}
	s.byID[c.ID] = updated
	return nil
}

func (s *Store) AssignBuyer(_ context.Context, id, buyerID int64, now time.Time) (*contract.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("contract with ID %d: %w", id, storage.ErrContractNotFound)
	}
	if !stored.BindBuyer(buyerID, now) {
		return nil, storage.ErrBuyerAlreadyAssigned
	}
	return stored.Clone(), nil
}

func (s *Store) ListContractsBySeller(_ context.Context, sellerID int64) ([]*contract.Contract, error) {
	return s.list(func(c *contract.Contract) bool { return c.SellerID == sellerID }), nil
}

func (s *Store) ListContractsByBuyer(_ context.Context, buyerID int64) ([]*contract.Contract, error) {
	return s.list(func(c *contract.Contract) bool {
		id, ok := c.BuyerID()
		return ok && id == buyerID
	}), nil
}

func (s *Store) list(match func(*contract.Contract) bool) []*contract.Contract {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*contract.Contract
	for _, c := range s.byID {
		if match(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
