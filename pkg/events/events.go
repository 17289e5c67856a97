// Package events publishes contract lifecycle events for downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/google/uuid"
)

// Type names a contract event.
type Type string

const (
	TypeContractCreated       Type = "contract.created"
	TypeContractStatusChanged Type = "contract.status_changed"
	TypeContractBuyerBound    Type = "contract.buyer_bound"
)

// Event is the message body sent for every contract change.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	ContractID int64           `json:"contract_id"`
	Status     contract.Status `json:"status"`
	Transition string          `json:"transition,omitempty"`
	SellerID   int64           `json:"seller_id"`
	BuyerID    *int64          `json:"buyer_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher defines the interface for publishing contract events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// New builds an event of type t describing the current state of c.
func New(t Type, c *contract.Contract) Event {
	e := Event{
		ID:         uuid.New().String(),
		Type:       t,
		ContractID: c.ID,
		Status:     c.Status(),
		SellerID:   c.SellerID,
		OccurredAt: c.UpdatedAt,
	}
	if buyer, ok := c.BuyerID(); ok {
		e.BuyerID = &buyer
	}
	return e
}

// StatusChanged builds a contract.status_changed event for transition tr.
func StatusChanged(c *contract.Contract, tr contract.Transition) Event {
	e := New(TypeContractStatusChanged, c)
	e.Transition = string(tr)
	return e
}

// NoOpPublisher is a publisher that does nothing.
type NoOpPublisher struct{}

// Publish does nothing.
func (p *NoOpPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}
