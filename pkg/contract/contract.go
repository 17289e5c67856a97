// Package contract holds the escrow contract entity and the state machine that
// governs its status. Status and buyer are unexported: the only way to change
// them is through a named transition or the one-time buyer binding.
package contract

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/chris/escrow-contracts/pkg/accesscode"
	"github.com/shopspring/decimal"
)

// Condition describes the state of the listed item.
type Condition string

const (
	ConditionNew        Condition = "Nuevo"
	ConditionLikeNew    Condition = "Usado - como nuevo"
	ConditionGood       Condition = "Usado - buen estado"
	ConditionAcceptable Condition = "Usado - aceptable"
)

const (
	// MaxPhotos is the largest attachment list a contract may carry.
	MaxPhotos      = 10
	maxTitleLength = 255
)

// Conditions lists the accepted item conditions.
var Conditions = []Condition{ConditionNew, ConditionLikeNew, ConditionGood, ConditionAcceptable}

// Photo is an attachment reference. Storage of the image itself happens elsewhere.
type Photo struct {
	Order int
	URI   string
}

// Details is the seller-supplied payload of a new contract.
type Details struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Condition   Condition
	PhotoURIs   []string
}

// Validate checks the payload the same way the listing form does.
func (d Details) Validate() error {
	var problems []string
	title := strings.TrimSpace(d.Title)
	if title == "" {
		problems = append(problems, "title is required")
	} else if len(title) > maxTitleLength {
		problems = append(problems, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if !d.Price.IsPositive() {
		problems = append(problems, "price must be greater than 0")
	}
	if !slices.Contains(Conditions, d.Condition) {
		problems = append(problems, fmt.Sprintf("condition %q is not supported", d.Condition))
	}
	if len(d.PhotoURIs) > MaxPhotos {
		problems = append(problems, fmt.Sprintf("at most %d photos are allowed", MaxPhotos))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Contract is an item listing moving through the escrow lifecycle.
type Contract struct {
	ID          int64
	SellerID    int64
	Title       string
	Description string
	Price       decimal.Decimal
	Condition   Condition
	AccessCode  string
	QRPayload   string
	Photos      []Photo
	CreatedAt   time.Time
	UpdatedAt   time.Time

	buyerID *int64
	status  Status
}

// New builds a DRAFT contract. The caller is expected to publish it before persisting.
func New(id, sellerID int64, accessCode string, d Details, now time.Time) (*Contract, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	photos := make([]Photo, len(d.PhotoURIs))
	for i, uri := range d.PhotoURIs {
		photos[i] = Photo{Order: i, URI: uri}
	}
	return &Contract{
		ID:          id,
		SellerID:    sellerID,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Price:       d.Price,
		Condition:   d.Condition,
		AccessCode:  accessCode,
		Photos:      photos,
		CreatedAt:   now,
		UpdatedAt:   now,
		status:      DRAFT,
	}, nil
}

// Restore rebuilds a persisted contract. fields supplies everything except the
// protected status and buyer, which are validated here.
func Restore(fields Contract, status Status, buyerID *int64) (*Contract, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	c := fields
	c.Photos = slices.Clone(fields.Photos)
	c.status = status
	c.buyerID = nil
	if buyerID != nil {
		id := *buyerID
		c.buyerID = &id
	}
	return &c, nil
}

// Status returns the current state.
func (c *Contract) Status() Status {
	return c.status
}

// BuyerID returns the bound buyer, if any.
func (c *Contract) BuyerID() (int64, bool) {
	if c.buyerID == nil {
		return 0, false
	}
	return *c.buyerID, true
}

// Clone returns a deep copy.
func (c *Contract) Clone() *Contract {
	cp, _ := Restore(*c, c.status, c.buyerID)
	return cp
}

// Apply performs t, or returns an *InvalidTransitionError without touching c.
func (c *Contract) Apply(t Transition, now time.Time) error {
	if _, ok := table[t]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTransition, t)
	}
	if !t.AllowedFrom(c.status) {
		return &InvalidTransitionError{Transition: t, Current: c.status}
	}
	if t == Publish && c.QRPayload == "" {
		c.QRPayload = accesscode.DeepLink(c.ID)
	}
	c.status = t.Target()
	c.UpdatedAt = now
	return nil
}

func (c *Contract) Publish(now time.Time) error       { return c.Apply(Publish, now) }
func (c *Contract) LockFunds(now time.Time) error     { return c.Apply(LockFunds, now) }
func (c *Contract) MarkInTransit(now time.Time) error { return c.Apply(MarkInTransit, now) }
func (c *Contract) ReleaseFunds(now time.Time) error  { return c.Apply(ReleaseFunds, now) }
func (c *Contract) Complete(now time.Time) error      { return c.Apply(Complete, now) }
func (c *Contract) Dispute(now time.Time) error       { return c.Apply(Dispute, now) }
func (c *Contract) Refund(now time.Time) error        { return c.Apply(Refund, now) }

func (c *Contract) ResolveDisputeToSeller(now time.Time) error {
	return c.Apply(ResolveDisputeToSeller, now)
}
