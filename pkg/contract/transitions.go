package contract

import (
	"fmt"
	"slices"
)

// Transition names a legal move of the contract state machine.
type Transition string

const (
	Publish                Transition = "publish"
	LockFunds              Transition = "lockFunds"
	MarkInTransit          Transition = "markInTransit"
	ReleaseFunds           Transition = "releaseFunds"
	Complete               Transition = "complete"
	Dispute                Transition = "dispute"
	Refund                 Transition = "refund"
	ResolveDisputeToSeller Transition = "resolveDisputeToSeller"
)

// Role identifies who is asking for a transition, relative to one contract.
type Role string

const (
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

type edge struct {
	sources []Status
	target  Status
	roles   []Role
}

// Statuses with no entry here have no outgoing edges.
var table = map[Transition]edge{
	Publish: {
		sources: []Status{DRAFT},
		target:  AWAITING_PAYMENT,
		roles:   []Role{RoleSystem},
	},
	LockFunds: {
		sources: []Status{AWAITING_PAYMENT},
		target:  LOCKED,
		roles:   []Role{RoleSystem},
	},
	MarkInTransit: {
		sources: []Status{LOCKED},
		target:  IN_TRANSIT,
		roles:   []Role{RoleSeller, RoleAdmin, RoleSystem},
	},
	ReleaseFunds: {
		sources: []Status{LOCKED, IN_TRANSIT},
		target:  RELEASED,
		roles:   []Role{RoleBuyer, RoleAdmin, RoleSystem},
	},
	Complete: {
		sources: []Status{RELEASED},
		target:  COMPLETED,
		roles:   []Role{RoleAdmin, RoleSystem},
	},
	Dispute: {
		sources: []Status{LOCKED, IN_TRANSIT},
		target:  DISPUTED,
		roles:   []Role{RoleSeller, RoleBuyer, RoleAdmin, RoleSystem},
	},
	Refund: {
		sources: []Status{DISPUTED},
		target:  REFUNDED,
		roles:   []Role{RoleAdmin, RoleSystem},
	},
	ResolveDisputeToSeller: {
		sources: []Status{DISPUTED},
		target:  RELEASED,
		roles:   []Role{RoleAdmin, RoleSystem},
	},
}

// Transitions lists every transition in table order.
var Transitions = []Transition{
	Publish,
	LockFunds,
	MarkInTransit,
	ReleaseFunds,
	Complete,
	Dispute,
	Refund,
	ResolveDisputeToSeller,
}

// ParseTransition resolves a wire name such as "lockFunds".
func ParseTransition(name string) (Transition, error) {
	t := Transition(name)
	if _, ok := table[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTransition, name)
	}
	return t, nil
}

// Sources returns the states t may be applied from.
func (t Transition) Sources() []Status {
	return slices.Clone(table[t].sources)
}

// Target returns the state t moves to. It is empty for unknown transitions.
func (t Transition) Target() Status {
	return table[t].target
}

// AllowedFrom reports whether t is legal from s.
func (t Transition) AllowedFrom(s Status) bool {
	e, ok := table[t]
	if !ok {
		return false
	}
	return slices.Contains(e.sources, s)
}

// PermittedFor reports whether role may request t.
func (t Transition) PermittedFor(role Role) bool {
	e, ok := table[t]
	if !ok {
		return false
	}
	return slices.Contains(e.roles, role)
}
