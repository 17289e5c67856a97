package contract

import "time"

// Identity is the caller as seen by the authentication layer.
type Identity struct {
	UserID        int64
	Authenticated bool
}

// Anonymous is an unauthenticated caller.
func Anonymous() Identity {
	return Identity{}
}

// User is an authenticated caller.
func User(id int64) Identity {
	return Identity{UserID: id, Authenticated: true}
}

// Actor is an identity plus the privileges it carries when requesting transitions.
type Actor struct {
	Identity
	Admin  bool
	System bool
}

// SystemActor is used by trusted internal callers such as the payment webhook.
func SystemActor() Actor {
	return Actor{System: true}
}

// Access is the outcome of a buyer-binding decision.
type Access int

const (
	// AccessRead grants read access without changing the contract.
	AccessRead Access = iota
	// AccessBind grants access and binds the requester as buyer.
	AccessBind
)

// Access decides what who may do with c when reaching it by id or access code.
// It never mutates c; binding is persisted by the caller with a conditional write.
func (c *Contract) Access(who Identity) (Access, error) {
	buyer, bound := c.BuyerID()
	if who.Authenticated {
		if who.UserID == c.SellerID {
			return AccessRead, nil
		}
		if !bound {
			return AccessBind, nil
		}
		if buyer == who.UserID {
			return AccessRead, nil
		}
		return AccessRead, ErrPermissionDenied
	}
	if bound {
		return AccessRead, ErrPermissionDenied
	}
	return AccessRead, nil
}

// BindBuyer records buyerID as the buyer if none is bound yet and buyerID is not the seller.
// It reports whether c changed.
func (c *Contract) BindBuyer(buyerID int64, now time.Time) bool {
	if c.buyerID != nil || buyerID == c.SellerID {
		return false
	}
	id := buyerID
	c.buyerID = &id
	c.UpdatedAt = now
	return true
}

// RoleOf resolves the role a acts under for c.
func (c *Contract) RoleOf(a Actor) (Role, error) {
	switch {
	case a.System:
		return RoleSystem, nil
	case a.Admin:
		return RoleAdmin, nil
	case !a.Authenticated:
		return "", ErrPermissionDenied
	case a.UserID == c.SellerID:
		return RoleSeller, nil
	}
	if buyer, ok := c.BuyerID(); ok && buyer == a.UserID {
		return RoleBuyer, nil
	}
	return "", ErrPermissionDenied
}

// Authorize checks that a may request t on c. State is not consulted.
func (c *Contract) Authorize(t Transition, a Actor) error {
	role, err := c.RoleOf(a)
	if err != nil {
		return err
	}
	if !t.PermittedFor(role) {
		return ErrPermissionDenied
	}
	return nil
}
