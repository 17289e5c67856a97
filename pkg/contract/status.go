package contract

// Status defines the possible states of a contract.
type Status string

const (
	DRAFT            Status = "DRAFT"
	AWAITING_PAYMENT Status = "AWAITING_PAYMENT"
	LOCKED           Status = "LOCKED"
	IN_TRANSIT       Status = "IN_TRANSIT"
	RELEASED         Status = "RELEASED"
	COMPLETED        Status = "COMPLETED"
	DISPUTED         Status = "DISPUTED"
	REFUNDED         Status = "REFUNDED"
)

// Statuses lists every state in lifecycle order.
var Statuses = []Status{
	DRAFT,
	AWAITING_PAYMENT,
	LOCKED,
	IN_TRANSIT,
	RELEASED,
	COMPLETED,
	DISPUTED,
	REFUNDED,
}

// Valid reports whether s is one of the defined states.
func (s Status) Valid() bool {
	switch s {
	case DRAFT, AWAITING_PAYMENT, LOCKED, IN_TRANSIT, RELEASED, COMPLETED, DISPUTED, REFUNDED:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	for _, t := range Transitions {
		if t.AllowedFrom(s) {
			return false
		}
	}
	return true
}
