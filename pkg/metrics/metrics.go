package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeDenied   = "denied"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
	OutcomeBound    = "bound"
	OutcomeGranted  = "granted"
)

var (
	ContractsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "escrow_contracts_created_total",
		Help: "Total number of contracts created and published",
	})

	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_transitions_total",
			Help: "Transition attempts by transition name and outcome",
		},
		[]string{"transition", "outcome"},
	)

	BuyerBindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_buyer_bindings_total",
			Help: "Buyer access decisions by outcome",
		},
		[]string{"outcome"},
	)

	// AccessCodeFallbacks counts codes issued without a uniqueness check.
	AccessCodeFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "escrow_access_code_fallbacks_total",
		Help: "Access codes issued on the unchecked 8-character fallback path",
	})

	PaymentEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_payment_events_total",
			Help: "Payment events received by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)
