package contract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition is matched by every *InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrUnknownTransition is returned when a transition name is not part of the state machine.
	ErrUnknownTransition = errors.New("unknown transition")

	// ErrNotFound is returned when no contract exists for a given id or access code.
	ErrNotFound = errors.New("contract not found")

	// ErrPermissionDenied is returned when an identity may not access or act on a contract.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidDetails is matched by every *ValidationError.
	ErrInvalidDetails = errors.New("invalid contract details")

	// ErrUnknownStatus is returned when restoring a contract whose stored status is not a defined state.
	ErrUnknownStatus = errors.New("unknown contract status")
)

// InvalidTransitionError names the attempted transition and the state the contract was actually in.
type InvalidTransitionError struct {
	Transition Transition
	Current    Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s contract in state %s", e.Transition, e.Current)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ValidationError lists the fields of a new contract that failed validation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid contract details: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDetails
}
