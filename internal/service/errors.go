package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the service layer.  Handlers map them to
// HTTP statuses with errors.Is; typed errors below carry extra detail
// and unwrap to one of these.
var (
	ErrValidation        = errors.New("validation failed")
	ErrEventNotFound     = errors.New("event not found")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrEventNotBookable  = errors.New("event is not open for booking")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrSoldOut           = errors.New("event is sold out")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInfrastructure    = errors.New("storage failure")
)

// ValidationError describes the first input field that failed
// validation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CapacityError reports a request for more seats than remain.
type CapacityError struct {
	Requested int
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("only %d spots remaining", e.Remaining)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// TransitionError reports a status change outside the ticket lifecycle.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change ticket status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// infraErr wraps a store failure so that callers can match both
// ErrInfrastructure and the underlying cause.
func infraErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInfrastructure, err)
}
