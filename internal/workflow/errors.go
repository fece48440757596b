package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across the status, approval and payment services.
// Handlers map these onto HTTP codes.
var (
	ErrNotFound               = errors.New("entity not found")
	ErrForbidden              = errors.New("actor not allowed")
	ErrAlreadyResolved        = errors.New("approval already resolved")
	ErrAlreadyPaid            = errors.New("invoice already paid")
	ErrOverPayment            = errors.New("amount exceeds remaining balance")
	ErrUnderPayment           = errors.New("non-partial payment must cover remaining balance")
	ErrMissingReason          = errors.New("a reason is required for rejection")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidResult          = errors.New("result must be APPROVED, REJECTED or RETURNED")
	ErrDuplicateApproval      = errors.New("an active approval of this type already exists for the invoice")
	ErrInvalidStage           = errors.New("unknown approval stage")
	ErrConcurrentModification = errors.New("concurrent modification, retry the operation")
)

// InvalidTransitionError reports a rejected status change together with the
// transitions that would have been legal.
type InvalidTransitionError struct {
	Kind      Kind
	From      *Status // nil when the aggregate has no status yet
	Requested Status
	Allowed   []Status
}

func (e *InvalidTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	if e.From == nil {
		return fmt.Sprintf("%s has no status yet; %q is not a valid initial state (valid: %s)",
			e.Kind, e.Requested, strings.Join(allowed, ", "))
	}
	return fmt.Sprintf("cannot move %s from %q to %q (allowed: %s)",
		e.Kind, *e.From, e.Requested, strings.Join(allowed, ", "))
}
