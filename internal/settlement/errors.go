package settlement

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFullyPaid     = errors.New("booking is not fully paid")
	ErrBookingCancelled = errors.New("booking is cancelled")
	ErrUnclassifiable   = errors.New("booking does not match any settlement scenario")
)

// PreconditionError means the booking is in the wrong state or outside the
// required time window. The caller should re-check state; retrying as-is
// will not help.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

// IntegrityError means money moved but a later write failed: the ledger no
// longer matches reality and an operator must finish manually. It names
// exactly which sub-steps did complete.
type IntegrityError struct {
	BookingID      int
	CompletedSteps []string
	Err            error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("settlement of booking %d partially applied (completed: %s): %v",
		e.BookingID, strings.Join(e.CompletedSteps, ", "), e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}
