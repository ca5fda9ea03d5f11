package booking

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Common errors
var (
	// ErrNoPriorStatus is returned when a hold release is attempted on a
	// booking whose hold metadata was never recorded.
	ErrNoPriorStatus = errors.New("no prior status recorded for hold release")

	ErrMissingCancelReason = errors.New("cancellation requires a reason code")
	ErrMissingReviewer     = errors.New("verification decision requires a reviewer")
)

// ErrInvalidTransition indicates an attempted move that is not in the
// transition table. It is always rejected and never retried automatically.
type ErrInvalidTransition struct {
	From    BookingStatus
	Trigger Trigger
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition: trigger %s not permitted from status %s", e.Trigger, e.From)
}

// Is matches any ErrInvalidTransition when the target carries zero values,
// otherwise matches on the exact source status and trigger.
func (e ErrInvalidTransition) Is(target error) bool {
	t, ok := target.(ErrInvalidTransition)
	if !ok {
		return false
	}
	if t.From == "" && t.Trigger == "" {
		return true
	}
	return e.From == t.From && e.Trigger == t.Trigger
}

// ErrPreconditionFailed indicates a transition that is structurally valid but
// is missing a required field or companion status. The operator is expected
// to supply the missing data and retry.
type ErrPreconditionFailed struct {
	Trigger Trigger
	Reason  string
}

func (e ErrPreconditionFailed) Error() string {
	return fmt.Sprintf("precondition failed for %s: %s", e.Trigger, e.Reason)
}

// Is matches any ErrPreconditionFailed when the target carries zero values
func (e ErrPreconditionFailed) Is(target error) bool {
	t, ok := target.(ErrPreconditionFailed)
	if !ok {
		return false
	}
	if t.Trigger == "" && t.Reason == "" {
		return true
	}
	return e.Trigger == t.Trigger && e.Reason == t.Reason
}

// ErrStaleBooking indicates an optimistic concurrency conflict: the caller
// acted on a version of the booking that has since been superseded. The
// caller must re-read and retry; conflicting writes are never merged.
type ErrStaleBooking struct {
	BookingID uuid.UUID
}

func (e ErrStaleBooking) Error() string {
	return "stale booking state detected for booking: " + e.BookingID.String()
}

// ErrBookingNotFound indicates a missing booking
type ErrBookingNotFound struct {
	BookingID uuid.UUID
}

func (e ErrBookingNotFound) Error() string {
	return "booking not found: " + e.BookingID.String()
}
