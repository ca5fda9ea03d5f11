package booking

import (
	"time"
)

// Trigger identifies a transition command understood by the state machine
type Trigger string

const (
	TriggerVerificationApprove Trigger = "verification.approve"
	TriggerVerificationReject  Trigger = "verification.reject"
	TriggerPaymentHold         Trigger = "payment.hold_required"
	TriggerReleaseHold         Trigger = "payment.release_hold"
	TriggerCheckIn             Trigger = "trip.check_in"
	TriggerTripComplete        Trigger = "trip.complete"
	TriggerOperatorCancel      Trigger = "operator.cancel"
	TriggerNoShow              Trigger = "operator.no_show"
	TriggerDisputeOpen         Trigger = "dispute.open"
	TriggerDisputeResolve      Trigger = "dispute.resolve"
)

// allowedSources lists the source statuses each trigger accepts. Operator
// cancellation is handled separately: it is the one escape hatch permitted
// from any non-terminal status.
var allowedSources = map[Trigger][]BookingStatus{
	TriggerVerificationApprove: {StatusPending, StatusOnHold},
	TriggerVerificationReject:  {StatusPending, StatusOnHold},
	TriggerPaymentHold:         {StatusPending, StatusConfirmed},
	TriggerReleaseHold:         {StatusOnHold},
	TriggerCheckIn:             {StatusConfirmed},
	TriggerTripComplete:        {StatusActive},
	TriggerNoShow:              {StatusConfirmed, StatusOnHold},
	TriggerDisputeOpen:         {StatusCompleted},
	TriggerDisputeResolve:      {StatusDisputeReview},
}

// CanTransition reports whether the trigger is permitted from the given
// status according to the transition table alone, ignoring preconditions.
func CanTransition(from BookingStatus, trigger Trigger) bool {
	if trigger == TriggerOperatorCancel {
		return !from.IsTerminal()
	}
	for _, s := range allowedSources[trigger] {
		if s == from {
			return true
		}
	}
	return false
}

// checkTransition returns the table failure for an impermissible move
func (b *Booking) checkTransition(trigger Trigger) error {
	if !CanTransition(b.Status.Booking, trigger) {
		return ErrInvalidTransition{From: b.Status.Booking, Trigger: trigger}
	}
	return nil
}

// ApproveVerification moves the booking to CONFIRMED and the verification
// axis to APPROVED. If the booking was on a payment hold, the hold is
// consumed by the confirmation.
func (b *Booking) ApproveVerification(reviewer, notes string) error {
	if err := b.checkTransition(TriggerVerificationApprove); err != nil {
		return err
	}
	if reviewer == "" {
		return ErrMissingReviewer
	}
	if b.Status.Verification != VerificationPending && b.Status.Verification != VerificationInReview {
		return ErrPreconditionFailed{
			Trigger: TriggerVerificationApprove,
			Reason:  "verification status must be PENDING or IN_REVIEW, got " + string(b.Status.Verification),
		}
	}

	b.Status.Booking = StatusConfirmed
	b.Status.Verification = VerificationApproved
	b.Status.PreviousStatus = ""
	b.Hold = nil
	b.DocumentRequest = nil
	b.Review = &ReviewInfo{Reviewer: reviewer, Notes: notes, ReviewedAt: time.Now()}
	b.touch()
	return nil
}

// RejectVerification cancels the booking and marks the payment for a full
// refund. The reason code must come from the verification reject enumeration;
// the caller validates it before invoking the machine.
func (b *Booking) RejectVerification(reason, reviewer string) error {
	if err := b.checkTransition(TriggerVerificationReject); err != nil {
		return err
	}
	if reviewer == "" {
		return ErrMissingReviewer
	}
	if reason == "" {
		return ErrPreconditionFailed{Trigger: TriggerVerificationReject, Reason: "reject reason code is required"}
	}

	b.Status.Booking = StatusCancelled
	b.Status.Verification = VerificationRejected
	b.Status.Payment = PaymentRefundDue
	b.Status.PreviousStatus = ""
	b.Hold = nil
	b.DocumentRequest = nil
	b.Review = &ReviewInfo{Reviewer: reviewer, Notes: reason, ReviewedAt: time.Now()}
	b.Cancellation = &CancellationInfo{
		Reason:      reason,
		Actor:       reviewer,
		Refund:      RefundFull,
		CancelledAt: time.Now(),
	}
	b.touch()
	return nil
}

// EnterPaymentHold suspends a PENDING booking whose payment is authorized
// while verification is still outstanding. The prior status is recorded so
// the hold can be reversed exactly.
func (b *Booking) EnterPaymentHold(reason, actor string, deadline *time.Time) error {
	if err := b.checkTransition(TriggerPaymentHold); err != nil {
		return err
	}
	if b.Status.Payment != PaymentAuthorized && b.Status.Payment != PaymentPaid {
		return ErrPreconditionFailed{
			Trigger: TriggerPaymentHold,
			Reason:  "payment must be AUTHORIZED or PAID before a hold, got " + string(b.Status.Payment),
		}
	}

	b.Status.PreviousStatus = b.Status.Booking
	b.Status.Booking = StatusOnHold
	b.Hold = &HoldInfo{Reason: reason, HeldAt: time.Now(), HeldBy: actor, Deadline: deadline}
	b.touch()
	return nil
}

// ReleasePaymentHold reverses a hold, restoring exactly the status recorded
// when the hold was entered.
func (b *Booking) ReleasePaymentHold() error {
	if err := b.checkTransition(TriggerReleaseHold); err != nil {
		return err
	}
	if b.Status.PreviousStatus == "" {
		return ErrNoPriorStatus
	}

	b.Status.Booking = b.Status.PreviousStatus
	b.Status.PreviousStatus = ""
	b.Hold = nil
	b.touch()
	return nil
}

// CheckIn starts the trip. The payment must already be settled or authorized.
func (b *Booking) CheckIn(startOdometer int64, at time.Time) error {
	if err := b.checkTransition(TriggerCheckIn); err != nil {
		return err
	}
	if b.Status.Payment != PaymentPaid && b.Status.Payment != PaymentAuthorized {
		return ErrPreconditionFailed{
			Trigger: TriggerCheckIn,
			Reason:  "payment must be PAID or AUTHORIZED for check-in, got " + string(b.Status.Payment),
		}
	}

	b.Status.Booking = StatusActive
	b.Status.Trip = TripInProgress
	b.Trip.StartOdometer = startOdometer
	b.Trip.StartedAt = &at
	b.touch()
	return nil
}

// CompleteTrip finishes the rental. Trip end telemetry is required; the
// commission rate in effect at completion is captured onto the booking.
func (b *Booking) CompleteTrip(endOdometer int64, at time.Time, commissionRateBps int32) error {
	if err := b.checkTransition(TriggerTripComplete); err != nil {
		return err
	}
	if endOdometer <= 0 || at.IsZero() {
		return ErrPreconditionFailed{Trigger: TriggerTripComplete, Reason: "trip end telemetry is required"}
	}

	b.Status.Booking = StatusCompleted
	b.Status.Trip = TripFinished
	b.Trip.EndOdometer = endOdometer
	b.Trip.EndedAt = &at
	b.CommissionRateBps = commissionRateBps
	b.touch()
	return nil
}

// Cancel is the operator escape hatch: permitted from any non-terminal
// status, requiring a reason code and a refund decision.
func (b *Booking) Cancel(reason, actor string, refund RefundType) error {
	if err := b.checkTransition(TriggerOperatorCancel); err != nil {
		return err
	}
	if reason == "" {
		return ErrMissingCancelReason
	}

	b.Status.Booking = StatusCancelled
	b.Status.PreviousStatus = ""
	if refund != RefundNone {
		b.Status.Payment = PaymentRefundDue
	}
	b.Hold = nil
	b.Cancellation = &CancellationInfo{
		Reason:      reason,
		Actor:       actor,
		Refund:      refund,
		CancelledAt: time.Now(),
	}
	b.touch()
	return nil
}

// MarkNoShow terminates a booking whose guest never checked in
func (b *Booking) MarkNoShow() error {
	if err := b.checkTransition(TriggerNoShow); err != nil {
		return err
	}

	b.Status.Booking = StatusNoShow
	b.Status.PreviousStatus = ""
	b.Hold = nil
	b.touch()
	return nil
}

// OpenDispute moves a completed booking into dispute review. This is the
// only transition permitted out of COMPLETED; it is modeled as a distinct
// sub-state rather than breaking the terminal invariant of COMPLETED proper.
func (b *Booking) OpenDispute() error {
	if err := b.checkTransition(TriggerDisputeOpen); err != nil {
		return err
	}

	b.Status.Booking = StatusDisputeReview
	b.touch()
	return nil
}

// ResolveDispute returns a disputed booking to COMPLETED
func (b *Booking) ResolveDispute() error {
	if err := b.checkTransition(TriggerDisputeResolve); err != nil {
		return err
	}

	b.Status.Booking = StatusCompleted
	b.touch()
	return nil
}

// ExpireVerification auto-cancels a booking whose document request deadline
// elapsed without new artifacts, marking the verification axis EXPIRED and
// the payment for a full refund.
func (b *Booking) ExpireVerification() error {
	if err := b.checkTransition(TriggerOperatorCancel); err != nil {
		return err
	}

	b.Status.Booking = StatusCancelled
	b.Status.Verification = VerificationExpired
	b.Status.Payment = PaymentRefundDue
	b.Status.PreviousStatus = ""
	b.Hold = nil
	b.DocumentRequest = nil
	b.Cancellation = &CancellationInfo{
		Reason:      "verification documents expired",
		Actor:       "system",
		Refund:      RefundFull,
		CancelledAt: time.Now(),
	}
	b.touch()
	return nil
}

// MarkPaymentAuthorized records a successful authorization from the payment rail
func (b *Booking) MarkPaymentAuthorized() {
	b.Status.Payment = PaymentAuthorized
	b.touch()
}

// MarkPaymentCaptured records a successful capture from the payment rail
func (b *Booking) MarkPaymentCaptured() {
	b.Status.Payment = PaymentPaid
	b.touch()
}

// MarkPaymentFailed records a failed charge from the payment rail
func (b *Booking) MarkPaymentFailed() {
	b.Status.Payment = PaymentFailed
	b.touch()
}

// MarkRefunded records a completed refund from the payment rail
func (b *Booking) MarkRefunded() {
	b.Status.Payment = PaymentRefunded
	b.touch()
}
