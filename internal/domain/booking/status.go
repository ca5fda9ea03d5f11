package booking

import "fmt"

// BookingStatus is the primary lifecycle axis of a booking
type BookingStatus string

const (
	StatusPending       BookingStatus = "PENDING"
	StatusConfirmed     BookingStatus = "CONFIRMED"
	StatusOnHold        BookingStatus = "ON_HOLD"
	StatusActive        BookingStatus = "ACTIVE"
	StatusCompleted     BookingStatus = "COMPLETED"
	StatusCancelled     BookingStatus = "CANCELLED"
	StatusNoShow        BookingStatus = "NO_SHOW"
	StatusDisputeReview BookingStatus = "DISPUTE_REVIEW"
)

// IsTerminal reports whether no further transitions are permitted from s.
// COMPLETED is nominally terminal but may still enter dispute review.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

// PaymentStatus tracks the money side of a booking independently of the
// booking lifecycle.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentAuthorized PaymentStatus = "AUTHORIZED"
	PaymentPaid       PaymentStatus = "PAID"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefundDue  PaymentStatus = "REFUND_DUE"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

// VerificationStatus tracks the guest identity verification axis
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationInReview VerificationStatus = "IN_REVIEW"
	VerificationApproved VerificationStatus = "APPROVED"
	VerificationRejected VerificationStatus = "REJECTED"
	VerificationExpired  VerificationStatus = "EXPIRED"
)

// TripStatus tracks the physical trip axis
type TripStatus string

const (
	TripNotStarted TripStatus = "NOT_STARTED"
	TripInProgress TripStatus = "IN_PROGRESS"
	TripFinished   TripStatus = "FINISHED"
)

// RefundType is the operator's refund decision attached to a cancellation
type RefundType string

const (
	RefundFull    RefundType = "full"
	RefundPartial RefundType = "partial"
	RefundNone    RefundType = "none"
)

// ParseBookingStatus validates a raw status string at the boundary.
// Unknown values are rejected rather than propagated.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	switch s := BookingStatus(raw); s {
	case StatusPending, StatusConfirmed, StatusOnHold, StatusActive,
		StatusCompleted, StatusCancelled, StatusNoShow, StatusDisputeReview:
		return s, nil
	}
	return "", fmt.Errorf("unknown booking status: %q", raw)
}

// ParsePaymentStatus validates a raw payment status string at the boundary
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	switch s := PaymentStatus(raw); s {
	case PaymentPending, PaymentAuthorized, PaymentPaid, PaymentFailed,
		PaymentRefundDue, PaymentRefunded:
		return s, nil
	}
	return "", fmt.Errorf("unknown payment status: %q", raw)
}

// ParseVerificationStatus validates a raw verification status string at the boundary
func ParseVerificationStatus(raw string) (VerificationStatus, error) {
	switch s := VerificationStatus(raw); s {
	case VerificationPending, VerificationInReview, VerificationApproved,
		VerificationRejected, VerificationExpired:
		return s, nil
	}
	return "", fmt.Errorf("unknown verification status: %q", raw)
}

// ParseTripStatus validates a raw trip status string at the boundary
func ParseTripStatus(raw string) (TripStatus, error) {
	switch s := TripStatus(raw); s {
	case TripNotStarted, TripInProgress, TripFinished:
		return s, nil
	}
	return "", fmt.Errorf("unknown trip status: %q", raw)
}

// ParseRefundType validates a raw refund decision string at the boundary
func ParseRefundType(raw string) (RefundType, error) {
	switch r := RefundType(raw); r {
	case RefundFull, RefundPartial, RefundNone:
		return r, nil
	}
	return "", fmt.Errorf("unknown refund type: %q", raw)
}

// StatusVector is the tuple of independent status axes describing one
// booking's lifecycle position, plus the hold metadata needed to reverse a
// payment hold. PreviousStatus is set if and only if Booking == StatusOnHold.
type StatusVector struct {
	Booking        BookingStatus      `json:"booking_status"`
	Payment        PaymentStatus      `json:"payment_status"`
	Verification   VerificationStatus `json:"verification_status"`
	Trip           TripStatus         `json:"trip_status"`
	PreviousStatus BookingStatus      `json:"previous_status,omitempty"`
}

// NewStatusVector returns the vector of a freshly created reservation
func NewStatusVector() StatusVector {
	return StatusVector{
		Booking:      StatusPending,
		Payment:      PaymentPending,
		Verification: VerificationPending,
		Trip:         TripNotStarted,
	}
}
