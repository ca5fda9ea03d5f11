package booking

import (
	"time"

	"github.com/google/uuid"
)

// Booking represents one rental reservation. All monetary fields are stored
// in minor currency units (cents); floating point is never used for money.
// Bookings are created in PENDING and mutated only through the transition
// methods below. Terminal bookings are retained for audit, never deleted.
type Booking struct {
	ID        uuid.UUID `json:"id"`
	PartnerID uuid.UUID `json:"partner_id"`
	VehicleID uuid.UUID `json:"vehicle_id"`
	GuestID   uuid.UUID `json:"guest_id"`

	Status StatusVector `json:"status"`

	DailyRate     int64 `json:"daily_rate"`
	Subtotal      int64 `json:"subtotal"`
	Fees          int64 `json:"fees"`
	Taxes         int64 `json:"taxes"`
	TotalAmount   int64 `json:"total_amount"`
	DepositAmount int64 `json:"deposit_amount"`

	// CommissionRateBps is captured when the trip completes so that later
	// tier changes never alter historical settlements.
	CommissionRateBps int32 `json:"commission_rate_bps,omitempty"`

	Hold            *HoldInfo            `json:"hold,omitempty"`
	Cancellation    *CancellationInfo    `json:"cancellation,omitempty"`
	Documents       DocumentSet          `json:"documents"`
	DocumentRequest *DocumentRequestInfo `json:"document_request,omitempty"`
	Review          *ReviewInfo          `json:"review,omitempty"`
	Trip            TripTelemetry        `json:"trip"`

	Version   int       `json:"version"` // For optimistic locking
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HoldInfo records why and when a booking was suspended. It is present while
// the booking is ON_HOLD and cleared when the hold is released.
type HoldInfo struct {
	Reason   string     `json:"reason"`
	HeldAt   time.Time  `json:"held_at"`
	HeldBy   string     `json:"held_by"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// CancellationInfo records the terminal cancellation decision
type CancellationInfo struct {
	Reason      string     `json:"reason"`
	Actor       string     `json:"actor"`
	Refund      RefundType `json:"refund"`
	CancelledAt time.Time  `json:"cancelled_at"`
}

// DocumentSet holds the verification artifact URLs uploaded by the guest
type DocumentSet struct {
	LicenseURL   string `json:"license_url,omitempty"`
	SelfieURL    string `json:"selfie_url,omitempty"`
	InsuranceURL string `json:"insurance_url,omitempty"`
}

// DocumentRequestInfo records an outstanding request for additional
// verification artifacts. It is present while the request is open and cleared
// when the guest re-uploads or the verification axis reaches a decision; the
// expiry sweep cancels bookings whose request deadline elapsed.
type DocumentRequestInfo struct {
	RequestedBy string    `json:"requested_by"`
	Message     string    `json:"message,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
	Deadline    time.Time `json:"deadline"`
}

// Overdue reports whether the request deadline has elapsed
func (r DocumentRequestInfo) Overdue(now time.Time) bool {
	return now.After(r.Deadline)
}

// ReviewInfo records who decided a verification outcome and why
type ReviewInfo struct {
	Reviewer   string    `json:"reviewer"`
	Notes      string    `json:"notes,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// TripTelemetry records odometer and timing data for the physical trip
type TripTelemetry struct {
	StartOdometer int64      `json:"start_odometer,omitempty"`
	EndOdometer   int64      `json:"end_odometer,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

// PricingInput carries the monetary breakdown of a reservation request
type PricingInput struct {
	DailyRate     int64
	Subtotal      int64
	Fees          int64
	Taxes         int64
	DepositAmount int64
}

// Total returns the total charge for the booking
func (p PricingInput) Total() int64 {
	return p.Subtotal + p.Fees + p.Taxes
}

// NewBooking creates a booking in the initial PENDING state
func NewBooking(partnerID, vehicleID, guestID uuid.UUID, pricing PricingInput) *Booking {
	now := time.Now()
	return &Booking{
		ID:            uuid.New(),
		PartnerID:     partnerID,
		VehicleID:     vehicleID,
		GuestID:       guestID,
		Status:        NewStatusVector(),
		DailyRate:     pricing.DailyRate,
		Subtotal:      pricing.Subtotal,
		Fees:          pricing.Fees,
		Taxes:         pricing.Taxes,
		TotalAmount:   pricing.Total(),
		DepositAmount: pricing.DepositAmount,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AttachDocuments records uploaded verification artifact URLs. A first upload
// moves the verification axis into review; re-uploads replace the set.
func (b *Booking) AttachDocuments(docs DocumentSet) error {
	if b.Status.Booking.IsTerminal() {
		return ErrPreconditionFailed{
			Trigger: TriggerVerificationApprove,
			Reason:  "cannot attach documents to a terminal booking",
		}
	}

	b.Documents = docs
	b.DocumentRequest = nil // a re-upload fulfils any outstanding request
	if b.Status.Verification == VerificationPending {
		b.Status.Verification = VerificationInReview
	}
	b.touch()
	return nil
}

// RecordDocumentRequest notes an outstanding artifact request so the expiry
// sweep can act on its deadline. A new request replaces the previous one.
func (b *Booking) RecordDocumentRequest(requestedBy, message string, deadline time.Time) {
	b.DocumentRequest = &DocumentRequestInfo{
		RequestedBy: requestedBy,
		Message:     message,
		RequestedAt: time.Now(),
		Deadline:    deadline,
	}
	b.touch()
}

// touch bumps the optimistic lock version after a successful mutation
func (b *Booking) touch() {
	b.Version++
	b.UpdatedAt = time.Now()
}
