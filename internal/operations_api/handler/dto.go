package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/fleetops-rental-core/internal/domain/booking"
	"github.com/fleetops-rental-core/internal/domain/partner"
	"github.com/fleetops-rental-core/internal/domain/settlement"
)

// CreateBookingRequest represents a request to create a new reservation
type CreateBookingRequest struct {
	PartnerID     string `json:"partner_id" binding:"required,uuid"`
	VehicleID     string `json:"vehicle_id" binding:"required,uuid"`
	GuestID       string `json:"guest_id" binding:"required,uuid"`
	DailyRate     int64  `json:"daily_rate" binding:"required,gt=0"`
	Subtotal      int64  `json:"subtotal" binding:"required,gt=0"`
	Fees          int64  `json:"fees" binding:"min=0"`
	Taxes         int64  `json:"taxes" binding:"min=0"`
	DepositAmount int64  `json:"deposit_amount" binding:"min=0"`
}

// SubmitDocumentsRequest carries uploaded verification artifact URLs
type SubmitDocumentsRequest struct {
	LicenseURL   string `json:"license_url" binding:"required,url"`
	SelfieURL    string `json:"selfie_url" binding:"required,url"`
	InsuranceURL string `json:"insurance_url" binding:"omitempty,url"`
}

// VerificationDecisionRequest carries an approve decision
type VerificationDecisionRequest struct {
	Notes string `json:"notes,omitempty"`
}

// VerificationRejectRequest carries a reject decision with a reason code
type VerificationRejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RequestDocumentsRequest asks the guest for additional artifacts
type RequestDocumentsRequest struct {
	Message string `json:"message,omitempty"`
}

// PaymentHoldRequest suspends a booking pending payment review
type PaymentHoldRequest struct {
	Reason          string `json:"reason" binding:"required"`
	DeadlineMinutes int    `json:"deadline_minutes" binding:"omitempty,gt=0"`
}

// CheckInRequest starts the trip
type CheckInRequest struct {
	StartOdometer int64 `json:"start_odometer" binding:"required,gt=0"`
}

// CompleteTripRequest finishes the trip
type CompleteTripRequest struct {
	EndOdometer int64 `json:"end_odometer" binding:"required,gt=0"`
}

// CancelBookingRequest carries the operator cancellation decision
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
	Refund string `json:"refund" binding:"required,oneof=full partial none"`
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	ID                 string `json:"id"`
	PartnerID          string `json:"partner_id"`
	VehicleID          string `json:"vehicle_id"`
	GuestID            string `json:"guest_id"`
	BookingStatus      string `json:"booking_status"`
	PaymentStatus      string `json:"payment_status"`
	VerificationStatus string `json:"verification_status"`
	TripStatus         string `json:"trip_status"`
	PreviousStatus     string `json:"previous_status,omitempty"`
	TotalAmount        int64  `json:"total_amount"`
	DepositAmount      int64  `json:"deposit_amount"`
	CommissionRateBps  int32  `json:"commission_rate_bps,omitempty"`
	HoldReason         string `json:"hold_reason,omitempty"`
	HoldDeadline       string `json:"hold_deadline,omitempty"`
	CancelReason       string `json:"cancel_reason,omitempty"`
	Refund             string `json:"refund,omitempty"`
	Version            int    `json:"version"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// BookingProgressResponse is the derived five-stage progress view
type BookingProgressResponse struct {
	Stages      []booking.Stage `json:"stages"`
	FillPercent float64         `json:"fill_percent"`
}

// mapBookingToResponse maps a booking aggregate to its response DTO
func mapBookingToResponse(b *booking.Booking) BookingResponse {
	resp := BookingResponse{
		ID:                 b.ID.String(),
		PartnerID:          b.PartnerID.String(),
		VehicleID:          b.VehicleID.String(),
		GuestID:            b.GuestID.String(),
		BookingStatus:      string(b.Status.Booking),
		PaymentStatus:      string(b.Status.Payment),
		VerificationStatus: string(b.Status.Verification),
		TripStatus:         string(b.Status.Trip),
		PreviousStatus:     string(b.Status.PreviousStatus),
		TotalAmount:        b.TotalAmount,
		DepositAmount:      b.DepositAmount,
		CommissionRateBps:  b.CommissionRateBps,
		Version:            b.Version,
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          b.UpdatedAt.Format(time.RFC3339),
	}
	if b.Hold != nil {
		resp.HoldReason = b.Hold.Reason
		if b.Hold.Deadline != nil {
			resp.HoldDeadline = b.Hold.Deadline.Format(time.RFC3339)
		}
	}
	if b.Cancellation != nil {
		resp.CancelReason = b.Cancellation.Reason
		resp.Refund = string(b.Cancellation.Refund)
	}
	return resp
}

// CreatePartnerRequest represents a request to onboard a fleet partner
type CreatePartnerRequest struct {
	Name      string `json:"name" binding:"required"`
	FleetSize int    `json:"fleet_size" binding:"min=0"`
}

// CommissionOverrideRequest applies a manual commission rate override
type CommissionOverrideRequest struct {
	RateBps int32  `json:"rate_bps" binding:"min=0,max=10000"`
	Reason  string `json:"reason" binding:"required"`
}

// ApprovalModeRequest updates the vehicle approval policy
type ApprovalModeRequest struct {
	Mode      string `json:"mode" binding:"required,oneof=AUTO MANUAL DYNAMIC"`
	Threshold int    `json:"threshold" binding:"min=0,max=100"`
}

// VehicleApprovalRequest evaluates one vehicle listing
type VehicleApprovalRequest struct {
	RiskScore int `json:"risk_score" binding:"min=0,max=100"`
}

// PartnerResponse represents a partner in API responses
type PartnerResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	ActiveFleetSize   int    `json:"active_fleet_size"`
	CommissionRateBps int32  `json:"commission_rate_bps"`
	RateOverridden    bool   `json:"rate_overridden"`
	ApprovalMode      string `json:"approval_mode"`
	ApprovalThreshold int    `json:"approval_threshold"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// mapPartnerToResponse maps a partner aggregate to its response DTO
func mapPartnerToResponse(p *partner.Partner) PartnerResponse {
	return PartnerResponse{
		ID:                p.ID.String(),
		Name:              p.Name,
		ActiveFleetSize:   p.ActiveFleetSize,
		CommissionRateBps: p.CommissionRateBps,
		RateOverridden:    p.RateOverridden,
		ApprovalMode:      string(p.ApprovalMode),
		ApprovalThreshold: p.ApprovalThreshold,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         p.UpdatedAt.Format(time.RFC3339),
	}
}

// CommissionHistoryResponse represents one commission change record
type CommissionHistoryResponse struct {
	ID         string `json:"id"`
	OldRateBps int32  `json:"old_rate_bps"`
	NewRateBps int32  `json:"new_rate_bps"`
	Reason     string `json:"reason"`
	ChangedBy  string `json:"changed_by"`
	ChangedAt  string `json:"changed_at"`
}

// mapHistoryEntryToResponse maps a commission history entry to its DTO
func mapHistoryEntryToResponse(e *partner.HistoryEntry) CommissionHistoryResponse {
	return CommissionHistoryResponse{
		ID:         e.ID.String(),
		OldRateBps: e.OldRateBps,
		NewRateBps: e.NewRateBps,
		Reason:     e.Reason,
		ChangedBy:  e.ChangedBy,
		ChangedAt:  e.ChangedAt.Format(time.RFC3339),
	}
}

// LedgerOperationRequest carries an operator-issued ledger operation
type LedgerOperationRequest struct {
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Reason    string `json:"reason" binding:"required"`
	External  bool   `json:"external,omitempty"`
	HoldUntil string `json:"hold_until,omitempty"`
}

// ChannelToggleRequest toggles a payout channel flag
type ChannelToggleRequest struct {
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason" binding:"required"`
}

// AccountResponse represents a ledger account in API responses
type AccountResponse struct {
	PartnerID            string `json:"partner_id"`
	Current              int64  `json:"current"`
	Hold                 int64  `json:"hold"`
	PendingIncoming      int64  `json:"pending_incoming"`
	AvailableForPayout   int64  `json:"available_for_payout"`
	LifetimePaidOut      int64  `json:"lifetime_paid_out"`
	PayoutEnabled        bool   `json:"payout_enabled"`
	InstantPayoutEnabled bool   `json:"instant_payout_enabled"`
	UpdatedAt            string `json:"updated_at"`
}

// mapAccountToResponse maps a ledger account to its response DTO
func mapAccountToResponse(a *settlement.Account) AccountResponse {
	return AccountResponse{
		PartnerID:            a.PartnerID.String(),
		Current:              a.Current,
		Hold:                 a.Hold,
		PendingIncoming:      a.PendingIncoming,
		AvailableForPayout:   a.AvailableForPayout(),
		LifetimePaidOut:      a.LifetimePaidOut,
		PayoutEnabled:        a.PayoutEnabled,
		InstantPayoutEnabled: a.InstantPayoutEnable,
		UpdatedAt:            a.UpdatedAt.Format(time.RFC3339),
	}
}

// EventResponse represents a ledger event in API responses
type EventResponse struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	Amount            int64  `json:"amount"`
	GrossAmount       int64  `json:"gross_amount,omitempty"`
	CommissionRateBps int32  `json:"commission_rate_bps,omitempty"`
	Reason            string `json:"reason"`
	Actor             string `json:"actor"`
	BookingID         string `json:"booking_id,omitempty"`
	RefEventID        string `json:"ref_event_id,omitempty"`
	External          bool   `json:"external,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// mapEventToResponse maps a ledger event to its response DTO
func mapEventToResponse(e *settlement.Event) EventResponse {
	resp := EventResponse{
		ID:                e.ID.String(),
		Type:              string(e.Type),
		Amount:            e.Amount,
		GrossAmount:       e.GrossAmount,
		CommissionRateBps: e.CommissionRateBps,
		Reason:            e.Reason,
		Actor:             e.Actor,
		External:          e.External,
		CreatedAt:         e.CreatedAt.Format(time.RFC3339),
	}
	if e.BookingID != uuid.Nil {
		resp.BookingID = e.BookingID.String()
	}
	if e.RefEventID != uuid.Nil {
		resp.RefEventID = e.RefEventID.String()
	}
	return resp
}

// ReplayResponse compares stored balances against the event replay
type ReplayResponse struct {
	Stored   AccountResponse            `json:"stored"`
	Replayed settlement.BalanceSnapshot `json:"replayed"`
	Match    bool                       `json:"match"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
