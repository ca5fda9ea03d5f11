package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops-rental-core/internal/domain/booking"
	"github.com/fleetops-rental-core/internal/domain/partner"
	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/domain/verification"
)

// BookingService drives the booking lifecycle. Each operation loads the
// booking, applies exactly one state machine transition, persists the result
// and carries out the side effects (payment rail calls, settlement commands,
// notifications) the transition implies.
type BookingService interface {
	// CreateBooking creates a PENDING reservation and places a payment
	// authorization for the booking total.
	CreateBooking(ctx context.Context, partnerID, vehicleID, guestID uuid.UUID, pricing booking.PricingInput) (*booking.Booking, error)

	// GetBooking retrieves a booking by its ID
	// Returns ErrBookingNotFound if the booking doesn't exist
	GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)

	// GetBookingProgress returns the five display stages and fill percentage
	// derived from the booking's status vector.
	GetBookingProgress(ctx context.Context, id uuid.UUID) ([]booking.Stage, float64, error)

	// ListPartnerBookings retrieves paginated bookings for a partner
	ListPartnerBookings(ctx context.Context, partnerID uuid.UUID, page, perPage int) ([]*booking.Booking, error)

	// SubmitDocuments records uploaded verification artifact URLs and moves
	// the verification axis into review.
	SubmitDocuments(ctx context.Context, id uuid.UUID, docs booking.DocumentSet) (*booking.Booking, error)

	// ApproveVerification confirms the booking after the gate validated the
	// artifacts, captures the payment and accrues the partner's revenue.
	ApproveVerification(ctx context.Context, id uuid.UUID, reviewer, notes string) (*booking.Booking, error)

	// RejectVerification cancels the booking with a reason from the closed
	// enumeration and triggers the full refund.
	RejectVerification(ctx context.Context, id uuid.UUID, reason verification.RejectReason, reviewer string) (*booking.Booking, error)

	// RequestDocuments records an outstanding artifact request with a deadline
	RequestDocuments(ctx context.Context, id uuid.UUID, requestedBy, message string) (*verification.DocumentRequest, error)

	// EnterPaymentHold suspends the booking pending payment review
	EnterPaymentHold(ctx context.Context, id uuid.UUID, reason, actor string, deadline *time.Time) (*booking.Booking, error)

	// ReleasePaymentHold reverses a hold, restoring the recorded prior status
	ReleasePaymentHold(ctx context.Context, id uuid.UUID) (*booking.Booking, error)

	// CheckIn starts the trip with the recorded start odometer
	CheckIn(ctx context.Context, id uuid.UUID, startOdometer int64) (*booking.Booking, error)

	// CompleteTrip finishes the rental, capturing the partner's current
	// commission rate onto the booking and settling the revenue.
	CompleteTrip(ctx context.Context, id uuid.UUID, endOdometer int64) (*booking.Booking, error)

	// Cancel is the operator escape hatch with a refund decision
	Cancel(ctx context.Context, id uuid.UUID, reason, actor string, refund booking.RefundType) (*booking.Booking, error)

	// MarkNoShow terminates a booking whose guest never checked in
	MarkNoShow(ctx context.Context, id uuid.UUID) (*booking.Booking, error)

	// OpenDispute moves a completed booking into dispute review
	OpenDispute(ctx context.Context, id uuid.UUID) (*booking.Booking, error)

	// ResolveDispute returns a disputed booking to COMPLETED
	ResolveDispute(ctx context.Context, id uuid.UUID) (*booking.Booking, error)

	// SweepExpiredHolds auto-cancels ON_HOLD bookings whose hold deadline
	// elapsed. Returns the number of bookings expired.
	SweepExpiredHolds(ctx context.Context) (int, error)
}

// PartnerService manages fleet partners, their commission tiers and their
// vehicle approval policies.
type PartnerService interface {
	// CreatePartner creates a partner together with its zero-balance ledger
	// account, atomically.
	CreatePartner(ctx context.Context, name string, fleetSize int) (*partner.Partner, error)

	// GetPartner retrieves a partner by its ID
	GetPartner(ctx context.Context, id uuid.UUID) (*partner.Partner, error)

	// SyncFleetSize pulls the active fleet size from the fleet membership
	// service and recomputes the commission tier.
	SyncFleetSize(ctx context.Context, id uuid.UUID) (*partner.Partner, error)

	// OverrideCommissionRate applies a manual rate override pinned to the
	// partner's current tier band.
	OverrideCommissionRate(ctx context.Context, id uuid.UUID, rateBps int32, actor, reason string) (*partner.Partner, error)

	// SetApprovalMode updates the vehicle approval policy
	SetApprovalMode(ctx context.Context, id uuid.UUID, mode partner.ApprovalMode, threshold int) (*partner.Partner, error)

	// DecideVehicleApproval evaluates a new vehicle listing against the
	// partner's approval policy.
	DecideVehicleApproval(ctx context.Context, id uuid.UUID, vehicleRiskScore int) (partner.Decision, error)

	// GetCommissionHistory retrieves the paginated commission change history
	// Returns entries, total count, and any error
	GetCommissionHistory(ctx context.Context, id uuid.UUID, page, perPage int) ([]*partner.HistoryEntry, int64, error)
}

// SettlementService executes operator-issued ledger operations synchronously
// so that refusals (insufficient funds, over-release, disabled channel) reach
// the caller directly. Every balance mutation is committed together with its
// outbox row; the poller publishes the event to the audit store afterwards.
type SettlementService interface {
	// GetAccount retrieves a partner's ledger account, served from the read
	// cache when fresh.
	GetAccount(ctx context.Context, partnerID uuid.UUID) (*settlement.Account, error)

	// ChargeBalance debits the spendable balance, or records an audit-only
	// event when the charge was taken on an external rail.
	ChargeBalance(ctx context.Context, partnerID uuid.UUID, amount int64, reason, actor string, external bool) (*settlement.Event, error)

	// HoldFunds earmarks part of the settled balance
	HoldFunds(ctx context.Context, partnerID uuid.UUID, amount int64, reason, actor string, until *time.Time) (*settlement.Event, error)

	// ReleaseFunds returns earmarked funds to the spendable balance
	ReleaseFunds(ctx context.Context, partnerID uuid.UUID, amount int64, reason, actor string) (*settlement.Event, error)

	// ForcePayout debits the ledger and initiates the external transfer. A
	// transfer failure after the debit enqueues a compensation command and
	// surfaces ErrRailUnavailable.
	ForcePayout(ctx context.Context, partnerID uuid.UUID, amount int64, reason, actor string) (*settlement.Event, error)

	// SetPayoutChannelEnabled toggles the payout channel, audit-only
	SetPayoutChannelEnabled(ctx context.Context, partnerID uuid.UUID, enabled bool, reason, actor string) (*settlement.Event, error)

	// SetInstantPayoutEnabled toggles instant payouts, audit-only
	SetInstantPayoutEnabled(ctx context.Context, partnerID uuid.UUID, enabled bool, reason, actor string) (*settlement.Event, error)

	// GetEvents retrieves the paginated ledger event history for a partner
	// Returns events, total count, and any error
	GetEvents(ctx context.Context, partnerID uuid.UUID, page, perPage int) ([]*settlement.Event, int64, error)

	// ReplayBalance reconstructs the balances from the full event history and
	// reports them alongside the stored account state.
	ReplayBalance(ctx context.Context, partnerID uuid.UUID) (settlement.BalanceSnapshot, *settlement.Account, error)
}
