package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops-rental-core/internal/config"
	"github.com/fleetops-rental-core/internal/domain/booking"
	"github.com/fleetops-rental-core/internal/domain/partner"
	"github.com/fleetops-rental-core/internal/domain/shared"
	"github.com/fleetops-rental-core/internal/domain/verification"
	"github.com/fleetops-rental-core/internal/platform/messaging/producers"
	"github.com/fleetops-rental-core/internal/platform/rails"
)

// BookingServiceImpl implements the BookingService interface
type BookingServiceImpl struct {
	bookingRepo booking.Repository
	partnerRepo partner.Repository
	gate        *verification.Gate
	producer    producers.MessagePublisher
	paymentRail rails.PaymentRail
	documents   rails.DocumentStore
	notifier    rails.NotificationDispatcher
	opsCfg      *config.OperationsConfig
	logger      *slog.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	logger *slog.Logger,
	bookingRepo booking.Repository,
	partnerRepo partner.Repository,
	producer producers.MessagePublisher,
	paymentRail rails.PaymentRail,
	documents rails.DocumentStore,
	notifier rails.NotificationDispatcher,
	opsCfg *config.OperationsConfig,
) BookingService {
	return &BookingServiceImpl{
		bookingRepo: bookingRepo,
		partnerRepo: partnerRepo,
		gate:        verification.NewGate(),
		producer:    producer,
		paymentRail: paymentRail,
		documents:   documents,
		notifier:    notifier,
		opsCfg:      opsCfg,
		logger:      logger,
	}
}

// CreateBooking creates a PENDING reservation and places a payment
// authorization for the booking total. A declined authorization still creates
// the booking; the payment axis records the failure.
func (s *BookingServiceImpl) CreateBooking(ctx context.Context, partnerID, vehicleID, guestID uuid.UUID, pricing booking.PricingInput) (*booking.Booking, error) {
	if _, err := s.partnerRepo.GetByID(ctx, partnerID); err != nil {
		return nil, err
	}

	b := booking.NewBooking(partnerID, vehicleID, guestID, pricing)

	if err := s.paymentRail.Authorize(ctx, b.ID, b.TotalAmount); err != nil {
		s.logger.Warn("Payment authorization declined",
			"booking_id", b.ID.String(),
			"amount", b.TotalAmount,
			"error", err,
		)
		b.MarkPaymentFailed()
	} else {
		b.MarkPaymentAuthorized()
	}

	if err := s.bookingRepo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, guestID, "booking_created", map[string]string{"booking_id": b.ID.String()})

	s.logger.Info("Booking created",
		"booking_id", b.ID.String(),
		"partner_id", partnerID.String(),
		"total_amount", b.TotalAmount,
		"payment_status", string(b.Status.Payment),
	)
	return b, nil
}

// GetBooking retrieves a booking by its ID
func (s *BookingServiceImpl) GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

// GetBookingProgress derives the display stages from the stored status vector
func (s *BookingServiceImpl) GetBookingProgress(ctx context.Context, id uuid.UUID) ([]booking.Stage, float64, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	return booking.Progress(b.Status), booking.FillPercent(b.Status), nil
}

// ListPartnerBookings retrieves paginated bookings for a partner
func (s *BookingServiceImpl) ListPartnerBookings(ctx context.Context, partnerID uuid.UUID, page, perPage int) ([]*booking.Booking, error) {
	offset := (page - 1) * perPage
	return s.bookingRepo.GetByPartnerID(ctx, partnerID, perPage, offset)
}

// SubmitDocuments records uploaded verification artifacts
func (s *BookingServiceImpl) SubmitDocuments(ctx context.Context, id uuid.UUID, docs booking.DocumentSet) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.AttachDocuments(docs); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ApproveVerification confirms the booking, captures the payment and accrues
// the partner's gross revenue as pending incoming.
func (s *BookingServiceImpl) ApproveVerification(ctx context.Context, id uuid.UUID, reviewer, notes string) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	license, selfie, insurance, err := s.documents.ArtifactPresence(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: document store: %v", rails.ErrRailUnavailable, err)
	}

	artifacts := verification.ArtifactPresence{
		LicensePresent:   license,
		SelfiePresent:    selfie,
		InsurancePresent: insurance,
	}
	if err := s.gate.Approve(b, artifacts, reviewer, notes); err != nil {
		return nil, err
	}

	if err := s.paymentRail.Capture(ctx, b.ID, b.TotalAmount); err != nil {
		// Nothing was persisted yet; the booking stays as it was.
		return nil, fmt.Errorf("%w: payment capture: %v", rails.ErrRailUnavailable, err)
	}
	b.MarkPaymentCaptured()

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	s.publishSettlement(ctx, &shared.SettlementCommand{
		CommandID: uuid.New(),
		PartnerID: b.PartnerID,
		BookingID: b.ID,
		Type:      shared.CommandRevenueAccrue,
		Amount:    b.TotalAmount,
		Reason:    "booking confirmed",
		Timestamp: time.Now(),
	})

	s.notifier.Notify(ctx, b.GuestID, "booking_confirmed", map[string]string{"booking_id": b.ID.String()})

	s.logger.Info("Booking confirmed",
		"booking_id", b.ID.String(),
		"reviewer", reviewer,
	)
	return b, nil
}

// RejectVerification cancels the booking with a closed-enumeration reason and
// refunds the guest in full.
func (s *BookingServiceImpl) RejectVerification(ctx context.Context, id uuid.UUID, reason verification.RejectReason, reviewer string) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.gate.Reject(b, reason, reviewer); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	s.refundBestEffort(ctx, b, b.TotalAmount)
	s.notifier.Notify(ctx, b.GuestID, "verification_rejected", map[string]string{
		"booking_id": b.ID.String(),
		"reason":     string(reason),
	})

	s.logger.Info("Verification rejected",
		"booking_id", b.ID.String(),
		"reason", string(reason),
		"reviewer", reviewer,
	)
	return b, nil
}

// RequestDocuments asks the guest for additional artifacts with a deadline
// from the configured document request TTL. The outstanding request is
// persisted on the booking so the expiry sweep can cancel it when the
// deadline elapses without a re-upload.
func (s *BookingServiceImpl) RequestDocuments(ctx context.Context, id uuid.UUID, requestedBy, message string) (*verification.DocumentRequest, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(s.opsCfg.DocumentRequestTTL)
	req, err := s.gate.RequestDocuments(b, requestedBy, message, deadline)
	if err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, b.GuestID, "documents_requested", map[string]string{
		"booking_id": b.ID.String(),
		"deadline":   deadline.Format(time.RFC3339),
	})

	s.logger.Info("Documents requested",
		"booking_id", b.ID.String(),
		"requested_by", requestedBy,
		"deadline", deadline.Format(time.RFC3339),
	)
	return req, nil
}

// EnterPaymentHold suspends the booking pending payment review
func (s *BookingServiceImpl) EnterPaymentHold(ctx context.Context, id uuid.UUID, reason, actor string, deadline *time.Time) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.EnterPaymentHold(reason, actor, deadline); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("Booking placed on payment hold",
		"booking_id", b.ID.String(),
		"reason", reason,
		"actor", actor,
	)
	return b, nil
}

// ReleasePaymentHold reverses a hold, restoring the recorded prior status
func (s *BookingServiceImpl) ReleasePaymentHold(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.ReleasePaymentHold(); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("Payment hold released",
		"booking_id", b.ID.String(),
		"restored_status", string(b.Status.Booking),
	)
	return b, nil
}

// CheckIn starts the trip
func (s *BookingServiceImpl) CheckIn(ctx context.Context, id uuid.UUID, startOdometer int64) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.CheckIn(startOdometer, time.Now()); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// CompleteTrip finishes the rental. The partner's commission rate in effect
// right now is captured onto the booking and travels with the settlement
// command, so later tier changes never alter this settlement.
func (s *BookingServiceImpl) CompleteTrip(ctx context.Context, id uuid.UUID, endOdometer int64) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p, err := s.partnerRepo.GetByID(ctx, b.PartnerID)
	if err != nil {
		return nil, err
	}

	if err := b.CompleteTrip(endOdometer, time.Now(), p.CommissionRateBps); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	s.publishSettlement(ctx, &shared.SettlementCommand{
		CommandID:         uuid.New(),
		PartnerID:         b.PartnerID,
		BookingID:         b.ID,
		Type:              shared.CommandRevenueRecognize,
		Amount:            b.TotalAmount,
		CommissionRateBps: b.CommissionRateBps,
		Reason:            "trip completed",
		Timestamp:         time.Now(),
	})

	s.notifier.Notify(ctx, b.PartnerID, "trip_completed", map[string]string{"booking_id": b.ID.String()})

	s.logger.Info("Trip completed",
		"booking_id", b.ID.String(),
		"commission_rate_bps", b.CommissionRateBps,
	)
	return b, nil
}

// Cancel is the operator escape hatch. If revenue was already accrued for the
// booking, a reversal command backs it out; a non-none refund decision
// triggers the external refund.
func (s *BookingServiceImpl) Cancel(ctx context.Context, id uuid.UUID, reason, actor string, refund booking.RefundType) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wasAccrued := b.Status.Verification == booking.VerificationApproved

	if err := b.Cancel(reason, actor, refund); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	if wasAccrued {
		s.publishSettlement(ctx, &shared.SettlementCommand{
			CommandID: uuid.New(),
			PartnerID: b.PartnerID,
			BookingID: b.ID,
			Type:      shared.CommandRevenueReverse,
			Amount:    b.TotalAmount,
			Reason:    "booking cancelled: " + reason,
			Timestamp: time.Now(),
		})
	}

	switch refund {
	case booking.RefundFull:
		s.refundBestEffort(ctx, b, b.TotalAmount)
	case booking.RefundPartial:
		// Fees and taxes are retained on partial refunds.
		s.refundBestEffort(ctx, b, b.Subtotal)
	}

	s.notifier.Notify(ctx, b.GuestID, "booking_cancelled", map[string]string{
		"booking_id": b.ID.String(),
		"refund":     string(refund),
	})

	s.logger.Info("Booking cancelled",
		"booking_id", b.ID.String(),
		"reason", reason,
		"actor", actor,
		"refund", string(refund),
	)
	return b, nil
}

// MarkNoShow terminates a booking whose guest never checked in. The payment
// is retained; accrued revenue is reversed since no trip will settle it.
func (s *BookingServiceImpl) MarkNoShow(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wasAccrued := b.Status.Verification == booking.VerificationApproved

	if err := b.MarkNoShow(); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	if wasAccrued {
		s.publishSettlement(ctx, &shared.SettlementCommand{
			CommandID: uuid.New(),
			PartnerID: b.PartnerID,
			BookingID: b.ID,
			Type:      shared.CommandRevenueReverse,
			Amount:    b.TotalAmount,
			Reason:    "guest no-show",
			Timestamp: time.Now(),
		})
	}

	s.logger.Info("Booking marked as no-show", "booking_id", b.ID.String())
	return b, nil
}

// OpenDispute moves a completed booking into dispute review
func (s *BookingServiceImpl) OpenDispute(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.OpenDispute(); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ResolveDispute returns a disputed booking to COMPLETED
func (s *BookingServiceImpl) ResolveDispute(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.ResolveDispute(); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// SweepExpiredHolds auto-cancels bookings whose hold deadline or document
// request deadline elapsed without resolution. Each booking is expired
// independently; a failure on one never blocks the rest of the batch.
func (s *BookingServiceImpl) SweepExpiredHolds(ctx context.Context) (int, error) {
	holdCandidates, err := s.bookingRepo.ListHoldExpiryCandidates(ctx, s.opsCfg.ExpirySweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, b := range holdCandidates {
		wasAccrued := b.Status.Verification == booking.VerificationApproved

		if err := b.ExpireVerification(); err != nil {
			s.logger.Error("Failed to expire held booking", "booking_id", b.ID.String(), "error", err)
			continue
		}
		if s.settleExpiredBooking(ctx, b, wasAccrued, "hold deadline elapsed") {
			expired++
		}
	}

	// Document candidates are listed after the hold pass so a booking already
	// cancelled above never shows up twice.
	docCandidates, err := s.bookingRepo.ListDocumentExpiryCandidates(ctx, s.opsCfg.ExpirySweepBatch)
	if err != nil {
		return expired, err
	}

	now := time.Now()
	for _, b := range docCandidates {
		wasAccrued := b.Status.Verification == booking.VerificationApproved

		overdue, err := s.gate.ExpireOverdue(b, now)
		if err != nil {
			s.logger.Error("Failed to expire document request", "booking_id", b.ID.String(), "error", err)
			continue
		}
		if !overdue {
			continue
		}
		if s.settleExpiredBooking(ctx, b, wasAccrued, "document request deadline elapsed") {
			expired++
		}
	}

	if expired > 0 {
		s.logger.Info("Expiry sweep finished",
			"expired", expired,
			"hold_candidates", len(holdCandidates),
			"document_candidates", len(docCandidates),
		)
	}
	return expired, nil
}

// settleExpiredBooking persists an already-expired booking and performs the
// follow-up work shared by both expiry paths: accrual reversal, the
// best-effort refund and the guest notification.
func (s *BookingServiceImpl) settleExpiredBooking(ctx context.Context, b *booking.Booking, wasAccrued bool, reason string) bool {
	if err := s.bookingRepo.Update(ctx, b); err != nil {
		s.logger.Error("Failed to persist expired booking", "booking_id", b.ID.String(), "error", err)
		return false
	}

	if wasAccrued {
		s.publishSettlement(ctx, &shared.SettlementCommand{
			CommandID: uuid.New(),
			PartnerID: b.PartnerID,
			BookingID: b.ID,
			Type:      shared.CommandRevenueReverse,
			Amount:    b.TotalAmount,
			Reason:    reason,
			Timestamp: time.Now(),
		})
	}
	s.refundBestEffort(ctx, b, b.TotalAmount)
	s.notifier.Notify(ctx, b.GuestID, "booking_expired", map[string]string{"booking_id": b.ID.String()})
	return true
}

// refundBestEffort issues the external refund and records the outcome. A rail
// failure leaves the payment axis on REFUND_DUE for a later retry; it never
// fails the transition that triggered the refund.
func (s *BookingServiceImpl) refundBestEffort(ctx context.Context, b *booking.Booking, amount int64) {
	if b.Status.Payment != booking.PaymentRefundDue {
		return
	}
	if err := s.paymentRail.Refund(ctx, b.ID, amount); err != nil {
		s.logger.Error("Refund failed, leaving payment as REFUND_DUE",
			"booking_id", b.ID.String(),
			"amount", amount,
			"error", err,
		)
		return
	}
	b.MarkRefunded()
	if err := s.bookingRepo.Update(ctx, b); err != nil {
		s.logger.Error("Failed to persist refund outcome", "booking_id", b.ID.String(), "error", err)
	}
}

// publishSettlement sends a settlement command keyed by partner id so that
// all commands for one ledger account stay ordered. Publish failures are
// logged, not surfaced: the booking transition already committed.
func (s *BookingServiceImpl) publishSettlement(ctx context.Context, cmd *shared.SettlementCommand) {
	if err := s.producer.Publish(ctx, cmd.PartnerID.String(), cmd); err != nil {
		s.logger.Error("Failed to publish settlement command",
			"command_id", cmd.CommandID.String(),
			"type", string(cmd.Type),
			"booking_id", cmd.BookingID.String(),
			"error", err,
		)
	}
}
