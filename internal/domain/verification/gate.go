// Package verification encapsulates the guest identity verification
// decisions that feed the booking state machine: approval, rejection with a
// closed reason enumeration, and document requests with deadlines.
package verification

import (
	"errors"
	"fmt"
	"time"

	"github.com/fleetops-rental-core/internal/domain/booking"
)

// RejectReason is the closed enumeration of verification reject codes
type RejectReason string

const (
	ReasonInvalidLicense     RejectReason = "invalid_license"
	ReasonExpiredLicense     RejectReason = "expired_license"
	ReasonFailedVerification RejectReason = "failed_verification"
	ReasonSuspiciousActivity RejectReason = "suspicious_activity"
	ReasonUnderage           RejectReason = "underage"
	ReasonDocumentQuality    RejectReason = "document_quality"
	ReasonFraudSuspected     RejectReason = "fraud_suspected"
	ReasonOther              RejectReason = "other"
)

// ParseRejectReason validates a raw reject reason at the boundary
func ParseRejectReason(raw string) (RejectReason, error) {
	switch r := RejectReason(raw); r {
	case ReasonInvalidLicense, ReasonExpiredLicense, ReasonFailedVerification,
		ReasonSuspiciousActivity, ReasonUnderage, ReasonDocumentQuality,
		ReasonFraudSuspected, ReasonOther:
		return r, nil
	}
	return "", fmt.Errorf("unknown verification reject reason: %q", raw)
}

// Common errors
var (
	ErrMissingArtifacts = errors.New("license and selfie artifacts are required for approval")
	ErrNoPendingRequest = errors.New("no outstanding document request")
)

// ArtifactPresence carries the document-store booleans the gate consumes.
// Resolving upload URLs to presence and expiry checks is the document store
// collaborator's concern; the gate only reads the results.
type ArtifactPresence struct {
	LicensePresent   bool
	SelfiePresent    bool
	InsurancePresent bool
}

// DocumentRequest is the caller-facing view of an outstanding request for
// additional artifacts. The authoritative copy lives on the booking.
type DocumentRequest struct {
	BookingID   string    `json:"booking_id"`
	RequestedBy string    `json:"requested_by"`
	Message     string    `json:"message,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
	Deadline    time.Time `json:"deadline"`
}

// Gate validates verification decisions before they reach the state machine
type Gate struct{}

// NewGate creates a verification gate
func NewGate() *Gate {
	return &Gate{}
}

// Approve confirms the booking after checking the required artifacts are
// present. Insurance remains optional per policy.
func (g *Gate) Approve(b *booking.Booking, artifacts ArtifactPresence, reviewer, notes string) error {
	if !artifacts.LicensePresent || !artifacts.SelfiePresent {
		return ErrMissingArtifacts
	}
	return b.ApproveVerification(reviewer, notes)
}

// Reject cancels the booking with a reason from the closed enumeration and
// mandates a full refund via the state machine.
func (g *Gate) Reject(b *booking.Booking, reason RejectReason, reviewer string) error {
	return b.RejectVerification(string(reason), reviewer)
}

// RequestDocuments records an outstanding artifact request with a deadline
// on the booking itself, so the expiry sweep can find it later. The
// verification status itself does not change.
func (g *Gate) RequestDocuments(b *booking.Booking, requestedBy, message string, deadline time.Time) (*DocumentRequest, error) {
	if b.Status.Booking.IsTerminal() {
		return nil, booking.ErrInvalidTransition{From: b.Status.Booking, Trigger: booking.TriggerVerificationReject}
	}
	b.RecordDocumentRequest(requestedBy, message, deadline)
	return &DocumentRequest{
		BookingID:   b.ID.String(),
		RequestedBy: requestedBy,
		Message:     message,
		RequestedAt: b.DocumentRequest.RequestedAt,
		Deadline:    deadline,
	}, nil
}

// ExpireOverdue handles a booking whose recorded document request deadline
// elapsed without new artifacts: the verification axis moves to EXPIRED and
// the booking is auto-cancelled without a refund hold-back. Returns false
// when the request is not yet overdue, ErrNoPendingRequest when the booking
// carries no outstanding request.
func (g *Gate) ExpireOverdue(b *booking.Booking, now time.Time) (bool, error) {
	req := b.DocumentRequest
	if req == nil {
		return false, ErrNoPendingRequest
	}
	if !req.Overdue(now) {
		return false, nil
	}
	if err := b.ExpireVerification(); err != nil {
		return false, err
	}
	return true, nil
}
