// Package rails defines the contracts for external collaborators the
// operations platform delegates to: the payment rail, the payout rail, the
// notification dispatcher, the verification document store and the fleet
// membership service. The ledger and booking state machines never talk to
// these directly; services orchestrate the calls around ledger commits.
package rails

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrRailUnavailable wraps any failure reported by an external rail. Handlers
// map it to a 502 so callers can distinguish rail outages from local faults.
var ErrRailUnavailable = errors.New("external rail failure")

// PaymentRail abstracts the external card processing provider. All amounts
// are in minor currency units.
type PaymentRail interface {
	// Authorize places an authorization for the booking total. A non-nil
	// error means the rail definitively declined or was unreachable; the
	// caller decides whether the booking proceeds.
	Authorize(ctx context.Context, bookingID uuid.UUID, amount int64) error

	// Capture settles a previously authorized amount
	Capture(ctx context.Context, bookingID uuid.UUID, amount int64) error

	// Refund returns funds to the guest for a cancelled booking
	Refund(ctx context.Context, bookingID uuid.UUID, amount int64) error
}

// PayoutRail abstracts the external bank transfer provider used for partner
// payouts. A payout failure after the ledger debit is compensated, never
// edited away.
type PayoutRail interface {
	Payout(ctx context.Context, partnerID uuid.UUID, amount int64, reference string) error
}

// DocumentStore resolves which verification artifacts a guest has uploaded
// for a booking. Artifact content never passes through this system, only
// presence.
type DocumentStore interface {
	ArtifactPresence(ctx context.Context, bookingID uuid.UUID) (licensePresent, selfiePresent, insurancePresent bool, err error)
}

// FleetMembership reports a partner's count of active vehicles. Listing
// lifecycle is owned elsewhere; the count is the only signal the commission
// tiers need.
type FleetMembership interface {
	ActiveFleetSize(ctx context.Context, partnerID uuid.UUID) (int, error)
}

// NotificationDispatcher delivers guest and partner notifications. Dispatch
// is fire-and-forget: a delivery failure never fails the operation that
// triggered it.
type NotificationDispatcher interface {
	Notify(ctx context.Context, recipientID uuid.UUID, template string, payload map[string]string)
}
