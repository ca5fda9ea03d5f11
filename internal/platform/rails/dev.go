package rails

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// DevPaymentRail approves every operation and logs it. Used in development
// and as the default wiring until a provider adapter is configured.
type DevPaymentRail struct {
	Logger *slog.Logger
}

func (r *DevPaymentRail) Authorize(ctx context.Context, bookingID uuid.UUID, amount int64) error {
	r.Logger.Info("dev payment rail: authorize", "booking_id", bookingID.String(), "amount", amount)
	return nil
}

func (r *DevPaymentRail) Capture(ctx context.Context, bookingID uuid.UUID, amount int64) error {
	r.Logger.Info("dev payment rail: capture", "booking_id", bookingID.String(), "amount", amount)
	return nil
}

func (r *DevPaymentRail) Refund(ctx context.Context, bookingID uuid.UUID, amount int64) error {
	r.Logger.Info("dev payment rail: refund", "booking_id", bookingID.String(), "amount", amount)
	return nil
}

// DevPayoutRail approves every payout and logs it
type DevPayoutRail struct {
	Logger *slog.Logger
}

func (r *DevPayoutRail) Payout(ctx context.Context, partnerID uuid.UUID, amount int64, reference string) error {
	r.Logger.Info("dev payout rail: payout", "partner_id", partnerID.String(), "amount", amount, "reference", reference)
	return nil
}

// DevDocumentStore reports every artifact as present
type DevDocumentStore struct{}

func (s *DevDocumentStore) ArtifactPresence(ctx context.Context, bookingID uuid.UUID) (bool, bool, bool, error) {
	return true, true, true, nil
}

// DevFleetMembership reports a fixed fleet size
type DevFleetMembership struct {
	FleetSize int
}

func (f *DevFleetMembership) ActiveFleetSize(ctx context.Context, partnerID uuid.UUID) (int, error) {
	return f.FleetSize, nil
}

// DevNotificationDispatcher logs notifications instead of delivering them
type DevNotificationDispatcher struct {
	Logger *slog.Logger
}

func (d *DevNotificationDispatcher) Notify(ctx context.Context, recipientID uuid.UUID, template string, payload map[string]string) {
	d.Logger.Info("dev notification", "recipient_id", recipientID.String(), "template", template)
}
