package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops-rental-core/internal/domain/shared"
)

// Failure records a settlement command that was refused by domain rules.
// Refused commands are acknowledged to Kafka so they do not wedge the
// partition; the failure record is what keeps them auditable.
type Failure struct {
	CommandID     uuid.UUID          `json:"command_id" bson:"command_id"`
	PartnerID     uuid.UUID          `json:"partner_id" bson:"partner_id"`
	BookingID     uuid.UUID          `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	Type          shared.CommandType `json:"type" bson:"type"`
	Amount        int64              `json:"amount" bson:"amount"`
	Reason        string             `json:"reason" bson:"reason"`
	CorrelationID string             `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	FailedAt      time.Time          `json:"failed_at" bson:"failed_at"`
}

// FailureRepository persists refused settlement commands for audit
type FailureRepository interface {
	Record(ctx context.Context, f *Failure) error

	// GetByCommandID returns nil when no failure was recorded for the command
	GetByCommandID(ctx context.Context, commandID uuid.UUID) (*Failure, error)
}
