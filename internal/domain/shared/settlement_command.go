package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidCommandType = errors.New("invalid settlement command type")
	ErrInvalidRate        = errors.New("commission rate out of range")
)

// SettlementCommand defines a Kafka message for asynchronous, booking-driven
// settlement processing. Operator-issued ledger operations run synchronously
// in the API; these commands carry the settlement consequences of booking
// transitions and payout compensation.
type SettlementCommand struct {
	CommandID         uuid.UUID   `json:"command_id"`
	PartnerID         uuid.UUID   `json:"partner_id"`
	BookingID         uuid.UUID   `json:"booking_id,omitempty"`
	Type              CommandType `json:"type"`
	Amount            int64       `json:"amount"` // minor units
	CommissionRateBps int32       `json:"commission_rate_bps,omitempty"`
	RefEventID        uuid.UUID   `json:"ref_event_id,omitempty"` // original PAYOUT for compensation
	Reason            string      `json:"reason,omitempty"`
	CorrelationID     string      `json:"correlation_id"`
	Timestamp         time.Time   `json:"timestamp"`
}
