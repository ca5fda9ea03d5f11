package settlement

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies ledger events
type EventType string

const (
	EventCharge               EventType = "CHARGE"
	EventHold                 EventType = "HOLD"
	EventRelease              EventType = "RELEASE"
	EventPayout               EventType = "PAYOUT"
	EventCredit               EventType = "CREDIT" // compensating reversal of a PAYOUT
	EventAccrual              EventType = "ACCRUAL"
	EventSettlement           EventType = "SETTLEMENT"
	EventReversal             EventType = "REVERSAL"
	EventCommissionAdjustment EventType = "COMMISSION_ADJUSTMENT"
	EventChannelToggle        EventType = "CHANNEL_TOGGLE"
)

// BalanceSnapshot captures the account balances immediately after an event
type BalanceSnapshot struct {
	Current         int64 `json:"current" bson:"current"`
	Hold            int64 `json:"hold" bson:"hold"`
	PendingIncoming int64 `json:"pending_incoming" bson:"pending_incoming"`
	LifetimePaidOut int64 `json:"lifetime_paid_out" bson:"lifetime_paid_out"`
}

// Event is the append-only audit record of one balance mutation (or an
// audit-only action such as an external charge or a channel toggle). It is
// also the unit of idempotence: reprocessing a command whose event already
// exists is a no-op.
type Event struct {
	ID                uuid.UUID       `json:"id" bson:"id"`
	PartnerID         uuid.UUID       `json:"partner_id" bson:"partner_id"`
	Type              EventType       `json:"type" bson:"type"`
	Amount            int64           `json:"amount" bson:"amount"` // minor units
	GrossAmount       int64           `json:"gross_amount,omitempty" bson:"gross_amount,omitempty"`
	CommissionRateBps int32           `json:"commission_rate_bps,omitempty" bson:"commission_rate_bps,omitempty"`
	Reason            string          `json:"reason" bson:"reason"`
	Actor             string          `json:"actor" bson:"actor"`
	BookingID         uuid.UUID       `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	RefEventID        uuid.UUID       `json:"ref_event_id,omitempty" bson:"ref_event_id,omitempty"`
	CommandID         uuid.UUID       `json:"command_id,omitempty" bson:"command_id,omitempty"`
	External          bool            `json:"external,omitempty" bson:"external,omitempty"`
	HoldUntil         *time.Time      `json:"hold_until,omitempty" bson:"hold_until,omitempty"`
	ToggleTarget      string          `json:"toggle_target,omitempty" bson:"toggle_target,omitempty"`
	ToggleValue       bool            `json:"toggle_value,omitempty" bson:"toggle_value,omitempty"`
	Balances          BalanceSnapshot `json:"balances" bson:"balances"`
	CreatedAt         time.Time       `json:"created_at" bson:"created_at"`
}

// Replay reconstructs account balances by applying events in order against a
// zero-balance state. Event ordering by creation time is load-bearing here.
func Replay(events []*Event) BalanceSnapshot {
	var s BalanceSnapshot
	for _, ev := range events {
		switch ev.Type {
		case EventCharge:
			if !ev.External {
				s.Current -= ev.Amount
			}
		case EventHold:
			s.Hold += ev.Amount
		case EventRelease:
			s.Hold -= ev.Amount
		case EventPayout:
			s.Current -= ev.Amount
			s.LifetimePaidOut += ev.Amount
		case EventCredit:
			s.Current += ev.Amount
			s.LifetimePaidOut -= ev.Amount
		case EventAccrual:
			s.PendingIncoming += ev.Amount
		case EventSettlement:
			s.PendingIncoming -= ev.GrossAmount
			if s.PendingIncoming < 0 {
				s.PendingIncoming = 0
			}
			s.Current += ev.Amount
		case EventReversal:
			s.PendingIncoming -= ev.Amount
		}
	}
	return s
}
