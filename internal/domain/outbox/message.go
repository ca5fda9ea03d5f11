package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/domain/shared"
)

// Message stages a ledger event for reliable publication to the audit store.
// Event rows are written in the same database transaction as the balance
// mutation they describe; the poller drains them afterwards.
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	PartnerID     uuid.UUID           `json:"partner_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a ledger event into a pending outbox message
func NewMessage(event *settlement.Event) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:   event.ID,
		PartnerID: event.PartnerID,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetLedgerEvent extracts the ledger event from the payload
func (m *Message) GetLedgerEvent() (*settlement.Event, error) {
	var event settlement.Event
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
