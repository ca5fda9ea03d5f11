package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fleetops-rental-core/internal/domain/outbox"
	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/domain/shared"
)

// EventPublisher publishes staged ledger events to the audit store
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	eventRepo  settlement.EventRepository
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	eventRepo settlement.EventRepository,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		eventRepo:  eventRepo,
		logger:     logger,
	}
}

// PublishEvent appends the staged ledger event to the audit store and marks
// the outbox message processed. A duplicate append means a previous attempt
// made it through before the status update; it is treated as success.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetLedgerEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal ledger event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	p.logger.Info("Attempting to publish ledger event to audit store", "outbox_id", message.ID, "event_id", event.ID.String())

	if err := p.eventRepo.Append(ctx, event); err != nil {
		if errors.Is(err, settlement.ErrDuplicateEvent{}) {
			p.logger.Info("Ledger event already present in audit store", "event_id", event.ID.String())
		} else {
			p.logger.Error("Failed to append ledger event to audit store", "event_id", event.ID.String(), "error", err)
			return fmt.Errorf("failed to append ledger event %s: %w", event.ID.String(), err)
		}
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		p.logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "event_id", event.ID.String(), "error", err,
		)
		return fmt.Errorf("audit write for %s OK, but failed to mark outbox %d as PROCESSED: %w", event.ID.String(), message.ID, err)
	}

	p.logger.Info("Outbox message successfully processed and marked as PROCESSED", "outbox_id", message.ID, "event_id", event.ID.String())
	return nil
}
