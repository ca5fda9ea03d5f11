package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fleetops-rental-core/internal/domain/outbox"
	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/domain/shared"
	"github.com/fleetops-rental-core/internal/settlement_processor/service"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateOutboxEntry stages the produced ledger event for publication to the
// audit store, in the same transaction as the balance mutation
func (m *OutboxManagerImpl) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, command *shared.SettlementCommand, event *settlement.Event) error {
	logger := m.logger
	if command.CorrelationID != "" {
		logger = m.logger.With("correlation_id", command.CorrelationID)
	}

	outboxRepoTx := m.outboxRepo.WithTx(tx)

	outboxMessage, err := outbox.NewMessage(event)
	if err != nil {
		logger.Error("Failed to create new outbox message (marshal payload)",
			"command_id", command.CommandID.String(),
			"event_id", event.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for command %s: %w", command.CommandID.String(), err)
	}

	if err = outboxRepoTx.Create(ctx, outboxMessage); err != nil {
		logger.Error("Failed to create outbox message",
			"command_id", command.CommandID.String(),
			"partner_id", command.PartnerID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for command %s: %w", command.CommandID.String(), err)
	}
	logger.Info("Outbox message created successfully",
		"command_id", command.CommandID.String(),
		"outbox_id", outboxMessage.ID,
	)

	return nil
}
