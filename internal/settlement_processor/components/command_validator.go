package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/domain/shared"
	"github.com/fleetops-rental-core/internal/settlement_processor/service"
)

type CommandValidatorImpl struct {
	eventRepo settlement.EventRepository
	logger    *slog.Logger
}

func NewCommandValidator(eventRepo settlement.EventRepository, logger *slog.Logger) service.CommandValidator {
	return &CommandValidatorImpl{
		eventRepo: eventRepo,
		logger:    logger,
	}
}

// Validate checks settlement command validity
func (v *CommandValidatorImpl) Validate(ctx context.Context, command *shared.SettlementCommand) error {
	logger := v.logger
	if command.CorrelationID != "" {
		logger = v.logger.With("correlation_id", command.CorrelationID)
	}

	switch command.Type {
	case shared.CommandRevenueAccrue, shared.CommandRevenueRecognize,
		shared.CommandRevenueReverse, shared.CommandPayoutCompensate:
	default:
		logger.Error("Unknown settlement command type", "command_id", command.CommandID.String(), "type", string(command.Type))
		return shared.ErrInvalidCommandType
	}

	if command.Amount <= 0 {
		logger.Error("Invalid amount", "command_id", command.CommandID.String(), "amount", command.Amount)
		return fmt.Errorf("amount must be positive: %d", command.Amount)
	}

	if command.Type == shared.CommandRevenueRecognize {
		if command.CommissionRateBps < 0 || command.CommissionRateBps > 10000 {
			logger.Error("Commission rate out of range", "command_id", command.CommandID.String(), "rate_bps", command.CommissionRateBps)
			return shared.ErrInvalidRate
		}
	}

	return nil
}

// CheckIdempotency reports whether the command was already applied. Every
// applied command leaves exactly one ledger event carrying its command id;
// payout compensations additionally match on the referenced payout event.
func (v *CommandValidatorImpl) CheckIdempotency(ctx context.Context, command *shared.SettlementCommand) (bool, error) {
	logger := v.logger
	if command.CorrelationID != "" {
		logger = v.logger.With("correlation_id", command.CorrelationID)
	}

	existing, err := v.eventRepo.GetByCommandID(ctx, command.CommandID)
	if err != nil {
		logger.Error("Failed to check ledger events for idempotency", "command_id", command.CommandID.String(), "error", err)
		return false, fmt.Errorf("idempotency check failed for command %s: %w", command.CommandID.String(), err)
	}
	if existing != nil {
		logger.Info("Settlement command already applied", "command_id", command.CommandID.String(), "event_id", existing.ID.String())
		return true, nil
	}

	// A payout must never be compensated twice, even when the duplicate
	// arrives under a fresh command id.
	if command.Type == shared.CommandPayoutCompensate {
		compensation, err := v.eventRepo.GetByRefEventID(ctx, command.RefEventID)
		if err != nil {
			logger.Error("Failed to check for existing payout compensation", "command_id", command.CommandID.String(), "ref_event_id", command.RefEventID.String(), "error", err)
			return false, fmt.Errorf("compensation check failed for command %s: %w", command.CommandID.String(), err)
		}
		if compensation != nil {
			logger.Info("Payout already compensated",
				"command_id", command.CommandID.String(),
				"ref_event_id", command.RefEventID.String(),
				"compensation_event_id", compensation.ID.String(),
			)
			return true, nil
		}
	}

	return false, nil
}
