package components

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/domain/shared"
	"github.com/fleetops-rental-core/internal/settlement_processor/service"
)

type FailureRecorderImpl struct {
	failureRepo settlement.FailureRepository
	logger      *slog.Logger
}

func NewFailureRecorder(failureRepo settlement.FailureRepository, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		failureRepo: failureRepo,
		logger:      logger,
	}
}

// RecordFailure records a refused settlement command in the audit store
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, command *shared.SettlementCommand, failureReason string) error {
	logger := r.logger
	if command.CorrelationID != "" {
		logger = r.logger.With("correlation_id", command.CorrelationID)
	}

	logger.Info("Recording refused settlement command", "command_id", command.CommandID.String(), "reason", failureReason)

	existing, err := r.failureRepo.GetByCommandID(ctx, command.CommandID)
	if err != nil {
		logger.Error("Failed to check for existing failure record", "command_id", command.CommandID.String(), "error", err)
	}
	if existing != nil {
		logger.Info("Failure already recorded for command", "command_id", command.CommandID.String())
		return nil
	}

	failure := &settlement.Failure{
		CommandID:     command.CommandID,
		PartnerID:     command.PartnerID,
		BookingID:     command.BookingID,
		Type:          command.Type,
		Amount:        command.Amount,
		Reason:        failureReason,
		CorrelationID: command.CorrelationID,
		FailedAt:      time.Now(),
	}

	if err := r.failureRepo.Record(ctx, failure); err != nil {
		logger.Error("Failed to record settlement failure", "command_id", command.CommandID.String(), "error", err)
		return err
	}

	logger.Info("Settlement failure recorded", "command_id", command.CommandID.String())
	return nil
}
