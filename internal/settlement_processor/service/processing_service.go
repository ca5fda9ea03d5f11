package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/domain/shared"
	"github.com/fleetops-rental-core/internal/platform/persistence"
)

type ProcessingServiceImpl struct {
	pgDB            *persistence.PostgresDB
	validator       CommandValidator
	accountManager  AccountManager
	outboxManager   OutboxManager
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	pgDB *persistence.PostgresDB,
	validator CommandValidator,
	accountManager AccountManager,
	outboxManager OutboxManager,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		pgDB:            pgDB,
		validator:       validator,
		accountManager:  accountManager,
		outboxManager:   outboxManager,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ProcessCommand handles the core logic for processing a settlement command.
// Domain refusals are recorded and acknowledged so they never wedge the
// partition; infrastructure errors propagate so Kafka redelivers.
func (s *ProcessingServiceImpl) ProcessCommand(ctx context.Context, command *shared.SettlementCommand) error {
	logger := s.logger
	if command.CorrelationID != "" {
		logger = s.logger.With("correlation_id", command.CorrelationID)
	}

	logger.Info("Processing settlement command",
		"command_id", command.CommandID.String(),
		"partner_id", command.PartnerID.String(),
		"type", string(command.Type),
	)

	// 1. Validate the command
	if err := s.validator.Validate(ctx, command); err != nil {
		logger.Error("Settlement command validation failed", "command_id", command.CommandID.String(), "error", err)

		var failureReason string
		if errors.Is(err, shared.ErrInvalidCommandType) {
			failureReason = string(shared.FailureReasonUnknownError)
		} else if errors.Is(err, shared.ErrInvalidRate) {
			failureReason = string(shared.FailureReasonInvalidRate)
		} else {
			failureReason = string(shared.FailureReasonInvalidAmount)
		}

		if recordErr := s.failureRecorder.RecordFailure(ctx, command, failureReason); recordErr != nil {
			logger.Error("Failed to record settlement failure", "command_id", command.CommandID.String(), "error", recordErr)
		}

		return nil // Acknowledge, the command can never succeed
	}

	// 2. Check idempotency
	skip, err := s.validator.CheckIdempotency(ctx, command)
	if err != nil {
		return err // Let Kafka retry
	}
	if skip {
		return nil // Already applied
	}

	// 3. Begin database transaction
	var tx pgx.Tx
	tx, err = s.pgDB.Pool().Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "command_id", command.CommandID.String(), "error", err)
		return fmt.Errorf("failed to begin DB transaction for %s: %w", command.CommandID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p, "command_id", command.CommandID.String())
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			logger.Error("Error occurred, rolling back transaction", "error", err, "command_id", command.CommandID.String())
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err, "command_id", command.CommandID.String())
			}
		}
	}()

	// 4. Lock the account and apply the command
	_, event, err := s.accountManager.LockAndApplyCommand(ctx, tx, command)
	if err != nil {
		var notFound settlement.ErrAccountNotFound
		if errors.As(err, &notFound) {
			if recordErr := s.failureRecorder.RecordFailure(ctx, command, string(shared.FailureReasonAccountNotFound)); recordErr != nil {
				logger.Error("Failed to record account not found failure", "command_id", command.CommandID.String(), "error", recordErr)
			}
			return nil // The defer rolls back; acknowledge the message
		}
		if errors.Is(err, settlement.ErrInvalidAmount) {
			if recordErr := s.failureRecorder.RecordFailure(ctx, command, string(shared.FailureReasonInvalidAmount)); recordErr != nil {
				logger.Error("Failed to record invalid amount failure", "command_id", command.CommandID.String(), "error", recordErr)
			}
			return nil
		}

		// Anything else (stale state, invariant violations, connection loss)
		// propagates for retry against a fresh read.
		return err
	}

	// 5. Stage the ledger event in the outbox
	if err = s.outboxManager.CreateOutboxEntry(ctx, tx, command, event); err != nil {
		return err // Let the defer handle rollback
	}

	// 6. Commit transaction
	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit database transaction",
			"command_id", command.CommandID.String(),
			"partner_id", command.PartnerID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to commit DB transaction for command %s: %w", command.CommandID.String(), err)
	}

	logger.Info("Settlement command committed",
		"command_id", command.CommandID.String(),
		"partner_id", command.PartnerID.String(),
		"event_id", event.ID.String(),
	)
	return nil
}
