package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/domain/shared"
	"github.com/fleetops-rental-core/internal/settlement_processor/service"
)

// AccountManagerImpl implements the AccountManager interface
type AccountManagerImpl struct {
	accountRepo settlement.AccountRepository
	logger      *slog.Logger
}

// NewAccountManager creates a new AccountManagerImpl
func NewAccountManager(accountRepo settlement.AccountRepository, logger *slog.Logger) service.AccountManager {
	return &AccountManagerImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// LockAndApplyCommand locks the partner's ledger account, applies the
// settlement command against it and persists the new balances. The produced
// event carries the command id so reprocessing can be detected.
func (m *AccountManagerImpl) LockAndApplyCommand(ctx context.Context, tx pgx.Tx, command *shared.SettlementCommand) (*settlement.Account, *settlement.Event, error) {
	logger := m.logger
	if command.CorrelationID != "" {
		logger = m.logger.With("correlation_id", command.CorrelationID)
	}

	accountRepoTx := m.accountRepo.WithTx(tx)

	lockedAccount, err := accountRepoTx.LockForUpdate(ctx, command.PartnerID)
	if err != nil {
		var notFound settlement.ErrAccountNotFound
		if errors.As(err, &notFound) {
			logger.Warn("Ledger account not found for lock", "command_id", command.CommandID.String(), "partner_id", command.PartnerID.String(), "original_error", err)
			return nil, nil, err
		}
		logger.Error("Failed to lock ledger account", "command_id", command.CommandID.String(), "partner_id", command.PartnerID.String(), "error", err)
		return nil, nil, fmt.Errorf("failed to lock ledger account %s: %w", command.PartnerID.String(), err)
	}
	logger.Info("Ledger account locked",
		"command_id", command.CommandID.String(),
		"partner_id", lockedAccount.PartnerID.String(),
		"current", lockedAccount.Current,
		"pending", lockedAccount.PendingIncoming,
		"version", lockedAccount.Version,
	)

	var event *settlement.Event
	switch command.Type {
	case shared.CommandRevenueAccrue:
		event, err = lockedAccount.AccruePending(command.Amount, command.BookingID)
	case shared.CommandRevenueRecognize:
		event, err = lockedAccount.RecognizeRevenue(command.Amount, command.CommissionRateBps, command.BookingID)
	case shared.CommandRevenueReverse:
		event, err = lockedAccount.ReversePending(command.Amount, command.BookingID, command.Reason)
	case shared.CommandPayoutCompensate:
		event, err = lockedAccount.CompensatePayout(command.Amount, command.RefEventID, command.Reason)
	default:
		err = shared.ErrInvalidCommandType
	}
	if err != nil {
		logger.Warn("Failed to apply settlement command to account model",
			"command_id", command.CommandID.String(),
			"type", string(command.Type),
			"error", err,
		)
		return nil, nil, err
	}
	event.CommandID = command.CommandID

	logger.Info("Ledger balances updated in memory",
		"command_id", command.CommandID.String(),
		"new_current", lockedAccount.Current,
		"new_pending", lockedAccount.PendingIncoming,
		"new_version", lockedAccount.Version,
	)

	if err = accountRepoTx.Update(ctx, lockedAccount); err != nil {
		var stale settlement.ErrStaleAccount
		if errors.As(err, &stale) {
			logger.Warn("Concurrent modification on ledger account update", "command_id", command.CommandID.String(), "partner_id", lockedAccount.PartnerID.String())
		} else {
			logger.Error("Failed to update ledger account in DB", "command_id", command.CommandID.String(), "partner_id", lockedAccount.PartnerID.String(), "error", err)
		}
		return nil, nil, err
	}
	logger.Info("Ledger account updated in DB", "command_id", command.CommandID.String(), "partner_id", lockedAccount.PartnerID.String())

	return lockedAccount, event, nil
}
