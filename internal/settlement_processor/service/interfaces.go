package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/domain/shared"
)

// ProcessingService defines the interface for processing settlement commands.
type ProcessingService interface {
	ProcessCommand(ctx context.Context, command *shared.SettlementCommand) error
}

// CommandValidator validates settlement commands before processing
type CommandValidator interface {
	Validate(ctx context.Context, command *shared.SettlementCommand) error
	CheckIdempotency(ctx context.Context, command *shared.SettlementCommand) (bool, error)
}

// AccountManager applies a settlement command against the locked ledger
// account, returning the event the application produced
type AccountManager interface {
	LockAndApplyCommand(ctx context.Context, tx pgx.Tx, command *shared.SettlementCommand) (*settlement.Account, *settlement.Event, error)
}

// OutboxManager stages the produced ledger event for publication
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, command *shared.SettlementCommand, event *settlement.Event) error
}

// FailureRecorder records settlement commands refused by domain rules
type FailureRecorder interface {
	RecordFailure(ctx context.Context, command *shared.SettlementCommand, failureReason string) error
}
