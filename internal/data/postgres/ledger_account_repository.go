package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/platform/persistence"
)

// LedgerAccountRepository implements the settlement.AccountRepository
// interface for PostgreSQL. One row per partner, keyed by partner id.
type LedgerAccountRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerAccountRepository creates a new PostgreSQL ledger account repository
func NewLedgerAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) settlement.AccountRepository {
	return &LedgerAccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *LedgerAccountRepository) WithTx(tx pgx.Tx) settlement.AccountRepository {
	return &LedgerAccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new ledger account in the database
func (r *LedgerAccountRepository) Create(ctx context.Context, a *settlement.Account) error {
	query := `
		INSERT INTO ledger_accounts (partner_id, current_balance, hold_balance, pending_incoming, lifetime_paid_out, payout_enabled, instant_payout_enabled, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		a.PartnerID,
		a.Current,
		a.Hold,
		a.PendingIncoming,
		a.LifetimePaidOut,
		a.PayoutEnabled,
		a.InstantPayoutEnable,
		a.Version,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger account", "partner_id", a.PartnerID.String(), "error", err)
		return fmt.Errorf("failed to create ledger account: %w", err)
	}

	return nil
}

// GetByPartnerID retrieves a partner's ledger account
func (r *LedgerAccountRepository) GetByPartnerID(ctx context.Context, partnerID uuid.UUID) (*settlement.Account, error) {
	query := `
		SELECT partner_id, current_balance, hold_balance, pending_incoming, lifetime_paid_out, payout_enabled, instant_payout_enabled, version, created_at, updated_at
		FROM ledger_accounts
		WHERE partner_id = $1
	`

	var a settlement.Account
	err := r.querier.QueryRow(ctx, query, partnerID).Scan(
		&a.PartnerID,
		&a.Current,
		&a.Hold,
		&a.PendingIncoming,
		&a.LifetimePaidOut,
		&a.PayoutEnabled,
		&a.InstantPayoutEnable,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settlement.ErrAccountNotFound{PartnerID: partnerID}
		}
		r.logger.Error("Failed to get ledger account", "partner_id", partnerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger account: %w", err)
	}

	return &a, nil
}

// Update persists a mutated account using optimistic locking on Version. The
// balance invariant is checked before touching the database so that a bug in
// ledger arithmetic can never persist an inconsistent account.
func (r *LedgerAccountRepository) Update(ctx context.Context, a *settlement.Account) error {
	if err := a.CheckInvariant(); err != nil {
		r.logger.Error("Refusing to persist account violating balance invariant",
			"partner_id", a.PartnerID.String(), "error", err)
		return fmt.Errorf("refusing to persist ledger account: %w", err)
	}

	query := `
		UPDATE ledger_accounts
		SET current_balance = $1, hold_balance = $2, pending_incoming = $3, lifetime_paid_out = $4, payout_enabled = $5, instant_payout_enabled = $6, version = $7, updated_at = $8
		WHERE partner_id = $9 AND version = $10
	`

	result, err := r.querier.Exec(ctx, query,
		a.Current,
		a.Hold,
		a.PendingIncoming,
		a.LifetimePaidOut,
		a.PayoutEnabled,
		a.InstantPayoutEnable,
		a.Version,
		a.UpdatedAt,
		a.PartnerID,
		a.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update ledger account", "partner_id", a.PartnerID.String(), "error", err)
		return fmt.Errorf("failed to update ledger account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return settlement.ErrStaleAccount{PartnerID: a.PartnerID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the account and returns its
// current state. This must be used within a transaction when applying ledger
// operations, so that concurrent settlements serialize per partner.
func (r *LedgerAccountRepository) LockForUpdate(ctx context.Context, partnerID uuid.UUID) (*settlement.Account, error) {
	query := `
		SELECT partner_id, current_balance, hold_balance, pending_incoming, lifetime_paid_out, payout_enabled, instant_payout_enabled, version, created_at, updated_at
		FROM ledger_accounts
		WHERE partner_id = $1
		FOR UPDATE
	`

	var a settlement.Account
	err := r.querier.QueryRow(ctx, query, partnerID).Scan(
		&a.PartnerID,
		&a.Current,
		&a.Hold,
		&a.PendingIncoming,
		&a.LifetimePaidOut,
		&a.PayoutEnabled,
		&a.InstantPayoutEnable,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settlement.ErrAccountNotFound{PartnerID: partnerID}
		}
		r.logger.Error("Failed to lock ledger account for update", "partner_id", partnerID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock ledger account for update: %w", err)
	}

	return &a, nil
}
