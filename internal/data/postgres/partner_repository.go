package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fleetops-rental-core/internal/domain/partner"
	"github.com/fleetops-rental-core/internal/platform/persistence"
)

// PartnerRepository implements the partner.Repository interface for PostgreSQL
type PartnerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPartnerRepository creates a new PostgreSQL partner repository
func NewPartnerRepository(logger *slog.Logger, db *persistence.PostgresDB) partner.Repository {
	return &PartnerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *PartnerRepository) WithTx(tx pgx.Tx) partner.Repository {
	return &PartnerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new partner in the database
func (r *PartnerRepository) Create(ctx context.Context, p *partner.Partner) error {
	query := `
		INSERT INTO partners (id, name, active_fleet_size, commission_rate_bps, rate_overridden, override_tier, approval_mode, approval_threshold, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.Name,
		p.ActiveFleetSize,
		p.CommissionRateBps,
		p.RateOverridden,
		p.OverrideTier,
		p.ApprovalMode,
		p.ApprovalThreshold,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create partner", "id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to create partner: %w", err)
	}

	return nil
}

// GetByID retrieves a partner by its ID
func (r *PartnerRepository) GetByID(ctx context.Context, id uuid.UUID) (*partner.Partner, error) {
	query := `
		SELECT id, name, active_fleet_size, commission_rate_bps, rate_overridden, override_tier, approval_mode, approval_threshold, version, created_at, updated_at
		FROM partners
		WHERE id = $1
	`

	var p partner.Partner
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.ActiveFleetSize,
		&p.CommissionRateBps,
		&p.RateOverridden,
		&p.OverrideTier,
		&p.ApprovalMode,
		&p.ApprovalThreshold,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, partner.ErrPartnerNotFound{PartnerID: id}
		}
		r.logger.Error("Failed to get partner", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}

	return &p, nil
}

// Update persists a mutated partner using optimistic locking on Version.
// Returns ErrStalePartner if the partner was modified between read and update.
func (r *PartnerRepository) Update(ctx context.Context, p *partner.Partner) error {
	query := `
		UPDATE partners
		SET name = $1, active_fleet_size = $2, commission_rate_bps = $3, rate_overridden = $4, override_tier = $5, approval_mode = $6, approval_threshold = $7, version = $8, updated_at = $9
		WHERE id = $10 AND version = $11
	`

	result, err := r.querier.Exec(ctx, query,
		p.Name,
		p.ActiveFleetSize,
		p.CommissionRateBps,
		p.RateOverridden,
		p.OverrideTier,
		p.ApprovalMode,
		p.ApprovalThreshold,
		p.Version,
		p.UpdatedAt,
		p.ID,
		p.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update partner", "id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to update partner: %w", err)
	}

	if result.RowsAffected() == 0 {
		return partner.ErrStalePartner{PartnerID: p.ID}
	}

	return nil
}
