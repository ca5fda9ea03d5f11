package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops-rental-core/internal/domain/partner"
)

func TestPartnerRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PartnerRepository{querier: mock, logger: logger}

	p, err := partner.NewPartner("Coastal Rentals", 12)
	require.NoError(t, err)

	query := `
		INSERT INTO partners \(id, name, active_fleet_size, commission_rate_bps, rate_overridden, override_tier, approval_mode, approval_threshold, version, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.ID, p.Name, p.ActiveFleetSize, p.CommissionRateBps, p.RateOverridden, p.OverrideTier, p.ApprovalMode, p.ApprovalThreshold, p.Version, p.CreatedAt, p.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, p)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(p.ID, p.Name, p.ActiveFleetSize, p.CommissionRateBps, p.RateOverridden, p.OverrideTier, p.ApprovalMode, p.ApprovalThreshold, p.Version, p.CreatedAt, p.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create partner")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPartnerRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PartnerRepository{querier: mock, logger: logger}
	partnerID := uuid.New()

	query := `
		SELECT id, name, active_fleet_size, commission_rate_bps, rate_overridden, override_tier, approval_mode, approval_threshold, version, created_at, updated_at
		FROM partners
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		expected, err := partner.NewPartner("Coastal Rentals", 55)
		require.NoError(t, err)
		expected.ID = partnerID

		rows := pgxmock.NewRows([]string{"id", "name", "active_fleet_size", "commission_rate_bps", "rate_overridden", "override_tier", "approval_mode", "approval_threshold", "version", "created_at", "updated_at"}).
			AddRow(expected.ID, expected.Name, expected.ActiveFleetSize, expected.CommissionRateBps, expected.RateOverridden, expected.OverrideTier, expected.ApprovalMode, expected.ApprovalThreshold, expected.Version, expected.CreatedAt, expected.UpdatedAt)

		mock.ExpectQuery(query).WithArgs(partnerID).WillReturnRows(rows)

		got, err := repo.GetByID(ctx, partnerID)
		assert.NoError(t, err)
		assert.Equal(t, expected, got)
		assert.Equal(t, int32(1500), got.CommissionRateBps)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(partnerID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, partnerID)
		assert.Error(t, err)
		assert.Nil(t, got)
		var notFoundErr partner.ErrPartnerNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, partnerID, notFoundErr.PartnerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPartnerRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PartnerRepository{querier: mock, logger: logger}

	p, err := partner.NewPartner("Coastal Rentals", 12)
	require.NoError(t, err)
	require.NoError(t, p.SetApprovalMode(partner.ApprovalDynamic, 70))

	query := `
		UPDATE partners
		SET name = \$1, active_fleet_size = \$2, commission_rate_bps = \$3, rate_overridden = \$4, override_tier = \$5, approval_mode = \$6, approval_threshold = \$7, version = \$8, updated_at = \$9
		WHERE id = \$10 AND version = \$11
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.Name, p.ActiveFleetSize, p.CommissionRateBps, p.RateOverridden, p.OverrideTier, p.ApprovalMode, p.ApprovalThreshold, p.Version, p.UpdatedAt, p.ID, p.Version-1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, p)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.Name, p.ActiveFleetSize, p.CommissionRateBps, p.RateOverridden, p.OverrideTier, p.ApprovalMode, p.ApprovalThreshold, p.Version, p.UpdatedAt, p.ID, p.Version-1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, p)
		assert.Error(t, err)
		var staleErr partner.ErrStalePartner
		assert.ErrorAs(t, err, &staleErr)
		assert.Equal(t, p.ID, staleErr.PartnerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
