package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops-rental-core/internal/domain/settlement"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLedgerAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerAccountRepository{querier: mock, logger: logger}

	acc := &settlement.Account{
		PartnerID:     uuid.New(),
		PayoutEnabled: true,
		Version:       1,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	query := `
		INSERT INTO ledger_accounts \(partner_id, current_balance, hold_balance, pending_incoming, lifetime_paid_out, payout_enabled, instant_payout_enabled, version, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.PartnerID, acc.Current, acc.Hold, acc.PendingIncoming, acc.LifetimePaidOut, acc.PayoutEnabled, acc.InstantPayoutEnable, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(acc.PartnerID, acc.Current, acc.Hold, acc.PendingIncoming, acc.LifetimePaidOut, acc.PayoutEnabled, acc.InstantPayoutEnable, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create ledger account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerAccountRepository_GetByPartnerID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerAccountRepository{querier: mock, logger: logger}
	partnerID := uuid.New()
	now := time.Now()

	expected := &settlement.Account{
		PartnerID:       partnerID,
		Current:         150000,
		Hold:            20000,
		PendingIncoming: 30000,
		LifetimePaidOut: 500000,
		PayoutEnabled:   true,
		Version:         7,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	query := `
		SELECT partner_id, current_balance, hold_balance, pending_incoming, lifetime_paid_out, payout_enabled, instant_payout_enabled, version, created_at, updated_at
		FROM ledger_accounts
		WHERE partner_id = \$1
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"partner_id", "current_balance", "hold_balance", "pending_incoming", "lifetime_paid_out", "payout_enabled", "instant_payout_enabled", "version", "created_at", "updated_at"}).
			AddRow(expected.PartnerID, expected.Current, expected.Hold, expected.PendingIncoming, expected.LifetimePaidOut, expected.PayoutEnabled, expected.InstantPayoutEnable, expected.Version, expected.CreatedAt, expected.UpdatedAt)

		mock.ExpectQuery(query).WithArgs(partnerID).WillReturnRows(rows)

		acc, err := repo.GetByPartnerID(ctx, partnerID)
		assert.NoError(t, err)
		assert.Equal(t, expected, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(partnerID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByPartnerID(ctx, partnerID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		var notFoundErr settlement.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, partnerID, notFoundErr.PartnerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerAccountRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerAccountRepository{querier: mock, logger: logger}
	now := time.Now()

	acc := &settlement.Account{
		PartnerID:     uuid.New(),
		Current:       100000,
		Hold:          10000,
		PayoutEnabled: true,
		Version:       3,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		UPDATE ledger_accounts
		SET current_balance = \$1, hold_balance = \$2, pending_incoming = \$3, lifetime_paid_out = \$4, payout_enabled = \$5, instant_payout_enabled = \$6, version = \$7, updated_at = \$8
		WHERE partner_id = \$9 AND version = \$10
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.Current, acc.Hold, acc.PendingIncoming, acc.LifetimePaidOut, acc.PayoutEnabled, acc.InstantPayoutEnable, acc.Version, acc.UpdatedAt, acc.PartnerID, acc.Version-1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.Current, acc.Hold, acc.PendingIncoming, acc.LifetimePaidOut, acc.PayoutEnabled, acc.InstantPayoutEnable, acc.Version, acc.UpdatedAt, acc.PartnerID, acc.Version-1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, acc)
		assert.Error(t, err)
		var staleErr settlement.ErrStaleAccount
		assert.ErrorAs(t, err, &staleErr)
		assert.Equal(t, acc.PartnerID, staleErr.PartnerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invariant violation rejected before db", func(t *testing.T) {
		bad := &settlement.Account{
			PartnerID: uuid.New(),
			Current:   1000,
			Hold:      5000, // hold exceeds current
			Version:   2,
		}

		err := repo.Update(ctx, bad)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "refusing to persist ledger account")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerAccountRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerAccountRepository{querier: mock, logger: logger}
	partnerID := uuid.New()
	now := time.Now()

	query := `
		SELECT partner_id, current_balance, hold_balance, pending_incoming, lifetime_paid_out, payout_enabled, instant_payout_enabled, version, created_at, updated_at
		FROM ledger_accounts
		WHERE partner_id = \$1
		FOR UPDATE
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"partner_id", "current_balance", "hold_balance", "pending_incoming", "lifetime_paid_out", "payout_enabled", "instant_payout_enabled", "version", "created_at", "updated_at"}).
			AddRow(partnerID, int64(5000), int64(0), int64(0), int64(0), true, false, 1, now, now)

		mock.ExpectQuery(query).WithArgs(partnerID).WillReturnRows(rows)

		acc, err := repo.LockForUpdate(ctx, partnerID)
		assert.NoError(t, err)
		assert.Equal(t, partnerID, acc.PartnerID)
		assert.Equal(t, int64(5000), acc.Current)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(partnerID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.LockForUpdate(ctx, partnerID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		var notFoundErr settlement.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
