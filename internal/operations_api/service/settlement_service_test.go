package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fleetops-rental-core/internal/domain/settlement"
)

type MockLedgerAccountRepository struct {
	mock.Mock
}

func (m *MockLedgerAccountRepository) Create(ctx context.Context, a *settlement.Account) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockLedgerAccountRepository) GetByPartnerID(ctx context.Context, partnerID uuid.UUID) (*settlement.Account, error) {
	args := m.Called(ctx, partnerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Account), args.Error(1)
}

func (m *MockLedgerAccountRepository) Update(ctx context.Context, a *settlement.Account) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockLedgerAccountRepository) LockForUpdate(ctx context.Context, partnerID uuid.UUID) (*settlement.Account, error) {
	args := m.Called(ctx, partnerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Account), args.Error(1)
}

func (m *MockLedgerAccountRepository) WithTx(tx pgx.Tx) settlement.AccountRepository {
	return m
}

type MockLedgerEventRepository struct {
	mock.Mock
}

func (m *MockLedgerEventRepository) Append(ctx context.Context, event *settlement.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockLedgerEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*settlement.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Event), args.Error(1)
}

func (m *MockLedgerEventRepository) GetByCommandID(ctx context.Context, commandID uuid.UUID) (*settlement.Event, error) {
	args := m.Called(ctx, commandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Event), args.Error(1)
}

func (m *MockLedgerEventRepository) GetByRefEventID(ctx context.Context, refEventID uuid.UUID) (*settlement.Event, error) {
	args := m.Called(ctx, refEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Event), args.Error(1)
}

func (m *MockLedgerEventRepository) GetByPartnerID(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*settlement.Event, error) {
	args := m.Called(ctx, partnerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*settlement.Event), args.Error(1)
}

func (m *MockLedgerEventRepository) CountByPartnerID(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, partnerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerEventRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*settlement.Event, error) {
	args := m.Called(ctx, startTime, endTime, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*settlement.Event), args.Error(1)
}

type settlementServiceMocks struct {
	accountRepo *MockLedgerAccountRepository
	eventRepo   *MockLedgerEventRepository
}

// newSettlementService wires only the read-side collaborators. The
// transactional paths lock a real database row and are covered by the
// repository tests with pgxmock.
func newSettlementService(t *testing.T) (SettlementService, *settlementServiceMocks) {
	t.Helper()
	m := &settlementServiceMocks{
		accountRepo: &MockLedgerAccountRepository{},
		eventRepo:   &MockLedgerEventRepository{},
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	svc := NewSettlementService(logger, nil, m.accountRepo, m.eventRepo, nil, nil, nil, nil, time.Minute)
	return svc, m
}

func TestSettlementService_GetAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, m := newSettlementService(t)
		partnerID := uuid.New()
		acc := settlement.NewAccount(partnerID)

		m.accountRepo.On("GetByPartnerID", ctx, partnerID).Return(acc, nil).Once()

		got, err := svc.GetAccount(ctx, partnerID)

		require.NoError(t, err)
		assert.Equal(t, acc, got)
		m.accountRepo.AssertExpectations(t)
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		svc, m := newSettlementService(t)
		partnerID := uuid.New()

		m.accountRepo.On("GetByPartnerID", ctx, partnerID).Return(nil, settlement.ErrAccountNotFound{PartnerID: partnerID}).Once()

		_, err := svc.GetAccount(ctx, partnerID)

		var notFound settlement.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestSettlementService_GetEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, m := newSettlementService(t)
		partnerID := uuid.New()
		events := []*settlement.Event{
			{ID: uuid.New(), PartnerID: partnerID, Type: settlement.EventAccrual, Amount: 20000},
			{ID: uuid.New(), PartnerID: partnerID, Type: settlement.EventSettlement, Amount: 17000},
		}

		m.eventRepo.On("GetByPartnerID", ctx, partnerID, 50, 50).Return(events, nil).Once()
		m.eventRepo.On("CountByPartnerID", ctx, partnerID).Return(int64(102), nil).Once()

		got, total, err := svc.GetEvents(ctx, partnerID, 2, 50)

		require.NoError(t, err)
		assert.Equal(t, events, got)
		assert.Equal(t, int64(102), total)
		m.eventRepo.AssertExpectations(t)
	})

	t.Run("CountErrorPropagates", func(t *testing.T) {
		svc, m := newSettlementService(t)
		partnerID := uuid.New()

		m.eventRepo.On("GetByPartnerID", ctx, partnerID, 50, 0).Return([]*settlement.Event{}, nil).Once()
		m.eventRepo.On("CountByPartnerID", ctx, partnerID).Return(int64(0), errors.New("mongo down")).Once()

		_, _, err := svc.GetEvents(ctx, partnerID, 1, 50)

		assert.Error(t, err)
	})
}

func TestSettlementService_ReplayBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("ReplayMatchesStoredAccount", func(t *testing.T) {
		svc, m := newSettlementService(t)
		partnerID := uuid.New()
		bookingID := uuid.New()

		acc := settlement.NewAccount(partnerID)
		var events []*settlement.Event

		ev, err := acc.AccruePending(20000, bookingID)
		require.NoError(t, err)
		events = append(events, ev)

		ev, err = acc.RecognizeRevenue(20000, 1500, bookingID)
		require.NoError(t, err)
		events = append(events, ev)

		ev, err = acc.HoldFunds(5000, "damage claim pending", "ops@example.com", nil)
		require.NoError(t, err)
		events = append(events, ev)

		m.accountRepo.On("GetByPartnerID", ctx, partnerID).Return(acc, nil).Once()
		m.eventRepo.On("GetByPartnerID", ctx, partnerID, 500, 0).Return(events, nil).Once()

		snapshot, stored, err := svc.ReplayBalance(ctx, partnerID)

		require.NoError(t, err)
		assert.Equal(t, stored.Current, snapshot.Current)
		assert.Equal(t, stored.Hold, snapshot.Hold)
		assert.Equal(t, stored.PendingIncoming, snapshot.PendingIncoming)
		assert.Equal(t, stored.LifetimePaidOut, snapshot.LifetimePaidOut)
		assert.Equal(t, int64(17000), snapshot.Current)
		assert.Equal(t, int64(5000), snapshot.Hold)
	})

	t.Run("EventFetchErrorPropagates", func(t *testing.T) {
		svc, m := newSettlementService(t)
		partnerID := uuid.New()

		m.accountRepo.On("GetByPartnerID", ctx, partnerID).Return(settlement.NewAccount(partnerID), nil).Once()
		m.eventRepo.On("GetByPartnerID", ctx, partnerID, 500, 0).Return(nil, errors.New("mongo down")).Once()

		_, _, err := svc.ReplayBalance(ctx, partnerID)

		assert.Error(t, err)
	})
}

var _ settlement.AccountRepository = (*MockLedgerAccountRepository)(nil)
var _ settlement.EventRepository = (*MockLedgerEventRepository)(nil)
