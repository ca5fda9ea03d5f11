package components

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/domain/shared"
)

// MockEventRepo for testing
type MockEventRepo struct {
	mock.Mock
}

func (m *MockEventRepo) Append(ctx context.Context, event *settlement.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*settlement.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Event), args.Error(1)
}

func (m *MockEventRepo) GetByCommandID(ctx context.Context, commandID uuid.UUID) (*settlement.Event, error) {
	args := m.Called(ctx, commandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Event), args.Error(1)
}

func (m *MockEventRepo) GetByRefEventID(ctx context.Context, refEventID uuid.UUID) (*settlement.Event, error) {
	args := m.Called(ctx, refEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Event), args.Error(1)
}

func (m *MockEventRepo) GetByPartnerID(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*settlement.Event, error) {
	args := m.Called(ctx, partnerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*settlement.Event), args.Error(1)
}

func (m *MockEventRepo) CountByPartnerID(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, partnerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEventRepo) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*settlement.Event, error) {
	args := m.Called(ctx, startTime, endTime, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*settlement.Event), args.Error(1)
}

func TestCommandValidator_Validate(t *testing.T) {
	mockRepo := &MockEventRepo{}
	logger := slog.Default()
	validator := NewCommandValidator(mockRepo, logger)

	tests := []struct {
		name    string
		command *shared.SettlementCommand
		wantErr error
	}{
		{
			name: "valid accrual",
			command: &shared.SettlementCommand{
				CommandID: uuid.New(),
				Type:      shared.CommandRevenueAccrue,
				Amount:    20000,
			},
		},
		{
			name: "valid recognition",
			command: &shared.SettlementCommand{
				CommandID:         uuid.New(),
				Type:              shared.CommandRevenueRecognize,
				Amount:            20000,
				CommissionRateBps: 1500,
			},
		},
		{
			name: "valid compensation",
			command: &shared.SettlementCommand{
				CommandID:  uuid.New(),
				Type:       shared.CommandPayoutCompensate,
				Amount:     5000,
				RefEventID: uuid.New(),
			},
		},
		{
			name: "unknown command type",
			command: &shared.SettlementCommand{
				CommandID: uuid.New(),
				Type:      "LEDGER_EDIT",
				Amount:    100,
			},
			wantErr: shared.ErrInvalidCommandType,
		},
		{
			name: "zero amount",
			command: &shared.SettlementCommand{
				CommandID: uuid.New(),
				Type:      shared.CommandRevenueAccrue,
				Amount:    0,
			},
			wantErr: errors.New("amount must be positive"),
		},
		{
			name: "commission rate above 10000",
			command: &shared.SettlementCommand{
				CommandID:         uuid.New(),
				Type:              shared.CommandRevenueRecognize,
				Amount:            20000,
				CommissionRateBps: 12000,
			},
			wantErr: shared.ErrInvalidRate,
		},
		{
			name: "rate ignored outside recognition",
			command: &shared.SettlementCommand{
				CommandID:         uuid.New(),
				Type:              shared.CommandRevenueAccrue,
				Amount:            20000,
				CommissionRateBps: 12000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(context.Background(), tt.command)
			if tt.wantErr != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCommandValidator_CheckIdempotency(t *testing.T) {
	logger := slog.Default()

	t.Run("NotYetApplied", func(t *testing.T) {
		mockRepo := &MockEventRepo{}
		validator := NewCommandValidator(mockRepo, logger)
		command := &shared.SettlementCommand{
			CommandID: uuid.New(),
			Type:      shared.CommandRevenueAccrue,
			Amount:    100,
		}
		mockRepo.On("GetByCommandID", mock.Anything, command.CommandID).Return(nil, nil).Once()

		skip, err := validator.CheckIdempotency(context.Background(), command)

		assert.NoError(t, err)
		assert.False(t, skip)
		mockRepo.AssertExpectations(t)
	})

	t.Run("AlreadyApplied", func(t *testing.T) {
		mockRepo := &MockEventRepo{}
		validator := NewCommandValidator(mockRepo, logger)
		command := &shared.SettlementCommand{
			CommandID: uuid.New(),
			Type:      shared.CommandRevenueAccrue,
			Amount:    100,
		}
		existing := &settlement.Event{ID: uuid.New(), CommandID: command.CommandID}
		mockRepo.On("GetByCommandID", mock.Anything, command.CommandID).Return(existing, nil).Once()

		skip, err := validator.CheckIdempotency(context.Background(), command)

		assert.NoError(t, err)
		assert.True(t, skip)
		mockRepo.AssertExpectations(t)
	})

	t.Run("RepoErrorPropagates", func(t *testing.T) {
		mockRepo := &MockEventRepo{}
		validator := NewCommandValidator(mockRepo, logger)
		command := &shared.SettlementCommand{
			CommandID: uuid.New(),
			Type:      shared.CommandRevenueAccrue,
			Amount:    100,
		}
		mockRepo.On("GetByCommandID", mock.Anything, command.CommandID).Return(nil, errors.New("mongo down")).Once()

		_, err := validator.CheckIdempotency(context.Background(), command)

		assert.Error(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("CompensationChecksRefEvent", func(t *testing.T) {
		mockRepo := &MockEventRepo{}
		validator := NewCommandValidator(mockRepo, logger)
		refEventID := uuid.New()
		command := &shared.SettlementCommand{
			CommandID:  uuid.New(),
			Type:       shared.CommandPayoutCompensate,
			Amount:     5000,
			RefEventID: refEventID,
		}
		mockRepo.On("GetByCommandID", mock.Anything, command.CommandID).Return(nil, nil).Once()
		mockRepo.On("GetByRefEventID", mock.Anything, refEventID).Return(nil, nil).Once()

		skip, err := validator.CheckIdempotency(context.Background(), command)

		assert.NoError(t, err)
		assert.False(t, skip)
		mockRepo.AssertExpectations(t)
	})

	t.Run("DuplicateCompensationUnderFreshCommandID", func(t *testing.T) {
		mockRepo := &MockEventRepo{}
		validator := NewCommandValidator(mockRepo, logger)
		refEventID := uuid.New()
		command := &shared.SettlementCommand{
			CommandID:  uuid.New(),
			Type:       shared.CommandPayoutCompensate,
			Amount:     5000,
			RefEventID: refEventID,
		}
		compensation := &settlement.Event{ID: uuid.New(), Type: settlement.EventCredit, RefEventID: refEventID}
		mockRepo.On("GetByCommandID", mock.Anything, command.CommandID).Return(nil, nil).Once()
		mockRepo.On("GetByRefEventID", mock.Anything, refEventID).Return(compensation, nil).Once()

		skip, err := validator.CheckIdempotency(context.Background(), command)

		assert.NoError(t, err)
		assert.True(t, skip, "a payout is never compensated twice")
		mockRepo.AssertExpectations(t)
	})
}
