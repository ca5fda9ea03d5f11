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

// MockFailureRepo for testing
type MockFailureRepo struct {
	mock.Mock
}

func (m *MockFailureRepo) Record(ctx context.Context, f *settlement.Failure) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFailureRepo) GetByCommandID(ctx context.Context, commandID uuid.UUID) (*settlement.Failure, error) {
	args := m.Called(ctx, commandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Failure), args.Error(1)
}

func TestFailureRecorder_RecordFailure(t *testing.T) {
	logger := slog.Default()
	command := &shared.SettlementCommand{
		CommandID:     uuid.New(),
		PartnerID:     uuid.New(),
		BookingID:     uuid.New(),
		Type:          shared.CommandRevenueRecognize,
		Amount:        20000,
		CorrelationID: "corr1",
	}

	t.Run("RecordsNewFailure", func(t *testing.T) {
		mockRepo := &MockFailureRepo{}
		recorder := NewFailureRecorder(mockRepo, logger)
		mockRepo.On("GetByCommandID", mock.Anything, command.CommandID).Return(nil, nil).Once()
		mockRepo.On("Record", mock.Anything, mock.MatchedBy(func(f *settlement.Failure) bool {
			return f.CommandID == command.CommandID &&
				f.PartnerID == command.PartnerID &&
				f.Reason == string(shared.FailureReasonInvalidRate) &&
				time.Since(f.FailedAt) < time.Second
		})).Return(nil).Once()

		err := recorder.RecordFailure(context.Background(), command, string(shared.FailureReasonInvalidRate))

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("DeduplicatesOnCommandID", func(t *testing.T) {
		mockRepo := &MockFailureRepo{}
		recorder := NewFailureRecorder(mockRepo, logger)
		existing := &settlement.Failure{CommandID: command.CommandID}
		mockRepo.On("GetByCommandID", mock.Anything, command.CommandID).Return(existing, nil).Once()

		err := recorder.RecordFailure(context.Background(), command, string(shared.FailureReasonInvalidRate))

		assert.NoError(t, err)
		mockRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("RecordErrorPropagates", func(t *testing.T) {
		mockRepo := &MockFailureRepo{}
		recorder := NewFailureRecorder(mockRepo, logger)
		mockRepo.On("GetByCommandID", mock.Anything, command.CommandID).Return(nil, nil).Once()
		mockRepo.On("Record", mock.Anything, mock.Anything).Return(errors.New("mongo down")).Once()

		err := recorder.RecordFailure(context.Background(), command, string(shared.FailureReasonInvalidAmount))

		assert.Error(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("LookupErrorStillRecords", func(t *testing.T) {
		mockRepo := &MockFailureRepo{}
		recorder := NewFailureRecorder(mockRepo, logger)
		mockRepo.On("GetByCommandID", mock.Anything, command.CommandID).Return(nil, errors.New("timeout")).Once()
		mockRepo.On("Record", mock.Anything, mock.Anything).Return(nil).Once()

		err := recorder.RecordFailure(context.Background(), command, string(shared.FailureReasonAccountNotFound))

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}
