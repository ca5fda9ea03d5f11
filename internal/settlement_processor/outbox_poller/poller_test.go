package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fleetops-rental-core/internal/config"
	"github.com/fleetops-rental-core/internal/domain/outbox"
	"github.com/fleetops-rental-core/internal/domain/shared"
)

// MockEventPublisher mocks the EventPublisher interface
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func newTestPoller(outboxRepo outbox.Repository, publisher EventPublisher) *Poller {
	return NewPoller(
		&config.OutboxConfig{
			PollingInterval:  10 * time.Millisecond,
			BatchSize:        5,
			MaxRetryAttempts: 3,
		},
		outboxRepo,
		publisher,
		slog.Default(),
	)
}

func TestPoller_ProcessPendingMessages(t *testing.T) {
	t.Run("PublishesAllPending", func(t *testing.T) {
		mockRepo := &MockOutboxRepo{}
		mockPublisher := &MockEventPublisher{}
		poller := newTestPoller(mockRepo, mockPublisher)

		messages := []*outbox.Message{
			stagedMessage(t),
			stagedMessage(t),
		}
		messages[1].ID = 43

		mockRepo.On("GetPending", mock.Anything, 5).Return(messages, nil).Once()
		mockPublisher.On("PublishEvent", mock.Anything, messages[0]).Return(nil).Once()
		mockPublisher.On("PublishEvent", mock.Anything, messages[1]).Return(nil).Once()

		err := poller.processPendingMessages(context.Background())

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	t.Run("NothingPending", func(t *testing.T) {
		mockRepo := &MockOutboxRepo{}
		mockPublisher := &MockEventPublisher{}
		poller := newTestPoller(mockRepo, mockPublisher)

		mockRepo.On("GetPending", mock.Anything, 5).Return([]*outbox.Message{}, nil).Once()

		err := poller.processPendingMessages(context.Background())

		assert.NoError(t, err)
		mockPublisher.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything)
	})

	t.Run("FetchErrorPropagates", func(t *testing.T) {
		mockRepo := &MockOutboxRepo{}
		mockPublisher := &MockEventPublisher{}
		poller := newTestPoller(mockRepo, mockPublisher)

		mockRepo.On("GetPending", mock.Anything, 5).Return(nil, errors.New("pg down")).Once()

		err := poller.processPendingMessages(context.Background())

		assert.Error(t, err)
	})

	t.Run("PublishFailureIncrementsAttempts", func(t *testing.T) {
		mockRepo := &MockOutboxRepo{}
		mockPublisher := &MockEventPublisher{}
		poller := newTestPoller(mockRepo, mockPublisher)

		msg := stagedMessage(t)
		msg.Attempts = 0

		mockRepo.On("GetPending", mock.Anything, 5).Return([]*outbox.Message{msg}, nil).Once()
		mockPublisher.On("PublishEvent", mock.Anything, msg).Return(errors.New("mongo down")).Once()
		mockRepo.On("IncrementAttempts", mock.Anything, msg.ID).Return(nil).Once()

		err := poller.processPendingMessages(context.Background())

		assert.NoError(t, err, "one failed message does not abort the batch")
		mockRepo.AssertExpectations(t)
		mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MaxAttemptsMarksFailed", func(t *testing.T) {
		mockRepo := &MockOutboxRepo{}
		mockPublisher := &MockEventPublisher{}
		poller := newTestPoller(mockRepo, mockPublisher)

		msg := stagedMessage(t)
		msg.Attempts = 2 // this attempt is the third and last

		mockRepo.On("GetPending", mock.Anything, 5).Return([]*outbox.Message{msg}, nil).Once()
		mockPublisher.On("PublishEvent", mock.Anything, msg).Return(errors.New("mongo down")).Once()
		mockRepo.On("IncrementAttempts", mock.Anything, msg.ID).Return(nil).Once()
		mockRepo.On("UpdateStatus", mock.Anything, msg.ID, shared.OutboxStatusFailedToPublish).Return(nil).Once()

		err := poller.processPendingMessages(context.Background())

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("FailureOnOneMessageDoesNotStopOthers", func(t *testing.T) {
		mockRepo := &MockOutboxRepo{}
		mockPublisher := &MockEventPublisher{}
		poller := newTestPoller(mockRepo, mockPublisher)

		failing := stagedMessage(t)
		healthy := stagedMessage(t)
		healthy.ID = 99

		mockRepo.On("GetPending", mock.Anything, 5).Return([]*outbox.Message{failing, healthy}, nil).Once()
		mockPublisher.On("PublishEvent", mock.Anything, failing).Return(errors.New("mongo down")).Once()
		mockRepo.On("IncrementAttempts", mock.Anything, failing.ID).Return(nil).Once()
		mockPublisher.On("PublishEvent", mock.Anything, healthy).Return(nil).Once()

		err := poller.processPendingMessages(context.Background())

		assert.NoError(t, err)
		mockPublisher.AssertExpectations(t)
	})
}

func TestPoller_StartStopsOnContextCancel(t *testing.T) {
	mockRepo := &MockOutboxRepo{}
	mockPublisher := &MockEventPublisher{}
	poller := newTestPoller(mockRepo, mockPublisher)

	mockRepo.On("GetPending", mock.Anything, 5).Return([]*outbox.Message{}, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
