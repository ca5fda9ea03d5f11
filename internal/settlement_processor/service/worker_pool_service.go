package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/fleetops-rental-core/internal/domain/shared"
)

// WorkerPoolProcessingService implements the ProcessingService interface
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
	// Protects access to the results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// ProcessCommand submits a settlement command to the worker pool. Commands
// for the same partner arrive on the same partition and are awaited in
// order, so per-partner application order is preserved.
func (s *WorkerPoolProcessingService) ProcessCommand(ctx context.Context, command *shared.SettlementCommand) error {
	logger := s.logger
	if command.CorrelationID != "" {
		logger = s.logger.With("correlation_id", command.CorrelationID)
	}

	logger.Info("Submitting settlement command to worker pool",
		"command_id", command.CommandID.String(),
		"partner_id", command.PartnerID.String(),
	)

	resultChan := make(chan error, 1)

	commandID := command.CommandID.String()
	s.mu.Lock()
	s.results[commandID] = resultChan
	s.mu.Unlock()

	// Copy the command to avoid data races with the caller
	commandCopy := *command

	err := s.pool.Submit(func() {
		err := s.baseService.ProcessCommand(ctx, &commandCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, commandID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, commandID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit settlement command to worker pool",
			"command_id", command.CommandID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
