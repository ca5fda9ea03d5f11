package components

import (
	"log/slog"

	"github.com/fleetops-rental-core/internal/config"
	"github.com/fleetops-rental-core/internal/domain/outbox"
	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/platform/persistence"
	"github.com/fleetops-rental-core/internal/settlement_processor/service"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	pgDB *persistence.PostgresDB,
	accountRepo settlement.AccountRepository,
	outboxRepo outbox.Repository,
	eventRepo settlement.EventRepository,
	failureRepo settlement.FailureRepository,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	validator := NewCommandValidator(eventRepo, logger)
	accountManager := NewAccountManager(accountRepo, logger)
	outboxManager := NewOutboxManager(outboxRepo, logger)
	failureRecorder := NewFailureRecorder(failureRepo, logger)

	baseService := service.NewProcessingService(
		pgDB,
		validator,
		accountManager,
		outboxManager,
		failureRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
