package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fleetops-rental-core/internal/domain/shared"
	"github.com/fleetops-rental-core/internal/platform/messaging/producers"
	"github.com/fleetops-rental-core/internal/settlement_processor/service"
)

// SettlementCommandHandler handles incoming settlement command messages from Kafka
type SettlementCommandHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewSettlementCommandHandler creates a new handler
func NewSettlementCommandHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *SettlementCommandHandler {
	return &SettlementCommandHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *SettlementCommandHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var command shared.SettlementCommand
	if err := json.Unmarshal(value, &command); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal settlement command from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Poison message: park it in the DLQ rather than blocking the partition
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if command.CorrelationID != "" {
		logger = h.logger.With("correlation_id", command.CorrelationID)
	}

	logger.Info("Received settlement command for processing",
		"command_id", command.CommandID.String(),
		"partner_id", command.PartnerID.String(),
		"type", string(command.Type),
		"amount", command.Amount,
	)

	if err := h.processingService.ProcessCommand(ctx, &command); err != nil {
		logger.Error("Failed to process settlement command",
			"command_id", command.CommandID.String(),
			"partner_id", command.PartnerID.String(),
			"error", err,
		)
		return fmt.Errorf("processing settlement command %s failed: %w", command.CommandID.String(), err)
	}

	logger.Info("Successfully processed settlement command", "command_id", command.CommandID.String())
	return nil
}
