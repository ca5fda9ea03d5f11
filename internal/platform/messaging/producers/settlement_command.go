package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/fleetops-rental-core/internal/config"
)

// SettlementCommandProducer publishes settlement commands keyed by partner
// id, so all commands for one ledger account land on the same partition and
// are processed in order.
type SettlementCommandProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewSettlementCommandProducer creates the producer and ensures the
// settlement topic exists.
func NewSettlementCommandProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*SettlementCommandProducer, error) {
	if cfg.SettlementTopic == "" {
		return nil, fmt.Errorf("kafka settlement topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for settlement producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.SettlementTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure settlement topic %s exists: %w", cfg.SettlementTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.SettlementTopic,
		Balancer:     &kafka.Hash{}, // partner-keyed ordering
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.SettlementTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.SettlementTopic, "count", len(messages))
			}
		},
	}

	return &SettlementCommandProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.SettlementTopic,
	}, nil
}

// Publish marshals the command and writes it under the given key
func (p *SettlementCommandProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement command: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish settlement command",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish settlement command to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published settlement command",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *SettlementCommandProducer) Close() error {
	p.logger.Info("Closing settlement command producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close settlement kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
