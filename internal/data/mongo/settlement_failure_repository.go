package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fleetops-rental-core/internal/domain/settlement"
)

const (
	// SettlementFailureCollectionName is the name of the settlement failure collection
	SettlementFailureCollectionName = "settlement_failures"
)

// SettlementFailureRepository implements the settlement.FailureRepository
// interface for MongoDB
type SettlementFailureRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewSettlementFailureRepository creates a new MongoDB settlement failure repository
func NewSettlementFailureRepository(logger *slog.Logger, db *mongo.Database) settlement.FailureRepository {
	return &SettlementFailureRepository{
		db:     db,
		logger: logger,
	}
}

// Record stores a refused settlement command. Recording the same command
// twice is harmless; readers key on command_id.
func (r *SettlementFailureRepository) Record(ctx context.Context, f *settlement.Failure) error {
	collection := r.db.Collection(SettlementFailureCollectionName)

	_, err := collection.InsertOne(ctx, f)
	if err != nil {
		r.logger.Error("Failed to record settlement failure",
			"command_id", f.CommandID.String(),
			"partner_id", f.PartnerID.String(),
			"error", err)
		return fmt.Errorf("failed to record settlement failure: %w", err)
	}

	return nil
}

// GetByCommandID retrieves the failure recorded for a command, or nil when
// the command never failed.
func (r *SettlementFailureRepository) GetByCommandID(ctx context.Context, commandID uuid.UUID) (*settlement.Failure, error) {
	collection := r.db.Collection(SettlementFailureCollectionName)

	var f settlement.Failure
	err := collection.FindOne(ctx, bson.M{"command_id": commandID}).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get settlement failure",
			"command_id", commandID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get settlement failure: %w", err)
	}

	return &f, nil
}
