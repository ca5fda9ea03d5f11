package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleetops-rental-core/internal/domain/partner"
)

const (
	// CommissionHistoryCollectionName is the name of the commission history collection
	CommissionHistoryCollectionName = "commission_history"
)

// CommissionHistoryRepository implements the partner.HistoryRepository
// interface for MongoDB
type CommissionHistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewCommissionHistoryRepository creates a new MongoDB commission history repository
func NewCommissionHistoryRepository(logger *slog.Logger, db *mongo.Database) partner.HistoryRepository {
	return &CommissionHistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a commission change record. Entries are never updated.
func (r *CommissionHistoryRepository) Append(ctx context.Context, entry *partner.HistoryEntry) error {
	collection := r.db.Collection(CommissionHistoryCollectionName)

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to append commission history entry",
			"partner_id", entry.PartnerID.String(),
			"error", err)
		return fmt.Errorf("failed to append commission history entry: %w", err)
	}

	return nil
}

// GetByPartnerID retrieves paginated commission history for a partner,
// newest first.
func (r *CommissionHistoryRepository) GetByPartnerID(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*partner.HistoryEntry, error) {
	collection := r.db.Collection(CommissionHistoryCollectionName)

	filter := bson.M{"partner_id": partnerID}
	opts := options.Find().
		SetSort(bson.M{"changed_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get commission history",
			"partner_id", partnerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get commission history: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*partner.HistoryEntry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode commission history entries",
			"partner_id", partnerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode commission history entries: %w", err)
	}

	return entries, nil
}

// CountByPartnerID counts the commission history entries for a partner
func (r *CommissionHistoryRepository) CountByPartnerID(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	collection := r.db.Collection(CommissionHistoryCollectionName)

	filter := bson.M{"partner_id": partnerID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count commission history entries",
			"partner_id", partnerID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count commission history entries: %w", err)
	}

	return count, nil
}
