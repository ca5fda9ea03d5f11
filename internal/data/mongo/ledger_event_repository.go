// Package mongo provides MongoDB implementations of the append-only audit
// stores: ledger events and commission history. Documents are written once
// and never updated.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleetops-rental-core/internal/domain/settlement"
)

const (
	// LedgerEventCollectionName is the name of the ledger event collection
	LedgerEventCollectionName = "ledger_events"
)

// LedgerEventRepository implements the settlement.EventRepository interface
// for MongoDB
type LedgerEventRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerEventRepository creates a new MongoDB ledger event repository
func NewLedgerEventRepository(logger *slog.Logger, db *mongo.Database) settlement.EventRepository {
	return &LedgerEventRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a new ledger event after checking for duplicates.
// Returns ErrDuplicateEvent if an event with the same id already exists.
func (r *LedgerEventRepository) Append(ctx context.Context, event *settlement.Event) error {
	collection := r.db.Collection(LedgerEventCollectionName)

	existing, err := r.GetByID(ctx, event.ID)
	if err != nil && !errors.Is(err, settlement.ErrEventNotFound{}) {
		r.logger.Error("Failed to check for existing ledger event",
			"event_id", event.ID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing ledger event: %w", err)
	}

	if existing != nil {
		return settlement.ErrDuplicateEvent{EventID: event.ID}
	}

	_, err = collection.InsertOne(ctx, event)
	if err != nil {
		r.logger.Error("Failed to append ledger event",
			"event_id", event.ID.String(),
			"error", err)
		return fmt.Errorf("failed to append ledger event: %w", err)
	}

	return nil
}

// GetByID retrieves a ledger event by its id.
// Returns ErrEventNotFound if no event exists.
func (r *LedgerEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*settlement.Event, error) {
	collection := r.db.Collection(LedgerEventCollectionName)

	filter := bson.M{"id": id}
	var event settlement.Event
	err := collection.FindOne(ctx, filter).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, settlement.ErrEventNotFound{EventID: id}
		}
		r.logger.Error("Failed to get ledger event",
			"event_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger event: %w", err)
	}

	return &event, nil
}

// GetByCommandID retrieves the event produced by a settlement command.
// Returns nil if no event exists, enabling idempotent command processing.
func (r *LedgerEventRepository) GetByCommandID(ctx context.Context, commandID uuid.UUID) (*settlement.Event, error) {
	if commandID == uuid.Nil {
		return nil, errors.New("command id cannot be nil")
	}

	collection := r.db.Collection(LedgerEventCollectionName)

	filter := bson.M{"command_id": commandID}
	var event settlement.Event
	err := collection.FindOne(ctx, filter).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No event recorded for this command yet
		}
		r.logger.Error("Failed to get ledger event by command ID",
			"command_id", commandID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger event by command ID: %w", err)
	}

	return &event, nil
}

// GetByRefEventID retrieves a compensating event referencing an original
// event. Returns nil if no compensation has been recorded.
func (r *LedgerEventRepository) GetByRefEventID(ctx context.Context, refEventID uuid.UUID) (*settlement.Event, error) {
	if refEventID == uuid.Nil {
		return nil, errors.New("ref event id cannot be nil")
	}

	collection := r.db.Collection(LedgerEventCollectionName)

	filter := bson.M{"ref_event_id": refEventID}
	var event settlement.Event
	err := collection.FindOne(ctx, filter).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get ledger event by ref event ID",
			"ref_event_id", refEventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger event by ref event ID: %w", err)
	}

	return &event, nil
}

// GetByPartnerID retrieves paginated ledger events for a partner.
// Results are sorted by creation time in ascending order so that a page
// walk replays the account history in the order it happened.
func (r *LedgerEventRepository) GetByPartnerID(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*settlement.Event, error) {
	collection := r.db.Collection(LedgerEventCollectionName)

	filter := bson.M{"partner_id": partnerID}
	opts := options.Find().
		SetSort(bson.M{"created_at": 1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger events",
			"partner_id", partnerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*settlement.Event
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode ledger events",
			"partner_id", partnerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger events: %w", err)
	}

	return events, nil
}

// CountByPartnerID counts the total number of ledger events for a partner
func (r *LedgerEventRepository) CountByPartnerID(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	collection := r.db.Collection(LedgerEventCollectionName)

	filter := bson.M{"partner_id": partnerID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count ledger events",
			"partner_id", partnerID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count ledger events: %w", err)
	}

	return count, nil
}

// GetByTimeRange retrieves paginated ledger events within the specified time
// window. Results are sorted by creation time in descending order for
// recent-first access.
func (r *LedgerEventRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*settlement.Event, error) {
	collection := r.db.Collection(LedgerEventCollectionName)

	filter := bson.M{
		"created_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger events by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to get ledger events by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*settlement.Event
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode ledger events",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger events: %w", err)
	}

	return events, nil
}
