package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines ledger account persistence operations
type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	GetByPartnerID(ctx context.Context, partnerID uuid.UUID) (*Account, error)

	// Update persists a mutated account using optimistic locking on Version.
	// Returns ErrStaleAccount when the stored version no longer matches.
	Update(ctx context.Context, a *Account) error

	// LockForUpdate acquires a pessimistic row lock for settlement processing
	LockForUpdate(ctx context.Context, partnerID uuid.UUID) (*Account, error)

	WithTx(tx pgx.Tx) AccountRepository
}

// EventRepository manages the append-only ledger event audit trail,
// ordered by creation time per partner. The ordering is load-bearing for
// replay-based balance reconstruction.
type EventRepository interface {
	Append(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)

	// GetByCommandID supports idempotent command processing: a command whose
	// event already exists must not be applied twice. Returns nil when no
	// event exists for the command.
	GetByCommandID(ctx context.Context, commandID uuid.UUID) (*Event, error)

	// GetByRefEventID finds a compensating event referencing an original
	// event, used to make payout compensation idempotent.
	GetByRefEventID(ctx context.Context, refEventID uuid.UUID) (*Event, error)

	GetByPartnerID(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*Event, error)
	CountByPartnerID(ctx context.Context, partnerID uuid.UUID) (int64, error)
	GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*Event, error)
}

// ErrEventNotFound indicates a missing ledger event
type ErrEventNotFound struct {
	EventID uuid.UUID
}

func (e ErrEventNotFound) Error() string {
	return "ledger event not found: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrEventNotFound
func (e ErrEventNotFound) Is(target error) bool {
	t, ok := target.(ErrEventNotFound)
	if !ok {
		return false
	}
	if t.EventID == uuid.Nil {
		return true
	}
	return e.EventID == t.EventID
}

// ErrDuplicateEvent indicates event id uniqueness violation
type ErrDuplicateEvent struct {
	EventID uuid.UUID
}

func (e ErrDuplicateEvent) Error() string {
	return "duplicate ledger event: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEvent
func (e ErrDuplicateEvent) Is(target error) bool {
	t, ok := target.(ErrDuplicateEvent)
	if !ok {
		return false
	}
	if t.EventID == uuid.Nil {
		return true
	}
	return e.EventID == t.EventID
}
