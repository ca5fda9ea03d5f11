package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines booking persistence operations
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByPartnerID(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*Booking, error)

	// Update persists a mutated booking using optimistic locking on Version.
	// Returns ErrStaleBooking when the stored version no longer matches.
	Update(ctx context.Context, b *Booking) error

	// ListHoldExpiryCandidates returns ON_HOLD bookings whose hold deadline
	// has elapsed, for the periodic expiry sweep.
	ListHoldExpiryCandidates(ctx context.Context, limit int) ([]*Booking, error)

	// ListDocumentExpiryCandidates returns non-terminal bookings whose
	// outstanding document request deadline has elapsed.
	ListDocumentExpiryCandidates(ctx context.Context, limit int) ([]*Booking, error)

	WithTx(tx pgx.Tx) Repository
}
