package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines partner persistence operations
type Repository interface {
	Create(ctx context.Context, p *Partner) error
	GetByID(ctx context.Context, id uuid.UUID) (*Partner, error)

	// Update persists a mutated partner using optimistic locking on Version.
	// Returns ErrStalePartner when the stored version no longer matches.
	Update(ctx context.Context, p *Partner) error

	WithTx(tx pgx.Tx) Repository
}

// HistoryRepository manages the append-only commission history
type HistoryRepository interface {
	Append(ctx context.Context, entry *HistoryEntry) error
	GetByPartnerID(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*HistoryEntry, error)
	CountByPartnerID(ctx context.Context, partnerID uuid.UUID) (int64, error)
}
