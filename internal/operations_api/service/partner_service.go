package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fleetops-rental-core/internal/domain/partner"
	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/platform/persistence"
	"github.com/fleetops-rental-core/internal/platform/rails"
)

// PartnerServiceImpl implements the PartnerService interface
type PartnerServiceImpl struct {
	db          *persistence.PostgresDB
	partnerRepo partner.Repository
	accountRepo settlement.AccountRepository
	historyRepo partner.HistoryRepository
	eventRepo   settlement.EventRepository
	fleet       rails.FleetMembership
	logger      *slog.Logger
}

// NewPartnerService creates a new partner service
func NewPartnerService(
	logger *slog.Logger,
	db *persistence.PostgresDB,
	partnerRepo partner.Repository,
	accountRepo settlement.AccountRepository,
	historyRepo partner.HistoryRepository,
	eventRepo settlement.EventRepository,
	fleet rails.FleetMembership,
) PartnerService {
	return &PartnerServiceImpl{
		db:          db,
		partnerRepo: partnerRepo,
		accountRepo: accountRepo,
		historyRepo: historyRepo,
		eventRepo:   eventRepo,
		fleet:       fleet,
		logger:      logger,
	}
}

// CreatePartner creates a partner together with its zero-balance ledger
// account in one transaction: a partner without a ledger account cannot
// settle anything.
func (s *PartnerServiceImpl) CreatePartner(ctx context.Context, name string, fleetSize int) (*partner.Partner, error) {
	p, err := partner.NewPartner(name, fleetSize)
	if err != nil {
		return nil, err
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.partnerRepo.WithTx(tx).Create(ctx, p); err != nil {
			return err
		}
		return s.accountRepo.WithTx(tx).Create(ctx, settlement.NewAccount(p.ID))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Partner created",
		"partner_id", p.ID.String(),
		"fleet_size", fleetSize,
		"commission_rate_bps", p.CommissionRateBps,
	)
	return p, nil
}

// GetPartner retrieves a partner by its ID
func (s *PartnerServiceImpl) GetPartner(ctx context.Context, id uuid.UUID) (*partner.Partner, error) {
	return s.partnerRepo.GetByID(ctx, id)
}

// SyncFleetSize pulls the active fleet size from the fleet membership service
// and recomputes the commission tier. A resulting rate change is appended to
// the commission history.
func (s *PartnerServiceImpl) SyncFleetSize(ctx context.Context, id uuid.UUID) (*partner.Partner, error) {
	p, err := s.partnerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	size, err := s.fleet.ActiveFleetSize(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: fleet membership: %v", rails.ErrRailUnavailable, err)
	}

	entry, err := p.ApplyFleetSize(size)
	if err != nil {
		return nil, err
	}

	if err := s.partnerRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	if entry != nil {
		if err := s.historyRepo.Append(ctx, entry); err != nil {
			s.logger.Error("Failed to append commission history entry",
				"partner_id", id.String(),
				"error", err,
			)
		}
		s.logger.Info("Commission tier changed",
			"partner_id", id.String(),
			"fleet_size", size,
			"old_rate_bps", entry.OldRateBps,
			"new_rate_bps", entry.NewRateBps,
		)
	}
	return p, nil
}

// OverrideCommissionRate applies a manual rate override pinned to the
// partner's current tier band. The override lands in the commission history
// and, as a COMMISSION_ADJUSTMENT event, in the partner's ledger trail; both
// are best-effort once the partner row committed.
func (s *PartnerServiceImpl) OverrideCommissionRate(ctx context.Context, id uuid.UUID, rateBps int32, actor, reason string) (*partner.Partner, error) {
	p, err := s.partnerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	entry, err := p.OverrideRate(rateBps, actor, reason)
	if err != nil {
		return nil, err
	}

	if err := s.partnerRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	if err := s.historyRepo.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to append commission history entry",
			"partner_id", id.String(),
			"error", err,
		)
	}

	s.recordCommissionAdjustment(ctx, id, rateBps, reason, actor)

	s.logger.Info("Commission rate overridden",
		"partner_id", id.String(),
		"rate_bps", rateBps,
		"actor", actor,
	)
	return p, nil
}

// recordCommissionAdjustment appends the audit-only ledger event for a
// manual override. Failures are logged, never surfaced: the override itself
// already committed.
func (s *PartnerServiceImpl) recordCommissionAdjustment(ctx context.Context, id uuid.UUID, rateBps int32, reason, actor string) {
	acc, err := s.accountRepo.GetByPartnerID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load ledger account for commission adjustment",
			"partner_id", id.String(),
			"error", err,
		)
		return
	}

	ev, err := acc.NoteCommissionAdjustment(rateBps, reason, actor)
	if err != nil {
		s.logger.Error("Failed to build commission adjustment event",
			"partner_id", id.String(),
			"error", err,
		)
		return
	}

	if err := s.eventRepo.Append(ctx, ev); err != nil {
		s.logger.Error("Failed to append commission adjustment event",
			"partner_id", id.String(),
			"event_id", ev.ID.String(),
			"error", err,
		)
	}
}

// SetApprovalMode updates the vehicle approval policy
func (s *PartnerServiceImpl) SetApprovalMode(ctx context.Context, id uuid.UUID, mode partner.ApprovalMode, threshold int) (*partner.Partner, error) {
	p, err := s.partnerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := p.SetApprovalMode(mode, threshold); err != nil {
		return nil, err
	}

	if err := s.partnerRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DecideVehicleApproval evaluates a new vehicle listing against the partner's
// approval policy.
func (s *PartnerServiceImpl) DecideVehicleApproval(ctx context.Context, id uuid.UUID, vehicleRiskScore int) (partner.Decision, error) {
	p, err := s.partnerRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	return partner.Decide(vehicleRiskScore, p.ApprovalMode, p.ApprovalThreshold)
}

// GetCommissionHistory retrieves the paginated commission change history
func (s *PartnerServiceImpl) GetCommissionHistory(ctx context.Context, id uuid.UUID, page, perPage int) ([]*partner.HistoryEntry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.historyRepo.GetByPartnerID(ctx, id, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.historyRepo.CountByPartnerID(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
