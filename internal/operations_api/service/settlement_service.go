package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/fleetops-rental-core/internal/domain/outbox"
	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/domain/shared"
	"github.com/fleetops-rental-core/internal/platform/messaging/producers"
	"github.com/fleetops-rental-core/internal/platform/persistence"
	"github.com/fleetops-rental-core/internal/platform/rails"
)

const balanceCacheKeyPrefix = "ledger:account:"

// SettlementServiceImpl implements the SettlementService interface. Ledger
// mutations run in a transaction that locks the account row, applies the
// domain operation and stages the resulting event in the outbox, so balance
// and audit trail can never diverge.
type SettlementServiceImpl struct {
	db          *persistence.PostgresDB
	accountRepo settlement.AccountRepository
	eventRepo   settlement.EventRepository
	outboxRepo  outbox.Repository
	payoutRail  rails.PayoutRail
	producer    producers.MessagePublisher
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      *slog.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	logger *slog.Logger,
	db *persistence.PostgresDB,
	accountRepo settlement.AccountRepository,
	eventRepo settlement.EventRepository,
	outboxRepo outbox.Repository,
	payoutRail rails.PayoutRail,
	producer producers.MessagePublisher,
	cache *redis.Client,
	cacheTTL time.Duration,
) SettlementService {
	return &SettlementServiceImpl{
		db:          db,
		accountRepo: accountRepo,
		eventRepo:   eventRepo,
		outboxRepo:  outboxRepo,
		payoutRail:  payoutRail,
		producer:    producer,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// GetAccount retrieves a partner's ledger account, served from the read cache
// when fresh. The cache is invalidated on every mutation; a stale read here
// costs one TTL at most and never feeds a mutation.
func (s *SettlementServiceImpl) GetAccount(ctx context.Context, partnerID uuid.UUID) (*settlement.Account, error) {
	key := balanceCacheKeyPrefix + partnerID.String()

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var acc settlement.Account
			if err := json.Unmarshal(cached, &acc); err == nil {
				return &acc, nil
			}
		}
	}

	acc, err := s.accountRepo.GetByPartnerID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(acc); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("Failed to cache ledger account", "partner_id", partnerID.String(), "error", err)
			}
		}
	}
	return acc, nil
}

// ChargeBalance debits the spendable balance, or records an audit-only event
// when the charge was taken on an external rail.
func (s *SettlementServiceImpl) ChargeBalance(ctx context.Context, partnerID uuid.UUID, amount int64, reason, actor string, external bool) (*settlement.Event, error) {
	return s.applyLedgerOp(ctx, partnerID, func(acc *settlement.Account) (*settlement.Event, error) {
		if external {
			return acc.RecordExternalCharge(amount, reason, actor)
		}
		return acc.ChargeBalance(amount, reason, actor)
	})
}

// HoldFunds earmarks part of the settled balance
func (s *SettlementServiceImpl) HoldFunds(ctx context.Context, partnerID uuid.UUID, amount int64, reason, actor string, until *time.Time) (*settlement.Event, error) {
	return s.applyLedgerOp(ctx, partnerID, func(acc *settlement.Account) (*settlement.Event, error) {
		return acc.HoldFunds(amount, reason, actor, until)
	})
}

// ReleaseFunds returns earmarked funds to the spendable balance
func (s *SettlementServiceImpl) ReleaseFunds(ctx context.Context, partnerID uuid.UUID, amount int64, reason, actor string) (*settlement.Event, error) {
	return s.applyLedgerOp(ctx, partnerID, func(acc *settlement.Account) (*settlement.Event, error) {
		return acc.ReleaseFunds(amount, reason, actor)
	})
}

// ForcePayout debits the ledger, commits, then initiates the external
// transfer. A transfer failure is compensated through the settlement
// processor rather than edited away; the caller sees ErrRailUnavailable.
func (s *SettlementServiceImpl) ForcePayout(ctx context.Context, partnerID uuid.UUID, amount int64, reason, actor string) (*settlement.Event, error) {
	ev, err := s.applyLedgerOp(ctx, partnerID, func(acc *settlement.Account) (*settlement.Event, error) {
		return acc.ForcePayout(amount, reason, actor)
	})
	if err != nil {
		return nil, err
	}

	if err := s.payoutRail.Payout(ctx, partnerID, amount, ev.ID.String()); err != nil {
		s.logger.Error("Payout transfer failed, enqueueing compensation",
			"partner_id", partnerID.String(),
			"payout_event_id", ev.ID.String(),
			"amount", amount,
			"error", err,
		)

		cmd := &shared.SettlementCommand{
			CommandID:  uuid.New(),
			PartnerID:  partnerID,
			Type:       shared.CommandPayoutCompensate,
			Amount:     amount,
			RefEventID: ev.ID,
			Reason:     "payout transfer failed",
			Timestamp:  time.Now(),
		}
		if pubErr := s.producer.Publish(ctx, partnerID.String(), cmd); pubErr != nil {
			s.logger.Error("Failed to publish payout compensation command",
				"partner_id", partnerID.String(),
				"payout_event_id", ev.ID.String(),
				"error", pubErr,
			)
		}
		return ev, fmt.Errorf("%w: payout transfer: %v", rails.ErrRailUnavailable, err)
	}

	return ev, nil
}

// SetPayoutChannelEnabled toggles the payout channel, audit-only
func (s *SettlementServiceImpl) SetPayoutChannelEnabled(ctx context.Context, partnerID uuid.UUID, enabled bool, reason, actor string) (*settlement.Event, error) {
	return s.applyLedgerOp(ctx, partnerID, func(acc *settlement.Account) (*settlement.Event, error) {
		return acc.SetPayoutChannelEnabled(enabled, reason, actor)
	})
}

// SetInstantPayoutEnabled toggles instant payouts, audit-only
func (s *SettlementServiceImpl) SetInstantPayoutEnabled(ctx context.Context, partnerID uuid.UUID, enabled bool, reason, actor string) (*settlement.Event, error) {
	return s.applyLedgerOp(ctx, partnerID, func(acc *settlement.Account) (*settlement.Event, error) {
		return acc.SetInstantPayoutEnabled(enabled, reason, actor)
	})
}

// GetEvents retrieves the paginated ledger event history for a partner
func (s *SettlementServiceImpl) GetEvents(ctx context.Context, partnerID uuid.UUID, page, perPage int) ([]*settlement.Event, int64, error) {
	offset := (page - 1) * perPage

	events, err := s.eventRepo.GetByPartnerID(ctx, partnerID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.eventRepo.CountByPartnerID(ctx, partnerID)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// ReplayBalance reconstructs the balances from the full event history. The
// caller compares the replayed snapshot against the stored account to audit
// the ledger.
func (s *SettlementServiceImpl) ReplayBalance(ctx context.Context, partnerID uuid.UUID) (settlement.BalanceSnapshot, *settlement.Account, error) {
	acc, err := s.accountRepo.GetByPartnerID(ctx, partnerID)
	if err != nil {
		return settlement.BalanceSnapshot{}, nil, err
	}

	const pageSize = 500
	var events []*settlement.Event
	for offset := 0; ; offset += pageSize {
		page, err := s.eventRepo.GetByPartnerID(ctx, partnerID, pageSize, offset)
		if err != nil {
			return settlement.BalanceSnapshot{}, nil, err
		}
		events = append(events, page...)
		if len(page) < pageSize {
			break
		}
	}

	return settlement.Replay(events), acc, nil
}

// applyLedgerOp runs one ledger operation inside a transaction: lock the
// account row, apply the domain operation, persist the account and stage the
// event in the outbox. Domain refusals roll everything back untouched.
func (s *SettlementServiceImpl) applyLedgerOp(ctx context.Context, partnerID uuid.UUID, op func(*settlement.Account) (*settlement.Event, error)) (*settlement.Event, error) {
	var event *settlement.Event

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		acc, err := s.accountRepo.WithTx(tx).LockForUpdate(ctx, partnerID)
		if err != nil {
			return err
		}

		event, err = op(acc)
		if err != nil {
			return err
		}

		if err := s.accountRepo.WithTx(tx).Update(ctx, acc); err != nil {
			return err
		}

		message, err := outbox.NewMessage(event)
		if err != nil {
			return fmt.Errorf("failed to build outbox message: %w", err)
		}
		return s.outboxRepo.WithTx(tx).Create(ctx, message)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, partnerID)

	s.logger.Info("Ledger operation applied",
		"partner_id", partnerID.String(),
		"event_id", event.ID.String(),
		"event_type", string(event.Type),
		"amount", event.Amount,
	)
	return event, nil
}

func (s *SettlementServiceImpl) invalidateCache(ctx context.Context, partnerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	key := balanceCacheKeyPrefix + partnerID.String()
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("Failed to invalidate ledger account cache", "partner_id", partnerID.String(), "error", err)
	}
}
