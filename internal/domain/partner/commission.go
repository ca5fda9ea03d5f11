package partner

import (
	"time"

	"github.com/google/uuid"
)

// Commission tiers: inclusive lower bounds mapping fleet size to a rate in
// basis points. Rates must be monotonically non-increasing as fleet size
// grows; the tier test asserts this invariant.
var commissionTiers = []struct {
	MinFleetSize int
	RateBps      int32
}{
	{0, 2500},
	{10, 2000},
	{50, 1500},
	{100, 1000},
}

// RateForFleetSize maps an active fleet size to its tier commission rate
func RateForFleetSize(fleetSize int) int32 {
	rate := commissionTiers[0].RateBps
	for _, tier := range commissionTiers {
		if fleetSize >= tier.MinFleetSize {
			rate = tier.RateBps
		}
	}
	return rate
}

// TierIndex returns the index of the tier band a fleet size falls in
func TierIndex(fleetSize int) int {
	idx := 0
	for i, tier := range commissionTiers {
		if fleetSize >= tier.MinFleetSize {
			idx = i
		}
	}
	return idx
}

// HistoryEntry records one effective commission rate change, whether from a
// tier crossing or a manual override. Entries are append-only.
type HistoryEntry struct {
	ID         uuid.UUID `json:"id" bson:"id"`
	PartnerID  uuid.UUID `json:"partner_id" bson:"partner_id"`
	OldRateBps int32     `json:"old_rate_bps" bson:"old_rate_bps"`
	NewRateBps int32     `json:"new_rate_bps" bson:"new_rate_bps"`
	Reason     string    `json:"reason" bson:"reason"`
	ChangedBy  string    `json:"changed_by" bson:"changed_by"`
	ChangedAt  time.Time `json:"changed_at" bson:"changed_at"`
}

// ApplyFleetSize recomputes the commission rate for a new fleet size. A
// manual override pins the rate only within the tier band it was issued in:
// crossing into a different band supersedes it. Returns the history entry to
// append when the effective rate changed, nil otherwise.
func (p *Partner) ApplyFleetSize(newSize int) (*HistoryEntry, error) {
	if newSize < 0 {
		return nil, ErrNegativeFleetSize
	}

	oldRate := p.CommissionRateBps
	newTier := TierIndex(newSize)
	p.ActiveFleetSize = newSize

	if p.RateOverridden && newTier == p.OverrideTier {
		p.touch()
		return nil, nil
	}

	newRate := RateForFleetSize(newSize)
	p.RateOverridden = false
	p.OverrideTier = 0
	p.CommissionRateBps = newRate
	p.touch()

	if newRate == oldRate {
		return nil, nil
	}
	return &HistoryEntry{
		ID:         uuid.New(),
		PartnerID:  p.ID,
		OldRateBps: oldRate,
		NewRateBps: newRate,
		Reason:     "tier change",
		ChangedBy:  "system",
		ChangedAt:  time.Now(),
	}, nil
}

// OverrideRate applies a manual operator override of the commission rate,
// pinned to the partner's current tier band.
func (p *Partner) OverrideRate(rateBps int32, actor, reason string) (*HistoryEntry, error) {
	if rateBps < 0 || rateBps > 10000 {
		return nil, ErrInvalidRate
	}
	if reason == "" {
		return nil, ErrMissingChangeReason
	}

	oldRate := p.CommissionRateBps
	p.CommissionRateBps = rateBps
	p.RateOverridden = true
	p.OverrideTier = TierIndex(p.ActiveFleetSize)
	p.touch()

	return &HistoryEntry{
		ID:         uuid.New(),
		PartnerID:  p.ID,
		OldRateBps: oldRate,
		NewRateBps: rateBps,
		Reason:     reason,
		ChangedBy:  actor,
		ChangedAt:  time.Now(),
	}, nil
}
