// Package settlement owns a partner's balance dimensions and the ledger
// arithmetic that mutates them. Every balance mutation emits exactly one
// Event; balances are always reconstructible by replaying events from zero.
package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrMissingReason         = errors.New("ledger operation requires a reason")
	ErrPayoutChannelDisabled = errors.New("payout channel is disabled for this partner")
)

// ErrInsufficientFunds indicates the operation would overdraw the available
// balance. The account is left untouched.
type ErrInsufficientFunds struct {
	PartnerID uuid.UUID
	Requested int64
	Available int64
}

func (e ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds for partner %s: requested %d, available %d",
		e.PartnerID, e.Requested, e.Available)
}

// Is matches any ErrInsufficientFunds when the target carries zero values
func (e ErrInsufficientFunds) Is(target error) bool {
	t, ok := target.(ErrInsufficientFunds)
	if !ok {
		return false
	}
	if t.PartnerID == uuid.Nil {
		return true
	}
	return e.PartnerID == t.PartnerID
}

// ErrOverRelease indicates a release larger than the earmarked hold
type ErrOverRelease struct {
	PartnerID uuid.UUID
	Requested int64
	Held      int64
}

func (e ErrOverRelease) Error() string {
	return fmt.Sprintf("over-release for partner %s: requested %d, held %d",
		e.PartnerID, e.Requested, e.Held)
}

// Is matches any ErrOverRelease when the target carries zero values
func (e ErrOverRelease) Is(target error) bool {
	t, ok := target.(ErrOverRelease)
	if !ok {
		return false
	}
	if t.PartnerID == uuid.Nil {
		return true
	}
	return e.PartnerID == t.PartnerID
}

// ErrAccountNotFound indicates a missing ledger account
type ErrAccountNotFound struct {
	PartnerID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "ledger account not found for partner: " + e.PartnerID.String()
}

// ErrStaleAccount indicates an optimistic lock failure on a ledger account
type ErrStaleAccount struct {
	PartnerID uuid.UUID
}

func (e ErrStaleAccount) Error() string {
	return "stale ledger account state detected for partner: " + e.PartnerID.String()
}

// Account holds one partner's balance dimensions, all in minor currency
// units. Invariant on every reachable state: 0 <= Hold <= Current, so
// AvailableForPayout never goes negative.
type Account struct {
	PartnerID           uuid.UUID `json:"partner_id"`
	Current             int64     `json:"current"`          // settled, spendable balance
	Hold                int64     `json:"hold"`             // earmarked subset of Current
	PendingIncoming     int64     `json:"pending_incoming"` // unsettled revenue from in-flight bookings
	LifetimePaidOut     int64     `json:"lifetime_paid_out"`
	PayoutEnabled       bool      `json:"payout_enabled"`
	InstantPayoutEnable bool      `json:"instant_payout_enabled"`
	Version             int       `json:"version"` // For optimistic locking
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewAccount creates a zero-balance ledger account for a partner
func NewAccount(partnerID uuid.UUID) *Account {
	now := time.Now()
	return &Account{
		PartnerID:     partnerID,
		PayoutEnabled: true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AvailableForPayout is the spendable balance net of earmarked holds
func (a *Account) AvailableForPayout() int64 {
	return a.Current - a.Hold
}

// touch bumps the optimistic lock version after a successful mutation
func (a *Account) touch() {
	a.Version++
	a.UpdatedAt = time.Now()
}

// snapshot captures the balances for the event audit trail
func (a *Account) snapshot() BalanceSnapshot {
	return BalanceSnapshot{
		Current:         a.Current,
		Hold:            a.Hold,
		PendingIncoming: a.PendingIncoming,
		LifetimePaidOut: a.LifetimePaidOut,
	}
}

// ChargeBalance debits the spendable balance. The charge fails whole when
// the available balance cannot cover it; nothing is partially applied.
func (a *Account) ChargeBalance(amount int64, reason, actor string) (*Event, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if reason == "" {
		return nil, ErrMissingReason
	}
	if a.AvailableForPayout() < amount {
		return nil, ErrInsufficientFunds{PartnerID: a.PartnerID, Requested: amount, Available: a.AvailableForPayout()}
	}

	a.Current -= amount
	a.touch()
	return a.newEvent(EventCharge, amount, reason, actor), nil
}

// RecordExternalCharge emits an audit-only CHARGE event after the external
// payment rail confirmed a charge. Balances are not touched: the money never
// passed through the ledger.
func (a *Account) RecordExternalCharge(amount int64, reason, actor string) (*Event, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if reason == "" {
		return nil, ErrMissingReason
	}
	a.touch()
	ev := a.newEvent(EventCharge, amount, reason, actor)
	ev.External = true
	return ev, nil
}

// HoldFunds earmarks part of the settled balance, making it unavailable for
// payout until released.
func (a *Account) HoldFunds(amount int64, reason, actor string, until *time.Time) (*Event, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if reason == "" {
		return nil, ErrMissingReason
	}
	if a.Hold+amount > a.Current {
		return nil, ErrInsufficientFunds{PartnerID: a.PartnerID, Requested: amount, Available: a.AvailableForPayout()}
	}

	a.Hold += amount
	a.touch()
	ev := a.newEvent(EventHold, amount, reason, actor)
	ev.HoldUntil = until
	return ev, nil
}

// ReleaseFunds returns earmarked funds to the spendable balance
func (a *Account) ReleaseFunds(amount int64, reason, actor string) (*Event, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if reason == "" {
		return nil, ErrMissingReason
	}
	if amount > a.Hold {
		return nil, ErrOverRelease{PartnerID: a.PartnerID, Requested: amount, Held: a.Hold}
	}

	a.Hold -= amount
	a.touch()
	return a.newEvent(EventRelease, amount, reason, actor), nil
}

// ForcePayout debits the spendable balance for an outbound transfer. The
// actual transfer is delegated to the payout rail after the ledger commit;
// a failed transfer is reversed with CompensatePayout, never edited away.
func (a *Account) ForcePayout(amount int64, reason, actor string) (*Event, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if reason == "" {
		return nil, ErrMissingReason
	}
	if !a.PayoutEnabled {
		return nil, ErrPayoutChannelDisabled
	}
	if a.AvailableForPayout() < amount {
		return nil, ErrInsufficientFunds{PartnerID: a.PartnerID, Requested: amount, Available: a.AvailableForPayout()}
	}

	a.Current -= amount
	a.LifetimePaidOut += amount
	a.touch()
	return a.newEvent(EventPayout, amount, reason, actor), nil
}

// CompensatePayout reverses a payout whose external transfer failed. The
// compensating CREDIT event references the original PAYOUT event id so the
// reversal is idempotent and auditable.
func (a *Account) CompensatePayout(amount int64, payoutEventID uuid.UUID, reason string) (*Event, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	a.Current += amount
	a.LifetimePaidOut -= amount
	a.touch()
	ev := a.newEvent(EventCredit, amount, reason, "system")
	ev.RefEventID = payoutEventID
	return ev, nil
}

// AccruePending records unsettled revenue for an in-flight booking
func (a *Account) AccruePending(gross int64, bookingID uuid.UUID) (*Event, error) {
	if gross <= 0 {
		return nil, ErrInvalidAmount
	}

	a.PendingIncoming += gross
	a.touch()
	ev := a.newEvent(EventAccrual, gross, "booking revenue accrued", "system")
	ev.BookingID = bookingID
	return ev, nil
}

// RecognizeRevenue settles a completed booking: the gross amount leaves
// PendingIncoming and the partner's share net of commission lands in Current.
// The commission rate is the one captured at booking completion time, so
// later tier changes never alter historical settlements.
func (a *Account) RecognizeRevenue(gross int64, commissionRateBps int32, bookingID uuid.UUID) (*Event, error) {
	if gross <= 0 {
		return nil, ErrInvalidAmount
	}
	if commissionRateBps < 0 || commissionRateBps > 10000 {
		return nil, ErrInvalidAmount
	}

	net := gross * int64(10000-commissionRateBps) / 10000
	a.PendingIncoming -= gross
	if a.PendingIncoming < 0 {
		a.PendingIncoming = 0
	}
	a.Current += net
	a.touch()
	ev := a.newEvent(EventSettlement, net, "booking revenue settled", "system")
	ev.BookingID = bookingID
	ev.GrossAmount = gross
	ev.CommissionRateBps = commissionRateBps
	return ev, nil
}

// ReversePending backs out accrued revenue for a refunded cancellation
func (a *Account) ReversePending(amount int64, bookingID uuid.UUID, reason string) (*Event, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount > a.PendingIncoming {
		amount = a.PendingIncoming
	}

	a.PendingIncoming -= amount
	a.touch()
	ev := a.newEvent(EventReversal, amount, reason, "system")
	ev.BookingID = bookingID
	return ev, nil
}

// SetPayoutChannelEnabled toggles the payout channel. Audit-only: no balance
// effect, but the toggle is recorded as a ledger event with its reason.
func (a *Account) SetPayoutChannelEnabled(enabled bool, reason, actor string) (*Event, error) {
	if reason == "" {
		return nil, ErrMissingReason
	}

	a.PayoutEnabled = enabled
	a.touch()
	ev := a.newEvent(EventChannelToggle, 0, reason, actor)
	ev.ToggleTarget = "payout_channel"
	ev.ToggleValue = enabled
	return ev, nil
}

// SetInstantPayoutEnabled toggles instant payouts, recorded audit-only
func (a *Account) SetInstantPayoutEnabled(enabled bool, reason, actor string) (*Event, error) {
	if reason == "" {
		return nil, ErrMissingReason
	}

	a.InstantPayoutEnable = enabled
	a.touch()
	ev := a.newEvent(EventChannelToggle, 0, reason, actor)
	ev.ToggleTarget = "instant_payout"
	ev.ToggleValue = enabled
	return ev, nil
}

// NoteCommissionAdjustment records a manual commission rate override as an
// audit-only ledger event. Balances are untouched and replay skips the event;
// the rate itself lives on the partner, the ledger just keeps the trail.
func (a *Account) NoteCommissionAdjustment(newRateBps int32, reason, actor string) (*Event, error) {
	if newRateBps < 0 || newRateBps > 10000 {
		return nil, ErrInvalidAmount
	}
	if reason == "" {
		return nil, ErrMissingReason
	}

	ev := a.newEvent(EventCommissionAdjustment, 0, reason, actor)
	ev.CommissionRateBps = newRateBps
	return ev, nil
}

// CheckInvariant verifies the balance invariant holds. Repositories call it
// before persisting a mutated account.
func (a *Account) CheckInvariant() error {
	if a.Current < 0 || a.Hold < 0 || a.PendingIncoming < 0 || a.LifetimePaidOut < 0 {
		return fmt.Errorf("negative balance dimension on account %s", a.PartnerID)
	}
	if a.Hold > a.Current {
		return fmt.Errorf("hold %d exceeds current %d on account %s", a.Hold, a.Current, a.PartnerID)
	}
	return nil
}

func (a *Account) newEvent(eventType EventType, amount int64, reason, actor string) *Event {
	return &Event{
		ID:        uuid.New(),
		PartnerID: a.PartnerID,
		Type:      eventType,
		Amount:    amount,
		Reason:    reason,
		Actor:     actor,
		Balances:  a.snapshot(),
		CreatedAt: time.Now(),
	}
}
