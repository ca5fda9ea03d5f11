package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fundedAccount(t *testing.T, current int64) *Account {
	t.Helper()
	a := NewAccount(uuid.New())
	bookingID := uuid.New()
	_, err := a.AccruePending(current, bookingID)
	require.NoError(t, err)
	_, err = a.RecognizeRevenue(current, 0, bookingID)
	require.NoError(t, err)
	require.Equal(t, current, a.Current)
	return a
}

func TestNewAccount(t *testing.T) {
	a := NewAccount(uuid.New())

	assert.Zero(t, a.Current)
	assert.Zero(t, a.Hold)
	assert.Zero(t, a.PendingIncoming)
	assert.True(t, a.PayoutEnabled)
	assert.False(t, a.InstantPayoutEnable)
	assert.Equal(t, 1, a.Version)
	assert.NoError(t, a.CheckInvariant())
}

func TestAccount_ChargeBalance(t *testing.T) {
	t.Run("Successful", func(t *testing.T) {
		a := fundedAccount(t, 10000)

		ev, err := a.ChargeBalance(4000, "damage recovery", "ops@example.com")

		require.NoError(t, err)
		assert.Equal(t, int64(6000), a.Current)
		assert.Equal(t, EventCharge, ev.Type)
		assert.Equal(t, int64(4000), ev.Amount)
		assert.Equal(t, int64(6000), ev.Balances.Current)
		assert.False(t, ev.External)
	})

	t.Run("FailsWholeOnInsufficientFunds", func(t *testing.T) {
		a := fundedAccount(t, 3000)

		_, err := a.ChargeBalance(5000, "damage recovery", "ops@example.com")

		require.ErrorIs(t, err, ErrInsufficientFunds{})
		assert.Equal(t, int64(3000), a.Current, "nothing partially applied")
	})

	t.Run("HoldShrinksChargeableBalance", func(t *testing.T) {
		a := fundedAccount(t, 10000)
		_, err := a.HoldFunds(8000, "dispute pending", "ops@example.com", nil)
		require.NoError(t, err)

		_, err = a.ChargeBalance(3000, "damage recovery", "ops@example.com")

		assert.ErrorIs(t, err, ErrInsufficientFunds{})
	})

	t.Run("RejectsNonPositiveAmount", func(t *testing.T) {
		a := fundedAccount(t, 10000)

		_, err := a.ChargeBalance(0, "damage recovery", "ops@example.com")
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = a.ChargeBalance(-100, "damage recovery", "ops@example.com")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("RequiresReason", func(t *testing.T) {
		a := fundedAccount(t, 10000)

		_, err := a.ChargeBalance(100, "", "ops@example.com")

		assert.ErrorIs(t, err, ErrMissingReason)
	})
}

func TestAccount_RecordExternalCharge(t *testing.T) {
	a := fundedAccount(t, 5000)

	ev, err := a.RecordExternalCharge(2000, "card charge for cleaning fee", "ops@example.com")

	require.NoError(t, err)
	assert.True(t, ev.External)
	assert.Equal(t, int64(5000), a.Current, "external charges never touch the balance")
}

func TestAccount_HoldAndRelease(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		a := fundedAccount(t, 10000)
		until := time.Now().Add(72 * time.Hour)

		held, err := a.HoldFunds(6000, "open dispute", "ops@example.com", &until)
		require.NoError(t, err)
		assert.Equal(t, int64(6000), a.Hold)
		assert.Equal(t, int64(4000), a.AvailableForPayout())
		require.NotNil(t, held.HoldUntil)

		released, err := a.ReleaseFunds(6000, "dispute resolved", "ops@example.com")
		require.NoError(t, err)
		assert.Zero(t, a.Hold)
		assert.Equal(t, int64(10000), a.AvailableForPayout())
		assert.Equal(t, EventRelease, released.Type)
	})

	t.Run("HoldCannotExceedCurrent", func(t *testing.T) {
		a := fundedAccount(t, 10000)
		_, err := a.HoldFunds(7000, "open dispute", "ops@example.com", nil)
		require.NoError(t, err)

		_, err = a.HoldFunds(4000, "second dispute", "ops@example.com", nil)

		assert.ErrorIs(t, err, ErrInsufficientFunds{})
		assert.Equal(t, int64(7000), a.Hold)
	})

	t.Run("OverRelease", func(t *testing.T) {
		a := fundedAccount(t, 10000)
		_, err := a.HoldFunds(2000, "open dispute", "ops@example.com", nil)
		require.NoError(t, err)

		_, err = a.ReleaseFunds(5000, "dispute resolved", "ops@example.com")

		var over ErrOverRelease
		require.ErrorAs(t, err, &over)
		assert.Equal(t, int64(5000), over.Requested)
		assert.Equal(t, int64(2000), over.Held)
		assert.Equal(t, int64(2000), a.Hold, "account untouched on refusal")
	})
}

func TestAccount_ForcePayout(t *testing.T) {
	t.Run("Successful", func(t *testing.T) {
		a := fundedAccount(t, 10000)

		ev, err := a.ForcePayout(7500, "monthly payout", "ops@example.com")

		require.NoError(t, err)
		assert.Equal(t, int64(2500), a.Current)
		assert.Equal(t, int64(7500), a.LifetimePaidOut)
		assert.Equal(t, EventPayout, ev.Type)
	})

	t.Run("ChannelDisabled", func(t *testing.T) {
		a := fundedAccount(t, 10000)
		_, err := a.SetPayoutChannelEnabled(false, "fraud review", "risk@example.com")
		require.NoError(t, err)

		_, err = a.ForcePayout(1000, "monthly payout", "ops@example.com")

		assert.ErrorIs(t, err, ErrPayoutChannelDisabled)
	})

	t.Run("HoldsAreNotPayable", func(t *testing.T) {
		a := fundedAccount(t, 10000)
		_, err := a.HoldFunds(8000, "open dispute", "ops@example.com", nil)
		require.NoError(t, err)

		_, err = a.ForcePayout(5000, "monthly payout", "ops@example.com")

		assert.ErrorIs(t, err, ErrInsufficientFunds{})
	})
}

func TestAccount_CompensatePayout(t *testing.T) {
	a := fundedAccount(t, 10000)
	payout, err := a.ForcePayout(6000, "monthly payout", "ops@example.com")
	require.NoError(t, err)

	credit, err := a.CompensatePayout(6000, payout.ID, "bank transfer bounced")

	require.NoError(t, err)
	assert.Equal(t, int64(10000), a.Current, "payout fully reversed")
	assert.Zero(t, a.LifetimePaidOut)
	assert.Equal(t, EventCredit, credit.Type)
	assert.Equal(t, payout.ID, credit.RefEventID, "credit references the reversed payout")
	assert.Equal(t, "system", credit.Actor)
}

func TestAccount_RevenueFlow(t *testing.T) {
	t.Run("AccrueThenRecognize", func(t *testing.T) {
		a := NewAccount(uuid.New())
		bookingID := uuid.New()

		accrual, err := a.AccruePending(20000, bookingID)
		require.NoError(t, err)
		assert.Equal(t, int64(20000), a.PendingIncoming)
		assert.Zero(t, a.Current)
		assert.Equal(t, bookingID, accrual.BookingID)

		settled, err := a.RecognizeRevenue(20000, 1500, bookingID)
		require.NoError(t, err)
		assert.Zero(t, a.PendingIncoming)
		assert.Equal(t, int64(17000), a.Current, "net of 15% commission")
		assert.Equal(t, int64(17000), settled.Amount)
		assert.Equal(t, int64(20000), settled.GrossAmount)
		assert.Equal(t, int32(1500), settled.CommissionRateBps)
	})

	t.Run("CommissionRounding", func(t *testing.T) {
		a := NewAccount(uuid.New())
		bookingID := uuid.New()
		_, err := a.AccruePending(9999, bookingID)
		require.NoError(t, err)

		_, err = a.RecognizeRevenue(9999, 2500, bookingID)

		require.NoError(t, err)
		assert.Equal(t, int64(7499), a.Current, "integer division truncates in the platform's favor")
	})

	t.Run("ReverseAccrual", func(t *testing.T) {
		a := NewAccount(uuid.New())
		bookingID := uuid.New()
		_, err := a.AccruePending(20000, bookingID)
		require.NoError(t, err)

		reversal, err := a.ReversePending(20000, bookingID, "booking cancelled with full refund")

		require.NoError(t, err)
		assert.Zero(t, a.PendingIncoming)
		assert.Equal(t, EventReversal, reversal.Type)
	})

	t.Run("ReversalClampsToPending", func(t *testing.T) {
		a := NewAccount(uuid.New())
		bookingID := uuid.New()
		_, err := a.AccruePending(5000, bookingID)
		require.NoError(t, err)

		reversal, err := a.ReversePending(9000, bookingID, "booking cancelled with full refund")

		require.NoError(t, err)
		assert.Zero(t, a.PendingIncoming)
		assert.Equal(t, int64(5000), reversal.Amount)
	})

	t.Run("InvalidCommissionRate", func(t *testing.T) {
		a := NewAccount(uuid.New())
		_, err := a.AccruePending(5000, uuid.New())
		require.NoError(t, err)

		_, err = a.RecognizeRevenue(5000, 10001, uuid.New())

		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestAccount_ChannelToggles(t *testing.T) {
	a := NewAccount(uuid.New())

	ev, err := a.SetPayoutChannelEnabled(false, "compliance hold", "risk@example.com")
	require.NoError(t, err)
	assert.False(t, a.PayoutEnabled)
	assert.Equal(t, EventChannelToggle, ev.Type)
	assert.Equal(t, "payout_channel", ev.ToggleTarget)
	assert.False(t, ev.ToggleValue)
	assert.Zero(t, ev.Amount)

	ev, err = a.SetInstantPayoutEnabled(true, "trusted partner", "ops@example.com")
	require.NoError(t, err)
	assert.True(t, a.InstantPayoutEnable)
	assert.Equal(t, "instant_payout", ev.ToggleTarget)
	assert.True(t, ev.ToggleValue)

	_, err = a.SetPayoutChannelEnabled(true, "", "ops@example.com")
	assert.ErrorIs(t, err, ErrMissingReason)
}

func TestAccount_NoteCommissionAdjustment(t *testing.T) {
	a := NewAccount(uuid.New())
	a.Current = 10000

	ev, err := a.NoteCommissionAdjustment(1800, "key account negotiation", "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, EventCommissionAdjustment, ev.Type)
	assert.Equal(t, int32(1800), ev.CommissionRateBps)
	assert.Zero(t, ev.Amount)
	assert.Equal(t, int64(10000), a.Current, "balances are untouched")
	assert.Equal(t, int64(10000), ev.Balances.Current)

	_, err = a.NoteCommissionAdjustment(1800, "", "ops@example.com")
	assert.ErrorIs(t, err, ErrMissingReason)

	_, err = a.NoteCommissionAdjustment(10500, "typo", "ops@example.com")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	replayed := Replay([]*Event{ev})
	assert.Zero(t, replayed.Current, "replay skips the audit-only adjustment")
}

// Every reachable state must satisfy 0 <= Hold <= Current and non-negative
// dimensions, and every mutation must keep the invariant.
func TestAccount_InvariantUnderOperations(t *testing.T) {
	a := NewAccount(uuid.New())
	bookingA, bookingB := uuid.New(), uuid.New()

	steps := []func() error{
		func() error { _, err := a.AccruePending(50000, bookingA); return err },
		func() error { _, err := a.AccruePending(30000, bookingB); return err },
		func() error { _, err := a.RecognizeRevenue(50000, 2000, bookingA); return err },
		func() error { _, err := a.HoldFunds(10000, "dispute", "ops@example.com", nil); return err },
		func() error { _, err := a.ChargeBalance(5000, "damage", "ops@example.com"); return err },
		func() error { _, err := a.ReleaseFunds(4000, "partial resolution", "ops@example.com"); return err },
		func() error { _, err := a.ForcePayout(20000, "payout", "ops@example.com"); return err },
		func() error { _, err := a.ReversePending(30000, bookingB, "cancelled"); return err },
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		require.NoError(t, a.CheckInvariant(), "invariant broken after step %d", i)
	}

	assert.Equal(t, int64(15000), a.Current)
	assert.Equal(t, int64(6000), a.Hold)
	assert.Zero(t, a.PendingIncoming)
	assert.Equal(t, int64(20000), a.LifetimePaidOut)
}

func TestCheckInvariant(t *testing.T) {
	a := NewAccount(uuid.New())
	a.Current = 100
	a.Hold = 200

	assert.Error(t, a.CheckInvariant())

	a.Hold = 50
	a.PendingIncoming = -1
	assert.Error(t, a.CheckInvariant())
}

// Replaying the full event stream from zero must land on exactly the stored
// balances.
func TestReplayMatchesLiveBalances(t *testing.T) {
	a := NewAccount(uuid.New())
	bookingA, bookingB := uuid.New(), uuid.New()
	var events []*Event

	apply := func(ev *Event, err error) {
		require.NoError(t, err)
		events = append(events, ev)
	}

	apply(a.AccruePending(40000, bookingA))
	apply(a.AccruePending(25000, bookingB))
	apply(a.RecognizeRevenue(40000, 1500, bookingA))
	apply(a.HoldFunds(8000, "dispute", "ops@example.com", nil))
	apply(a.RecordExternalCharge(3000, "card charge", "ops@example.com"))
	apply(a.ChargeBalance(2000, "damage", "ops@example.com"))
	apply(a.ReleaseFunds(8000, "resolved", "ops@example.com"))
	payout, err := a.ForcePayout(12000, "payout", "ops@example.com")
	require.NoError(t, err)
	events = append(events, payout)
	apply(a.CompensatePayout(12000, payout.ID, "transfer failed"))
	apply(a.ReversePending(25000, bookingB, "cancelled"))
	apply(a.SetPayoutChannelEnabled(false, "review", "risk@example.com"))

	replayed := Replay(events)

	assert.Equal(t, a.Current, replayed.Current)
	assert.Equal(t, a.Hold, replayed.Hold)
	assert.Equal(t, a.PendingIncoming, replayed.PendingIncoming)
	assert.Equal(t, a.LifetimePaidOut, replayed.LifetimePaidOut)
}

func TestReplayIgnoresExternalCharges(t *testing.T) {
	internal := &Event{Type: EventCharge, Amount: 500}
	external := &Event{Type: EventCharge, Amount: 500, External: true}

	s := Replay([]*Event{internal, external})

	assert.Equal(t, int64(-500), s.Current, "only the internal charge moves the balance")
}
