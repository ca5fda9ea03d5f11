package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/fleetops-rental-core/internal/domain/booking"
	"github.com/fleetops-rental-core/internal/domain/partner"
	"github.com/fleetops-rental-core/internal/domain/settlement"
	"github.com/fleetops-rental-core/internal/domain/verification"
	"github.com/fleetops-rental-core/internal/platform/rails"
)

// respondDomainError maps domain refusals onto HTTP statuses: impossible
// moves and concurrent modification are conflicts (409), well-formed but
// refused operations are unprocessable (422), missing aggregates are 404 and
// external rail failures are bad gateways (502). Anything unmapped is a 500.
func respondDomainError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		invalidTransition  booking.ErrInvalidTransition
		preconditionFailed booking.ErrPreconditionFailed
		staleBooking       booking.ErrStaleBooking
		bookingNotFound    booking.ErrBookingNotFound
		partnerNotFound    partner.ErrPartnerNotFound
		stalePartner       partner.ErrStalePartner
		invalidThreshold   partner.ErrInvalidThreshold
		insufficientFunds  settlement.ErrInsufficientFunds
		overRelease        settlement.ErrOverRelease
		accountNotFound    settlement.ErrAccountNotFound
		staleAccount       settlement.ErrStaleAccount
	)

	switch {
	case errors.As(err, &invalidTransition):
		RespondConflict(c, "INVALID_TRANSITION", err.Error())
	case errors.As(err, &staleBooking), errors.As(err, &stalePartner), errors.As(err, &staleAccount):
		RespondConflict(c, "STALE_STATE", err.Error())
	case errors.As(err, &preconditionFailed):
		RespondUnprocessable(c, "PRECONDITION_FAILED", err.Error())
	case errors.Is(err, verification.ErrMissingArtifacts):
		RespondUnprocessable(c, "MISSING_ARTIFACTS", err.Error())
	case errors.Is(err, booking.ErrNoPriorStatus):
		RespondUnprocessable(c, "NO_PRIOR_STATUS", err.Error())
	case errors.Is(err, booking.ErrMissingCancelReason), errors.Is(err, booking.ErrMissingReviewer):
		RespondBadRequest(c, err.Error())
	case errors.As(err, &insufficientFunds):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", err.Error())
	case errors.As(err, &overRelease):
		RespondUnprocessable(c, "OVER_RELEASE", err.Error())
	case errors.Is(err, settlement.ErrPayoutChannelDisabled):
		RespondUnprocessable(c, "PAYOUT_CHANNEL_DISABLED", err.Error())
	case errors.Is(err, settlement.ErrInvalidAmount), errors.Is(err, settlement.ErrMissingReason):
		RespondBadRequest(c, err.Error())
	case errors.As(err, &invalidThreshold),
		errors.Is(err, partner.ErrInvalidRate),
		errors.Is(err, partner.ErrMissingChangeReason),
		errors.Is(err, partner.ErrEmptyName),
		errors.Is(err, partner.ErrNegativeFleetSize):
		RespondBadRequest(c, err.Error())
	case errors.As(err, &bookingNotFound), errors.As(err, &partnerNotFound), errors.As(err, &accountNotFound):
		RespondNotFound(c, err.Error())
	case errors.Is(err, rails.ErrRailUnavailable):
		RespondBadGateway(c, err.Error())
	default:
		logger.Error("Unhandled service error", "error", err)
		RespondInternalError(c)
	}
}
