package operations_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetops-rental-core/internal/config"
	"github.com/fleetops-rental-core/internal/operations_api/handler"
	"github.com/fleetops-rental-core/internal/operations_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	authCfg *config.AuthConfig,
	bookingHandler *handler.BookingHandler,
	partnerHandler *handler.PartnerHandler,
	settlementHandler *handler.SettlementHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints, operator token required
	v1 := r.Group("/api/v1")
	v1.Use(middleware.OperatorAuth(authCfg.JWTSecret, authCfg.Issuer))
	{
		// Booking lifecycle
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.GET("/:id/progress", bookingHandler.GetBookingProgress)
			bookings.POST("/:id/documents", bookingHandler.SubmitDocuments)
			bookings.POST("/:id/verification/approve", bookingHandler.ApproveVerification)
			bookings.POST("/:id/verification/reject", bookingHandler.RejectVerification)
			bookings.POST("/:id/verification/request-documents", bookingHandler.RequestDocuments)
			bookings.POST("/:id/hold", bookingHandler.EnterPaymentHold)
			bookings.POST("/:id/release-hold", bookingHandler.ReleasePaymentHold)
			bookings.POST("/:id/check-in", bookingHandler.CheckIn)
			bookings.POST("/:id/complete", bookingHandler.CompleteTrip)
			bookings.POST("/:id/cancel", bookingHandler.Cancel)
			bookings.POST("/:id/no-show", bookingHandler.MarkNoShow)
			bookings.POST("/:id/dispute", bookingHandler.OpenDispute)
			bookings.POST("/:id/dispute/resolve", bookingHandler.ResolveDispute)
		}

		// Partner management and settlement ledger
		partners := v1.Group("/partners")
		{
			partners.POST("", partnerHandler.CreatePartner)
			partners.GET("/:id", partnerHandler.GetPartner)
			partners.POST("/:id/fleet-sync", partnerHandler.SyncFleetSize)
			partners.POST("/:id/commission-override", partnerHandler.OverrideCommissionRate)
			partners.PUT("/:id/approval-mode", partnerHandler.SetApprovalMode)
			partners.POST("/:id/vehicle-approval", partnerHandler.DecideVehicleApproval)
			partners.GET("/:id/commission-history", partnerHandler.GetCommissionHistory)
			partners.GET("/:id/bookings", partnerHandler.ListBookings)

			partners.GET("/:id/ledger", settlementHandler.GetAccount)
			partners.POST("/:id/ledger/charge", settlementHandler.ChargeBalance)
			partners.POST("/:id/ledger/hold", settlementHandler.HoldFunds)
			partners.POST("/:id/ledger/release", settlementHandler.ReleaseFunds)
			partners.POST("/:id/ledger/payout", settlementHandler.ForcePayout)
			partners.PUT("/:id/ledger/payout-channel", settlementHandler.SetPayoutChannel)
			partners.PUT("/:id/ledger/instant-payout", settlementHandler.SetInstantPayout)
			partners.GET("/:id/ledger/events", settlementHandler.GetEvents)
			partners.GET("/:id/ledger/replay", settlementHandler.ReplayBalance)
		}

		// Scheduled operations, exposed for cron-style invocation
		operations := v1.Group("/operations")
		{
			operations.POST("/hold-expiry-sweep", bookingHandler.SweepExpiredHolds)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
