package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fleetops-rental-core/internal/domain/booking"
	"github.com/fleetops-rental-core/internal/domain/verification"
	"github.com/fleetops-rental-core/internal/operations_api/middleware"
	"github.com/fleetops-rental-core/internal/operations_api/service"
)

// BookingHandler handles booking lifecycle requests
type BookingHandler struct {
	bookingService service.BookingService
	logger         *slog.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService service.BookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	partnerID, _ := uuid.Parse(req.PartnerID)
	vehicleID, _ := uuid.Parse(req.VehicleID)
	guestID, _ := uuid.Parse(req.GuestID)

	b, err := h.bookingService.CreateBooking(c.Request.Context(), partnerID, vehicleID, guestID, booking.PricingInput{
		DailyRate:     req.DailyRate,
		Subtotal:      req.Subtotal,
		Fees:          req.Fees,
		Taxes:         req.Taxes,
		DepositAmount: req.DepositAmount,
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapBookingToResponse(b))
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	b, err := h.bookingService.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// GetBookingProgress handles GET /api/v1/bookings/:id/progress
func (h *BookingHandler) GetBookingProgress(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	stages, fill, err := h.bookingService.GetBookingProgress(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, BookingProgressResponse{Stages: stages, FillPercent: fill})
}

// SubmitDocuments handles POST /api/v1/bookings/:id/documents
func (h *BookingHandler) SubmitDocuments(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	var req SubmitDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	b, err := h.bookingService.SubmitDocuments(c.Request.Context(), id, booking.DocumentSet{
		LicenseURL:   req.LicenseURL,
		SelfieURL:    req.SelfieURL,
		InsuranceURL: req.InsuranceURL,
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// ApproveVerification handles POST /api/v1/bookings/:id/verification/approve
func (h *BookingHandler) ApproveVerification(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	var req VerificationDecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}

	b, err := h.bookingService.ApproveVerification(c.Request.Context(), id, middleware.GetOperator(c), req.Notes)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// RejectVerification handles POST /api/v1/bookings/:id/verification/reject
func (h *BookingHandler) RejectVerification(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	var req VerificationRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	reason, err := verification.ParseRejectReason(req.Reason)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	b, err := h.bookingService.RejectVerification(c.Request.Context(), id, reason, middleware.GetOperator(c))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// RequestDocuments handles POST /api/v1/bookings/:id/verification/request-documents
func (h *BookingHandler) RequestDocuments(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	var req RequestDocumentsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}

	docReq, err := h.bookingService.RequestDocuments(c.Request.Context(), id, middleware.GetOperator(c), req.Message)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondAccepted(c, docReq)
}

// EnterPaymentHold handles POST /api/v1/bookings/:id/hold
func (h *BookingHandler) EnterPaymentHold(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	var req PaymentHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	var deadline *time.Time
	if req.DeadlineMinutes > 0 {
		d := time.Now().Add(time.Duration(req.DeadlineMinutes) * time.Minute)
		deadline = &d
	}

	b, err := h.bookingService.EnterPaymentHold(c.Request.Context(), id, req.Reason, middleware.GetOperator(c), deadline)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// ReleasePaymentHold handles POST /api/v1/bookings/:id/release-hold
func (h *BookingHandler) ReleasePaymentHold(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	b, err := h.bookingService.ReleasePaymentHold(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// CheckIn handles POST /api/v1/bookings/:id/check-in
func (h *BookingHandler) CheckIn(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	b, err := h.bookingService.CheckIn(c.Request.Context(), id, req.StartOdometer)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// CompleteTrip handles POST /api/v1/bookings/:id/complete
func (h *BookingHandler) CompleteTrip(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	var req CompleteTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	b, err := h.bookingService.CompleteTrip(c.Request.Context(), id, req.EndOdometer)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// Cancel handles POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	refund, err := booking.ParseRefundType(req.Refund)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	b, err := h.bookingService.Cancel(c.Request.Context(), id, req.Reason, middleware.GetOperator(c), refund)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// MarkNoShow handles POST /api/v1/bookings/:id/no-show
func (h *BookingHandler) MarkNoShow(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	b, err := h.bookingService.MarkNoShow(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// OpenDispute handles POST /api/v1/bookings/:id/dispute
func (h *BookingHandler) OpenDispute(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	b, err := h.bookingService.OpenDispute(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// ResolveDispute handles POST /api/v1/bookings/:id/dispute/resolve
func (h *BookingHandler) ResolveDispute(c *gin.Context) {
	id, ok := h.bookingID(c)
	if !ok {
		return
	}

	b, err := h.bookingService.ResolveDispute(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// SweepExpiredHolds handles POST /api/v1/operations/hold-expiry-sweep
func (h *BookingHandler) SweepExpiredHolds(c *gin.Context) {
	expired, err := h.bookingService.SweepExpiredHolds(c.Request.Context())
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, gin.H{"expired": expired})
}

// bookingID parses the :id path parameter, responding 400 on garbage
func (h *BookingHandler) bookingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid booking ID format")
		return uuid.Nil, false
	}
	return id, true
}
