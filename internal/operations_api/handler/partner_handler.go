package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fleetops-rental-core/internal/domain/partner"
	"github.com/fleetops-rental-core/internal/operations_api/middleware"
	"github.com/fleetops-rental-core/internal/operations_api/service"
)

// PartnerHandler handles fleet partner requests
type PartnerHandler struct {
	partnerService service.PartnerService
	bookingService service.BookingService
	logger         *slog.Logger
}

// NewPartnerHandler creates a new partner handler
func NewPartnerHandler(partnerService service.PartnerService, bookingService service.BookingService, logger *slog.Logger) *PartnerHandler {
	return &PartnerHandler{
		partnerService: partnerService,
		bookingService: bookingService,
		logger:         logger,
	}
}

// CreatePartner handles POST /api/v1/partners
func (h *PartnerHandler) CreatePartner(c *gin.Context) {
	var req CreatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	p, err := h.partnerService.CreatePartner(c.Request.Context(), req.Name, req.FleetSize)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapPartnerToResponse(p))
}

// GetPartner handles GET /api/v1/partners/:id
func (h *PartnerHandler) GetPartner(c *gin.Context) {
	id, ok := h.partnerID(c)
	if !ok {
		return
	}

	p, err := h.partnerService.GetPartner(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPartnerToResponse(p))
}

// SyncFleetSize handles POST /api/v1/partners/:id/fleet-sync
func (h *PartnerHandler) SyncFleetSize(c *gin.Context) {
	id, ok := h.partnerID(c)
	if !ok {
		return
	}

	p, err := h.partnerService.SyncFleetSize(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPartnerToResponse(p))
}

// OverrideCommissionRate handles POST /api/v1/partners/:id/commission-override
func (h *PartnerHandler) OverrideCommissionRate(c *gin.Context) {
	id, ok := h.partnerID(c)
	if !ok {
		return
	}

	var req CommissionOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	p, err := h.partnerService.OverrideCommissionRate(c.Request.Context(), id, req.RateBps, middleware.GetOperator(c), req.Reason)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPartnerToResponse(p))
}

// SetApprovalMode handles PUT /api/v1/partners/:id/approval-mode
func (h *PartnerHandler) SetApprovalMode(c *gin.Context) {
	id, ok := h.partnerID(c)
	if !ok {
		return
	}

	var req ApprovalModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	mode, err := partner.ParseApprovalMode(req.Mode)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	p, err := h.partnerService.SetApprovalMode(c.Request.Context(), id, mode, req.Threshold)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPartnerToResponse(p))
}

// DecideVehicleApproval handles POST /api/v1/partners/:id/vehicle-approval
func (h *PartnerHandler) DecideVehicleApproval(c *gin.Context) {
	id, ok := h.partnerID(c)
	if !ok {
		return
	}

	var req VehicleApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	decision, err := h.partnerService.DecideVehicleApproval(c.Request.Context(), id, req.RiskScore)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, gin.H{"decision": decision})
}

// GetCommissionHistory handles GET /api/v1/partners/:id/commission-history
func (h *PartnerHandler) GetCommissionHistory(c *gin.Context) {
	id, ok := h.partnerID(c)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, total, err := h.partnerService.GetCommissionHistory(c.Request.Context(), id, params.Page, params.PerPage)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]CommissionHistoryResponse, len(entries))
	for i, e := range entries {
		responses[i] = mapHistoryEntryToResponse(e)
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, params.Page, params.PerPage, int(total))
}

// ListBookings handles GET /api/v1/partners/:id/bookings
func (h *PartnerHandler) ListBookings(c *gin.Context) {
	id, ok := h.partnerID(c)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	bookings, err := h.bookingService.ListPartnerBookings(c.Request.Context(), id, params.Page, params.PerPage)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		responses[i] = mapBookingToResponse(b)
	}

	RespondOK(c, responses)
}

// partnerID parses the :id path parameter, responding 400 on garbage
func (h *PartnerHandler) partnerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid partner ID format")
		return uuid.Nil, false
	}
	return id, true
}
