package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fleetops-rental-core/internal/operations_api/middleware"
	"github.com/fleetops-rental-core/internal/operations_api/service"
)

// SettlementHandler handles partner ledger requests
type SettlementHandler struct {
	settlementService service.SettlementService
	logger            *slog.Logger
}

// NewSettlementHandler creates a new settlement handler
func NewSettlementHandler(settlementService service.SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
		logger:            logger,
	}
}

// GetAccount handles GET /api/v1/partners/:id/ledger
func (h *SettlementHandler) GetAccount(c *gin.Context) {
	partnerID, ok := h.partnerID(c)
	if !ok {
		return
	}

	acc, err := h.settlementService.GetAccount(c.Request.Context(), partnerID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// ChargeBalance handles POST /api/v1/partners/:id/ledger/charge
func (h *SettlementHandler) ChargeBalance(c *gin.Context) {
	partnerID, ok := h.partnerID(c)
	if !ok {
		return
	}

	var req LedgerOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	ev, err := h.settlementService.ChargeBalance(c.Request.Context(), partnerID, req.Amount, req.Reason, middleware.GetOperator(c), req.External)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapEventToResponse(ev))
}

// HoldFunds handles POST /api/v1/partners/:id/ledger/hold
func (h *SettlementHandler) HoldFunds(c *gin.Context) {
	partnerID, ok := h.partnerID(c)
	if !ok {
		return
	}

	var req LedgerOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	var until *time.Time
	if req.HoldUntil != "" {
		t, err := time.Parse(time.RFC3339, req.HoldUntil)
		if err != nil {
			RespondBadRequest(c, "Invalid hold_until timestamp, expected RFC3339")
			return
		}
		until = &t
	}

	ev, err := h.settlementService.HoldFunds(c.Request.Context(), partnerID, req.Amount, req.Reason, middleware.GetOperator(c), until)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapEventToResponse(ev))
}

// ReleaseFunds handles POST /api/v1/partners/:id/ledger/release
func (h *SettlementHandler) ReleaseFunds(c *gin.Context) {
	partnerID, ok := h.partnerID(c)
	if !ok {
		return
	}

	var req LedgerOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	ev, err := h.settlementService.ReleaseFunds(c.Request.Context(), partnerID, req.Amount, req.Reason, middleware.GetOperator(c))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapEventToResponse(ev))
}

// ForcePayout handles POST /api/v1/partners/:id/ledger/payout
func (h *SettlementHandler) ForcePayout(c *gin.Context) {
	partnerID, ok := h.partnerID(c)
	if !ok {
		return
	}

	var req LedgerOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	ev, err := h.settlementService.ForcePayout(c.Request.Context(), partnerID, req.Amount, req.Reason, middleware.GetOperator(c))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapEventToResponse(ev))
}

// SetPayoutChannel handles PUT /api/v1/partners/:id/ledger/payout-channel
func (h *SettlementHandler) SetPayoutChannel(c *gin.Context) {
	partnerID, ok := h.partnerID(c)
	if !ok {
		return
	}

	var req ChannelToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	ev, err := h.settlementService.SetPayoutChannelEnabled(c.Request.Context(), partnerID, req.Enabled, req.Reason, middleware.GetOperator(c))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapEventToResponse(ev))
}

// SetInstantPayout handles PUT /api/v1/partners/:id/ledger/instant-payout
func (h *SettlementHandler) SetInstantPayout(c *gin.Context) {
	partnerID, ok := h.partnerID(c)
	if !ok {
		return
	}

	var req ChannelToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	ev, err := h.settlementService.SetInstantPayoutEnabled(c.Request.Context(), partnerID, req.Enabled, req.Reason, middleware.GetOperator(c))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapEventToResponse(ev))
}

// GetEvents handles GET /api/v1/partners/:id/ledger/events
func (h *SettlementHandler) GetEvents(c *gin.Context) {
	partnerID, ok := h.partnerID(c)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	events, total, err := h.settlementService.GetEvents(c.Request.Context(), partnerID, params.Page, params.PerPage)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]EventResponse, len(events))
	for i, ev := range events {
		responses[i] = mapEventToResponse(ev)
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, params.Page, params.PerPage, int(total))
}

// ReplayBalance handles GET /api/v1/partners/:id/ledger/replay
func (h *SettlementHandler) ReplayBalance(c *gin.Context) {
	partnerID, ok := h.partnerID(c)
	if !ok {
		return
	}

	replayed, stored, err := h.settlementService.ReplayBalance(c.Request.Context(), partnerID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	match := replayed.Current == stored.Current &&
		replayed.Hold == stored.Hold &&
		replayed.PendingIncoming == stored.PendingIncoming &&
		replayed.LifetimePaidOut == stored.LifetimePaidOut

	RespondOK(c, ReplayResponse{
		Stored:   mapAccountToResponse(stored),
		Replayed: replayed,
		Match:    match,
	})
}

// partnerID parses the :id path parameter, responding 400 on garbage
func (h *SettlementHandler) partnerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid partner ID format")
		return uuid.Nil, false
	}
	return id, true
}
