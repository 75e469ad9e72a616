package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/exchange_ledger/internal/core/ports/services"
	"github.com/SscSPs/exchange_ledger/internal/dto"
	"github.com/SscSPs/exchange_ledger/internal/middleware"
)

// adminHandler serves operations reserved to the admin role.
type adminHandler struct {
	ledgerService  portssvc.LedgerSvcFacade
	reconciliation portssvc.ReconciliationSvcFacade
}

// RegisterAdminRoutes registers the admin group. Callers must carry the admin role claim.
func RegisterAdminRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade, reconciliation portssvc.ReconciliationSvcFacade) {
	h := &adminHandler{ledgerService: ledgerService, reconciliation: reconciliation}

	admin := rg.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.POST("/entries/:entryID/cancel", h.cancelEntry)
		admin.POST("/entries/:entryID/reverse", h.reverseEntry)
		admin.POST("/resolve", h.resolveSettlement)
		admin.GET("/accounts/:ownerID/:asset/audit", h.auditAccount)
	}
}

// cancelEntry godoc
// @Summary Cancel a pending deposit or withdrawal
// @Tags admin
// @Produce  json
// @Param   entryID path string true "Entry ID"
// @Success 200 {object} dto.LedgerEntryResponse
// @Success 200 {object} dto.ResolveResponse "Already finalized"
// @Failure 403 {object} map[string]string "Not an admin"
// @Failure 404 {object} map[string]string "Entry not found"
// @Security BearerAuth
// @Router /admin/entries/{entryID}/cancel [post]
func (h *adminHandler) cancelEntry(c *gin.Context) {
	logger, actorID, ok := callerLogger(c)
	if !ok {
		return
	}
	entryID := c.Param("entryID")
	logger = logger.With(slog.String("entry_id", entryID), slog.String("actor_id", actorID))

	entry, err := h.reconciliation.Cancel(c.Request.Context(), entryID)
	respondEntry(c, logger, "cancel entry", http.StatusOK, entry, err)
}

// reverseEntry godoc
// @Summary Reverse a completed entry
// @Description Appends a compensating entry. The original is never modified. Reversing twice returns the existing reversal.
// @Tags admin
// @Accept  json
// @Produce  json
// @Param   entryID path string true "Entry ID"
// @Param   reversal body dto.ReverseEntryRequest false "Reason"
// @Success 201 {object} dto.LedgerEntryResponse
// @Success 200 {object} dto.ResolveResponse "Already reversed"
// @Failure 400 {object} map[string]string "Entry cannot be reversed"
// @Failure 422 {object} map[string]string "Counterparty no longer holds the funds"
// @Security BearerAuth
// @Router /admin/entries/{entryID}/reverse [post]
func (h *adminHandler) reverseEntry(c *gin.Context) {
	logger, actorID, ok := callerLogger(c)
	if !ok {
		return
	}
	var req dto.ReverseEntryRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for ReverseEntry", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}
	entryID := c.Param("entryID")
	entry, err := h.ledgerService.Reverse(c.Request.Context(), entryID, req, actorID)
	respondEntry(c, logger.With(slog.String("entry_id", entryID)), "reverse entry", http.StatusCreated, entry, err)
}

// resolveSettlement godoc
// @Summary Resolve a pending settlement manually
// @Description Applies a gateway outcome by reference, exactly as a verified callback would.
// @Tags admin
// @Accept  json
// @Produce  json
// @Param   resolution body dto.ResolveSettlementRequest true "Outcome"
// @Success 200 {object} dto.ResolveResponse
// @Failure 400 {object} map[string]string "Invalid input or amount mismatch"
// @Failure 404 {object} map[string]string "Unknown reference"
// @Security BearerAuth
// @Router /admin/resolve [post]
func (h *adminHandler) resolveSettlement(c *gin.Context) {
	logger, actorID, ok := callerLogger(c)
	if !ok {
		return
	}
	var req dto.ResolveSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ResolveSettlement", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	logger = logger.With(slog.String("actor_id", actorID), slog.String("gateway", req.GatewayName), slog.String("reference", req.ExternalReference))

	entry, err := h.reconciliation.Resolve(c.Request.Context(), req)
	if err != nil {
		respondEntry(c, logger, "resolve settlement", http.StatusOK, entry, err)
		return
	}
	c.JSON(http.StatusOK, dto.ResolveResponse{Status: string(entry.Status), Entry: dto.ToLedgerEntryResponse(entry)})
}

// auditAccount godoc
// @Summary Audit an account
// @Description Recomputes the balance from the account's entries and compares it with the stored balance.
// @Tags admin
// @Produce  json
// @Param   ownerID path string true "Owner ID"
// @Param   asset path string true "Asset code"
// @Success 200 {object} dto.AccountAudit
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /admin/accounts/{ownerID}/{asset}/audit [get]
func (h *adminHandler) auditAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	audit, err := h.ledgerService.AuditAccount(c.Request.Context(), c.Param("ownerID"), c.Param("asset"))
	if err != nil {
		respondError(c, logger, "audit account", err)
		return
	}
	c.JSON(http.StatusOK, audit)
}
