package handlers

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	portssvc "github.com/SscSPs/exchange_ledger/internal/core/ports/services"
	"github.com/SscSPs/exchange_ledger/internal/dto"
	"github.com/SscSPs/exchange_ledger/internal/middleware"
)

// ledgerHandler serves the owner-facing ledger operations.
type ledgerHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

func newLedgerHandler(ledgerService portssvc.LedgerSvcFacade) *ledgerHandler {
	return &ledgerHandler{ledgerService: ledgerService}
}

// RegisterLedgerRoutes registers the routes acting on the caller's own accounts.
func RegisterLedgerRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newLedgerHandler(ledgerService)

	rg.POST("/owners", h.registerOwner)
	rg.GET("/balances", h.getBalances)
	rg.POST("/deposits", h.createDeposit)
	rg.POST("/withdrawals", h.createWithdrawal)
	rg.POST("/exchanges", h.createExchange)
	rg.POST("/transfers", h.createTransfer)

	entries := rg.Group("/entries")
	{
		entries.GET("", h.listEntries)
		entries.GET("/:entryID", h.getEntry)
	}
}

// callerLogger returns the request logger and the authenticated owner, writing 401 when absent.
func callerLogger(c *gin.Context) (*slog.Logger, string, bool) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	ownerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Owner ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return logger, "", false
	}
	return logger, ownerID, true
}

// registerOwner godoc
// @Summary Register the caller as an owner
// @Description Registers the token subject so it can receive transfers. Idempotent.
// @Tags owners
// @Produce  json
// @Success 201 {object} dto.OwnerResponse "Newly registered"
// @Success 200 {object} dto.OwnerResponse "Already registered"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /owners [post]
func (h *ledgerHandler) registerOwner(c *gin.Context) {
	logger, ownerID, ok := callerLogger(c)
	if !ok {
		return
	}
	owner, created, err := h.ledgerService.RegisterOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, logger, "register owner", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.ToOwnerResponse(owner))
}

// getBalances godoc
// @Summary Get the caller's balances
// @Tags balances
// @Produce  json
// @Success 200 {object} dto.BalancesResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /balances [get]
func (h *ledgerHandler) getBalances(c *gin.Context) {
	logger, ownerID, ok := callerLogger(c)
	if !ok {
		return
	}
	accounts, err := h.ledgerService.GetBalances(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, logger, "get balances", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBalancesResponse(ownerID, accounts))
}

// createDeposit godoc
// @Summary Record an incoming payment
// @Description Records a pending deposit bound to a gateway reference. The balance changes only when the gateway confirms it.
// @Tags deposits
// @Accept  json
// @Produce  json
// @Param   deposit body dto.CreateDepositRequest true "Deposit"
// @Success 201 {object} dto.LedgerEntryResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 409 {object} map[string]string "Reference already used"
// @Failure 503 {object} map[string]string "Busy, retry"
// @Security BearerAuth
// @Router /deposits [post]
func (h *ledgerHandler) createDeposit(c *gin.Context) {
	logger, ownerID, ok := callerLogger(c)
	if !ok {
		return
	}
	var req dto.CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateDeposit", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	entry, err := h.ledgerService.Deposit(c.Request.Context(), ownerID, req)
	respondEntry(c, logger, "record deposit", http.StatusCreated, entry, err)
}

// createWithdrawal godoc
// @Summary Withdraw funds
// @Description Reserves the amount and asks the transfer gateway to pay it out. A payout that cannot start is returned as a failed entry.
// @Tags withdrawals
// @Accept  json
// @Produce  json
// @Param   withdrawal body dto.CreateWithdrawalRequest true "Withdrawal"
// @Success 201 {object} dto.LedgerEntryResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 503 {object} map[string]string "Busy, retry"
// @Security BearerAuth
// @Router /withdrawals [post]
func (h *ledgerHandler) createWithdrawal(c *gin.Context) {
	logger, ownerID, ok := callerLogger(c)
	if !ok {
		return
	}
	var req dto.CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateWithdrawal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	entry, err := h.ledgerService.Withdraw(c.Request.Context(), ownerID, req)
	respondEntry(c, logger, "withdraw", http.StatusCreated, entry, err)
}

// createExchange godoc
// @Summary Exchange between two assets
// @Tags exchanges
// @Accept  json
// @Produce  json
// @Param   exchange body dto.CreateExchangeRequest true "Exchange"
// @Success 201 {object} dto.LedgerEntryResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 503 {object} map[string]string "Rate unavailable or busy"
// @Security BearerAuth
// @Router /exchanges [post]
func (h *ledgerHandler) createExchange(c *gin.Context) {
	logger, ownerID, ok := callerLogger(c)
	if !ok {
		return
	}
	var req dto.CreateExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateExchange", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	entry, err := h.ledgerService.Exchange(c.Request.Context(), ownerID, req)
	respondEntry(c, logger, "exchange", http.StatusCreated, entry, err)
}

// createTransfer godoc
// @Summary Transfer to another owner
// @Tags transfers
// @Accept  json
// @Produce  json
// @Param   transfer body dto.CreateTransferRequest true "Transfer"
// @Success 201 {object} dto.LedgerEntryResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 422 {object} map[string]string "Insufficient funds or invalid recipient"
// @Failure 503 {object} map[string]string "Busy, retry"
// @Security BearerAuth
// @Router /transfers [post]
func (h *ledgerHandler) createTransfer(c *gin.Context) {
	logger, ownerID, ok := callerLogger(c)
	if !ok {
		return
	}
	var req dto.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateTransfer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	entry, err := h.ledgerService.Transfer(c.Request.Context(), ownerID, req)
	respondEntry(c, logger, "transfer", http.StatusCreated, entry, err)
}

// listEntries godoc
// @Summary List the caller's entries
// @Description Newest first, token paginated.
// @Tags entries
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListEntriesResponse
// @Failure 400 {object} map[string]string "Invalid query"
// @Security BearerAuth
// @Router /entries [get]
func (h *ledgerHandler) listEntries(c *gin.Context) {
	logger, ownerID, ok := callerLogger(c)
	if !ok {
		return
	}
	var params dto.ListEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListEntries", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	resp, err := h.ledgerService.ListEntriesByOwner(c.Request.Context(), ownerID, params)
	if err != nil {
		respondError(c, logger, "list entries", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getEntry godoc
// @Summary Get one entry
// @Description Owners see entries touching their accounts; admins see every entry.
// @Tags entries
// @Produce  json
// @Param   entryID path string true "Entry ID"
// @Success 200 {object} dto.LedgerEntryResponse
// @Failure 404 {object} map[string]string "Entry not found"
// @Security BearerAuth
// @Router /entries/{entryID} [get]
func (h *ledgerHandler) getEntry(c *gin.Context) {
	logger, ownerID, ok := callerLogger(c)
	if !ok {
		return
	}
	entryID := c.Param("entryID")
	entry, err := h.ledgerService.GetEntry(c.Request.Context(), entryID)
	if err != nil {
		respondError(c, logger, "get entry", err)
		return
	}
	if middleware.GetRoleFromContext(c) != middleware.RoleAdmin && !slices.Contains(entry.OwnerIDs(), ownerID) {
		// Entries of other owners are indistinguishable from missing ones.
		respondError(c, logger, "get entry", apperrors.NewNotFoundError("entry "+entryID+" not found"))
		return
	}
	c.JSON(http.StatusOK, dto.ToLedgerEntryResponse(entry))
}
