package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/exchange_ledger/internal/core/ports/services"
	"github.com/SscSPs/exchange_ledger/internal/dto"
	"github.com/SscSPs/exchange_ledger/internal/middleware"
)

type rateHandler struct {
	rateService portssvc.RateSvcFacade
}

// RegisterRateRoutes registers the rate lookup.
func RegisterRateRoutes(rg *gin.RouterGroup, rateService portssvc.RateSvcFacade) {
	h := &rateHandler{rateService: rateService}
	rg.GET("/rates/:base/:quote", h.getRate)
}

// getRate godoc
// @Summary Get an exchange rate
// @Description Returns the cached quote, refreshing it from the rate source when stale.
// @Tags rates
// @Produce  json
// @Param   base path string true "Base asset"
// @Param   quote path string true "Quote asset"
// @Success 200 {object} dto.RateResponse
// @Failure 400 {object} map[string]string "Invalid pair"
// @Failure 503 {object} map[string]string "Rate unavailable"
// @Security BearerAuth
// @Router /rates/{base}/{quote} [get]
func (h *rateHandler) getRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	q, err := h.rateService.GetRate(c.Request.Context(), c.Param("base"), c.Param("quote"))
	if err != nil {
		respondError(c, logger, "get rate", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToRateResponse(q))
}
