package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SscSPs/exchange_ledger/internal/adapters/gateway"
	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
	portssvc "github.com/SscSPs/exchange_ledger/internal/core/ports/services"
	"github.com/SscSPs/exchange_ledger/internal/middleware"
)

const maxWebhookBody = 1 << 20

// webhookHandler receives gateway callbacks. With a queue configured the raw callback is
// enqueued for the reconciliation worker; otherwise it is applied inline.
type webhookHandler struct {
	reconciliation portssvc.ReconciliationSvcFacade
	queue          portsgw.NotificationQueue
}

// RegisterWebhookRoutes registers the unauthenticated callback endpoint. Trust comes from
// the body signature, checked by the reconciliation service.
func RegisterWebhookRoutes(rg gin.IRoutes, reconciliation portssvc.ReconciliationSvcFacade, queue portsgw.NotificationQueue) {
	h := &webhookHandler{reconciliation: reconciliation, queue: queue}
	rg.POST("/webhooks/:gateway", h.receive)
}

// receive godoc
// @Summary Gateway callback
// @Description Signed with HMAC-SHA256 of the raw body in X-Gateway-Signature. Repeated deliveries are acknowledged with status already_processed.
// @Tags webhooks
// @Accept  json
// @Produce  json
// @Param   gateway path string true "Gateway name"
// @Success 200 {object} dto.LedgerEntryResponse
// @Success 202 {object} map[string]string "Queued"
// @Failure 401 {object} map[string]string "Signature invalid"
// @Failure 503 {object} map[string]string "Busy, retry"
// @Router /webhooks/{gateway} [post]
func (h *webhookHandler) receive(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("gateway", c.Param("gateway")))

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		respondError(c, logger, "read notification", apperrors.NewValidationError("unreadable body"))
		return
	}
	if len(body) > maxWebhookBody {
		respondError(c, logger, "read notification", apperrors.NewAppError(http.StatusRequestEntityTooLarge, "notification body too large", apperrors.ErrValidation))
		return
	}

	notification := domain.RawNotification{
		GatewayName: c.Param("gateway"),
		Body:        body,
		Signature:   c.GetHeader(gateway.SignatureHeader),
	}

	if h.queue != nil {
		if err := h.queue.Enqueue(c.Request.Context(), notification); err != nil {
			logger.Error("Failed to enqueue notification", slog.String("error", err.Error()))
			c.Header("Retry-After", retryAfterSeconds)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to accept notification"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
		return
	}

	entry, err := h.reconciliation.HandleNotification(c.Request.Context(), notification)
	respondEntry(c, logger, "apply notification", http.StatusOK, entry, err)
}
