package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	"github.com/SscSPs/exchange_ledger/internal/dto"
)

const retryAfterSeconds = "1"

// statusAlreadyProcessed is the body status of a benign repeat.
const statusAlreadyProcessed = "already_processed"

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrAlreadyProcessed):
		return http.StatusOK
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrInsufficientFunds), errors.Is(err, apperrors.ErrInvalidRecipient):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrDuplicateReference), errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrBusy), errors.Is(err, apperrors.ErrRateUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrUntrustedNotification):
		return http.StatusUnauthorized
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code >= 400 && appErr.Code < 600 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// respondError writes the error response for op. Server faults are logged at error
// level with a generic body; client faults are logged as warnings and echoed.
func respondError(c *gin.Context, logger *slog.Logger, op string, err error) {
	status := statusForError(err)
	if errors.Is(err, apperrors.ErrBusy) {
		c.Header("Retry-After", retryAfterSeconds)
	}
	if status >= http.StatusInternalServerError && !errors.Is(err, apperrors.ErrBusy) && !errors.Is(err, apperrors.ErrRateUnavailable) {
		logger.Error("Failed to "+op, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": "Failed to " + op})
		return
	}
	logger.Warn("Rejected "+op, slog.String("error", err.Error()), slog.Int("status", status))
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondEntry writes an entry produced by an operation that may be a benign repeat.
func respondEntry(c *gin.Context, logger *slog.Logger, op string, okStatus int, entry *domain.LedgerEntry, err error) {
	if err != nil {
		if apperrors.IsBenign(err) && entry != nil {
			logger.Info("Already processed "+op, slog.String("entry_id", entry.EntryID))
			c.JSON(http.StatusOK, dto.ResolveResponse{Status: statusAlreadyProcessed, Entry: dto.ToLedgerEntryResponse(entry)})
			return
		}
		if apperrors.IsBenign(err) {
			c.JSON(http.StatusOK, gin.H{"status": statusAlreadyProcessed})
			return
		}
		respondError(c, logger, op, err)
		return
	}
	c.JSON(okStatus, dto.ToLedgerEntryResponse(entry))
}
