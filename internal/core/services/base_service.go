package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	now     func() time.Time
	metrics *Metrics
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// LogOutcome logs err at a level matching its severity. Expected business
// rejections are warnings; anything unexpected is an error.
func (s *BaseService) LogOutcome(ctx context.Context, err error, msg string, keyvals ...any) {
	switch {
	case err == nil:
		s.LogInfo(ctx, msg, keyvals...)
	case apperrors.IsBenign(err):
		s.LogDebug(ctx, msg, append(keyvals, slog.String("outcome", err.Error()))...)
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrInsufficientFunds),
		errors.Is(err, apperrors.ErrInvalidRecipient),
		errors.Is(err, apperrors.ErrDuplicateReference),
		errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrBusy),
		errors.Is(err, apperrors.ErrRateUnavailable),
		errors.Is(err, apperrors.ErrUntrustedNotification):
		s.GetLogger(ctx).Warn(msg, append(keyvals, slog.String("error", err.Error()))...)
	default:
		s.LogError(ctx, err, msg, keyvals...)
	}
}

// Now returns the service clock.
func (s *BaseService) Now() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now()
}
