package services

import (
	"context"
	"log/slog"
	"time"

	portssvc "github.com/SscSPs/exchange_ledger/internal/core/ports/services"
)

// RateRefresher keeps hot pairs warm so exchanges rarely wait on the rate source.
// Nothing depends on it for correctness.
type RateRefresher struct {
	rates    portssvc.RateSvcFacade
	interval time.Duration
	logger   *slog.Logger
}

// NewRateRefresher creates a refresher. A nil logger uses slog.Default.
func NewRateRefresher(rates portssvc.RateSvcFacade, interval time.Duration, logger *slog.Logger) *RateRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &RateRefresher{rates: rates, interval: interval, logger: logger}
}

// Run refreshes every interval until ctx is cancelled.
func (r *RateRefresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RefreshOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce refreshes every hot pair once and reports how many succeeded and failed.
func (r *RateRefresher) RefreshOnce(ctx context.Context) (refreshed, failed int) {
	for _, pair := range r.rates.HotPairs() {
		if ctx.Err() != nil {
			return refreshed, failed
		}
		if err := r.rates.Refresh(ctx, pair); err != nil {
			failed++
			r.logger.Warn("Rate refresh failed", slog.String("pair", pair.String()), slog.String("error", err.Error()))
			continue
		}
		refreshed++
	}
	return refreshed, failed
}
