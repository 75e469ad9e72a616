package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/exchange_ledger/internal/core/ports/services"
)

// rateCache serves quotes no older than maxAge, falling back to quotes up to
// maxAge+grace old only when the source is failing.
type rateCache struct {
	BaseService
	store        portsrepo.RateQuoteStore
	source       portsgw.RateSource
	maxAge       time.Duration
	grace        time.Duration
	recentWindow time.Duration
	fetchTimeout time.Duration
	hot          []domain.CurrencyPair

	fetches singleflight.Group

	mu     sync.Mutex
	recent map[domain.CurrencyPair]time.Time
}

// RateCacheOption configures the rate cache.
type RateCacheOption func(*rateCache)

// WithMaxAge sets how old a quote may be and still be served.
func WithMaxAge(d time.Duration) RateCacheOption {
	return func(c *rateCache) {
		c.maxAge = d
	}
}

// WithGracePeriod sets how much older than maxAge a quote may be when the source is down.
func WithGracePeriod(d time.Duration) RateCacheOption {
	return func(c *rateCache) {
		c.grace = d
	}
}

// WithHotPairs sets pairs that are always refreshed in the background.
func WithHotPairs(pairs []domain.CurrencyPair) RateCacheOption {
	return func(c *rateCache) {
		c.hot = pairs
	}
}

// WithRecentWindow sets how long a requested pair stays hot.
func WithRecentWindow(d time.Duration) RateCacheOption {
	return func(c *rateCache) {
		c.recentWindow = d
	}
}

// WithFetchTimeout bounds one source fetch. Fetches are shared between callers, so they
// do not inherit any one caller's cancellation.
func WithFetchTimeout(d time.Duration) RateCacheOption {
	return func(c *rateCache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithRateClock overrides the clock.
func WithRateClock(now func() time.Time) RateCacheOption {
	return func(c *rateCache) {
		c.now = now
	}
}

// WithRateMetrics sets the metrics sink.
func WithRateMetrics(m *Metrics) RateCacheOption {
	return func(c *rateCache) {
		c.metrics = m
	}
}

// NewRateCache creates the rate cache.
func NewRateCache(store portsrepo.RateQuoteStore, source portsgw.RateSource, opts ...RateCacheOption) portssvc.RateSvcFacade {
	c := &rateCache{
		store:        store,
		source:       source,
		maxAge:       30 * time.Second,
		recentWindow: 10 * time.Minute,
		fetchTimeout: 10 * time.Second,
		recent:       make(map[domain.CurrencyPair]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ portssvc.RateSvcFacade = (*rateCache)(nil)

// GetRate returns a fresh quote, fetching on a miss. A stale quote inside the grace
// period is served only when the fetch fails.
func (c *rateCache) GetRate(ctx context.Context, base, quote string) (domain.RateQuote, error) {
	pair, err := domain.NewCurrencyPair(base, quote)
	if err != nil {
		return domain.RateQuote{}, err
	}
	c.touch(pair)

	cached, err := c.store.GetQuote(ctx, pair)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			c.GetLogger(ctx).Warn("Rate store lookup failed", slog.String("pair", pair.String()), slog.String("error", err.Error()))
		}
		cached = nil
	}
	if cached != nil && cached.Age(c.Now()) <= c.maxAge {
		c.metrics.rateLookup("hit")
		return *cached, nil
	}

	fresh, fetchErr := c.fetch(ctx, pair)
	if fetchErr == nil {
		c.metrics.rateLookup("fetched")
		return fresh, nil
	}

	if cached != nil && c.grace > 0 && cached.Age(c.Now()) <= c.maxAge+c.grace {
		c.metrics.rateLookup("stale")
		c.GetLogger(ctx).Warn("Serving stale rate, source unavailable",
			slog.String("pair", pair.String()),
			slog.Duration("age", cached.Age(c.Now())),
			slog.String("error", fetchErr.Error()))
		return *cached, nil
	}

	c.metrics.rateLookup("unavailable")
	return domain.RateQuote{}, fmt.Errorf("%w: %s: %v", apperrors.ErrRateUnavailable, pair, fetchErr)
}

// fetch loads a quote from the source and stores it. Concurrent fetches of one pair share a call.
func (c *rateCache) fetch(ctx context.Context, pair domain.CurrencyPair) (domain.RateQuote, error) {
	v, err, _ := c.fetches.Do(pair.String(), func() (interface{}, error) {
		if c.source == nil {
			return domain.RateQuote{}, errors.New("no rate source configured")
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		start := time.Now()
		q, err := c.source.FetchRate(ctx, pair)
		c.metrics.rateFetch(time.Since(start).Seconds())
		if err != nil {
			return domain.RateQuote{}, err
		}
		if !q.Rate.IsPositive() {
			return domain.RateQuote{}, fmt.Errorf("source returned non-positive rate %s for %s", q.Rate.String(), pair)
		}
		q.Base, q.Quote = pair.Base, pair.Quote
		if q.FetchedAt.IsZero() {
			q.FetchedAt = c.Now()
		}
		if err := c.store.SaveQuote(ctx, q, c.maxAge+c.grace); err != nil {
			c.GetLogger(ctx).Warn("Failed to store rate", slog.String("pair", pair.String()), slog.String("error", err.Error()))
		}
		return q, nil
	})
	if err != nil {
		return domain.RateQuote{}, err
	}
	return v.(domain.RateQuote), nil
}

// Refresh fetches and stores a pair regardless of the cached quote's age.
func (c *rateCache) Refresh(ctx context.Context, pair domain.CurrencyPair) error {
	_, err := c.fetch(ctx, pair)
	return err
}

func (c *rateCache) touch(pair domain.CurrencyPair) {
	c.mu.Lock()
	c.recent[pair] = c.Now()
	c.mu.Unlock()
}

// HotPairs returns configured pairs plus pairs requested within the recent window.
func (c *rateCache) HotPairs() []domain.CurrencyPair {
	now := c.Now()
	seen := make(map[domain.CurrencyPair]struct{}, len(c.hot))
	out := make([]domain.CurrencyPair, 0, len(c.hot))
	for _, p := range c.hot {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	c.mu.Lock()
	for p, at := range c.recent {
		if now.Sub(at) > c.recentWindow {
			delete(c.recent, p)
			continue
		}
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
