package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/exchange_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	"github.com/SscSPs/exchange_ledger/internal/core/services"
)

var flrUSD = domain.CurrencyPair{Base: "FLR", Quote: "USD"}

func TestRateCache_FreshStaleUnavailable(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	source := new(MockRateSource)
	cache := services.NewRateCache(memory.NewRateStore(clock.Now), source,
		services.WithMaxAge(30*time.Second),
		services.WithGracePeriod(30*time.Second),
		services.WithRateClock(clock.Now),
	)

	source.On("FetchRate", mock.Anything, flrUSD).Return(quote("FLR", "USD", "0.25"), nil).Once()
	q, err := cache.GetRate(ctx, "flr", "usd")
	require.NoError(t, err)
	assert.Equal(t, "0.25", q.Rate.String())
	assert.Equal(t, clock.Now(), q.FetchedAt)

	clock.Advance(20 * time.Second)
	q, err = cache.GetRate(ctx, "FLR", "USD")
	require.NoError(t, err)
	assert.Equal(t, "0.25", q.Rate.String())

	// Past max age with a failing source: the stale quote is served inside the grace period.
	clock.Advance(20 * time.Second)
	source.On("FetchRate", mock.Anything, flrUSD).Return(domain.RateQuote{}, errors.New("upstream down"))
	q, err = cache.GetRate(ctx, "FLR", "USD")
	require.NoError(t, err)
	assert.Equal(t, "0.25", q.Rate.String())

	clock.Advance(30 * time.Second)
	_, err = cache.GetRate(ctx, "FLR", "USD")
	assert.ErrorIs(t, err, apperrors.ErrRateUnavailable)
}

func TestRateCache_StaleNotServedWhenSourceHealthy(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	source := new(MockRateSource)
	cache := services.NewRateCache(memory.NewRateStore(clock.Now), source,
		services.WithMaxAge(30*time.Second),
		services.WithGracePeriod(time.Minute),
		services.WithRateClock(clock.Now),
	)

	source.On("FetchRate", mock.Anything, flrUSD).Return(quote("FLR", "USD", "0.25"), nil).Once()
	_, err := cache.GetRate(ctx, "FLR", "USD")
	require.NoError(t, err)

	clock.Advance(45 * time.Second)
	source.On("FetchRate", mock.Anything, flrUSD).Return(quote("FLR", "USD", "0.30"), nil).Once()
	q, err := cache.GetRate(ctx, "FLR", "USD")
	require.NoError(t, err)
	assert.Equal(t, "0.3", q.Rate.String())
	source.AssertExpectations(t)
}

func TestRateCache_RejectsBadPairsAndRates(t *testing.T) {
	ctx := context.Background()
	source := new(MockRateSource)
	cache := services.NewRateCache(memory.NewRateStore(nil), source)

	_, err := cache.GetRate(ctx, "USD", "usd")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	source.On("FetchRate", mock.Anything, flrUSD).Return(quote("FLR", "USD", "0"), nil)
	_, err = cache.GetRate(ctx, "FLR", "USD")
	assert.ErrorIs(t, err, apperrors.ErrRateUnavailable)
}

type countingSource struct {
	mu    sync.Mutex
	calls int
	gate  chan struct{}
}

func (s *countingSource) FetchRate(_ context.Context, pair domain.CurrencyPair) (domain.RateQuote, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	<-s.gate
	return domain.RateQuote{Base: pair.Base, Quote: pair.Quote, Rate: dec("0.25")}, nil
}

func TestRateCache_ConcurrentMissesShareOneFetch(t *testing.T) {
	source := &countingSource{gate: make(chan struct{})}
	cache := services.NewRateCache(memory.NewRateStore(nil), source)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetRate(context.Background(), "FLR", "USD")
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(source.gate)
	wg.Wait()

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Equal(t, 1, source.calls)
}

type cancelSensitiveSource struct {
	gate chan struct{}
}

func (s *cancelSensitiveSource) FetchRate(ctx context.Context, pair domain.CurrencyPair) (domain.RateQuote, error) {
	<-s.gate
	if err := ctx.Err(); err != nil {
		return domain.RateQuote{}, err
	}
	return domain.RateQuote{Base: pair.Base, Quote: pair.Quote, Rate: dec("0.25")}, nil
}

func TestRateCache_SharedFetchSurvivesCancelledCaller(t *testing.T) {
	source := &cancelSensitiveSource{gate: make(chan struct{})}
	cache := services.NewRateCache(memory.NewRateStore(nil), source, services.WithFetchTimeout(time.Second))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = cache.GetRate(firstCtx, "FLR", "USD")
	}()
	time.Sleep(20 * time.Millisecond)
	go func() {
		defer wg.Done()
		_, errs[1] = cache.GetRate(context.Background(), "FLR", "USD")
	}()
	time.Sleep(20 * time.Millisecond)
	cancelFirst()
	close(source.gate)
	wg.Wait()

	assert.NoError(t, errs[1])
	q, err := cache.GetRate(context.Background(), "FLR", "USD")
	require.NoError(t, err)
	assert.Equal(t, "0.25", q.Rate.String())
}

func TestRateCache_HotPairsAndRefresher(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	source := new(MockRateSource)
	cache := services.NewRateCache(memory.NewRateStore(clock.Now), source,
		services.WithHotPairs([]domain.CurrencyPair{{Base: "BTC", Quote: "USD"}}),
		services.WithRecentWindow(time.Minute),
		services.WithRateClock(clock.Now),
	)
	source.On("FetchRate", mock.Anything, mock.Anything).Return(quote("X", "Y", "2"), nil)

	_, err := cache.GetRate(ctx, "FLR", "USD")
	require.NoError(t, err)
	assert.Equal(t, []domain.CurrencyPair{{Base: "BTC", Quote: "USD"}, flrUSD}, cache.HotPairs())

	refreshed, failed := services.NewRateRefresher(cache, time.Second, nil).RefreshOnce(ctx)
	assert.Equal(t, 2, refreshed)
	assert.Equal(t, 0, failed)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, []domain.CurrencyPair{{Base: "BTC", Quote: "USD"}}, cache.HotPairs())
}
