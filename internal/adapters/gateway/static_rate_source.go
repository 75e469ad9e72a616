package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
)

const inverseRatePrecision = 18

// StaticRateSource serves fixed rates, e.g. for local runs. The inverse of a
// configured pair is derived.
type StaticRateSource struct {
	rates map[domain.CurrencyPair]decimal.Decimal
	now   func() time.Time
}

// ParseStaticRates parses "FLR/USD=0.25,BTC/USD=65000".
func ParseStaticRates(raw string) (*StaticRateSource, error) {
	s := &StaticRateSource{rates: make(map[domain.CurrencyPair]decimal.Decimal), now: time.Now}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pairStr, rateStr, ok := strings.Cut(part, "=")
		if !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("invalid static rate %q", part))
		}
		pair, err := domain.ParseCurrencyPair(strings.TrimSpace(pairStr))
		if err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(rateStr))
		if err != nil || !rate.IsPositive() {
			return nil, apperrors.NewValidationError(fmt.Sprintf("invalid rate for %s: %q", pair, rateStr))
		}
		s.rates[pair] = rate
	}
	return s, nil
}

var _ portsgw.RateSource = (*StaticRateSource)(nil)

func (s *StaticRateSource) FetchRate(_ context.Context, pair domain.CurrencyPair) (domain.RateQuote, error) {
	rate, ok := s.rates[pair]
	if !ok {
		inverse, found := s.rates[domain.CurrencyPair{Base: pair.Quote, Quote: pair.Base}]
		if !found {
			return domain.RateQuote{}, fmt.Errorf("%w: no static rate for %s", apperrors.ErrRateUnavailable, pair)
		}
		rate = decimal.NewFromInt(1).DivRound(inverse, inverseRatePrecision)
	}
	return domain.RateQuote{Base: pair.Base, Quote: pair.Quote, Rate: rate, FetchedAt: s.now()}, nil
}
