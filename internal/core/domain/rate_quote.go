package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// CurrencyPair is an ordered base/quote pair.
type CurrencyPair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// NewCurrencyPair normalizes both codes and rejects identical or empty codes.
func NewCurrencyPair(base, quote string) (CurrencyPair, error) {
	p := CurrencyPair{Base: NormalizeAsset(base), Quote: NormalizeAsset(quote)}
	if p.Base == "" || p.Quote == "" {
		return CurrencyPair{}, apperrors.NewValidationError("base and quote are required")
	}
	if p.Base == p.Quote {
		return CurrencyPair{}, apperrors.NewValidationError(fmt.Sprintf("base and quote must differ, got %s", p.Base))
	}
	return p, nil
}

// ParseCurrencyPair parses "BASE/QUOTE" or "BASE-QUOTE".
func ParseCurrencyPair(s string) (CurrencyPair, error) {
	sep := "/"
	if !strings.Contains(s, sep) {
		sep = "-"
	}
	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 {
		return CurrencyPair{}, apperrors.NewValidationError(fmt.Sprintf("invalid currency pair %q", s))
	}
	return NewCurrencyPair(parts[0], parts[1])
}

func (p CurrencyPair) String() string {
	return p.Base + "/" + p.Quote
}

// RateQuote is the price of one unit of Base expressed in Quote.
type RateQuote struct {
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// Pair returns the quote's pair.
func (q RateQuote) Pair() CurrencyPair {
	return CurrencyPair{Base: q.Base, Quote: q.Quote}
}

// Age is how long ago the quote was fetched.
func (q RateQuote) Age(now time.Time) time.Duration {
	return now.Sub(q.FetchedAt)
}

// Convert multiplies amount by the rate and truncates to scale decimal places.
func (q RateQuote) Convert(amount decimal.Decimal, scale int32) decimal.Decimal {
	return amount.Mul(q.Rate).Truncate(scale)
}
