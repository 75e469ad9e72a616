package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
)

type storedQuote struct {
	quote     domain.RateQuote
	expiresAt time.Time
}

// RateStore keeps quotes in process memory until their TTL passes.
type RateStore struct {
	mu     sync.RWMutex
	quotes map[domain.CurrencyPair]storedQuote
	now    func() time.Time
}

// NewRateStore creates an empty rate store. A nil clock uses wall time.
func NewRateStore(now func() time.Time) *RateStore {
	if now == nil {
		now = time.Now
	}
	return &RateStore{quotes: make(map[domain.CurrencyPair]storedQuote), now: now}
}

var _ portsrepo.RateQuoteStore = (*RateStore)(nil)

func (s *RateStore) GetQuote(_ context.Context, pair domain.CurrencyPair) (*domain.RateQuote, error) {
	s.mu.RLock()
	sq, ok := s.quotes[pair]
	s.mu.RUnlock()
	if !ok || (!sq.expiresAt.IsZero() && s.now().After(sq.expiresAt)) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no quote for %s", pair))
	}
	q := sq.quote
	return &q, nil
}

func (s *RateStore) SaveQuote(_ context.Context, quote domain.RateQuote, ttl time.Duration) error {
	sq := storedQuote{quote: quote}
	if ttl > 0 {
		sq.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.quotes[quote.Pair()] = sq
	s.mu.Unlock()
	return nil
}
