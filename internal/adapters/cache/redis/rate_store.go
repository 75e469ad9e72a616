package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
)

const defaultKeyPrefix = "ledger:rate:"

// RateStore shares rate quotes between instances. Quotes expire on their own TTL.
type RateStore struct {
	client *goredis.Client
	prefix string
}

// NewClient parses a redis:// URL and checks the server answers.
func NewClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func NewRateStore(client *goredis.Client) *RateStore {
	return &RateStore{client: client, prefix: defaultKeyPrefix}
}

var _ portsrepo.RateQuoteStore = (*RateStore)(nil)

func (s *RateStore) key(pair domain.CurrencyPair) string {
	return s.prefix + pair.Base + ":" + pair.Quote
}

func (s *RateStore) GetQuote(ctx context.Context, pair domain.CurrencyPair) (*domain.RateQuote, error) {
	raw, err := s.client.Get(ctx, s.key(pair)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no cached quote for %s", pair))
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", pair, err)
	}
	var q domain.RateQuote
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("decode cached quote %s: %w", pair, err)
	}
	return &q, nil
}

func (s *RateStore) SaveQuote(ctx context.Context, quote domain.RateQuote, ttl time.Duration) error {
	raw, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("encode quote %s: %w", quote.Pair(), err)
	}
	if err := s.client.Set(ctx, s.key(quote.Pair()), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", quote.Pair(), err)
	}
	return nil
}
