package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
)

// HTTPRateSource reads quotes from GET {url}?base=X&quote=Y returning {"rate": "0.25"}.
type HTTPRateSource struct {
	endpoint string
	client   *http.Client
	now      func() time.Time
}

func NewHTTPRateSource(endpoint string, timeout time.Duration) *HTTPRateSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPRateSource{endpoint: endpoint, client: &http.Client{Timeout: timeout}, now: time.Now}
}

var _ portsgw.RateSource = (*HTTPRateSource)(nil)

func (s *HTTPRateSource) FetchRate(ctx context.Context, pair domain.CurrencyPair) (domain.RateQuote, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return domain.RateQuote{}, fmt.Errorf("invalid rate source URL: %w", err)
	}
	q := u.Query()
	q.Set("base", pair.Base)
	q.Set("quote", pair.Quote)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.RateQuote{}, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.RateQuote{}, fmt.Errorf("%w: %s: %v", apperrors.ErrRateUnavailable, pair, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.RateQuote{}, fmt.Errorf("%w: %s: source answered %d", apperrors.ErrRateUnavailable, pair, resp.StatusCode)
	}

	var body struct {
		Rate decimal.Decimal `json:"rate"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return domain.RateQuote{}, fmt.Errorf("%w: %s: bad body: %v", apperrors.ErrRateUnavailable, pair, err)
	}
	return domain.RateQuote{Base: pair.Base, Quote: pair.Quote, Rate: body.Rate, FetchedAt: s.now()}, nil
}
