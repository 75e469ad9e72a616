package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
)

const maxResponseBytes = 1 << 20

// HTTPGateway talks to a payment gateway's REST API:
//
//	GET  {base}/transactions/{reference}  -> {"reference","status","amount"} (optionally under "data")
//	POST {base}/transfers                 <- domain.TransferInstruction
//
// Requests carry the API key as a bearer token.
type HTTPGateway struct {
	*HMACVerifier
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// HTTPGatewayConfig holds the settings of one gateway integration.
type HTTPGatewayConfig struct {
	Name          string
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Timeout       time.Duration
}

func NewHTTPGateway(cfg HTTPGatewayConfig) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		HMACVerifier: NewHMACVerifier(cfg.WebhookSecret),
		name:         cfg.Name,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		client:       &http.Client{Timeout: timeout},
	}
}

var _ portsgw.PaymentGateway = (*HTTPGateway)(nil)

func (g *HTTPGateway) Name() string { return g.name }

func (g *HTTPGateway) VerifyByReference(ctx context.Context, reference string) (*domain.VerificationResult, error) {
	if g.baseURL == "" {
		return nil, fmt.Errorf("gateway %s has no base URL", g.name)
	}
	body, status, err := g.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("gateway %s does not know reference %s", g.name, reference))
	}
	if status/100 != 2 {
		return nil, fmt.Errorf("gateway %s verify %s: unexpected status %d", g.name, reference, status)
	}

	parsed, err := domain.ParseGatewayNotification(body)
	if err != nil {
		return nil, fmt.Errorf("gateway %s verify %s: %w", g.name, reference, err)
	}
	if parsed.Reference != "" && parsed.Reference != reference {
		return nil, fmt.Errorf("gateway %s verify %s: answered for reference %s", g.name, reference, parsed.Reference)
	}
	return &domain.VerificationResult{
		Reference: parsed.Reference,
		Status:    parsed.Status,
		Amount:    parsed.Amount,
		Raw:       json.RawMessage(body),
	}, nil
}

func (g *HTTPGateway) InitiateTransfer(ctx context.Context, instruction domain.TransferInstruction) error {
	if g.baseURL == "" {
		// Nothing was sent, so the payout cannot have started.
		return fmt.Errorf("%w: gateway %s has no base URL", apperrors.ErrTransferRejected, g.name)
	}
	payload, err := json.Marshal(instruction)
	if err != nil {
		return fmt.Errorf("encode transfer %s: %w", instruction.Reference, err)
	}
	_, status, err := g.do(ctx, http.MethodPost, "/transfers", payload)
	if err != nil {
		return err
	}
	switch {
	case status/100 == 2:
		return nil
	case isDefinitiveRejection(status):
		return fmt.Errorf("%w: gateway %s refused transfer %s with status %d", apperrors.ErrTransferRejected, g.name, instruction.Reference, status)
	default:
		return fmt.Errorf("gateway %s transfer %s: unexpected status %d", g.name, instruction.Reference, status)
	}
}

// isDefinitiveRejection is true for 4xx answers that mean the payout was not accepted.
// Timeouts, throttling and conflicts may hide an accepted payout.
func isDefinitiveRejection(status int) bool {
	if status/100 != 4 {
		return false
	}
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return false
	}
	return true
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("gateway %s %s %s: %w", g.name, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read gateway %s response: %w", g.name, err)
	}
	return body, resp.StatusCode, nil
}
