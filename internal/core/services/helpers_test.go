package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
)

// MockGateway is a mock type for the PaymentGateway interface
type MockGateway struct {
	mock.Mock
	name string
}

func (m *MockGateway) Name() string { return m.name }

func (m *MockGateway) VerifyByReference(ctx context.Context, reference string) (*domain.VerificationResult, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationResult), args.Error(1)
}

func (m *MockGateway) InitiateTransfer(ctx context.Context, instruction domain.TransferInstruction) error {
	args := m.Called(ctx, instruction)
	return args.Error(0)
}

func (m *MockGateway) Verify(notification domain.RawNotification) error {
	args := m.Called(notification)
	return args.Error(0)
}

// MockRateSource is a mock type for the RateSource interface
type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) FetchRate(ctx context.Context, pair domain.CurrencyPair) (domain.RateQuote, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(domain.RateQuote), args.Error(1)
}

type registry map[string]portsgw.PaymentGateway

func (r registry) Get(name string) (portsgw.PaymentGateway, bool) {
	gw, ok := r[name]
	return gw, ok
}

func (r registry) Names() []string {
	out := make([]string, 0, len(r))
	for name := range r {
		out = append(out, name)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.EntryEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.EntryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func quote(base, quoteAsset, rate string) domain.RateQuote {
	return domain.RateQuote{Base: base, Quote: quoteAsset, Rate: dec(rate)}
}
