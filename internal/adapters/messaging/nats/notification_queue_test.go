package nats

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Disposition
	}{
		{"applied", nil, Ack},
		{"duplicate delivery", fmt.Errorf("%w: entry e-1", apperrors.ErrAlreadyProcessed), Ack},
		{"lock contention", fmt.Errorf("%w: account alice/USD", apperrors.ErrBusy), NakLater},
		{"bad signature", apperrors.ErrUntrustedNotification, Term},
		{"bad body", apperrors.NewValidationError("notification body is not valid JSON"), Term},
		{"unknown reference", apperrors.NewNotFoundError("reference abc"), Nak},
		{"database down", errors.New("connection refused"), Nak},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.err))
		})
	}
}

func TestMessageID(t *testing.T) {
	n := domain.RawNotification{GatewayName: "paygate", Body: []byte(`{"reference":"abc"}`), Signature: "s"}
	assert.Equal(t, MessageID(n), MessageID(n))

	other := n
	other.Body = []byte(`{"reference":"abd"}`)
	assert.NotEqual(t, MessageID(n), MessageID(other))

	// Field boundaries matter.
	a := domain.RawNotification{GatewayName: "ab", Signature: "c"}
	b := domain.RawNotification{GatewayName: "a", Signature: "bc"}
	assert.NotEqual(t, MessageID(a), MessageID(b))
}
