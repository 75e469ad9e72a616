package nats

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
)

const (
	ackWait      = 30 * time.Second
	maxDeliver   = 10
	busyNakDelay = 2 * time.Second
	streamMaxAge = 72 * time.Hour
)

// QueueConfig names the stream, subject and durable consumer of the notification queue.
type QueueConfig struct {
	URL     string
	Stream  string
	Subject string
	Durable string
}

// NotificationQueue carries raw gateway callbacks from the webhook endpoint to the
// reconciliation worker through JetStream.
type NotificationQueue struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	cfg     QueueConfig
	consume jetstream.ConsumeContext
}

// Connect dials NATS and makes sure the stream exists.
func Connect(ctx context.Context, cfg QueueConfig) (*NotificationQueue, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("exchange-ledger"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{cfg.Subject},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     streamMaxAge,
		Duplicates: 10 * time.Minute,
		Replicas:   1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}
	return &NotificationQueue{nc: nc, js: js, cfg: cfg}, nil
}

var _ portsgw.NotificationQueue = (*NotificationQueue)(nil)

// Enqueue publishes the notification. Identical redeliveries from the gateway share a
// message id so JetStream drops them inside its duplicate window.
func (q *NotificationQueue) Enqueue(ctx context.Context, n domain.RawNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if _, err := q.js.Publish(ctx, q.cfg.Subject, data, jetstream.WithMsgID(MessageID(n))); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// MessageID derives a stable id from the gateway, signature and body.
func MessageID(n domain.RawNotification) string {
	h := sha256.New()
	h.Write([]byte(n.GatewayName))
	h.Write([]byte{0})
	h.Write([]byte(n.Signature))
	h.Write([]byte{0})
	h.Write(n.Body)
	return hex.EncodeToString(h.Sum(nil))
}

// Handler processes one notification.
type Handler func(ctx context.Context, n domain.RawNotification) (*domain.LedgerEntry, error)

// Disposition is what to do with a delivered message.
type Disposition int

const (
	Ack Disposition = iota
	NakLater
	Nak
	Term
)

// Decide maps a handler result to a delivery decision. Already processed is success.
// Untrusted and malformed notifications never get better, so they are terminated. An
// unknown reference is redelivered because the deposit may not be recorded yet.
func Decide(err error) Disposition {
	switch {
	case err == nil, apperrors.IsBenign(err):
		return Ack
	case apperrors.IsRetryable(err):
		return NakLater
	case errors.Is(err, apperrors.ErrUntrustedNotification),
		errors.Is(err, apperrors.ErrValidation):
		return Term
	default:
		return Nak
	}
}

// Start consumes notifications with handle until Stop is called.
func (q *NotificationQueue) Start(ctx context.Context, handle Handler, logger *slog.Logger) error {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, q.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       q.cfg.Durable,
		FilterSubject: q.cfg.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ackWait,
		MaxDeliver:    maxDeliver,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", q.cfg.Durable, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		q.process(ctx, msg, handle, logger)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.cfg.Subject, err)
	}
	q.consume = cc
	logger.Info("Consuming gateway notifications", slog.String("subject", q.cfg.Subject), slog.String("consumer", q.cfg.Durable))
	return nil
}

func (q *NotificationQueue) process(ctx context.Context, msg jetstream.Msg, handle Handler, logger *slog.Logger) {
	var n domain.RawNotification
	var err error
	if uerr := json.Unmarshal(msg.Data(), &n); uerr != nil {
		err = apperrors.NewValidationError("undecodable notification message")
	} else {
		_, err = handle(ctx, n)
	}

	var ackErr error
	switch Decide(err) {
	case Ack:
		ackErr = msg.Ack()
	case NakLater:
		ackErr = msg.NakWithDelay(busyNakDelay)
	case Nak:
		ackErr = msg.Nak()
	case Term:
		ackErr = msg.Term()
	}
	if err != nil && !apperrors.IsBenign(err) {
		logger.Warn("Gateway notification not applied", slog.String("gateway", n.GatewayName), slog.String("error", err.Error()))
	}
	if ackErr != nil {
		logger.Error("Failed to acknowledge notification", slog.String("error", ackErr.Error()))
	}
}

// Close stops consuming and drains the connection.
func (q *NotificationQueue) Close() {
	if q.consume != nil {
		q.consume.Stop()
	}
	if err := q.nc.Drain(); err != nil {
		slog.Warn("Failed to drain nats connection", slog.String("error", err.Error()))
	}
}
