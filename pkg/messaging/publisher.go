package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/medflow/medflow-dispensary/pkg/logger"
)

// Publisher writes envelopes to a topic exchange with the event type as
// routing key. Publishes share one amqp channel and are serialized.
type Publisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
	source   string
	now      func() time.Time
	logger   *logger.Logger
}

// NewPublisher declares exchange and returns a publisher whose envelopes
// name source as their origin.
func NewPublisher(rmq *RabbitMQ, exchange, source string, log *logger.Logger) (*Publisher, error) {
	if err := rmq.DeclareExchange(exchange); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Publisher{
		ch:       rmq.Channel(),
		exchange: exchange,
		source:   source,
		now:      time.Now,
		logger:   log.WithComponent("publisher"),
	}, nil
}

// Publish sends payload as an eventType envelope. The correlation ID comes
// from ctx.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	env, err := newEnvelope(p.now(), eventType, p.source, CorrelationID(ctx), payload)
	if err != nil {
		return err
	}
	msg, err := env.publishing()
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", eventType, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, eventType, false, false, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", eventType, p.exchange, err)
	}

	p.logger.Debug().
		Str("event_type", eventType).
		Stringer("event_id", env.ID).
		Str("correlation_id", env.CorrelationID).
		Msg("event published")
	return nil
}

type ctxKey struct{}

// WithCorrelationID tags ctx so events published under it share id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// CorrelationID returns the ID set by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
