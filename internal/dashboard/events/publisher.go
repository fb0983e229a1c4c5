package events

import (
	"context"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/pkg/httputil"
	"github.com/medflow/medflow-dispensary/pkg/logger"
	"github.com/medflow/medflow-dispensary/pkg/messaging"
)

// Publisher is what threshold events are sent through.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// ThresholdEventPublisher publishes restock threshold changes. A nil
// publisher drops every event, which is how the dashboard runs without
// RabbitMQ.
type ThresholdEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewThresholdEventPublisher declares the dispensary exchange and returns a
// publisher bound to it.
func NewThresholdEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*ThresholdEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeDispensaryEvents, "dispensary-dashboard", log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing publisher.
func NewWithPublisher(p Publisher, log *logger.Logger) *ThresholdEventPublisher {
	return &ThresholdEventPublisher{publisher: p, logger: log}
}

// PublishOverridden announces that some of an item's thresholds at a unit
// were set by hand. Failures are logged, never returned.
func (p *ThresholdEventPublisher) PublishOverridden(ctx context.Context, o domain.SettingOverride) {
	if p == nil {
		return
	}

	data := messaging.ThresholdOverriddenEvent{
		UnitID: string(o.UnitID),
		ItemID: string(o.ItemID),
		Fields: o.Values(),
	}

	if err := p.publisher.Publish(correlated(ctx), messaging.EventThresholdOverridden, data); err != nil {
		p.logger.Error().Err(err).
			Str("unit_id", data.UnitID).
			Str("item_id", data.ItemID).
			Msg("failed to publish threshold overridden event")
	}
}

// PublishReset announces that one overridden field went back to its
// computed value.
func (p *ThresholdEventPublisher) PublishReset(ctx context.Context, unitID, itemID domain.ID, field string) {
	if p == nil {
		return
	}

	data := messaging.ThresholdResetEvent{
		UnitID: string(unitID),
		ItemID: string(itemID),
		Field:  field,
	}

	if err := p.publisher.Publish(correlated(ctx), messaging.EventThresholdReset, data); err != nil {
		p.logger.Error().Err(err).
			Str("unit_id", data.UnitID).
			Str("field", field).
			Msg("failed to publish threshold reset event")
	}
}

// correlated tags ctx with the request that caused the change, unless a
// correlation ID is already set.
func correlated(ctx context.Context) context.Context {
	if messaging.CorrelationID(ctx) != "" {
		return ctx
	}
	return messaging.WithCorrelationID(ctx, httputil.GetRequestID(ctx))
}
