package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeDispensaryEvents is the topic exchange threshold changes go to.
const ExchangeDispensaryEvents = "dispensary.events"

// Routing keys, one per event type.
const (
	EventThresholdOverridden = "dispensary.threshold.overridden"
	EventThresholdReset      = "dispensary.threshold.reset"
)

const envelopeVersion = 1

// Envelope is the message body for every event on the exchange. Payload
// holds one of the *Event structs below, keyed by Type.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	Version       int             `json:"version"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

func newEnvelope(at time.Time, eventType, source, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:            uuid.New(),
		Version:       envelopeVersion,
		Type:          eventType,
		Source:        source,
		OccurredAt:    at.UTC(),
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Decode reads the payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// publishing turns the envelope into a persistent amqp message.
func (e Envelope) publishing() (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     e.ID.String(),
		Type:          e.Type,
		AppId:         e.Source,
		Timestamp:     e.OccurredAt,
		CorrelationId: e.CorrelationID,
		Headers:       amqp.Table{"x-envelope-version": int32(e.Version)},
		Body:          body,
	}, nil
}

// ThresholdOverriddenEvent carries the fields a user set for an item at a
// unit. Fields left alone are absent from the map.
type ThresholdOverriddenEvent struct {
	UnitID string             `json:"unit_id"`
	ItemID string             `json:"item_id"`
	Fields map[string]float64 `json:"fields"`
}

// ThresholdResetEvent names the one field restored to its computed value.
type ThresholdResetEvent struct {
	UnitID string `json:"unit_id"`
	ItemID string `json:"item_id"`
	Field  string `json:"field"`
}
