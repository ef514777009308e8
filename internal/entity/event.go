package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the typed payload of a domain event. Every payload declares the
// event type it belongs to and the schema version it was written with.
type Event interface {
	EventType() string
	SchemaVersion() int
}

// DomainEvent is the immutable envelope that travels over the bus and is
// persisted in the outbox.
type DomainEvent struct {
	EventID       string          `json:"eventId"`
	AggregateID   string          `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	EventType     string          `json:"eventType"`
	SchemaVersion int             `json:"schemaVersion"`
	Sequence      int             `json:"sequence"`
	EventData     json.RawMessage `json:"eventData"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// NewDomainEvent serializes payload into an envelope for the given aggregate.
func NewDomainEvent(aggregateType, aggregateID string, sequence int, payload Event, occurredAt time.Time) (DomainEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return DomainEvent{}, fmt.Errorf("failed to marshal %s payload: %w", payload.EventType(), err)
	}
	return DomainEvent{
		EventID:       uuid.NewString(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     payload.EventType(),
		SchemaVersion: payload.SchemaVersion(),
		Sequence:      sequence,
		EventData:     data,
		OccurredAt:    occurredAt.UTC(),
	}, nil
}

// MarshalEvent encodes the envelope for a broker.
func MarshalEvent(e DomainEvent) ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent decodes an envelope received from a broker. The payload is
// left undecoded; use DecodePayload or PayloadAs on the result.
func UnmarshalEvent(raw []byte) (DomainEvent, error) {
	var e DomainEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return DomainEvent{}, NewError(CodeSchemaMismatch, "entity.UnmarshalEvent", "malformed event envelope", err)
	}
	if e.EventType == "" || e.AggregateID == "" {
		return DomainEvent{}, NewError(CodeSchemaMismatch, "entity.UnmarshalEvent", "event envelope missing eventType or aggregateId", nil)
	}
	return e, nil
}
