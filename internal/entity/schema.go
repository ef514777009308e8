package entity

import (
	"encoding/json"
	"sort"
)

type payloadSchema struct {
	version int
	decode  func(json.RawMessage) (Event, error)
}

func schemaOf[T Event]() (string, payloadSchema) {
	var zero T
	return zero.EventType(), payloadSchema{
		version: zero.SchemaVersion(),
		decode: func(raw json.RawMessage) (Event, error) {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

var schemas = buildSchemas(
	schemaOf[ProductCreated],
	schemaOf[ProductPriceChanged],
	schemaOf[ProductStatusChanged],
	schemaOf[CategoryCreated],
	schemaOf[CategoryUpdated],
	schemaOf[InventoryCreated],
	schemaOf[InventoryReduced],
	schemaOf[InventoryReleased],
	schemaOf[InventoryCommitted],
	schemaOf[InventoryRestocked],
	schemaOf[InventoryReservationFailed],
	schemaOf[CartCreated],
	schemaOf[CartItemAdded],
	schemaOf[CartItemUpdated],
	schemaOf[CartItemRemoved],
	schemaOf[CartCleared],
	schemaOf[OrderCreated],
	schemaOf[OrderPlaced],
	schemaOf[OrderStatusChanged],
	schemaOf[OrderPaid],
	schemaOf[OrderCancelled],
	schemaOf[OrderShipped],
	schemaOf[OrderDelivered],
	schemaOf[PaymentInitiated],
	schemaOf[PaymentProcessing],
	schemaOf[PaymentSucceeded],
	schemaOf[PaymentFailed],
	schemaOf[PaymentRefunded],
	schemaOf[UserRegistered],
	schemaOf[UserProfileUpdated],
	schemaOf[UserRoleChanged],
	schemaOf[UserAddressAdded],
)

func buildSchemas(entries ...func() (string, payloadSchema)) map[string]payloadSchema {
	out := make(map[string]payloadSchema, len(entries))
	for _, entry := range entries {
		name, s := entry()
		out[name] = s
	}
	return out
}

// KnownEventTypes lists every event type with a registered payload schema.
func KnownEventTypes() []string {
	out := make([]string, 0, len(schemas))
	for name := range schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DecodePayload decodes the event data against the schema declared for its
// event type. Unknown types and version mismatches are rejected.
func DecodePayload(e DomainEvent) (Event, error) {
	const op = "entity.DecodePayload"
	s, ok := schemas[e.EventType]
	if !ok {
		return nil, Errorf(CodeSchemaMismatch, op, "unknown event type %q", e.EventType)
	}
	if e.SchemaVersion != s.version {
		return nil, Errorf(CodeSchemaMismatch, op, "%s schema version %d, expected %d", e.EventType, e.SchemaVersion, s.version)
	}
	p, err := s.decode(e.EventData)
	if err != nil {
		return nil, NewError(CodeSchemaMismatch, op, "malformed "+e.EventType+" payload", err)
	}
	return p, nil
}

// PayloadAs decodes the event data as T. It fails when the envelope's event
// type is not T's event type.
func PayloadAs[T Event](e DomainEvent) (T, error) {
	var zero T
	if e.EventType != zero.EventType() {
		return zero, Errorf(CodeSchemaMismatch, "entity.PayloadAs", "event type %q is not %q", e.EventType, zero.EventType())
	}
	p, err := DecodePayload(e)
	if err != nil {
		return zero, err
	}
	v, ok := p.(T)
	if !ok {
		return zero, Errorf(CodeSchemaMismatch, "entity.PayloadAs", "payload of %q has unexpected type", e.EventType)
	}
	return v, nil
}
