package entity

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDecodePayloadFailsClosed(t *testing.T) {
	e, err := NewDomainEvent(InventoryAggregateType, "p-1", 1, InventoryReduced{ProductID: "p-1", Quantity: 2, OrderID: "o-1"}, time.Now())
	if err != nil {
		t.Fatalf("NewDomainEvent: %v", err)
	}

	p, err := DecodePayload(e)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if got, ok := p.(InventoryReduced); !ok || got.Quantity != 2 {
		t.Fatalf("decoded: %#v", p)
	}

	unknown := e
	unknown.EventType = "SomethingElse"
	if _, err := DecodePayload(unknown); !IsCode(err, CodeSchemaMismatch) {
		t.Fatalf("unknown type: want schema_mismatch got %v", err)
	}

	future := e
	future.SchemaVersion = 2
	if _, err := DecodePayload(future); !IsCode(err, CodeSchemaMismatch) {
		t.Fatalf("version mismatch: want schema_mismatch got %v", err)
	}

	broken := e
	broken.EventData = json.RawMessage(`{"quantity":"two"}`)
	if _, err := DecodePayload(broken); !IsCode(err, CodeSchemaMismatch) {
		t.Fatalf("malformed data: want schema_mismatch got %v", err)
	}

	if _, err := PayloadAs[OrderPlaced](e); !IsCode(err, CodeSchemaMismatch) {
		t.Fatalf("wrong target type: want schema_mismatch got %v", err)
	}
}

func TestEnvelopeWireShape(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	e, _ := NewDomainEvent(OrderAggregateType, "o-1", 0, OrderPaid{OrderID: "o-1"}, at)
	raw, err := MarshalEvent(e)
	if err != nil {
		t.Fatalf("MarshalEvent: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"eventId", "aggregateId", "aggregateType", "eventType", "schemaVersion", "sequence", "eventData", "occurredAt"} {
		if _, ok := flat[key]; !ok {
			t.Fatalf("wire shape missing %q: %s", key, raw)
		}
	}
	if flat["occurredAt"] != "2026-03-04T05:06:07Z" {
		t.Fatalf("occurredAt: want ISO-8601 got %v", flat["occurredAt"])
	}

	back, err := UnmarshalEvent(raw)
	if err != nil {
		t.Fatalf("UnmarshalEvent: %v", err)
	}
	if back.EventID != e.EventID || !back.OccurredAt.Equal(at) {
		t.Fatalf("round trip: %+v", back)
	}
	if _, err := UnmarshalEvent([]byte(`{"eventType":""}`)); !IsCode(err, CodeSchemaMismatch) {
		t.Fatalf("empty envelope: want schema_mismatch got %v", err)
	}
}

func TestKnownEventTypesCoverConstants(t *testing.T) {
	known := map[string]bool{}
	for _, name := range KnownEventTypes() {
		known[name] = true
	}
	for _, name := range []string{EventOrderPlaced, EventPaymentSucceeded, EventInventoryReduced, EventInventoryReservationFailed, EventUserAddressAdded} {
		if !known[name] {
			t.Fatalf("%s has no payload schema", name)
		}
	}
}
