package audit

import (
	"context"
	"testing"
)

func TestTrailAppendOnly(t *testing.T) {
	trail := NewTrail()
	actor := int64(7)
	if err := trail.Log(context.Background(), NewEntry("Bill", 12, "create", &actor, map[string]any{"amount": 90.0})); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := trail.Log(context.Background(), NewEntry("service_period", 3, "close", nil, nil)); err != nil {
		t.Fatalf("log: %v", err)
	}

	entries := trail.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].EntityType != "bill" {
		t.Errorf("entity type = %q, want normalized %q", entries[0].EntityType, "bill")
	}
	if entries[0].ActorID == nil || *entries[0].ActorID != 7 {
		t.Errorf("actor id not kept: %v", entries[0].ActorID)
	}
	if entries[1].ActorID != nil {
		t.Errorf("user-initiated entry must have nil actor, got %v", entries[1].ActorID)
	}
	if entries[0].ID == entries[1].ID {
		t.Errorf("entries share id %d", entries[0].ID)
	}
}

func TestMarshalChangesEmpty(t *testing.T) {
	data, err := marshalChanges(nil)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("empty changes = %s, want {}", data)
	}
}
