package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Entry is one append-only audit record for a state-changing action.
// ActorID is nil for user-initiated events (e.g. an inbound access request).
type Entry struct {
	ID         int64
	EntityType string
	EntityID   int64
	Action     string
	ActorID    *int64
	Changes    map[string]any
	CreatedAt  time.Time
}

// Recorder writes audit entries. Implementations append only; there is no
// update or delete, and no query API in this service.
type Recorder interface {
	Log(ctx context.Context, entry Entry) error
}

// NewEntry builds an entry with a normalized entity type.
func NewEntry(entityType string, entityID int64, action string, actorID *int64, changes map[string]any) Entry {
	return Entry{
		EntityType: NormalizeEntityType(entityType),
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Changes:    changes,
		CreatedAt:  time.Now().UTC(),
	}
}

// NormalizeEntityType lowercases and trims an entity type so the trail stays
// queryable regardless of caller casing.
func NormalizeEntityType(entityType string) string {
	return strings.ToLower(strings.TrimSpace(entityType))
}

func marshalChanges(changes map[string]any) ([]byte, error) {
	if len(changes) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(changes)
}
