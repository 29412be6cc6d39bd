// Package usersink forwards snapshot activity to a go-users ActivitySink, so
// restores and saves land in the same audit trail as user actions.
package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-persistfile/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts snapshot events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// ActorID is used when an event carries no actor of its own.
	ActorID uuid.UUID
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.Path == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	actor := parseUUID(normalized.ActorID)
	if actor == uuid.Nil {
		actor = h.ActorID
	}

	objectID := normalized.SnapshotID
	if objectID == "" {
		objectID = normalized.Path
	}

	record := usertypes.ActivityRecord{
		ActorID:    actor,
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: activity.ObjectType,
		ObjectID:   objectID,
		Channel:    normalized.Channel,
		Data:       normalized.Data(),
		OccurredAt: normalized.OccurredAt,
	}
	return h.Sink.Log(ctx, record)
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
