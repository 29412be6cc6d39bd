// Package activity fans out snapshot lifecycle events (restored, persisted,
// backup written) to pluggable hooks.
package activity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultChannel is applied by Emitter when an event carries no channel.
const DefaultChannel = "store"

// ObjectType identifies snapshot events for downstream sinks.
const ObjectType = "store.snapshot"

// Snapshot lifecycle verbs.
const (
	VerbRestored       = "store.restored"
	VerbRestoreSkipped = "store.restore.skipped"
	VerbPersisted      = "store.persisted"
	VerbBackupWritten  = "store.backup.written"
)

// Event describes one snapshot lifecycle step.
type Event struct {
	Verb       string
	Channel    string
	Path       string
	Operation  string
	SnapshotID string
	Bytes      int
	ActorID    string
	TenantID   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivityHook receives normalized events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

// Notify forwards the event to every hook and joins their errors. Events
// without a verb or path are dropped.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.Path == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims identifiers, clones metadata and stamps OccurredAt.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.Path = strings.TrimSpace(event.Path)
	normalized.Operation = strings.TrimSpace(event.Operation)
	normalized.SnapshotID = strings.TrimSpace(event.SnapshotID)
	normalized.ActorID = strings.TrimSpace(event.ActorID)
	normalized.TenantID = strings.TrimSpace(event.TenantID)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

// Data flattens the event into a metadata map suitable for audit sinks.
func (e Event) Data() map[string]any {
	data := cloneMap(e.Metadata)
	if data == nil {
		data = map[string]any{}
	}
	data["path"] = e.Path
	if e.Operation != "" {
		data["operation"] = e.Operation
	}
	if e.SnapshotID != "" {
		data["snapshot_id"] = e.SnapshotID
	}
	if e.Bytes > 0 {
		data["bytes"] = e.Bytes
	}
	return data
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
