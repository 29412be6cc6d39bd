package persist

import (
	"context"
	"time"
)

// State is the JSON-shaped tree held by a host store.
type State = map[string]any

// Mutation names a committed state transition.
type Mutation struct {
	Type    string
	Payload any
}

// Listener receives every committed mutation together with the resulting
// state. A returned error surfaces to whoever committed the mutation.
type Listener func(ctx context.Context, mutation Mutation, state State) error

// Store is the host state container a Persister attaches to. Implementations
// must deliver mutations to listeners synchronously, in commit order.
type Store interface {
	State() State
	ReplaceState(State)
	Subscribe(Listener) (unsubscribe func())
}

// PluginFunc attaches persistence to a store: it restores the saved snapshot
// and subscribes to later mutations.
type PluginFunc func(ctx context.Context, store Store) error

// Reducer narrows the full state to the value worth persisting.
type Reducer func(state State) (any, error)

// Parser replaces the default JSON decoding of a stored snapshot.
type Parser func(data []byte) (any, error)

// RestoreStatus reports what a restore did.
type RestoreStatus string

const (
	// RestoreApplied means the snapshot was merged into the store.
	RestoreApplied RestoreStatus = "applied"
	// RestoreMissing means no snapshot exists at the primary path.
	RestoreMissing RestoreStatus = "missing"
	// RestoreDecodeFailed means the snapshot could not be decoded and the
	// store kept its state.
	RestoreDecodeFailed RestoreStatus = "decode_failed"
)

// RestoreResult describes the outcome of Restore or Load.
type RestoreResult struct {
	Status     RestoreStatus
	Path       string
	SnapshotID string
	// Err holds the *DecodeError when Status is RestoreDecodeFailed.
	Err error
}

// SaveResult describes the outcome of Save.
type SaveResult struct {
	Skipped    bool
	Operation  string
	SnapshotID string
	Paths      []string
	Bytes      int
	SavedAt    time.Time
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaults()
	return *ctx.Now
}

func (ctx RuleContext) snapshotMap() map[string]any {
	if m, ok := ctx.Snapshot.(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}
