package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-persistfile/internal/decode"
	"github.com/goliatone/go-persistfile/layering"
	"github.com/goliatone/go-persistfile/pkg/activity"
	"github.com/goliatone/go-persistfile/pkg/driver"
)

// Persister saves store state to a driver and restores it on attach. It does
// no locking: the host store is expected to serialise mutations.
type Persister struct {
	cfg     Config
	path    string
	allowed map[string]struct{}
	reducer Reducer
	decoder *decode.Decoder
	merge   []layering.Option

	logger  Logger
	emitter *activity.Emitter
	now     func() time.Time
}

// New validates cfg, applies defaults and freezes the primary snapshot path.
// It does not check that the storage location exists or is writable.
func New(cfg Config, opts ...Option) (*Persister, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	options := applyOptions(opts)

	reducer, err := resolveReducer(cfg, options)
	if err != nil {
		return nil, err
	}

	var decodeOpts []decode.Option
	if cfg.CustomParser != nil {
		decodeOpts = append(decodeOpts, decode.WithParser(decode.Parser(cfg.CustomParser)))
	}

	var allowed map[string]struct{}
	if len(cfg.AllowedOperations) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedOperations))
		for _, name := range cfg.AllowedOperations {
			allowed[name] = struct{}{}
		}
	}

	return &Persister{
		cfg:     cfg,
		path:    filepath.Join(cfg.StorageLocation, cfg.FileName),
		allowed: allowed,
		reducer: reducer,
		decoder: decode.NewDecoder(decodeOpts...),
		merge:   []layering.Option{layering.WithArrayMode(cfg.ArrayMerge)},
		logger:  options.logger,
		emitter: activity.NewEmitter(options.hooks, options.activity),
		now:     options.clock,
	}, nil
}

// Path returns the primary snapshot path.
func (p *Persister) Path() string {
	return p.path
}

// Config returns the resolved configuration, defaults included.
func (p *Persister) Config() Config {
	out := p.cfg
	out.AllowedOperations = append([]string(nil), p.cfg.AllowedOperations...)
	return out
}

// Driver returns the storage driver in use.
func (p *Persister) Driver() driver.Driver {
	return p.cfg.Driver
}

// ShouldSave reports whether a mutation named operation triggers a save.
func (p *Persister) ShouldSave(operation string) bool {
	if len(p.allowed) == 0 {
		return true
	}
	_, ok := p.allowed[operation]
	return ok
}

// Save writes state (reduced when a reducer is configured) to the primary
// path and then to every enabled backup path. Writes are sequential and not
// atomic as a group. Driver errors are returned as-is wrapped with the path.
func (p *Persister) Save(ctx context.Context, operation string, state State) (SaveResult, error) {
	result := SaveResult{Operation: operation}
	if !p.ShouldSave(operation) {
		result.Skipped = true
		p.logger.LogPersist(LogEvent{Op: LogOpSaveSkipped, Path: p.path, Operation: operation})
		return result, nil
	}

	start := time.Now()
	data, err := p.serialize(state)
	if err != nil {
		p.logger.LogPersist(LogEvent{Op: LogOpSave, Path: p.path, Operation: operation, Err: err})
		return result, err
	}

	savedAt := p.now()
	result.SavedAt = savedAt
	result.Bytes = len(data)
	result.SnapshotID = uuid.NewString()

	if err := p.write(ctx, p.path, data); err != nil {
		p.logger.LogPersist(LogEvent{Op: LogOpSave, Path: p.path, Operation: operation, Err: err})
		return result, err
	}
	result.Paths = append(result.Paths, p.path)
	p.logger.LogPersist(LogEvent{Op: LogOpSave, Path: p.path, Operation: operation, Bytes: len(data), Duration: time.Since(start)})
	p.emit(ctx, activity.Event{
		Verb:       activity.VerbPersisted,
		Path:       p.path,
		Operation:  operation,
		SnapshotID: result.SnapshotID,
		Bytes:      len(data),
		OccurredAt: savedAt,
	})

	for _, backup := range p.BackupPaths(savedAt) {
		if err := p.write(ctx, backup, data); err != nil {
			p.logger.LogPersist(LogEvent{Op: LogOpBackup, Path: backup, Operation: operation, Err: err})
			return result, err
		}
		result.Paths = append(result.Paths, backup)
		p.logger.LogPersist(LogEvent{Op: LogOpBackup, Path: backup, Operation: operation, Bytes: len(data)})
		p.emit(ctx, activity.Event{
			Verb:       activity.VerbBackupWritten,
			Path:       backup,
			Operation:  operation,
			SnapshotID: result.SnapshotID,
			Bytes:      len(data),
			OccurredAt: savedAt,
		})
	}
	return result, nil
}

func (p *Persister) serialize(state State) ([]byte, error) {
	var value any = state
	if p.reducer != nil {
		reduced, err := p.reducer(state)
		if err != nil {
			return nil, fmt.Errorf("persist: reduce state: %w", err)
		}
		value = reduced
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("persist: encode state: %w", err)
	}
	return data, nil
}

func (p *Persister) write(ctx context.Context, path string, data []byte) error {
	if err := p.cfg.Driver.Write(ctx, path, data); err != nil {
		return fmt.Errorf("persist: write %q: %w", path, err)
	}
	return nil
}

// Load reads and decodes the primary snapshot without touching any store. A
// missing snapshot or one that fails to decode is reported through the result
// with a nil error and a nil state; only driver failures are returned as
// errors.
func (p *Persister) Load(ctx context.Context) (State, RestoreResult, error) {
	result := RestoreResult{Path: p.path}

	exists, err := p.cfg.Driver.Exists(ctx, p.path)
	if err != nil {
		return nil, result, fmt.Errorf("persist: stat %q: %w", p.path, err)
	}
	if !exists {
		result.Status = RestoreMissing
		return nil, result, nil
	}

	raw, err := p.cfg.Driver.Read(ctx, p.path)
	if err != nil {
		return nil, result, fmt.Errorf("persist: read %q: %w", p.path, err)
	}

	snapshot, err := p.decoder.Decode(raw)
	if err != nil {
		result.Status = RestoreDecodeFailed
		result.Err = &DecodeError{Path: p.path, Err: err}
		return nil, result, nil
	}
	result.Status = RestoreApplied
	return snapshot, result, nil
}

// Restore merges the stored snapshot into store's current state, snapshot
// values winning, and replaces the store state in one assignment. A missing
// or undecodable snapshot leaves the store untouched.
func (p *Persister) Restore(ctx context.Context, store Store) (RestoreResult, error) {
	if store == nil {
		return RestoreResult{Path: p.path}, errors.New("persist: store is required")
	}

	start := time.Now()
	snapshot, result, err := p.Load(ctx)
	if err != nil {
		p.logger.LogPersist(LogEvent{Op: LogOpRestore, Path: p.path, Err: err})
		return result, err
	}

	if result.Status != RestoreApplied {
		p.logger.LogPersist(LogEvent{Op: LogOpRestoreSkipped, Path: p.path, Err: result.Err})
		p.emit(ctx, activity.Event{
			Verb:     activity.VerbRestoreSkipped,
			Path:     p.path,
			Metadata: map[string]any{"reason": string(result.Status)},
		})
		return result, nil
	}

	merged := layering.MergeState(store.State(), snapshot, p.merge...)
	store.ReplaceState(merged)

	result.SnapshotID = uuid.NewString()
	p.logger.LogPersist(LogEvent{Op: LogOpRestore, Path: p.path, Duration: time.Since(start)})
	p.emit(ctx, activity.Event{
		Verb:       activity.VerbRestored,
		Path:       p.path,
		SnapshotID: result.SnapshotID,
		OccurredAt: p.now(),
	})
	return result, nil
}

func (p *Persister) emit(ctx context.Context, event activity.Event) {
	if !p.emitter.Enabled() {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now()
	}
	if err := p.emitter.Emit(ctx, event); err != nil {
		p.logger.LogPersist(LogEvent{Op: LogOpActivity, Path: event.Path, Operation: event.Operation, Err: err})
	}
}
