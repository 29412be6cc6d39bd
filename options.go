package persist

import (
	"time"

	"github.com/goliatone/go-persistfile/pkg/activity"
)

// Option configures Persister behaviour that does not belong in Config.
type Option func(*persisterConfig)

type persisterConfig struct {
	logger    Logger
	hooks     activity.Hooks
	activity  activity.Config
	clock     func() time.Time
	evaluator Evaluator
	functions *FunctionRegistry
	cache     ProgramCache
}

func applyOptions(opts []Option) persisterConfig {
	cfg := persisterConfig{
		logger:   noopLogger{},
		activity: activity.Config{Enabled: true, Channel: activity.DefaultChannel},
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithActivityHooks attaches hooks notified after restores and saves. Nil
// entries are dropped.
func WithActivityHooks(hooks ...activity.ActivityHook) Option {
	normalized := make(activity.Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	return func(cfg *persisterConfig) {
		cfg.hooks = append(cfg.hooks, normalized...)
	}
}

// WithActivityConfig overrides activity emission defaults.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *persisterConfig) {
		cfg.activity = config
	}
}

// WithClock replaces time.Now, which drives backup names and event timestamps.
func WithClock(clock func() time.Time) Option {
	return func(cfg *persisterConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithEvaluator sets the engine used to compile Config.ReducerExpression,
// taking precedence over Config.ReducerEngine.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *persisterConfig) {
		cfg.evaluator = e
	}
}

// WithFunctions exposes registry to Config.ReducerExpression. Ignored when
// WithEvaluator supplies the engine.
func WithFunctions(registry *FunctionRegistry) Option {
	return func(cfg *persisterConfig) {
		cfg.functions = registry
	}
}

// WithProgramCache shares compiled reducer programs between Persisters.
// Ignored when WithEvaluator supplies the engine.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *persisterConfig) {
		cfg.cache = cache
	}
}
