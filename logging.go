package persist

import "time"

// Log operations reported through LogEvent.Op.
const (
	LogOpRestore        = "restore"
	LogOpRestoreSkipped = "restore.skipped"
	LogOpSave           = "save"
	LogOpSaveSkipped    = "save.skipped"
	LogOpBackup         = "backup"
	LogOpReduce         = "reduce"
	LogOpActivity       = "activity"
)

// LogEvent describes a persistence step for logging.
type LogEvent struct {
	Op        string
	Path      string
	Operation string
	Bytes     int
	Duration  time.Duration
	Err       error
}

// Logger records persistence events. The library never writes to a global
// logger; integrating applications decide where events go.
type Logger interface {
	LogPersist(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogPersist implements Logger.
func (f LoggerFunc) LogPersist(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogPersist(LogEvent) {}

// WithLogger attaches a logger to the Persister.
func WithLogger(logger Logger) Option {
	return func(cfg *persisterConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
