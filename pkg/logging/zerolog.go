// Package logging adapts persistence log events to rs/zerolog.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	persist "github.com/goliatone/go-persistfile"
)

// NewConsole returns a timestamped console logger writing to w. Verbose lowers
// the level to debug so skipped saves and restores are shown.
func NewConsole(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Zerolog returns a persist.Logger that writes each event to logger.
// Failures log at error level, writes at info and skips or reducer timings at
// debug.
func Zerolog(logger zerolog.Logger) persist.Logger {
	return persist.LoggerFunc(func(event persist.LogEvent) {
		entry := logger.WithLevel(levelFor(event)).Str("op", event.Op)
		if event.Path != "" {
			entry = entry.Str("path", event.Path)
		}
		if event.Operation != "" {
			entry = entry.Str("operation", event.Operation)
		}
		if event.Bytes > 0 {
			entry = entry.Int("bytes", event.Bytes)
		}
		if event.Duration > 0 {
			entry = entry.Dur("duration", event.Duration)
		}
		if event.Err != nil {
			entry = entry.Err(event.Err)
		}
		entry.Msg(message(event))
	})
}

func levelFor(event persist.LogEvent) zerolog.Level {
	switch {
	case event.Err != nil && event.Op == persist.LogOpRestoreSkipped:
		return zerolog.WarnLevel
	case event.Err != nil && event.Op == persist.LogOpActivity:
		return zerolog.WarnLevel
	case event.Err != nil:
		return zerolog.ErrorLevel
	case event.Op == persist.LogOpSave, event.Op == persist.LogOpRestore, event.Op == persist.LogOpBackup:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

func message(event persist.LogEvent) string {
	switch event.Op {
	case persist.LogOpRestore:
		return "state restored"
	case persist.LogOpRestoreSkipped:
		return "restore skipped"
	case persist.LogOpSave:
		return "state saved"
	case persist.LogOpSaveSkipped:
		return "save skipped"
	case persist.LogOpBackup:
		return "backup written"
	case persist.LogOpReduce:
		return "state reduced"
	case persist.LogOpActivity:
		return "activity hook failed"
	default:
		return event.Op
	}
}
