package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	persist "github.com/goliatone/go-persistfile"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestZerologWritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := Zerolog(zerolog.New(&buf))

	logger.LogPersist(persist.LogEvent{
		Op:        persist.LogOpSave,
		Path:      "/data/store.json",
		Operation: "updateA",
		Bytes:     7,
		Duration:  time.Millisecond,
	})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	entry := lines[0]
	if entry["level"] != "info" || entry["message"] != "state saved" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["path"] != "/data/store.json" || entry["operation"] != "updateA" || entry["bytes"] != 7.0 {
		t.Fatalf("missing fields in %v", entry)
	}
}

func TestZerologLevels(t *testing.T) {
	cases := []struct {
		event persist.LogEvent
		level string
	}{
		{persist.LogEvent{Op: persist.LogOpSave, Err: errors.New("boom")}, "error"},
		{persist.LogEvent{Op: persist.LogOpRestoreSkipped, Err: errors.New("bad json")}, "warn"},
		{persist.LogEvent{Op: persist.LogOpActivity, Err: errors.New("sink")}, "warn"},
		{persist.LogEvent{Op: persist.LogOpSaveSkipped}, "debug"},
		{persist.LogEvent{Op: persist.LogOpBackup}, "info"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		Zerolog(zerolog.New(&buf)).LogPersist(tc.event)
		lines := decodeLines(t, &buf)
		if len(lines) != 1 || lines[0]["level"] != tc.level {
			t.Fatalf("%s: expected level %s, got %v", tc.event.Op, tc.level, lines)
		}
		if tc.event.Err != nil && lines[0]["error"] != tc.event.Err.Error() {
			t.Fatalf("%s: expected error field, got %v", tc.event.Op, lines[0])
		}
	}
}

func TestNewConsoleFiltersDebugUnlessVerbose(t *testing.T) {
	var quiet bytes.Buffer
	Zerolog(NewConsole(&quiet, false)).LogPersist(persist.LogEvent{Op: persist.LogOpSaveSkipped})
	if quiet.Len() != 0 {
		t.Fatalf("debug output should be filtered, got %q", quiet.String())
	}

	var loud bytes.Buffer
	Zerolog(NewConsole(&loud, true)).LogPersist(persist.LogEvent{Op: persist.LogOpSaveSkipped})
	if !strings.Contains(loud.String(), "save skipped") {
		t.Fatalf("expected debug output, got %q", loud.String())
	}
}
